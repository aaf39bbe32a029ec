package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/seed"
)

// ReportHandler serves KPIs, the analytics report, alerts, seeding and
// health.
type ReportHandler struct {
	store           db.Store
	deadStockWindow time.Duration
	now             func() time.Time
}

// NewReportHandler creates a report handler. A non-positive window uses the
// default dead stock window.
func NewReportHandler(store db.Store, deadStockWindow time.Duration) *ReportHandler {
	if deadStockWindow <= 0 {
		deadStockWindow = analytics.DefaultDeadStockWindow
	}
	return &ReportHandler{store: store, deadStockWindow: deadStockWindow, now: time.Now}
}

func (h *ReportHandler) snapshot(w http.ResponseWriter, r *http.Request) (*analytics.Snapshot, bool) {
	s, err := analytics.LoadSnapshot(r.Context(), h.store)
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return s, true
}

// KPIs handles GET /api/kpis
func (h *ReportHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, analytics.BuildDashboard(s))
}

// Analytics handles GET /api/analytics
func (h *ReportHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, analytics.BuildReport(s))
}

type alertsView struct {
	ExpiredLicenses []models.Driver           `json:"expired_licenses"`
	DeadStock       []analytics.DeadStockItem `json:"dead_stock"`
}

// Alerts handles GET /api/analytics/alerts
func (h *ReportHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	window := h.deadStockWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			fail(w, http.StatusBadRequest, "window must be a positive duration such as 720h")
			return
		}
		window = d
	}
	now := h.now()
	respond(w, http.StatusOK, alertsView{
		ExpiredLicenses: analytics.ExpiredLicenses(s.Drivers, now),
		DeadStock:       analytics.DeadStock(s, now, window),
	})
}

// Seed handles POST /api/seed
func (h *ReportHandler) Seed(w http.ResponseWriter, r *http.Request) {
	res, err := seed.Apply(r.Context(), h.store, h.now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, res)
}

// Health handles GET /api/health
func (h *ReportHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		log.WithError(err).Warn("health check failed")
		fail(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok", "time": h.now().UTC().Format(time.RFC3339)})
}
