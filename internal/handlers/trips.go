package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/models"
)

type completeRequest struct {
	EndOdometer json.RawMessage `json:"end_odometer"`
}

// endOdometer reads the reading as a number or numeric string. Anything
// else counts as absent, so completion falls back to the start reading.
func (c completeRequest) endOdometer() *float64 {
	if len(c.EndOdometer) == 0 || string(c.EndOdometer) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(c.EndOdometer, &v); err == nil {
		return &v
	}
	var s string
	if err := json.Unmarshal(c.EndOdometer, &s); err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

// ListTrips handles GET /api/trips
func (h *FleetHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.engine.ListTrips(r.Context(), models.TripFilter{
		Status:    models.TripStatus(query(r, "status")),
		VehicleID: query(r, "vehicle_id"),
		DriverID:  query(r, "driver_id"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, trips)
}

// GetTrip handles GET /api/trips/{id}
func (h *FleetHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.GetTrip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, t)
}

// CreateTrip handles POST /api/trips
func (h *FleetHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var in fleet.NewTrip
	if err := decode(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	t, err := h.engine.CreateTrip(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, t)
}

// DispatchTrip handles PATCH /api/trips/{id}/dispatch
func (h *FleetHandler) DispatchTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.DispatchTrip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, t)
}

// CompleteTrip handles PATCH /api/trips/{id}/complete
func (h *FleetHandler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	t, err := h.engine.CompleteTrip(r.Context(), chi.URLParam(r, "id"), req.endOdometer())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, t)
}

// CancelTrip handles PATCH /api/trips/{id}/cancel
func (h *FleetHandler) CancelTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.CancelTrip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, t)
}

// DeleteTrip handles DELETE /api/trips/{id}
func (h *FleetHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteTrip(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "trip deleted"})
}
