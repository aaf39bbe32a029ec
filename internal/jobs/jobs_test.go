package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
)

var now = time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

type alertSink struct {
	mu     sync.Mutex
	alerts []models.Alert
	err    error
}

func (s *alertSink) PublishAlert(_ context.Context, a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.err
}

type recorder struct {
	runs map[string][]bool
}

func (r *recorder) RecordJob(job string, _ time.Duration, success bool) {
	if r.runs == nil {
		r.runs = map[string][]bool{}
	}
	r.runs[job] = append(r.runs[job], success)
}

type sweeper struct{ windows []time.Duration }

func (s *sweeper) Sweep(window time.Duration) { s.windows = append(s.windows, window) }

func seedStore(t *testing.T) db.Store {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryStore()

	idle := models.Vehicle{
		Name: "Van-05", Type: models.VehicleVan, LicensePlate: "MH-01-0005",
		MaxCapacity: 500, Status: models.VehicleAvailable,
	}
	idle.ApplyDefaults(now.AddDate(0, -3, 0))
	require.NoError(t, store.InsertVehicle(ctx, &idle))

	fresh := models.Vehicle{
		Name: "Truck-01", Type: models.VehicleTruck, LicensePlate: "MH-01-0001",
		MaxCapacity: 5000, Status: models.VehicleAvailable,
	}
	fresh.ApplyDefaults(now.AddDate(0, 0, -2))
	require.NoError(t, store.InsertVehicle(ctx, &fresh))

	expired := models.Driver{
		Name: "Suresh", LicenseNumber: "DL-2", LicenseCategory: "Van",
		LicenseExpiry: now.AddDate(0, -1, 0),
	}
	expired.ApplyDefaults()
	require.NoError(t, store.InsertDriver(ctx, &expired))
	return store
}

func newRunner(store db.Store, sink AlertPublisher, rec Recorder, limiter Sweeper) *Runner {
	r := NewRunner(RunnerConfig{
		Store:           store,
		Alerts:          sink,
		Recorder:        rec,
		Limiter:         limiter,
		LimiterWindow:   time.Minute,
		DeadStockWindow: 30 * 24 * time.Hour,
	})
	r.now = func() time.Time { return now }
	return r
}

func TestSweepAlerts(t *testing.T) {
	sink := &alertSink{}
	r := newRunner(seedStore(t), sink, nil, nil)

	alerts, err := r.SweepAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertLicenseExpired, alerts[0].Kind)
	assert.Equal(t, models.AlertDeadStock, alerts[1].Kind)
	assert.Contains(t, alerts[1].Message, "Van-05")
	assert.Equal(t, alerts, sink.alerts)
}

func TestSweepAlerts_PublishFailureDoesNotStopSweep(t *testing.T) {
	sink := &alertSink{err: errors.New("broker down")}
	rec := &recorder{}
	r := newRunner(seedStore(t), sink, rec, nil)

	r.FleetAlerts()
	assert.Len(t, sink.alerts, 2)
	assert.Equal(t, []bool{true}, rec.runs[JobFleetAlerts])
}

func TestRun_RecoversPanic(t *testing.T) {
	rec := &recorder{}
	r := newRunner(db.NewMemoryStore(), &alertSink{}, rec, nil)

	err := r.run("boom", func(context.Context) error { panic("bad state") })
	assert.EqualError(t, err, "job boom panicked: bad state")
	assert.Equal(t, []bool{false}, rec.runs["boom"])
}

func TestRateLimitSweep(t *testing.T) {
	limiter := &sweeper{}
	rec := &recorder{}
	r := newRunner(db.NewMemoryStore(), &alertSink{}, rec, limiter)

	r.RateLimitSweep()
	assert.Equal(t, []time.Duration{time.Minute}, limiter.windows)
	assert.Equal(t, []bool{true}, rec.runs[JobRateLimitSweep])

	newRunner(db.NewMemoryStore(), &alertSink{}, nil, nil).RateLimitSweep()
}

func TestNewScheduler(t *testing.T) {
	r := newRunner(db.NewMemoryStore(), &alertSink{}, nil, nil)

	s, err := NewScheduler(r, Schedules{FleetAlerts: "0 0 6 * * *", RateLimitSweep: "@every 5m"})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())
	s.Start()
	s.Stop()

	s, err = NewScheduler(r, Schedules{FleetAlerts: "0 0 6 * * *"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	_, err = NewScheduler(r, Schedules{FleetAlerts: "every morning"})
	assert.ErrorContains(t, err, "schedule fleet_alerts")
}
