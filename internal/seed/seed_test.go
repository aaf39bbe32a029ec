package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
)

var now = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestLoad(t *testing.T) {
	f, err := Load()
	require.NoError(t, err)
	assert.Len(t, f.Vehicles, 6)
	assert.Len(t, f.Drivers, 4)
	assert.Len(t, f.Trips, 4)
	assert.Equal(t, "2026-08-15", models.DateOnly(f.Drivers[0].LicenseExpiry))
}

func TestParse_BadReference(t *testing.T) {
	_, err := Parse([]byte(`
vehicles: []
drivers: []
trips:
  - vehicle: 0
    driver: 0
`))
	assert.ErrorContains(t, err, "trip 0")

	_, err = Parse([]byte("vehicles: {"))
	assert.ErrorContains(t, err, "parse seed fixture")
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()

	res, err := Apply(ctx, store, now)
	require.NoError(t, err)
	assert.True(t, res.Seeded)
	assert.Equal(t, Result{
		Seeded: true, Message: "demo data seeded",
		Vehicles: 6, Drivers: 4, Trips: 4, Maintenance: 2, FuelLogs: 2, Expenses: 2,
	}, res)

	fuel, err := store.FindFuelLogs(ctx, models.FuelLogFilter{})
	require.NoError(t, err)
	totals := 0.0
	for _, l := range fuel {
		totals += l.TotalCost
	}
	assert.Equal(t, 18450.0+4612.5, totals)

	snap, err := analytics.LoadSnapshot(ctx, store)
	require.NoError(t, err)
	d := analytics.BuildDashboard(snap)
	assert.Equal(t, 1, d.ActiveFleet)
	assert.Equal(t, 1, d.InShop)
	assert.Equal(t, 1, d.PendingCargo)
	assert.Equal(t, 3, d.ActiveDrivers)

	again, err := Apply(ctx, store, now)
	require.NoError(t, err)
	assert.False(t, again.Seeded)
	assert.Equal(t, "data already exists, skipping seed", again.Message)
	count, err := store.CountVehicles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestApply_RollsBackOnInvalidRecord(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()

	f, err := Load()
	require.NoError(t, err)
	f.Expenses[1].Category = ""

	_, err = f.Apply(ctx, store, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expense 1")

	count, err := store.CountVehicles(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
