package fleet

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

func (r *recordingSink) Publish(_ context.Context, ev models.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixture struct {
	engine  *Engine
	store   *db.MemoryStore
	sink    *recordingSink
	vehicle *models.Vehicle
	driver  *models.Driver
}

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

// newFixture sets up the 5000 kg truck and a Truck-licensed driver.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := db.NewMemoryStore()
	sink := &recordingSink{}
	engine := NewEngine(store,
		WithEvents(sink),
		WithClock(func() time.Time { return testNow }),
		WithLogger(quietLogger()),
	)
	ctx := context.Background()

	vehicle, err := engine.CreateVehicle(ctx, models.Vehicle{
		Name: "Tata Prima", Type: models.VehicleTruck, LicensePlate: "GJ-01-XY-0001",
		MaxCapacity: 5000, Odometer: 10000, AcquisitionCost: 2500000,
	})
	require.NoError(t, err)
	driver, err := engine.CreateDriver(ctx, models.Driver{
		Name: "Alex Kumar", LicenseNumber: "DL-1", LicenseCategory: "Truck",
		LicenseExpiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return &fixture{engine: engine, store: store, sink: sink, vehicle: vehicle, driver: driver}
}

func (f *fixture) newTrip(t *testing.T, cargo float64) *models.Trip {
	t.Helper()
	trip, err := f.engine.CreateTrip(context.Background(), NewTrip{
		VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: cargo, Revenue: 15000,
	})
	require.NoError(t, err)
	return trip
}

func (f *fixture) vehicleNow(t *testing.T) *models.Vehicle {
	v, err := f.store.FindVehicleByID(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	return v
}

func (f *fixture) driverNow(t *testing.T) *models.Driver {
	d, err := f.store.FindDriverByID(context.Background(), f.driver.ID.Hex())
	require.NoError(t, err)
	return d
}

func TestTripScenario_DispatchComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trip := f.newTrip(t, 4000)
	assert.Equal(t, models.TripDraft, trip.Status)
	assert.Equal(t, models.UnknownPlace, trip.Origin)
	assert.Equal(t, models.VehicleAvailable, f.vehicleNow(t).Status)

	dispatched, err := f.engine.DispatchTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TripDispatched, dispatched.Status)
	require.NotNil(t, dispatched.DispatchedAt)
	require.NotNil(t, dispatched.StartOdometer)
	assert.Equal(t, 10000.0, *dispatched.StartOdometer)
	assert.Equal(t, models.VehicleOnTrip, f.vehicleNow(t).Status)
	assert.Equal(t, models.DriverOnTrip, f.driverNow(t).Status)

	end := *dispatched.StartOdometer + 120
	completed, err := f.engine.CompleteTrip(ctx, trip.ID.Hex(), &end)
	require.NoError(t, err)
	assert.Equal(t, models.TripCompleted, completed.Status)
	assert.Equal(t, testNow, *completed.CompletedAt)
	assert.Equal(t, end, *completed.EndOdometer)

	v := f.vehicleNow(t)
	assert.Equal(t, models.VehicleAvailable, v.Status)
	assert.Equal(t, 10120.0, v.Odometer)
	d := f.driverNow(t)
	assert.Equal(t, models.DriverOnDuty, d.Status)
	assert.Equal(t, 1, d.TripsCompleted)
	assert.Equal(t, 0, d.TripsCancelled)

	// trip, vehicle and driver on dispatch; the same three on completion.
	assert.Equal(t, 6, f.sink.count())
}

func TestCreateTrip_OverCapacity(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateTrip(context.Background(), NewTrip{
		VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: 6000,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Contains(t, err.Error(), "6000")
	assert.Contains(t, err.Error(), "5000")
}

func TestCreateTrip_CapacityBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreateTrip(ctx, NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: 5000})
	assert.NoError(t, err)

	_, err = f.engine.CreateTrip(ctx, NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: 5001})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestCreateTrip_Guards(t *testing.T) {
	ctx := context.Background()
	missing := "64b7f0c2a1b2c3d4e5f60718"

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		in      func(f *fixture) NewTrip
		kind    error
		message string
	}{
		{
			name:    "missing cargo weight",
			in:      func(f *fixture) NewTrip { return NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex()} },
			kind:    ErrValidation,
			message: "cargo weight must be greater than 0",
		},
		{
			name:    "unknown vehicle",
			in:      func(f *fixture) NewTrip { return NewTrip{VehicleID: missing, DriverID: f.driver.ID.Hex(), CargoWeight: 1} },
			kind:    ErrNotFound,
			message: "vehicle not found",
		},
		{
			name: "vehicle in shop",
			setup: func(t *testing.T, f *fixture) {
				_, err := f.engine.SetVehicleStatus(ctx, f.vehicle.ID.Hex(), models.VehicleInShop)
				require.NoError(t, err)
			},
			in:      func(f *fixture) NewTrip { return NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: missing, CargoWeight: 1} },
			kind:    ErrPrecondition,
			message: "vehicle not available",
		},
		{
			name:    "unknown driver",
			in:      func(f *fixture) NewTrip { return NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: missing, CargoWeight: 1} },
			kind:    ErrNotFound,
			message: "driver not found",
		},
		{
			name: "expired license",
			setup: func(t *testing.T, f *fixture) {
				_, err := f.engine.UpdateDriver(ctx, f.driver.ID.Hex(), func(d *models.Driver) error {
					d.LicenseExpiry = testNow.AddDate(0, 0, -1)
					return nil
				})
				require.NoError(t, err)
			},
			in:      func(f *fixture) NewTrip { return NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: 1} },
			kind:    ErrPrecondition,
			message: "driver license has expired",
		},
		{
			name: "wrong license category",
			setup: func(t *testing.T, f *fixture) {
				_, err := f.engine.UpdateDriver(ctx, f.driver.ID.Hex(), func(d *models.Driver) error {
					d.LicenseCategory = "Van, Bike"
					return nil
				})
				require.NoError(t, err)
			},
			in:      func(f *fixture) NewTrip { return NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: 1} },
			kind:    ErrPrecondition,
			message: "driver not licensed for Truck",
		},
		{
			name: "driver off duty",
			setup: func(t *testing.T, f *fixture) {
				_, err := f.engine.SetDriverStatus(ctx, f.driver.ID.Hex(), models.DriverOffDuty)
				require.NoError(t, err)
			},
			in:      func(f *fixture) NewTrip { return NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: 1} },
			kind:    ErrPrecondition,
			message: "driver not available (must be On Duty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			_, err := f.engine.CreateTrip(ctx, tt.in(f))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestCreateTrip_LicenseExpiringToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.UpdateDriver(ctx, f.driver.ID.Hex(), func(d *models.Driver) error {
		d.LicenseExpiry = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		return nil
	})
	require.NoError(t, err)

	_, err = f.engine.CreateTrip(ctx, NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: f.driver.ID.Hex(), CargoWeight: 1})
	assert.NoError(t, err)
}

func TestCompleteTrip_WithoutEndOdometer(t *testing.T) {
	ctx := context.Background()

	// Absent, negative, NaN and backwards readings all fall back.
	for _, end := range []*float64{nil, ptr(-5), ptr(math.NaN()), ptr(9000)} {
		f := newFixture(t)
		trip := f.newTrip(t, 100)
		_, err := f.engine.DispatchTrip(ctx, trip.ID.Hex())
		require.NoError(t, err)

		completed, err := f.engine.CompleteTrip(ctx, trip.ID.Hex(), end)
		require.NoError(t, err)
		require.NotNil(t, completed.EndOdometer)
		assert.Equal(t, *completed.StartOdometer, *completed.EndOdometer)
		assert.Equal(t, 10000.0, f.vehicleNow(t).Odometer)
	}
}

func TestDispatchCancel_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := f.newTrip(t, 100)

	_, err := f.engine.DispatchTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	cancelled, err := f.engine.CancelTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TripCancelled, cancelled.Status)

	assert.Equal(t, models.VehicleAvailable, f.vehicleNow(t).Status)
	d := f.driverNow(t)
	assert.Equal(t, models.DriverOnDuty, d.Status)
	assert.Equal(t, 1, d.TripsCancelled)

	// Terminal states reject a second cancel and change nothing.
	_, err = f.engine.CancelTrip(ctx, trip.ID.Hex())
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, "trip cannot be cancelled", err.Error())
	assert.Equal(t, 1, f.driverNow(t).TripsCancelled)
}

func TestCancelTrip_DraftHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := f.newTrip(t, 100)

	_, err := f.engine.CancelTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, f.driverNow(t).TripsCancelled)
	assert.Equal(t, models.VehicleAvailable, f.vehicleNow(t).Status)
}

func TestCancelTrip_CompletedFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := f.newTrip(t, 100)
	_, err := f.engine.DispatchTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	_, err = f.engine.CompleteTrip(ctx, trip.ID.Hex(), nil)
	require.NoError(t, err)

	before := f.sink.count()
	_, err = f.engine.CancelTrip(ctx, trip.ID.Hex())
	assert.ErrorIs(t, err, ErrPrecondition)
	got, err := f.engine.GetTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TripCompleted, got.Status)
	assert.Equal(t, before, f.sink.count())
}

func TestTransitionGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := f.newTrip(t, 100)

	_, err := f.engine.CompleteTrip(ctx, trip.ID.Hex(), nil)
	assert.Equal(t, "only dispatched trips can be completed", err.Error())

	_, err = f.engine.DispatchTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	_, err = f.engine.DispatchTrip(ctx, trip.ID.Hex())
	assert.Equal(t, "only draft trips can be dispatched", err.Error())

	err = f.engine.DeleteTrip(ctx, trip.ID.Hex())
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = f.engine.CancelTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.NoError(t, f.engine.DeleteTrip(ctx, trip.ID.Hex()))

	_, err = f.engine.GetTrip(ctx, trip.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatch_SecondTripForSameVehicleFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.engine.CreateDriver(ctx, models.Driver{
		Name: "Priya Sharma", LicenseNumber: "DL-2", LicenseCategory: "Truck,Van",
		LicenseExpiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	first := f.newTrip(t, 100)
	second, err := f.engine.CreateTrip(ctx, NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: other.ID.Hex(), CargoWeight: 100})
	require.NoError(t, err)

	_, err = f.engine.DispatchTrip(ctx, first.ID.Hex())
	require.NoError(t, err)
	_, err = f.engine.DispatchTrip(ctx, second.ID.Hex())
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, "vehicle not available", err.Error())

	// The second driver was never marked busy.
	d, err := f.store.FindDriverByID(ctx, other.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.DriverOnDuty, d.Status)
}

func TestDispatch_ConcurrentRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var trips []*models.Trip
	for i := 0; i < 8; i++ {
		d, err := f.engine.CreateDriver(ctx, models.Driver{
			Name: "Driver", LicenseNumber: "DL-R", LicenseCategory: "Truck",
			LicenseExpiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		trip, err := f.engine.CreateTrip(ctx, NewTrip{VehicleID: f.vehicle.ID.Hex(), DriverID: d.ID.Hex(), CargoWeight: 10})
		require.NoError(t, err)
		trips = append(trips, trip)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(trips))
	for i, trip := range trips {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.engine.DispatchTrip(ctx, id)
		}(i, trip.ID.Hex())
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, errors.Is(err, ErrPrecondition), "unexpected error %v", err)
		}
	}
	assert.Equal(t, 1, wins)

	dispatched, err := f.engine.ListTrips(ctx, models.TripFilter{Status: models.TripDispatched})
	require.NoError(t, err)
	assert.Len(t, dispatched, 1)

	onTrip, err := f.store.FindDrivers(ctx, models.DriverFilter{Status: models.DriverOnTrip})
	require.NoError(t, err)
	assert.Len(t, onTrip, 1)
}

func TestResolveEndOdometer(t *testing.T) {
	start := 100.0
	end, given := resolveEndOdometer(&start, ptr(150))
	assert.True(t, given)
	assert.Equal(t, 150.0, *end)

	end, given = resolveEndOdometer(&start, ptr(math.Inf(1)))
	assert.False(t, given)
	assert.Equal(t, 100.0, *end)

	end, given = resolveEndOdometer(nil, nil)
	assert.False(t, given)
	assert.Nil(t, end)
}

func ptr(f float64) *float64 {
	return &f
}
