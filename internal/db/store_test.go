package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/models"
)

// testStoreContract exercises the behaviour every Store implementation must
// share. rollback says whether WithTransaction undoes writes on error.
func testStoreContract(t *testing.T, s Store, rollback bool) {
	ctx := context.Background()

	t.Run("vehicles", func(t *testing.T) {
		v := &models.Vehicle{Name: "Volvo FH-16", Type: models.VehicleTruck, LicensePlate: "GJ-05-AB-1234",
			MaxCapacity: 18000, Odometer: 1000, Status: models.VehicleAvailable}
		require.NoError(t, s.InsertVehicle(ctx, v))
		assert.False(t, v.ID.IsZero())
		assert.False(t, v.CreatedAt.IsZero())

		dup := &models.Vehicle{Name: "Copy", Type: models.VehicleVan, LicensePlate: "GJ-05-AB-1234", MaxCapacity: 1, Status: models.VehicleAvailable}
		assert.ErrorIs(t, s.InsertVehicle(ctx, dup), ErrDuplicate)

		id := v.ID.Hex()
		require.NoError(t, s.SetVehicleStatus(ctx, id, models.VehicleOnTrip, models.VehicleAvailable))
		assert.ErrorIs(t, s.SetVehicleStatus(ctx, id, models.VehicleOnTrip, models.VehicleAvailable), ErrStatusConflict)

		require.NoError(t, s.RaiseOdometer(ctx, id, 1500))
		require.NoError(t, s.RaiseOdometer(ctx, id, 1200))

		edit := *v
		edit.Name = "Volvo FH-16 Globetrotter"
		edit.Status = models.VehicleRetired
		edit.Odometer = 1500
		require.NoError(t, s.UpdateVehicle(ctx, edit))

		got, err := s.FindVehicleByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Volvo FH-16 Globetrotter", got.Name)
		assert.Equal(t, models.VehicleOnTrip, got.Status, "plain update keeps the lifecycle status")
		assert.Equal(t, 1500.0, got.Odometer)

		found, err := s.FindVehicles(ctx, models.VehicleFilter{Search: "globe"})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		n, err := s.CountVehicles(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.FindVehicleByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteVehicle(ctx, "64b7f0c2a1b2c3d4e5f60718"), ErrNotFound)
	})

	t.Run("drivers", func(t *testing.T) {
		d := &models.Driver{Name: "Alex Kumar", LicenseNumber: "L-1", LicenseCategory: "Truck",
			LicenseExpiry: time.Now().AddDate(1, 0, 0), Status: models.DriverOnDuty}
		require.NoError(t, s.InsertDriver(ctx, d))
		id := d.ID.Hex()

		require.NoError(t, s.IncDriverTrips(ctx, id, 1, 0))
		require.NoError(t, s.IncDriverTrips(ctx, id, 0, 2))
		require.NoError(t, s.SetDriverStatus(ctx, id, models.DriverSuspended))

		edit := *d
		edit.Phone = "+91 98765 43210"
		edit.TripsCompleted = 99
		require.NoError(t, s.UpdateDriver(ctx, edit))

		got, err := s.FindDriverByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, got.TripsCompleted)
		assert.Equal(t, 2, got.TripsCancelled)
		assert.Equal(t, models.DriverSuspended, got.Status)
		assert.Equal(t, "+91 98765 43210", got.Phone)
	})

	t.Run("trips", func(t *testing.T) {
		trip := &models.Trip{VehicleID: "v", DriverID: "d", CargoWeight: 10, Status: models.TripDraft}
		require.NoError(t, s.InsertTrip(ctx, trip))

		next := *trip
		next.Status = models.TripDispatched
		require.NoError(t, s.ReplaceTrip(ctx, next, models.TripDraft))
		assert.ErrorIs(t, s.ReplaceTrip(ctx, next, models.TripDraft), ErrStatusConflict)

		assert.ErrorIs(t, s.DeleteTrip(ctx, trip.ID.Hex(), models.TripDraft), ErrStatusConflict)

		list, err := s.FindTrips(ctx, models.TripFilter{Status: models.TripDispatched})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, trip.ID, list[0].ID)
	})

	t.Run("maintenance", func(t *testing.T) {
		m := &models.Maintenance{VehicleID: "v1", Type: "Oil Change", Status: models.MaintenanceInProgress, Date: time.Now()}
		require.NoError(t, s.InsertMaintenance(ctx, m))
		require.NoError(t, s.InsertMaintenance(ctx, &models.Maintenance{VehicleID: "v1", Type: "Tyres", Status: models.MaintenanceCompleted, Date: time.Now()}))

		n, err := s.CountMaintenance(ctx, models.MaintenanceFilter{VehicleID: "v1", Status: models.MaintenanceInProgress})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		assert.ErrorIs(t, s.DeleteMaintenance(ctx, m.ID.Hex(), models.MaintenancePending), ErrStatusConflict)
		require.NoError(t, s.DeleteMaintenance(ctx, m.ID.Hex(), models.MaintenanceInProgress))
	})

	t.Run("users", func(t *testing.T) {
		u := &models.User{Username: "dispatch1", PasswordHash: "hash", Name: "Dee", Role: models.RoleDispatcher}
		require.NoError(t, s.InsertUser(ctx, u))
		assert.ErrorIs(t, s.InsertUser(ctx, &models.User{Username: "dispatch1"}), ErrDuplicate)

		_, err := s.FindUserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)

		edit := *u
		edit.Name = "Dee Patel"
		require.NoError(t, s.UpdateUser(ctx, edit))
		got, err := s.FindUserByUsername(ctx, "dispatch1")
		require.NoError(t, err)
		assert.Equal(t, "Dee Patel", got.Name)
		assert.Equal(t, "hash", got.PasswordHash)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		if !rollback {
			t.Skip("store runs without transactions")
		}
		boom := errors.New("boom")
		err := s.WithTransaction(ctx, func(ctx context.Context) error {
			e := &models.Expense{VehicleID: "rollback", Category: "Toll", Amount: 10}
			if err := s.InsertExpense(ctx, e); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		list, err := s.FindExpenses(ctx, models.ExpenseFilter{VehicleID: "rollback"})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	testStoreContract(t, NewMemoryStore(), true)
}
