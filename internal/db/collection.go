package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleetflow/internal/models"
)

var (
	// ErrNotFound is returned when no document matches the id.
	ErrNotFound = errors.New("document not found")
	// ErrStatusConflict is returned when a compare-and-set finds a status
	// other than the expected one.
	ErrStatusConflict = errors.New("status changed concurrently")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	CountVehicles(ctx context.Context) (int64, error)
	// UpdateVehicle overwrites the editable fields; status and created_at
	// are left as stored.
	UpdateVehicle(ctx context.Context, vehicle models.Vehicle) error
	// SetVehicleStatus moves the vehicle to status to. With from given, the
	// write only happens while the stored status is one of them.
	SetVehicleStatus(ctx context.Context, id string, to models.VehicleStatus, from ...models.VehicleStatus) error
	// RaiseOdometer sets the odometer to km unless it already reads higher.
	RaiseOdometer(ctx context.Context, id string, km float64) error
	DeleteVehicle(ctx context.Context, id string) error
}

// DriverCollection defines the interface for driver data operations.
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver *models.Driver) error
	FindDrivers(ctx context.Context, filter models.DriverFilter) ([]models.Driver, error)
	FindDriverByID(ctx context.Context, id string) (*models.Driver, error)
	// UpdateDriver overwrites the editable fields; status and trip counters
	// are left as stored.
	UpdateDriver(ctx context.Context, driver models.Driver) error
	SetDriverStatus(ctx context.Context, id string, to models.DriverStatus, from ...models.DriverStatus) error
	IncDriverTrips(ctx context.Context, id string, completed, cancelled int) error
	DeleteDriver(ctx context.Context, id string) error
}

// TripCollection defines the interface for trip data operations.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip *models.Trip) error
	FindTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error)
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	// ReplaceTrip stores trip only while the stored status equals expect.
	ReplaceTrip(ctx context.Context, trip models.Trip, expect models.TripStatus) error
	// DeleteTrip removes the trip only while its status is one of allowed.
	DeleteTrip(ctx context.Context, id string, allowed ...models.TripStatus) error
}

// MaintenanceCollection defines the interface for maintenance data operations.
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, record *models.Maintenance) error
	FindMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error)
	FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error)
	CountMaintenance(ctx context.Context, filter models.MaintenanceFilter) (int64, error)
	ReplaceMaintenance(ctx context.Context, record models.Maintenance, expect models.MaintenanceStatus) error
	DeleteMaintenance(ctx context.Context, id string, expect models.MaintenanceStatus) error
}

// FuelLogCollection defines the interface for fuel log data operations.
type FuelLogCollection interface {
	InsertFuelLog(ctx context.Context, log *models.FuelLog) error
	FindFuelLogs(ctx context.Context, filter models.FuelLogFilter) ([]models.FuelLog, error)
	FindFuelLogByID(ctx context.Context, id string) (*models.FuelLog, error)
	ReplaceFuelLog(ctx context.Context, log models.FuelLog) error
	DeleteFuelLog(ctx context.Context, id string) error
}

// ExpenseCollection defines the interface for expense data operations.
type ExpenseCollection interface {
	InsertExpense(ctx context.Context, expense *models.Expense) error
	FindExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error)
	FindExpenseByID(ctx context.Context, id string) (*models.Expense, error)
	ReplaceExpense(ctx context.Context, expense models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

// Store aggregates every collection.
type Store interface {
	VehicleCollection
	DriverCollection
	TripCollection
	MaintenanceCollection
	FuelLogCollection
	ExpenseCollection
	UserCollection

	// WithTransaction runs fn so that either all of its writes persist or
	// none do. Store calls made inside fn must use the ctx passed to fn.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}
