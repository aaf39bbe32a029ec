// Package analytics computes fleet KPIs as pure functions over a snapshot of
// every entity.
package analytics

import (
	"context"
	"fmt"

	"github.com/ukydev/fleetflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// Snapshot is the full fleet state at one point in time.
type Snapshot struct {
	Vehicles    []models.Vehicle
	Drivers     []models.Driver
	Trips       []models.Trip
	Maintenance []models.Maintenance
	FuelLogs    []models.FuelLog
	Expenses    []models.Expense
}

// Reader is the read side of the store that a snapshot needs.
type Reader interface {
	FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error)
	FindDrivers(ctx context.Context, filter models.DriverFilter) ([]models.Driver, error)
	FindTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error)
	FindMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error)
	FindFuelLogs(ctx context.Context, filter models.FuelLogFilter) ([]models.FuelLog, error)
	FindExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error)
}

// LoadSnapshot reads every collection concurrently.
func LoadSnapshot(ctx context.Context, r Reader) (*Snapshot, error) {
	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Vehicles, err = r.FindVehicles(ctx, models.VehicleFilter{})
		return wrap("vehicles", err)
	})
	g.Go(func() (err error) {
		s.Drivers, err = r.FindDrivers(ctx, models.DriverFilter{})
		return wrap("drivers", err)
	})
	g.Go(func() (err error) {
		s.Trips, err = r.FindTrips(ctx, models.TripFilter{})
		return wrap("trips", err)
	})
	g.Go(func() (err error) {
		s.Maintenance, err = r.FindMaintenance(ctx, models.MaintenanceFilter{})
		return wrap("maintenance", err)
	})
	g.Go(func() (err error) {
		s.FuelLogs, err = r.FindFuelLogs(ctx, models.FuelLogFilter{})
		return wrap("fuel logs", err)
	})
	g.Go(func() (err error) {
		s.Expenses, err = r.FindExpenses(ctx, models.ExpenseFilter{})
		return wrap("expenses", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
