package fleet

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func plateConflict(err error) error {
	if errors.Is(err, db.ErrDuplicate) {
		return conflict("license plate already exists")
	}
	return err
}

// CreateVehicle registers a vehicle; plates are unique.
func (e *Engine) CreateVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error) {
	v.ID = primitive.NilObjectID
	v.ApplyDefaults(e.now())
	if err := v.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.InsertVehicle(ctx, &v); err != nil {
		return nil, plateConflict(err)
	}
	e.log.WithFields(log.Fields{"vehicle_id": v.ID.Hex(), "plate": v.LicensePlate}).Info("vehicle created")
	return &v, nil
}

// UpdateVehicle merges a change with apply. Status is not editable here;
// use SetVehicleStatus.
func (e *Engine) UpdateVehicle(ctx context.Context, id string, apply func(*models.Vehicle) error) (*models.Vehicle, error) {
	current, err := e.store.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "vehicle")
	}
	next := *current
	if err := apply(&next); err != nil {
		return nil, invalid(err)
	}
	next.ID = current.ID
	next.Status = current.Status
	next.CreatedAt = current.CreatedAt
	next.ApplyDefaults(e.now())
	if err := next.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.UpdateVehicle(ctx, next); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFound("vehicle not found")
		}
		return nil, plateConflict(err)
	}
	return e.GetVehicle(ctx, id)
}

// SetVehicleStatus is the manual status override.
func (e *Engine) SetVehicleStatus(ctx context.Context, id string, to models.VehicleStatus) (*models.Vehicle, error) {
	if !models.IsValidVehicleStatus(to) {
		return nil, validation("invalid status")
	}
	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		current, err := e.store.FindVehicleByID(ctx, id)
		if err != nil {
			return lookup(err, "vehicle")
		}
		if err := e.store.SetVehicleStatus(ctx, id, to, current.Status); err != nil {
			return casFailure(err, "vehicle status changed, try again", "vehicle")
		}
		if current.Status != to {
			c.record(models.EntityVehicle, id, string(current.Status), string(to))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(log.Fields{"vehicle_id": id, "status": to}).Info("vehicle status set")
	return e.GetVehicle(ctx, id)
}

// DeleteVehicle removes a vehicle. History records are kept.
func (e *Engine) DeleteVehicle(ctx context.Context, id string) error {
	if err := e.store.DeleteVehicle(ctx, id); err != nil {
		return lookup(err, "vehicle")
	}
	e.log.WithField("vehicle_id", id).Info("vehicle deleted")
	return nil
}

// GetVehicle returns one vehicle.
func (e *Engine) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	v, err := e.store.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "vehicle")
	}
	return v, nil
}

// ListVehicles returns vehicles matching filter, newest first.
func (e *Engine) ListVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	return e.store.FindVehicles(ctx, filter)
}

// CreateDriver registers a driver.
func (e *Engine) CreateDriver(ctx context.Context, d models.Driver) (*models.Driver, error) {
	d.ID = primitive.NilObjectID
	d.ApplyDefaults()
	if err := d.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.InsertDriver(ctx, &d); err != nil {
		return nil, err
	}
	e.log.WithField("driver_id", d.ID.Hex()).Info("driver created")
	return &d, nil
}

// UpdateDriver merges a change with apply. Status and trip counters are
// owned by the trip lifecycle.
func (e *Engine) UpdateDriver(ctx context.Context, id string, apply func(*models.Driver) error) (*models.Driver, error) {
	current, err := e.store.FindDriverByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "driver")
	}
	next := *current
	if err := apply(&next); err != nil {
		return nil, invalid(err)
	}
	next.ID = current.ID
	next.Status = current.Status
	next.TripsCompleted = current.TripsCompleted
	next.TripsCancelled = current.TripsCancelled
	next.CreatedAt = current.CreatedAt
	next.ApplyDefaults()
	if err := next.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.UpdateDriver(ctx, next); err != nil {
		return nil, lookup(err, "driver")
	}
	return e.GetDriver(ctx, id)
}

// SetDriverStatus is the manual status override.
func (e *Engine) SetDriverStatus(ctx context.Context, id string, to models.DriverStatus) (*models.Driver, error) {
	if !models.IsValidDriverStatus(to) {
		return nil, validation("invalid status")
	}
	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		current, err := e.store.FindDriverByID(ctx, id)
		if err != nil {
			return lookup(err, "driver")
		}
		if err := e.store.SetDriverStatus(ctx, id, to, current.Status); err != nil {
			return casFailure(err, "driver status changed, try again", "driver")
		}
		if current.Status != to {
			c.record(models.EntityDriver, id, string(current.Status), string(to))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(log.Fields{"driver_id": id, "status": to}).Info("driver status set")
	return e.GetDriver(ctx, id)
}

// DeleteDriver removes a driver.
func (e *Engine) DeleteDriver(ctx context.Context, id string) error {
	if err := e.store.DeleteDriver(ctx, id); err != nil {
		return lookup(err, "driver")
	}
	e.log.WithField("driver_id", id).Info("driver deleted")
	return nil
}

// GetDriver returns one driver.
func (e *Engine) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	d, err := e.store.FindDriverByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "driver")
	}
	return d, nil
}

// ListDrivers returns drivers matching filter, ordered by name.
func (e *Engine) ListDrivers(ctx context.Context, filter models.DriverFilter) ([]models.Driver, error) {
	return e.store.FindDrivers(ctx, filter)
}

// CreateFuelLog records a refuelling; the total is derived.
func (e *Engine) CreateFuelLog(ctx context.Context, l models.FuelLog) (*models.FuelLog, error) {
	l.ID = primitive.NilObjectID
	if l.Date.IsZero() {
		l.Date = e.now()
	}
	l.Recompute()
	if err := l.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.InsertFuelLog(ctx, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateFuelLog merges a change with apply and recomputes the total.
func (e *Engine) UpdateFuelLog(ctx context.Context, id string, apply func(*models.FuelLog) error) (*models.FuelLog, error) {
	current, err := e.store.FindFuelLogByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "fuel log")
	}
	next := *current
	if err := apply(&next); err != nil {
		return nil, invalid(err)
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.Recompute()
	if err := next.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.ReplaceFuelLog(ctx, next); err != nil {
		return nil, lookup(err, "fuel log")
	}
	return &next, nil
}

// DeleteFuelLog removes a fuel log.
func (e *Engine) DeleteFuelLog(ctx context.Context, id string) error {
	if err := e.store.DeleteFuelLog(ctx, id); err != nil {
		return lookup(err, "fuel log")
	}
	return nil
}

// ListFuelLogs returns matching fuel logs, latest first.
func (e *Engine) ListFuelLogs(ctx context.Context, filter models.FuelLogFilter) ([]models.FuelLog, error) {
	return e.store.FindFuelLogs(ctx, filter)
}

// CreateExpense records an expense.
func (e *Engine) CreateExpense(ctx context.Context, x models.Expense) (*models.Expense, error) {
	x.ID = primitive.NilObjectID
	if x.Date.IsZero() {
		x.Date = e.now()
	}
	if err := x.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.InsertExpense(ctx, &x); err != nil {
		return nil, err
	}
	return &x, nil
}

// UpdateExpense merges a change with apply.
func (e *Engine) UpdateExpense(ctx context.Context, id string, apply func(*models.Expense) error) (*models.Expense, error) {
	current, err := e.store.FindExpenseByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "expense")
	}
	next := *current
	if err := apply(&next); err != nil {
		return nil, invalid(err)
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	if err := next.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := e.store.ReplaceExpense(ctx, next); err != nil {
		return nil, lookup(err, "expense")
	}
	return &next, nil
}

// DeleteExpense removes an expense.
func (e *Engine) DeleteExpense(ctx context.Context, id string) error {
	if err := e.store.DeleteExpense(ctx, id); err != nil {
		return lookup(err, "expense")
	}
	return nil
}

// ListExpenses returns matching expenses, latest first.
func (e *Engine) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	return e.store.FindExpenses(ctx, filter)
}
