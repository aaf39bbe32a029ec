package fleet

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateMaintenance records a service. An In Progress record puts the
// vehicle in the shop.
func (e *Engine) CreateMaintenance(ctx context.Context, record models.Maintenance) (*models.Maintenance, error) {
	record.ID = primitive.NilObjectID
	record.ApplyDefaults(e.now())
	if err := record.Validate(); err != nil {
		return nil, invalid(err)
	}

	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		vehicle, err := e.store.FindVehicleByID(ctx, record.VehicleID)
		if err != nil {
			return lookup(err, "vehicle")
		}
		if record.Status == models.MaintenanceInProgress {
			if err := e.enterShop(ctx, c, vehicle); err != nil {
				return err
			}
		}
		return e.store.InsertMaintenance(ctx, &record)
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(log.Fields{
		"maintenance_id": record.ID.Hex(),
		"vehicle_id":     record.VehicleID,
		"status":         record.Status,
	}).Info("maintenance created")
	return &record, nil
}

// enterShop moves an Available vehicle to In Shop. A vehicle on a trip
// cannot be taken into the shop; a retired one keeps its status.
func (e *Engine) enterShop(ctx context.Context, c *change, vehicle *models.Vehicle) error {
	id := vehicle.ID.Hex()
	switch vehicle.Status {
	case models.VehicleInShop, models.VehicleRetired:
		return nil
	case models.VehicleOnTrip:
		return precondition("vehicle is on a trip")
	}
	from := vehicle.Status
	if err := e.store.SetVehicleStatus(ctx, id, models.VehicleInShop, from); err != nil {
		return casFailure(err, "vehicle status changed, try again", "vehicle")
	}
	c.onFailure(func(ctx context.Context) error {
		return e.store.SetVehicleStatus(ctx, id, from, models.VehicleInShop)
	})
	c.record(models.EntityVehicle, id, string(vehicle.Status), string(models.VehicleInShop))
	return nil
}

// releaseFromShop returns the vehicle to Available once no In Progress
// record remains for it, and only if it is still In Shop.
func (e *Engine) releaseFromShop(ctx context.Context, c *change, vehicleID string) error {
	open, err := e.store.CountMaintenance(ctx, models.MaintenanceFilter{
		VehicleID: vehicleID,
		Status:    models.MaintenanceInProgress,
	})
	if err != nil {
		return err
	}
	if open > 0 {
		e.log.WithFields(log.Fields{"vehicle_id": vehicleID, "open": open}).Info("vehicle stays in shop")
		return nil
	}
	err = e.store.SetVehicleStatus(ctx, vehicleID, models.VehicleAvailable, models.VehicleInShop)
	switch {
	case err == nil:
		c.onFailure(func(ctx context.Context) error {
			return e.store.SetVehicleStatus(ctx, vehicleID, models.VehicleInShop, models.VehicleAvailable)
		})
		c.record(models.EntityVehicle, vehicleID, string(models.VehicleInShop), string(models.VehicleAvailable))
		return nil
	case errors.Is(err, db.ErrStatusConflict), errors.Is(err, db.ErrNotFound):
		return nil
	default:
		return err
	}
}

// UpdateMaintenance merges a change onto the stored record with apply.
// Moving In Progress to Completed releases the vehicle.
func (e *Engine) UpdateMaintenance(ctx context.Context, id string, apply func(*models.Maintenance) error) (*models.Maintenance, error) {
	var out models.Maintenance
	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		current, err := e.store.FindMaintenanceByID(ctx, id)
		if err != nil {
			return lookup(err, "maintenance record")
		}
		next := *current
		if err := apply(&next); err != nil {
			return invalid(err)
		}
		next.ID = current.ID
		next.VehicleID = current.VehicleID
		next.CreatedAt = current.CreatedAt
		if err := next.Validate(); err != nil {
			return invalid(err)
		}
		if err := e.store.ReplaceMaintenance(ctx, next, current.Status); err != nil {
			return casFailure(err, "maintenance record changed, try again", "maintenance record")
		}
		c.onFailure(func(ctx context.Context) error {
			return e.store.ReplaceMaintenance(ctx, *current, next.Status)
		})
		if next.Status != current.Status {
			c.record(models.EntityMaintenance, id, string(current.Status), string(next.Status))
		}
		if current.Status == models.MaintenanceInProgress && next.Status == models.MaintenanceCompleted {
			if err := e.releaseFromShop(ctx, c, next.VehicleID); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(log.Fields{"maintenance_id": id, "status": out.Status}).Info("maintenance updated")
	return &out, nil
}

// DeleteMaintenance removes a record; removing an In Progress record
// releases the vehicle.
func (e *Engine) DeleteMaintenance(ctx context.Context, id string) error {
	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		current, err := e.store.FindMaintenanceByID(ctx, id)
		if err != nil {
			return lookup(err, "maintenance record")
		}
		if err := e.store.DeleteMaintenance(ctx, id, current.Status); err != nil {
			return casFailure(err, "maintenance record changed, try again", "maintenance record")
		}
		c.onFailure(func(ctx context.Context) error {
			return e.store.InsertMaintenance(ctx, current)
		})
		if current.Status == models.MaintenanceInProgress {
			return e.releaseFromShop(ctx, c, current.VehicleID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.log.WithField("maintenance_id", id).Info("maintenance deleted")
	return nil
}

// GetMaintenance returns one record.
func (e *Engine) GetMaintenance(ctx context.Context, id string) (*models.Maintenance, error) {
	record, err := e.store.FindMaintenanceByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "maintenance record")
	}
	return record, nil
}

// ListMaintenance returns matching records, latest first.
func (e *Engine) ListMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error) {
	return e.store.FindMaintenance(ctx, filter)
}
