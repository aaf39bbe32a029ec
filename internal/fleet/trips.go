package fleet

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
)

// NewTrip is the input for CreateTrip.
type NewTrip struct {
	VehicleID        string   `json:"vehicle_id"`
	DriverID         string   `json:"driver_id"`
	Origin           string   `json:"origin"`
	Destination      string   `json:"destination"`
	CargoWeight      float64  `json:"cargo_weight"`
	CargoDescription string   `json:"cargo_description"`
	Revenue          float64  `json:"revenue"`
	StartOdometer    *float64 `json:"start_odometer"`
}

func (n NewTrip) validate() error {
	switch {
	case strings.TrimSpace(n.VehicleID) == "":
		return validation("vehicle id is required")
	case strings.TrimSpace(n.DriverID) == "":
		return validation("driver id is required")
	case !finite(n.CargoWeight) || n.CargoWeight <= 0:
		return validation("cargo weight must be greater than 0")
	case !finite(n.Revenue) || n.Revenue < 0:
		return validation("revenue cannot be negative")
	case n.StartOdometer != nil && (!finite(*n.StartOdometer) || *n.StartOdometer < 0):
		return validation("start odometer cannot be negative")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func kg(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CreateTrip plans a Draft trip. The vehicle and driver stay available
// until dispatch.
func (e *Engine) CreateTrip(ctx context.Context, in NewTrip) (*models.Trip, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	vehicle, err := e.store.FindVehicleByID(ctx, in.VehicleID)
	if err != nil {
		return nil, lookup(err, "vehicle")
	}
	if vehicle.Status != models.VehicleAvailable {
		return nil, precondition("vehicle not available")
	}
	driver, err := e.store.FindDriverByID(ctx, in.DriverID)
	if err != nil {
		return nil, lookup(err, "driver")
	}
	if in.CargoWeight > vehicle.MaxCapacity {
		return nil, precondition("cargo weight (%skg) exceeds vehicle max capacity (%skg)",
			kg(in.CargoWeight), kg(vehicle.MaxCapacity))
	}
	if !driver.LicenseValidOn(e.now()) {
		return nil, precondition("driver license has expired")
	}
	if !driver.LicensedFor(vehicle.Type) {
		return nil, precondition("driver not licensed for %s", vehicle.Type)
	}
	if driver.Status != models.DriverOnDuty {
		return nil, precondition("driver not available (must be On Duty)")
	}

	trip := &models.Trip{
		VehicleID:        in.VehicleID,
		DriverID:         in.DriverID,
		Origin:           orUnknown(in.Origin),
		Destination:      orUnknown(in.Destination),
		CargoWeight:      in.CargoWeight,
		CargoDescription: in.CargoDescription,
		Status:           models.TripDraft,
		StartOdometer:    in.StartOdometer,
		Revenue:          in.Revenue,
	}
	if err := e.store.InsertTrip(ctx, trip); err != nil {
		return nil, err
	}
	e.log.WithFields(log.Fields{
		"trip_id":    trip.ID.Hex(),
		"vehicle_id": trip.VehicleID,
		"driver_id":  trip.DriverID,
	}).Info("trip created")
	return trip, nil
}

func orUnknown(place string) string {
	if place = strings.TrimSpace(place); place == "" {
		return models.UnknownPlace
	}
	return place
}

// DispatchTrip marks the trip, its vehicle and its driver busy together.
// Vehicle and driver availability are re-checked by compare-and-set, so two
// racing dispatches for one vehicle cannot both succeed.
func (e *Engine) DispatchTrip(ctx context.Context, id string) (*models.Trip, error) {
	var out models.Trip
	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		trip, err := e.store.FindTripByID(ctx, id)
		if err != nil {
			return lookup(err, "trip")
		}
		if trip.Status != models.TripDraft {
			return precondition("only draft trips can be dispatched")
		}
		vehicle, err := e.store.FindVehicleByID(ctx, trip.VehicleID)
		if err != nil {
			return lookup(err, "vehicle")
		}

		err = e.store.SetVehicleStatus(ctx, trip.VehicleID, models.VehicleOnTrip, models.VehicleAvailable)
		if err != nil {
			return casFailure(err, "vehicle not available", "vehicle")
		}
		c.onFailure(func(ctx context.Context) error {
			return e.store.SetVehicleStatus(ctx, trip.VehicleID, models.VehicleAvailable, models.VehicleOnTrip)
		})

		err = e.store.SetDriverStatus(ctx, trip.DriverID, models.DriverOnTrip, models.DriverOnDuty)
		if err != nil {
			return casFailure(err, "driver not available", "driver")
		}
		c.onFailure(func(ctx context.Context) error {
			return e.store.SetDriverStatus(ctx, trip.DriverID, models.DriverOnDuty, models.DriverOnTrip)
		})

		at := c.at
		trip.Status = models.TripDispatched
		trip.DispatchedAt = &at
		if trip.StartOdometer == nil {
			odometer := vehicle.Odometer
			trip.StartOdometer = &odometer
		}
		if err := e.store.ReplaceTrip(ctx, *trip, models.TripDraft); err != nil {
			return casFailure(err, "only draft trips can be dispatched", "trip")
		}

		c.record(models.EntityVehicle, trip.VehicleID, string(models.VehicleAvailable), string(models.VehicleOnTrip))
		c.record(models.EntityDriver, trip.DriverID, string(models.DriverOnDuty), string(models.DriverOnTrip))
		c.record(models.EntityTrip, id, string(models.TripDraft), string(models.TripDispatched))
		out = *trip
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(log.Fields{"trip_id": id, "vehicle_id": out.VehicleID, "driver_id": out.DriverID}).Info("trip dispatched")
	return &out, nil
}

// resolveEndOdometer returns the end reading to store and whether it came
// from the caller. Absent, non-finite, negative or backwards readings fall
// back to the start reading.
func resolveEndOdometer(start, end *float64) (*float64, bool) {
	if end != nil && finite(*end) && *end >= 0 && (start == nil || *end >= *start) {
		v := *end
		return &v, true
	}
	if start == nil {
		return nil, false
	}
	v := *start
	return &v, false
}

// CompleteTrip closes a dispatched trip and releases its vehicle and driver.
// The vehicle odometer only moves when a usable end reading was given.
func (e *Engine) CompleteTrip(ctx context.Context, id string, endOdometer *float64) (*models.Trip, error) {
	var out models.Trip
	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		trip, err := e.store.FindTripByID(ctx, id)
		if err != nil {
			return lookup(err, "trip")
		}
		if trip.Status != models.TripDispatched {
			return precondition("only dispatched trips can be completed")
		}

		end, given := resolveEndOdometer(trip.StartOdometer, endOdometer)
		prev := *trip
		at := c.at
		trip.Status = models.TripCompleted
		trip.CompletedAt = &at
		trip.EndOdometer = end
		if err := e.replaceTrip(ctx, c, *trip, prev); err != nil {
			return casFailure(err, "only dispatched trips can be completed", "trip")
		}
		c.record(models.EntityTrip, id, string(models.TripDispatched), string(models.TripCompleted))

		if err := e.releaseVehicle(ctx, c, trip.VehicleID); err != nil {
			return err
		}
		if err := e.releaseDriver(ctx, c, trip.DriverID, 1, 0); err != nil {
			return err
		}
		// Last write: the odometer cannot be lowered back.
		if given {
			if err := e.store.RaiseOdometer(ctx, trip.VehicleID, *end); err != nil && !errors.Is(err, db.ErrNotFound) {
				return err
			}
		}
		out = *trip
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithFields(log.Fields{"trip_id": id, "vehicle_id": out.VehicleID}).Info("trip completed")
	return &out, nil
}

// CancelTrip cancels a Draft or Dispatched trip. Only a dispatched trip
// has a vehicle and driver to release.
func (e *Engine) CancelTrip(ctx context.Context, id string) (*models.Trip, error) {
	var out models.Trip
	err := e.transact(ctx, func(ctx context.Context, c *change) error {
		trip, err := e.store.FindTripByID(ctx, id)
		if err != nil {
			return lookup(err, "trip")
		}
		from := trip.Status
		if from.IsTerminal() {
			return precondition("trip cannot be cancelled")
		}
		prev := *trip
		trip.Status = models.TripCancelled
		if err := e.replaceTrip(ctx, c, *trip, prev); err != nil {
			return casFailure(err, "trip cannot be cancelled", "trip")
		}
		c.record(models.EntityTrip, id, string(from), string(models.TripCancelled))

		if from == models.TripDispatched {
			if err := e.releaseVehicle(ctx, c, trip.VehicleID); err != nil {
				return err
			}
			if err := e.releaseDriver(ctx, c, trip.DriverID, 0, 1); err != nil {
				return err
			}
		}
		out = *trip
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithField("trip_id", id).Info("trip cancelled")
	return &out, nil
}

// DeleteTrip removes a trip that is not currently dispatched.
func (e *Engine) DeleteTrip(ctx context.Context, id string) error {
	trip, err := e.store.FindTripByID(ctx, id)
	if err != nil {
		return lookup(err, "trip")
	}
	if trip.Status == models.TripDispatched {
		return precondition("cannot delete a dispatched trip, cancel it first")
	}
	err = e.store.DeleteTrip(ctx, id, models.TripDraft, models.TripCompleted, models.TripCancelled)
	if err != nil {
		return casFailure(err, "cannot delete a dispatched trip, cancel it first", "trip")
	}
	e.log.WithField("trip_id", id).Info("trip deleted")
	return nil
}

// GetTrip returns one trip.
func (e *Engine) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := e.store.FindTripByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "trip")
	}
	return trip, nil
}

// ListTrips returns trips matching filter, newest first.
func (e *Engine) ListTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	return e.store.FindTrips(ctx, filter)
}

// replaceTrip stores next over prev and registers the reverse write.
func (e *Engine) replaceTrip(ctx context.Context, c *change, next, prev models.Trip) error {
	if err := e.store.ReplaceTrip(ctx, next, prev.Status); err != nil {
		return err
	}
	c.onFailure(func(ctx context.Context) error {
		return e.store.ReplaceTrip(ctx, prev, next.Status)
	})
	return nil
}

// releaseVehicle returns an On Trip vehicle to Available. A vehicle that was
// overridden or deleted while on the trip is left alone.
func (e *Engine) releaseVehicle(ctx context.Context, c *change, vehicleID string) error {
	err := e.store.SetVehicleStatus(ctx, vehicleID, models.VehicleAvailable, models.VehicleOnTrip)
	switch {
	case err == nil:
		c.onFailure(func(ctx context.Context) error {
			return e.store.SetVehicleStatus(ctx, vehicleID, models.VehicleOnTrip, models.VehicleAvailable)
		})
		c.record(models.EntityVehicle, vehicleID, string(models.VehicleOnTrip), string(models.VehicleAvailable))
		return nil
	case errors.Is(err, db.ErrStatusConflict), errors.Is(err, db.ErrNotFound):
		e.log.WithField("vehicle_id", vehicleID).Warn("vehicle was not on trip, status left unchanged")
		return nil
	default:
		return err
	}
}

func (e *Engine) releaseDriver(ctx context.Context, c *change, driverID string, completed, cancelled int) error {
	err := e.store.SetDriverStatus(ctx, driverID, models.DriverOnDuty, models.DriverOnTrip)
	switch {
	case err == nil:
		c.onFailure(func(ctx context.Context) error {
			return e.store.SetDriverStatus(ctx, driverID, models.DriverOnTrip, models.DriverOnDuty)
		})
		c.record(models.EntityDriver, driverID, string(models.DriverOnTrip), string(models.DriverOnDuty))
	case errors.Is(err, db.ErrStatusConflict):
		e.log.WithField("driver_id", driverID).Warn("driver was not on trip, status left unchanged")
	case errors.Is(err, db.ErrNotFound):
		e.log.WithField("driver_id", driverID).Warn("driver no longer exists")
		return nil
	default:
		return err
	}
	if err := e.store.IncDriverTrips(ctx, driverID, completed, cancelled); err != nil {
		return err
	}
	c.onFailure(func(ctx context.Context) error {
		return e.store.IncDriverTrips(ctx, driverID, -completed, -cancelled)
	})
	return nil
}

// casFailure maps a failed compare-and-set to a precondition failure.
func casFailure(err error, message, what string) error {
	switch {
	case errors.Is(err, db.ErrStatusConflict):
		return precondition("%s", message)
	case errors.Is(err, db.ErrNotFound):
		return notFound("%s not found", what)
	default:
		return err
	}
}
