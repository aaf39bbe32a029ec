package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func vehicleQuery(f models.VehicleFilter) bson.M {
	var conds []bson.M
	conds = eq(conds, "type", string(f.Type))
	conds = eq(conds, "status", string(f.Status))
	conds = eq(conds, "region", f.Region)
	if f.ExcludeRetired {
		conds = append(conds, bson.M{"status": bson.M{"$ne": models.VehicleRetired}})
	}
	if f.Search != "" {
		conds = append(conds, search(f.Search, "name", "license_plate", "model"))
	}
	return and(conds)
}

// InsertVehicle inserts a vehicle record into the collection.
func (s *MongoStore) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	stamp(&vehicle.ID, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	return insertOne(ctx, s.vehicles, vehicle)
}

// FindVehicles returns matching vehicles, newest first.
func (s *MongoStore) FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	err := findAll(ctx, s.vehicles, vehicleQuery(filter), bson.D{{Key: "created_at", Value: -1}}, &vehicles)
	return vehicles, err
}

// FindVehicleByID finds a vehicle by its ID.
func (s *MongoStore) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := findByID(ctx, s.vehicles, id, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// CountVehicles counts every vehicle, retired included.
func (s *MongoStore) CountVehicles(ctx context.Context) (int64, error) {
	n, err := s.vehicles.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	return n, nil
}

// UpdateVehicle updates a vehicle by its ID.
func (s *MongoStore) UpdateVehicle(ctx context.Context, vehicle models.Vehicle) error {
	fields, err := setFields(vehicle, "status", "created_at")
	if err != nil {
		return err
	}
	return updateByID(ctx, s.vehicles, vehicle.ID.Hex(), bson.M{"$set": fields}, nil)
}

// SetVehicleStatus changes the status, optionally as a compare-and-set.
func (s *MongoStore) SetVehicleStatus(ctx context.Context, id string, to models.VehicleStatus, from ...models.VehicleStatus) error {
	update := bson.M{"$set": bson.M{"status": to, "updated_at": nowUTC()}}
	return updateByID(ctx, s.vehicles, id, update, statusStrings(from))
}

// RaiseOdometer never lowers the reading.
func (s *MongoStore) RaiseOdometer(ctx context.Context, id string, km float64) error {
	update := bson.M{
		"$max": bson.M{"odometer": km},
		"$set": bson.M{"updated_at": nowUTC()},
	}
	return updateByID(ctx, s.vehicles, id, update, nil)
}

// DeleteVehicle deletes a vehicle by its ID.
func (s *MongoStore) DeleteVehicle(ctx context.Context, id string) error {
	return deleteByID(ctx, s.vehicles, id, nil)
}

func driverQuery(f models.DriverFilter) bson.M {
	var conds []bson.M
	conds = eq(conds, "status", string(f.Status))
	if f.Search != "" {
		conds = append(conds, search(f.Search, "name", "license_number"))
	}
	return and(conds)
}

// InsertDriver inserts a driver record into the collection.
func (s *MongoStore) InsertDriver(ctx context.Context, driver *models.Driver) error {
	stamp(&driver.ID, &driver.CreatedAt, &driver.UpdatedAt)
	return insertOne(ctx, s.drivers, driver)
}

// FindDrivers returns matching drivers ordered by name.
func (s *MongoStore) FindDrivers(ctx context.Context, filter models.DriverFilter) ([]models.Driver, error) {
	drivers := []models.Driver{}
	err := findAll(ctx, s.drivers, driverQuery(filter), bson.D{{Key: "name", Value: 1}}, &drivers)
	return drivers, err
}

// FindDriverByID finds a driver by its ID.
func (s *MongoStore) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	if err := findByID(ctx, s.drivers, id, &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// UpdateDriver updates a driver by its ID.
func (s *MongoStore) UpdateDriver(ctx context.Context, driver models.Driver) error {
	fields, err := setFields(driver, "status", "trips_completed", "trips_cancelled", "created_at")
	if err != nil {
		return err
	}
	return updateByID(ctx, s.drivers, driver.ID.Hex(), bson.M{"$set": fields}, nil)
}

// SetDriverStatus changes the status, optionally as a compare-and-set.
func (s *MongoStore) SetDriverStatus(ctx context.Context, id string, to models.DriverStatus, from ...models.DriverStatus) error {
	update := bson.M{"$set": bson.M{"status": to, "updated_at": nowUTC()}}
	return updateByID(ctx, s.drivers, id, update, statusStrings(from))
}

// IncDriverTrips bumps the completed and cancelled counters.
func (s *MongoStore) IncDriverTrips(ctx context.Context, id string, completed, cancelled int) error {
	update := bson.M{
		"$inc": bson.M{"trips_completed": completed, "trips_cancelled": cancelled},
		"$set": bson.M{"updated_at": nowUTC()},
	}
	return updateByID(ctx, s.drivers, id, update, nil)
}

// DeleteDriver deletes a driver by its ID.
func (s *MongoStore) DeleteDriver(ctx context.Context, id string) error {
	return deleteByID(ctx, s.drivers, id, nil)
}

func tripQuery(f models.TripFilter) bson.M {
	var conds []bson.M
	conds = eq(conds, "status", string(f.Status))
	conds = eq(conds, "vehicle_id", f.VehicleID)
	conds = eq(conds, "driver_id", f.DriverID)
	return and(conds)
}

// InsertTrip inserts a trip record into the collection.
func (s *MongoStore) InsertTrip(ctx context.Context, trip *models.Trip) error {
	stamp(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	return insertOne(ctx, s.trips, trip)
}

// FindTrips returns matching trips, newest first.
func (s *MongoStore) FindTrips(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	trips := []models.Trip{}
	err := findAll(ctx, s.trips, tripQuery(filter), bson.D{{Key: "created_at", Value: -1}}, &trips)
	return trips, err
}

// FindTripByID finds a trip by its ID.
func (s *MongoStore) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	if err := findByID(ctx, s.trips, id, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// ReplaceTrip stores the trip if nobody moved it out of status expect.
func (s *MongoStore) ReplaceTrip(ctx context.Context, trip models.Trip, expect models.TripStatus) error {
	trip.UpdatedAt = nowUTC()
	return replaceByID(ctx, s.trips, trip.ID, trip, string(expect))
}

// DeleteTrip deletes a trip whose status is one of allowed.
func (s *MongoStore) DeleteTrip(ctx context.Context, id string, allowed ...models.TripStatus) error {
	return deleteByID(ctx, s.trips, id, statusStrings(allowed))
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
