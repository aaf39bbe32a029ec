package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FuelLog represents one refuelling of a vehicle.
type FuelLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID    string             `bson:"vehicle_id" json:"vehicle_id"`
	TripID       string             `bson:"trip_id,omitempty" json:"trip_id,omitempty"`
	Liters       float64            `bson:"liters" json:"liters"`
	CostPerLiter float64            `bson:"cost_per_liter" json:"cost_per_liter"`
	TotalCost    float64            `bson:"total_cost" json:"total_cost"`
	Date         time.Time          `bson:"date" json:"date"`
	Odometer     float64            `bson:"odometer" json:"odometer"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Recompute derives TotalCost; it runs on every write.
func (f *FuelLog) Recompute() {
	f.TotalCost = f.Liters * f.CostPerLiter
}

// Validate checks field-level constraints.
func (f *FuelLog) Validate() error {
	if f.VehicleID == "" {
		return errors.New("vehicle id is required")
	}
	if f.Liters <= 0 {
		return errors.New("liters must be greater than 0")
	}
	if f.CostPerLiter < 0 {
		return errors.New("cost per liter cannot be negative")
	}
	if f.Odometer < 0 {
		return errors.New("odometer cannot be negative")
	}
	return nil
}
