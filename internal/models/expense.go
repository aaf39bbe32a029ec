package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense represents a miscellaneous vehicle cost record.
type Expense struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID   string             `json:"vehicle_id" bson:"vehicle_id"`
	TripID      string             `json:"trip_id,omitempty" bson:"trip_id,omitempty"`
	Category    string             `json:"category" bson:"category"` // "Toll", "Insurance", "Parking", ...
	Description string             `json:"description" bson:"description"`
	Amount      float64            `json:"amount" bson:"amount"`
	Date        time.Time          `json:"date" bson:"date"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Validate checks field-level constraints.
func (e *Expense) Validate() error {
	if e.VehicleID == "" {
		return errors.New("vehicle id is required")
	}
	if strings.TrimSpace(e.Category) == "" {
		return errors.New("category is required")
	}
	if e.Amount < 0 {
		return errors.New("amount cannot be negative")
	}
	return nil
}
