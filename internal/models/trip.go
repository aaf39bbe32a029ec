package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// TripStatus is the trip lifecycle state. Completed and Cancelled are terminal.
type TripStatus string

const (
	TripDraft      TripStatus = "Draft"
	TripDispatched TripStatus = "Dispatched"
	TripCompleted  TripStatus = "Completed"
	TripCancelled  TripStatus = "Cancelled"
)

// UnknownPlace fills a missing origin or destination.
const UnknownPlace = "Unknown"

// Trip represents a cargo run of one vehicle with one driver.
type Trip struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID        string             `json:"vehicle_id" bson:"vehicle_id"`
	DriverID         string             `json:"driver_id" bson:"driver_id"`
	Origin           string             `json:"origin" bson:"origin"`
	Destination      string             `json:"destination" bson:"destination"`
	CargoWeight      float64            `json:"cargo_weight" bson:"cargo_weight"` // kg
	CargoDescription string             `json:"cargo_description" bson:"cargo_description"`
	Status           TripStatus         `json:"status" bson:"status"`
	DispatchedAt     *time.Time         `json:"dispatched_at" bson:"dispatched_at"`
	CompletedAt      *time.Time         `json:"completed_at" bson:"completed_at"`
	StartOdometer    *float64           `json:"start_odometer" bson:"start_odometer"` // km
	EndOdometer      *float64           `json:"end_odometer" bson:"end_odometer"`     // km
	Revenue          float64            `json:"revenue" bson:"revenue"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsValidTripStatus checks if a trip status is known.
func IsValidTripStatus(s TripStatus) bool {
	switch s {
	case TripDraft, TripDispatched, TripCompleted, TripCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s TripStatus) IsTerminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// Distance is the odometer delta, known only when both readings are present.
func (t *Trip) Distance() (float64, bool) {
	if t.StartOdometer == nil || t.EndOdometer == nil {
		return 0, false
	}
	return *t.EndOdometer - *t.StartOdometer, true
}

// LastActivity is the latest of creation, dispatch and completion time.
func (t *Trip) LastActivity() time.Time {
	last := t.CreatedAt
	if t.DispatchedAt != nil && t.DispatchedAt.After(last) {
		last = *t.DispatchedAt
	}
	if t.CompletedAt != nil && t.CompletedAt.After(last) {
		last = *t.CompletedAt
	}
	return last
}
