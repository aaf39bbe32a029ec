package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaintenanceStatus has no enforced transition graph; only In Progress
// changes the vehicle's status.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceInProgress MaintenanceStatus = "In Progress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
	MaintenanceCancelled  MaintenanceStatus = "Cancelled"
)

// Maintenance represents a vehicle service record.
type Maintenance struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID   string             `json:"vehicle_id" bson:"vehicle_id"`
	Type        string             `json:"type" bson:"type"` // "Oil Change", "Engine Overhaul", ...
	Description string             `json:"description" bson:"description"`
	Cost        float64            `json:"cost" bson:"cost"`
	Date        time.Time          `json:"date" bson:"date"`
	Status      MaintenanceStatus  `json:"status" bson:"status"`
	Mechanic    string             `json:"mechanic" bson:"mechanic"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsValidMaintenanceStatus checks if a maintenance status is known.
func IsValidMaintenanceStatus(s MaintenanceStatus) bool {
	switch s {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	default:
		return false
	}
}

// ApplyDefaults fills zero-valued fields that have a stored default.
func (m *Maintenance) ApplyDefaults(now time.Time) {
	if m.Status == "" {
		m.Status = MaintenanceInProgress
	}
	if m.Date.IsZero() {
		m.Date = now
	}
}

// Validate checks field-level constraints.
func (m *Maintenance) Validate() error {
	if m.VehicleID == "" {
		return errors.New("vehicle id is required")
	}
	if strings.TrimSpace(m.Type) == "" {
		return errors.New("maintenance type is required")
	}
	if m.Cost < 0 {
		return errors.New("cost cannot be negative")
	}
	if !IsValidMaintenanceStatus(m.Status) {
		return errors.New("invalid maintenance status")
	}
	return nil
}
