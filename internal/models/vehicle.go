package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleType is the class of a vehicle; drivers are licensed per type.
type VehicleType string

const (
	VehicleTruck VehicleType = "Truck"
	VehicleVan   VehicleType = "Van"
	VehicleBike  VehicleType = "Bike"
)

// VehicleStatus is driven by trip and maintenance events or a manual override.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "Available"
	VehicleOnTrip    VehicleStatus = "On Trip"
	VehicleInShop    VehicleStatus = "In Shop"
	VehicleRetired   VehicleStatus = "Retired"
)

// DefaultRegion is assigned to vehicles created without a region.
const DefaultRegion = "Central"

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Model           string             `bson:"model" json:"model"`
	Type            VehicleType        `bson:"type" json:"type"`
	LicensePlate    string             `bson:"license_plate" json:"license_plate"`
	MaxCapacity     float64            `bson:"max_capacity" json:"max_capacity"` // kg
	Odometer        float64            `bson:"odometer" json:"odometer"`         // km
	Region          string             `bson:"region" json:"region"`
	Status          VehicleStatus      `bson:"status" json:"status"`
	AcquisitionCost float64            `bson:"acquisition_cost" json:"acquisition_cost"`
	DateAdded       time.Time          `bson:"date_added" json:"date_added"`
	Location        string             `bson:"location" json:"location"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidVehicleType checks if a vehicle type is known.
func IsValidVehicleType(t VehicleType) bool {
	switch t {
	case VehicleTruck, VehicleVan, VehicleBike:
		return true
	default:
		return false
	}
}

// IsValidVehicleStatus checks if a vehicle status is known.
func IsValidVehicleStatus(s VehicleStatus) bool {
	switch s {
	case VehicleAvailable, VehicleOnTrip, VehicleInShop, VehicleRetired:
		return true
	default:
		return false
	}
}

// ApplyDefaults fills zero-valued fields that have a stored default.
func (v *Vehicle) ApplyDefaults(now time.Time) {
	v.Name = strings.TrimSpace(v.Name)
	v.LicensePlate = strings.TrimSpace(v.LicensePlate)
	if v.Region == "" {
		v.Region = DefaultRegion
	}
	if v.Status == "" {
		v.Status = VehicleAvailable
	}
	if v.DateAdded.IsZero() {
		v.DateAdded = now
	}
}

// Validate checks field-level constraints.
func (v *Vehicle) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return errors.New("name is required")
	}
	if !IsValidVehicleType(v.Type) {
		return errors.New("type must be one of Truck, Van, Bike")
	}
	if strings.TrimSpace(v.LicensePlate) == "" {
		return errors.New("license plate is required")
	}
	if v.MaxCapacity <= 0 {
		return errors.New("max capacity must be greater than 0")
	}
	if v.Odometer < 0 {
		return errors.New("odometer cannot be negative")
	}
	if v.AcquisitionCost < 0 {
		return errors.New("acquisition cost cannot be negative")
	}
	if !IsValidVehicleStatus(v.Status) {
		return errors.New("invalid vehicle status")
	}
	return nil
}
