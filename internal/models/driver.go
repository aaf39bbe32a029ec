package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverStatus tracks whether a driver can take a new trip.
type DriverStatus string

const (
	DriverOnDuty    DriverStatus = "On Duty"
	DriverOnTrip    DriverStatus = "On Trip"
	DriverOffDuty   DriverStatus = "Off Duty"
	DriverSuspended DriverStatus = "Suspended"
)

// DefaultSafetyScore is the score a new driver starts with.
const DefaultSafetyScore = 100

// Driver represents a licensed driver.
type Driver struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Phone           string             `bson:"phone" json:"phone"`
	LicenseNumber   string             `bson:"license_number" json:"license_number"`
	LicenseCategory string             `bson:"license_category" json:"license_category"` // e.g. "Truck,Van"
	LicenseExpiry   time.Time          `bson:"license_expiry" json:"license_expiry"`
	SafetyScore     *float64           `bson:"safety_score" json:"safety_score"`
	TripsCompleted  int                `bson:"trips_completed" json:"trips_completed"`
	TripsCancelled  int                `bson:"trips_cancelled" json:"trips_cancelled"`
	Status          DriverStatus       `bson:"status" json:"status"`
	PhotoURL        string             `bson:"photo_url" json:"photo_url"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidDriverStatus checks if a driver status is known.
func IsValidDriverStatus(s DriverStatus) bool {
	switch s {
	case DriverOnDuty, DriverOnTrip, DriverOffDuty, DriverSuspended:
		return true
	default:
		return false
	}
}

// Categories returns the trimmed vehicle types listed on the license.
func (d *Driver) Categories() []string {
	var cats []string
	for _, c := range strings.Split(d.LicenseCategory, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	return cats
}

// LicensedFor reports whether the license covers the vehicle type.
func (d *Driver) LicensedFor(t VehicleType) bool {
	for _, c := range d.Categories() {
		if c == string(t) {
			return true
		}
	}
	return false
}

// LicenseValidOn compares calendar days only: a license expiring today is
// still valid today.
func (d *Driver) LicenseValidOn(day time.Time) bool {
	return DateOnly(d.LicenseExpiry) >= DateOnly(day)
}

// CompletionRate is the share of finished trips that were completed, in
// percent. A driver with no finished trips scores 100.
func (d *Driver) CompletionRate() float64 {
	total := d.TripsCompleted + d.TripsCancelled
	if total == 0 {
		return 100
	}
	return float64(d.TripsCompleted) / float64(total) * 100
}

// Score returns the safety score, defaulting when unset.
func (d *Driver) Score() float64 {
	if d.SafetyScore == nil {
		return DefaultSafetyScore
	}
	return *d.SafetyScore
}

// ApplyDefaults fills zero-valued fields that have a stored default.
func (d *Driver) ApplyDefaults() {
	d.Name = strings.TrimSpace(d.Name)
	d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
	if d.SafetyScore == nil {
		score := float64(DefaultSafetyScore)
		d.SafetyScore = &score
	}
	if d.Status == "" {
		d.Status = DriverOnDuty
	}
}

// Validate checks field-level constraints.
func (d *Driver) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(d.LicenseNumber) == "" {
		return errors.New("license number is required")
	}
	if len(d.Categories()) == 0 {
		return errors.New("license category is required")
	}
	for _, c := range d.Categories() {
		if !IsValidVehicleType(VehicleType(c)) {
			return errors.New("unknown license category " + c)
		}
	}
	if d.LicenseExpiry.IsZero() {
		return errors.New("license expiry is required")
	}
	if s := d.Score(); s < 0 || s > 100 {
		return errors.New("safety score must be between 0 and 100")
	}
	if d.TripsCompleted < 0 || d.TripsCancelled < 0 {
		return errors.New("trip counters cannot be negative")
	}
	if !IsValidDriverStatus(d.Status) {
		return errors.New("invalid driver status")
	}
	return nil
}

// DateOnly renders t as a UTC calendar day, which orders lexically.
func DateOnly(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
