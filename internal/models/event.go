package models

import "time"

// Entity names used in events.
const (
	EntityTrip        = "trip"
	EntityVehicle     = "vehicle"
	EntityDriver      = "driver"
	EntityMaintenance = "maintenance"
)

// StatusEvent records one committed status change.
type StatusEvent struct {
	ID       string    `json:"id"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}

// AlertKind distinguishes scheduled fleet alerts.
type AlertKind string

const (
	AlertLicenseExpired AlertKind = "license_expired"
	AlertDeadStock      AlertKind = "dead_stock"
)

// Alert is raised by the periodic fleet sweep.
type Alert struct {
	ID       string    `json:"id"`
	Kind     AlertKind `json:"kind"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}
