package models

import "strings"

// VehicleFilter narrows vehicle queries. Zero fields do not constrain.
type VehicleFilter struct {
	Type           VehicleType
	Status         VehicleStatus
	Region         string
	Search         string // name, plate or model, case-insensitive
	ExcludeRetired bool
}

// Match evaluates the filter against one vehicle.
func (f VehicleFilter) Match(v *Vehicle) bool {
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.ExcludeRetired && v.Status == VehicleRetired {
		return false
	}
	if f.Region != "" && v.Region != f.Region {
		return false
	}
	if f.Search != "" {
		return containsFold(v.Name, f.Search) ||
			containsFold(v.LicensePlate, f.Search) ||
			containsFold(v.Model, f.Search)
	}
	return true
}

// DriverFilter narrows driver queries.
type DriverFilter struct {
	Status DriverStatus
	Search string // name or license number
}

func (f DriverFilter) Match(d *Driver) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.Search != "" {
		return containsFold(d.Name, f.Search) || containsFold(d.LicenseNumber, f.Search)
	}
	return true
}

// TripFilter narrows trip queries.
type TripFilter struct {
	Status    TripStatus
	VehicleID string
	DriverID  string
}

func (f TripFilter) Match(t *Trip) bool {
	return (f.Status == "" || t.Status == f.Status) &&
		(f.VehicleID == "" || t.VehicleID == f.VehicleID) &&
		(f.DriverID == "" || t.DriverID == f.DriverID)
}

// MaintenanceFilter narrows maintenance queries.
type MaintenanceFilter struct {
	VehicleID string
	Status    MaintenanceStatus
}

func (f MaintenanceFilter) Match(m *Maintenance) bool {
	return (f.VehicleID == "" || m.VehicleID == f.VehicleID) &&
		(f.Status == "" || m.Status == f.Status)
}

// FuelLogFilter narrows fuel log queries.
type FuelLogFilter struct {
	VehicleID string
	TripID    string
}

func (f FuelLogFilter) Match(l *FuelLog) bool {
	return (f.VehicleID == "" || l.VehicleID == f.VehicleID) &&
		(f.TripID == "" || l.TripID == f.TripID)
}

// ExpenseFilter narrows expense queries.
type ExpenseFilter struct {
	VehicleID string
	TripID    string
}

func (f ExpenseFilter) Match(e *Expense) bool {
	return (f.VehicleID == "" || e.VehicleID == f.VehicleID) &&
		(f.TripID == "" || e.TripID == f.TripID)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
