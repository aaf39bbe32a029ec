package analytics

import (
	"github.com/ukydev/fleetflow/internal/models"
)

// Dashboard is the headline KPI block.
type Dashboard struct {
	ActiveFleet     int     `json:"active_fleet"`
	InShop          int     `json:"in_shop"`
	Available       int     `json:"available"`
	Total           int     `json:"total"`
	UtilizationRate float64 `json:"utilization_rate"`
	PendingCargo    int     `json:"pending_cargo"`
	TotalDrivers    int     `json:"total_drivers"`
	ActiveDrivers   int     `json:"active_drivers"`
}

// BuildDashboard counts vehicles, drivers and pending trips. Retired vehicles
// are left out of every vehicle figure. When no vehicle is marked In Shop the
// open maintenance count is reported instead.
func BuildDashboard(s *Snapshot) Dashboard {
	var d Dashboard
	for _, v := range s.Vehicles {
		switch v.Status {
		case models.VehicleRetired:
			continue
		case models.VehicleOnTrip:
			d.ActiveFleet++
		case models.VehicleInShop:
			d.InShop++
		case models.VehicleAvailable:
			d.Available++
		}
		d.Total++
	}
	if d.InShop == 0 {
		for _, m := range s.Maintenance {
			if m.Status == models.MaintenanceInProgress {
				d.InShop++
			}
		}
	}
	d.UtilizationRate = UtilizationRate(s.Vehicles)

	for _, t := range s.Trips {
		if t.Status == models.TripDraft {
			d.PendingCargo++
		}
	}
	d.TotalDrivers = len(s.Drivers)
	for _, dr := range s.Drivers {
		if dr.Status == models.DriverOnDuty || dr.Status == models.DriverOnTrip {
			d.ActiveDrivers++
		}
	}
	return d
}

// VehicleMetrics is one row of the analytics report. FuelEfficiency and
// CostPerKm are null when undefined.
type VehicleMetrics struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	LicensePlate   string             `json:"license_plate"`
	Type           models.VehicleType `json:"type"`
	TripCount      int                `json:"trip_count"`
	TotalKm        float64            `json:"total_km"`
	TotalLiters    float64            `json:"total_liters"`
	FuelEfficiency *float64           `json:"fuel_efficiency"`
	Revenue        float64            `json:"revenue"`
	OpsCost        float64            `json:"ops_cost"`
	ROI            float64            `json:"roi"`
	CostPerKm      *float64           `json:"cost_per_km"`
}

// Report is the fleet financial report.
type Report struct {
	FleetTotals
	CompletedTrips int              `json:"completed_trips"`
	Vehicles       []VehicleMetrics `json:"vehicles"`
}

// BuildReport computes fleet totals and per-vehicle metrics for every
// vehicle that is not retired.
func BuildReport(s *Snapshot) Report {
	r := Report{FleetTotals: Totals(s), Vehicles: []VehicleMetrics{}}
	for _, t := range s.Trips {
		if t.Status == models.TripCompleted {
			r.CompletedTrips++
		}
	}
	for _, v := range s.Vehicles {
		if v.Status == models.VehicleRetired {
			continue
		}
		r.Vehicles = append(r.Vehicles, vehicleMetrics(s, v))
	}
	return r
}

func vehicleMetrics(s *Snapshot, v models.Vehicle) VehicleMetrics {
	t := vehicleTotals(s, v.ID.Hex())
	m := VehicleMetrics{
		ID:           v.ID.Hex(),
		Name:         v.Name,
		LicensePlate: v.LicensePlate,
		Type:         v.Type,
		TripCount:    t.trips,
		TotalKm:      t.km.InexactFloat64(),
		TotalLiters:  t.liters.InexactFloat64(),
		Revenue:      t.revenue.InexactFloat64(),
		OpsCost:      t.operationalCost().InexactFloat64(),
		ROI:          roi(t, v.AcquisitionCost),
	}
	if eff, ok := fuelEfficiency(t); ok {
		m.FuelEfficiency = &eff
	}
	if cpk, ok := costPerKm(t); ok {
		m.CostPerKm = &cpk
	}
	return m
}
