package analytics

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleetflow/internal/models"
)

var hundred = decimal.NewFromInt(100)

// dec converts a stored amount; non-finite values count as zero.
func dec(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func round1(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}

// UtilizationRate is the share of non-retired vehicles currently on a trip,
// in percent with one decimal.
func UtilizationRate(vehicles []models.Vehicle) float64 {
	var active, total int64
	for _, v := range vehicles {
		if v.Status == models.VehicleRetired {
			continue
		}
		total++
		if v.Status == models.VehicleOnTrip {
			active++
		}
	}
	if total == 0 {
		return 0
	}
	return round1(decimal.NewFromInt(active).Div(decimal.NewFromInt(total)).Mul(hundred))
}

// totals holds the exact per-vehicle sums the metrics derive from.
type totals struct {
	trips       int
	km          decimal.Decimal
	liters      decimal.Decimal
	fuel        decimal.Decimal
	maintenance decimal.Decimal
	expenses    decimal.Decimal
	revenue     decimal.Decimal
}

func (t totals) operationalCost() decimal.Decimal {
	return t.fuel.Add(t.maintenance).Add(t.expenses)
}

func vehicleTotals(s *Snapshot, vehicleID string) totals {
	var t totals
	for i := range s.Trips {
		trip := &s.Trips[i]
		if trip.VehicleID != vehicleID || trip.Status != models.TripCompleted {
			continue
		}
		t.trips++
		t.revenue = t.revenue.Add(dec(trip.Revenue))
		if d, ok := trip.Distance(); ok {
			t.km = t.km.Add(dec(d))
		}
	}
	for _, f := range s.FuelLogs {
		if f.VehicleID == vehicleID {
			t.liters = t.liters.Add(dec(f.Liters))
			t.fuel = t.fuel.Add(dec(f.TotalCost))
		}
	}
	for _, m := range s.Maintenance {
		if m.VehicleID == vehicleID {
			t.maintenance = t.maintenance.Add(dec(m.Cost))
		}
	}
	for _, e := range s.Expenses {
		if e.VehicleID == vehicleID {
			t.expenses = t.expenses.Add(dec(e.Amount))
		}
	}
	return t
}

// FuelEfficiency is km driven on completed trips per liter logged. It is
// undefined when no fuel was logged.
func FuelEfficiency(s *Snapshot, vehicleID string) (float64, bool) {
	return fuelEfficiency(vehicleTotals(s, vehicleID))
}

func fuelEfficiency(t totals) (float64, bool) {
	if !t.liters.IsPositive() {
		return 0, false
	}
	return round1(t.km.Div(t.liters)), true
}

// OperationalCost sums fuel, maintenance and expenses for one vehicle.
func OperationalCost(s *Snapshot, vehicleID string) float64 {
	return vehicleTotals(s, vehicleID).operationalCost().InexactFloat64()
}

// Revenue sums the revenue of the vehicle's completed trips.
func Revenue(s *Snapshot, vehicleID string) float64 {
	return vehicleTotals(s, vehicleID).revenue.InexactFloat64()
}

// ROI is (revenue - operational cost) / acquisition cost in percent with one
// decimal, and 0 for a vehicle without an acquisition cost.
func ROI(s *Snapshot, vehicle models.Vehicle) float64 {
	return roi(vehicleTotals(s, vehicle.ID.Hex()), vehicle.AcquisitionCost)
}

func roi(t totals, acquisitionCost float64) float64 {
	acquisition := dec(acquisitionCost)
	if !acquisition.IsPositive() {
		return 0
	}
	profit := t.revenue.Sub(t.operationalCost())
	return round1(profit.Div(acquisition).Mul(hundred))
}

// CostPerKm is operational cost per km driven; undefined with no distance.
func CostPerKm(s *Snapshot, vehicleID string) (float64, bool) {
	return costPerKm(vehicleTotals(s, vehicleID))
}

func costPerKm(t totals) (float64, bool) {
	if !t.km.IsPositive() {
		return 0, false
	}
	return round1(t.operationalCost().Div(t.km)), true
}

// FleetTotals are the fleet-wide money sums.
type FleetTotals struct {
	Revenue     float64 `json:"total_revenue"`
	Fuel        float64 `json:"total_fuel"`
	Maintenance float64 `json:"total_maintenance"`
	Expenses    float64 `json:"total_expenses"`
	NetProfit   float64 `json:"net_profit"`
}

// Totals sums every record in the snapshot, whatever the vehicle.
func Totals(s *Snapshot) FleetTotals {
	var revenue, fuel, maintenance, expenses decimal.Decimal
	for _, t := range s.Trips {
		if t.Status == models.TripCompleted {
			revenue = revenue.Add(dec(t.Revenue))
		}
	}
	for _, f := range s.FuelLogs {
		fuel = fuel.Add(dec(f.TotalCost))
	}
	for _, m := range s.Maintenance {
		maintenance = maintenance.Add(dec(m.Cost))
	}
	for _, e := range s.Expenses {
		expenses = expenses.Add(dec(e.Amount))
	}
	return FleetTotals{
		Revenue:     revenue.InexactFloat64(),
		Fuel:        fuel.InexactFloat64(),
		Maintenance: maintenance.InexactFloat64(),
		Expenses:    expenses.InexactFloat64(),
		NetProfit:   revenue.Sub(fuel).Sub(maintenance).Sub(expenses).InexactFloat64(),
	}
}

// NetProfit is fleet-wide completed-trip revenue minus every cost record.
func NetProfit(s *Snapshot) float64 {
	return Totals(s).NetProfit
}
