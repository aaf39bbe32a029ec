// Package seed loads the embedded demo fleet into an empty store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed fleet.yaml
var fleetYAML []byte

const day = 24 * time.Hour

// Fixture is the parsed demo data. Records refer to vehicles and drivers by
// their position in the lists.
type Fixture struct {
	Vehicles    []vehicleFixture     `yaml:"vehicles"`
	Drivers     []driverFixture      `yaml:"drivers"`
	Trips       []tripFixture        `yaml:"trips"`
	Maintenance []maintenanceFixture `yaml:"maintenance"`
	FuelLogs    []fuelFixture        `yaml:"fuel_logs"`
	Expenses    []expenseFixture     `yaml:"expenses"`
}

type vehicleFixture struct {
	Name            string  `yaml:"name"`
	Model           string  `yaml:"model"`
	Type            string  `yaml:"type"`
	LicensePlate    string  `yaml:"license_plate"`
	MaxCapacity     float64 `yaml:"max_capacity"`
	Odometer        float64 `yaml:"odometer"`
	Region          string  `yaml:"region"`
	Status          string  `yaml:"status"`
	AcquisitionCost float64 `yaml:"acquisition_cost"`
}

type driverFixture struct {
	Name            string    `yaml:"name"`
	Phone           string    `yaml:"phone"`
	LicenseNumber   string    `yaml:"license_number"`
	LicenseCategory string    `yaml:"license_category"`
	LicenseExpiry   time.Time `yaml:"license_expiry"`
	SafetyScore     float64   `yaml:"safety_score"`
	TripsCompleted  int       `yaml:"trips_completed"`
	TripsCancelled  int       `yaml:"trips_cancelled"`
	Status          string    `yaml:"status"`
}

type tripFixture struct {
	Vehicle           int      `yaml:"vehicle"`
	Driver            int      `yaml:"driver"`
	Origin            string   `yaml:"origin"`
	Destination       string   `yaml:"destination"`
	CargoWeight       float64  `yaml:"cargo_weight"`
	CargoDescription  string   `yaml:"cargo_description"`
	Status            string   `yaml:"status"`
	DispatchedDaysAgo *int     `yaml:"dispatched_days_ago"`
	CompletedDaysAgo  *int     `yaml:"completed_days_ago"`
	StartOdometer     *float64 `yaml:"start_odometer"`
	EndOdometer       *float64 `yaml:"end_odometer"`
	Revenue           float64  `yaml:"revenue"`
}

type maintenanceFixture struct {
	Vehicle     int     `yaml:"vehicle"`
	Type        string  `yaml:"type"`
	Description string  `yaml:"description"`
	Cost        float64 `yaml:"cost"`
	DaysAgo     int     `yaml:"days_ago"`
	Status      string  `yaml:"status"`
	Mechanic    string  `yaml:"mechanic"`
}

type fuelFixture struct {
	Vehicle      int     `yaml:"vehicle"`
	Liters       float64 `yaml:"liters"`
	CostPerLiter float64 `yaml:"cost_per_liter"`
	Odometer     float64 `yaml:"odometer"`
	DaysAgo      int     `yaml:"days_ago"`
}

type expenseFixture struct {
	Vehicle     int     `yaml:"vehicle"`
	Category    string  `yaml:"category"`
	Description string  `yaml:"description"`
	Amount      float64 `yaml:"amount"`
	DaysAgo     int     `yaml:"days_ago"`
}

// Result reports what a seed run did.
type Result struct {
	Seeded      bool   `json:"seeded"`
	Message     string `json:"message"`
	Vehicles    int    `json:"vehicles"`
	Drivers     int    `json:"drivers"`
	Trips       int    `json:"trips"`
	Maintenance int    `json:"maintenance"`
	FuelLogs    int    `json:"fuel_logs"`
	Expenses    int    `json:"expenses"`
}

// Load parses the embedded fixture.
func Load() (*Fixture, error) {
	return Parse(fleetYAML)
}

// Parse decodes a fixture and checks its cross references.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	nv, nd := len(f.Vehicles), len(f.Drivers)
	for i, t := range f.Trips {
		if t.Vehicle < 0 || t.Vehicle >= nv || t.Driver < 0 || t.Driver >= nd {
			return nil, fmt.Errorf("trip %d: unknown vehicle or driver", i)
		}
	}
	for i, m := range f.Maintenance {
		if m.Vehicle < 0 || m.Vehicle >= nv {
			return nil, fmt.Errorf("maintenance %d: unknown vehicle", i)
		}
	}
	for i, l := range f.FuelLogs {
		if l.Vehicle < 0 || l.Vehicle >= nv {
			return nil, fmt.Errorf("fuel log %d: unknown vehicle", i)
		}
	}
	for i, x := range f.Expenses {
		if x.Vehicle < 0 || x.Vehicle >= nv {
			return nil, fmt.Errorf("expense %d: unknown vehicle", i)
		}
	}
	return &f, nil
}

// Apply inserts the embedded fixture unless the store already holds vehicles.
func Apply(ctx context.Context, store db.Store, now time.Time) (Result, error) {
	f, err := Load()
	if err != nil {
		return Result{}, err
	}
	return f.Apply(ctx, store, now)
}

// Apply inserts the fixture in one transaction unless the store already
// holds vehicles.
func (f *Fixture) Apply(ctx context.Context, store db.Store, now time.Time) (Result, error) {
	count, err := store.CountVehicles(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count vehicles: %w", err)
	}
	if count > 0 {
		return Result{Message: "data already exists, skipping seed"}, nil
	}

	now = now.UTC()
	var res Result
	err = store.WithTransaction(ctx, func(ctx context.Context) error {
		res = Result{}
		vehicleIDs, err := f.insertVehicles(ctx, store, now)
		if err != nil {
			return err
		}
		driverIDs, err := f.insertDrivers(ctx, store)
		if err != nil {
			return err
		}
		res.Vehicles, res.Drivers = len(vehicleIDs), len(driverIDs)

		for i, t := range f.Trips {
			trip := t.model(vehicleIDs, driverIDs, now)
			if err := store.InsertTrip(ctx, &trip); err != nil {
				return fmt.Errorf("trip %d: %w", i, err)
			}
			res.Trips++
		}
		for i, m := range f.Maintenance {
			record := models.Maintenance{
				VehicleID:   vehicleIDs[m.Vehicle],
				Type:        m.Type,
				Description: m.Description,
				Cost:        m.Cost,
				Date:        now.Add(-time.Duration(m.DaysAgo) * day),
				Status:      models.MaintenanceStatus(m.Status),
				Mechanic:    m.Mechanic,
			}
			if err := insertValid(ctx, &record, record.Validate, store.InsertMaintenance); err != nil {
				return fmt.Errorf("maintenance %d: %w", i, err)
			}
			res.Maintenance++
		}
		for i, l := range f.FuelLogs {
			fuel := models.FuelLog{
				VehicleID:    vehicleIDs[l.Vehicle],
				Liters:       l.Liters,
				CostPerLiter: l.CostPerLiter,
				Odometer:     l.Odometer,
				Date:         now.Add(-time.Duration(l.DaysAgo) * day),
			}
			fuel.Recompute()
			if err := insertValid(ctx, &fuel, fuel.Validate, store.InsertFuelLog); err != nil {
				return fmt.Errorf("fuel log %d: %w", i, err)
			}
			res.FuelLogs++
		}
		for i, x := range f.Expenses {
			expense := models.Expense{
				VehicleID:   vehicleIDs[x.Vehicle],
				Category:    x.Category,
				Description: x.Description,
				Amount:      x.Amount,
				Date:        now.Add(-time.Duration(x.DaysAgo) * day),
			}
			if err := insertValid(ctx, &expense, expense.Validate, store.InsertExpense); err != nil {
				return fmt.Errorf("expense %d: %w", i, err)
			}
			res.Expenses++
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}

	res.Seeded = true
	res.Message = "demo data seeded"
	log.WithFields(log.Fields{
		"vehicles": res.Vehicles,
		"drivers":  res.Drivers,
		"trips":    res.Trips,
	}).Info("demo fleet seeded")
	return res, nil
}

func insertValid[T any](ctx context.Context, doc *T, validate func() error, insert func(context.Context, *T) error) error {
	if err := validate(); err != nil {
		return err
	}
	return insert(ctx, doc)
}

func (f *Fixture) insertVehicles(ctx context.Context, store db.Store, now time.Time) ([]string, error) {
	ids := make([]string, 0, len(f.Vehicles))
	for i, fx := range f.Vehicles {
		v := models.Vehicle{
			Name:            fx.Name,
			Model:           fx.Model,
			Type:            models.VehicleType(fx.Type),
			LicensePlate:    fx.LicensePlate,
			MaxCapacity:     fx.MaxCapacity,
			Odometer:        fx.Odometer,
			Region:          fx.Region,
			Status:          models.VehicleStatus(fx.Status),
			AcquisitionCost: fx.AcquisitionCost,
		}
		v.ApplyDefaults(now)
		if err := insertValid(ctx, &v, v.Validate, store.InsertVehicle); err != nil {
			return nil, fmt.Errorf("vehicle %d: %w", i, err)
		}
		ids = append(ids, v.ID.Hex())
	}
	return ids, nil
}

func (f *Fixture) insertDrivers(ctx context.Context, store db.Store) ([]string, error) {
	ids := make([]string, 0, len(f.Drivers))
	for i, fx := range f.Drivers {
		score := fx.SafetyScore
		d := models.Driver{
			Name:            fx.Name,
			Phone:           fx.Phone,
			LicenseNumber:   fx.LicenseNumber,
			LicenseCategory: fx.LicenseCategory,
			LicenseExpiry:   fx.LicenseExpiry.UTC(),
			SafetyScore:     &score,
			TripsCompleted:  fx.TripsCompleted,
			TripsCancelled:  fx.TripsCancelled,
			Status:          models.DriverStatus(fx.Status),
		}
		d.ApplyDefaults()
		if err := insertValid(ctx, &d, d.Validate, store.InsertDriver); err != nil {
			return nil, fmt.Errorf("driver %d: %w", i, err)
		}
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

func (t tripFixture) model(vehicleIDs, driverIDs []string, now time.Time) models.Trip {
	trip := models.Trip{
		VehicleID:        vehicleIDs[t.Vehicle],
		DriverID:         driverIDs[t.Driver],
		Origin:           t.Origin,
		Destination:      t.Destination,
		CargoWeight:      t.CargoWeight,
		CargoDescription: t.CargoDescription,
		Status:           models.TripStatus(t.Status),
		StartOdometer:    t.StartOdometer,
		EndOdometer:      t.EndOdometer,
		Revenue:          t.Revenue,
	}
	if t.DispatchedDaysAgo != nil {
		at := now.Add(-time.Duration(*t.DispatchedDaysAgo) * day)
		trip.DispatchedAt = &at
	}
	if t.CompletedDaysAgo != nil {
		at := now.Add(-time.Duration(*t.CompletedDaysAgo) * day)
		trip.CompletedAt = &at
	}
	return trip
}
