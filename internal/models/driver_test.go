package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDriver_LicensedFor(t *testing.T) {
	d := &Driver{LicenseCategory: " Truck , Van"}

	assert.Equal(t, []string{"Truck", "Van"}, d.Categories())
	assert.True(t, d.LicensedFor(VehicleTruck))
	assert.True(t, d.LicensedFor(VehicleVan))
	assert.False(t, d.LicensedFor(VehicleBike))
	assert.False(t, (&Driver{}).LicensedFor(VehicleTruck))
}

func TestDriver_LicenseValidOn(t *testing.T) {
	expiry := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	d := &Driver{LicenseExpiry: expiry}

	assert.True(t, d.LicenseValidOn(expiry.Add(-24*time.Hour)))
	// Same calendar day, later in the day: still valid.
	assert.True(t, d.LicenseValidOn(expiry.Add(23*time.Hour)))
	assert.False(t, d.LicenseValidOn(expiry.Add(24*time.Hour)))
}

func TestDriver_CompletionRate(t *testing.T) {
	assert.Equal(t, 100.0, (&Driver{}).CompletionRate())
	assert.Equal(t, 75.0, (&Driver{TripsCompleted: 3, TripsCancelled: 1}).CompletionRate())
}

func TestDriver_Validate(t *testing.T) {
	valid := func() Driver {
		d := Driver{
			Name:            "Alex Kumar",
			LicenseNumber:   "GJ12-2020-0045678",
			LicenseCategory: "Truck,Van",
			LicenseExpiry:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		d.ApplyDefaults()
		return d
	}

	d := valid()
	assert.NoError(t, d.Validate())
	assert.Equal(t, DriverOnDuty, d.Status)
	assert.Equal(t, 100.0, d.Score())

	d = valid()
	d.LicenseCategory = "Truck,Boat"
	assert.Error(t, d.Validate())

	d = valid()
	score := 120.0
	d.SafetyScore = &score
	assert.Error(t, d.Validate())

	d = valid()
	d.Status = "Sleeping"
	assert.Error(t, d.Validate())
}

func TestVehicle_Validate(t *testing.T) {
	v := Vehicle{Name: "Volvo FH-16", Type: VehicleTruck, LicensePlate: "GJ-05-AB-1234", MaxCapacity: 18000}
	v.ApplyDefaults(time.Now())
	assert.NoError(t, v.Validate())
	assert.Equal(t, VehicleAvailable, v.Status)
	assert.Equal(t, DefaultRegion, v.Region)

	bad := v
	bad.MaxCapacity = 0
	assert.Error(t, bad.Validate())

	bad = v
	bad.Type = "Boat"
	assert.Error(t, bad.Validate())
}

func TestTrip_Distance(t *testing.T) {
	start, end := 100.0, 220.0
	trip := &Trip{StartOdometer: &start}
	_, ok := trip.Distance()
	assert.False(t, ok)

	trip.EndOdometer = &end
	d, ok := trip.Distance()
	assert.True(t, ok)
	assert.Equal(t, 120.0, d)
}

func TestFuelLog_Recompute(t *testing.T) {
	f := FuelLog{VehicleID: "v1", Liters: 180, CostPerLiter: 102.5}
	f.Recompute()
	assert.Equal(t, 18450.0, f.TotalCost)
}

func TestFilters_Match(t *testing.T) {
	v := &Vehicle{Name: "Tata Ace EV", LicensePlate: "GJ-01-CD-5678", Type: VehicleVan, Status: VehicleRetired, Region: "Central"}

	assert.True(t, VehicleFilter{Search: "ace"}.Match(v))
	assert.True(t, VehicleFilter{Search: "cd-56"}.Match(v))
	assert.False(t, VehicleFilter{Search: "volvo"}.Match(v))
	assert.False(t, VehicleFilter{ExcludeRetired: true}.Match(v))
	assert.False(t, VehicleFilter{Type: VehicleTruck}.Match(v))

	d := &Driver{Name: "Priya Sharma", LicenseNumber: "GJ05", Status: DriverOnTrip}
	assert.True(t, DriverFilter{Search: "PRIYA"}.Match(d))
	assert.False(t, DriverFilter{Status: DriverOnDuty}.Match(d))

	trip := &Trip{VehicleID: "v1", DriverID: "d1", Status: TripDraft}
	assert.True(t, TripFilter{VehicleID: "v1", Status: TripDraft}.Match(trip))
	assert.False(t, TripFilter{DriverID: "d2"}.Match(trip))
}
