package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/fleetflow/internal/models"
)

// DefaultDeadStockWindow is how long an available vehicle may sit unused.
const DefaultDeadStockWindow = 30 * 24 * time.Hour

// DeadStockItem is an available vehicle without recent trip activity.
type DeadStockItem struct {
	VehicleID    string    `json:"vehicle_id"`
	Name         string    `json:"name"`
	LicensePlate string    `json:"license_plate"`
	LastActivity time.Time `json:"last_activity"`
	IdleDays     int       `json:"idle_days"`
}

// DeadStock lists Available vehicles whose last trip activity, or their
// date added when they never ran, is older than the window. Longest idle first.
func DeadStock(s *Snapshot, now time.Time, window time.Duration) []DeadStockItem {
	if window <= 0 {
		window = DefaultDeadStockWindow
	}
	last := make(map[string]time.Time, len(s.Vehicles))
	for i := range s.Trips {
		t := &s.Trips[i]
		if at := t.LastActivity(); at.After(last[t.VehicleID]) {
			last[t.VehicleID] = at
		}
	}

	cutoff := now.Add(-window)
	items := []DeadStockItem{}
	for _, v := range s.Vehicles {
		if v.Status != models.VehicleAvailable {
			continue
		}
		seen := v.DateAdded
		if seen.IsZero() {
			seen = v.CreatedAt
		}
		if at, ok := last[v.ID.Hex()]; ok && at.After(seen) {
			seen = at
		}
		if !seen.Before(cutoff) {
			continue
		}
		items = append(items, DeadStockItem{
			VehicleID:    v.ID.Hex(),
			Name:         v.Name,
			LicensePlate: v.LicensePlate,
			LastActivity: seen,
			IdleDays:     int(now.Sub(seen).Hours() / 24),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastActivity.Before(items[j].LastActivity)
	})
	return items
}

// ExpiredLicenses returns drivers whose license expired before today.
func ExpiredLicenses(drivers []models.Driver, now time.Time) []models.Driver {
	expired := []models.Driver{}
	for _, d := range drivers {
		if !d.LicenseValidOn(now) {
			expired = append(expired, d)
		}
	}
	return expired
}

// Alerts turns the expired-license and dead-stock lists into alerts.
func Alerts(s *Snapshot, now time.Time, window time.Duration) []models.Alert {
	alerts := []models.Alert{}
	for _, d := range ExpiredLicenses(s.Drivers, now) {
		alerts = append(alerts, models.Alert{
			ID:       uuid.NewString(),
			Kind:     models.AlertLicenseExpired,
			Entity:   models.EntityDriver,
			EntityID: d.ID.Hex(),
			Message:  fmt.Sprintf("license of %s expired on %s", d.Name, models.DateOnly(d.LicenseExpiry)),
			At:       now,
		})
	}
	for _, item := range DeadStock(s, now, window) {
		alerts = append(alerts, models.Alert{
			ID:       uuid.NewString(),
			Kind:     models.AlertDeadStock,
			Entity:   models.EntityVehicle,
			EntityID: item.VehicleID,
			Message:  fmt.Sprintf("%s (%s) idle for %d days", item.Name, item.LicensePlate, item.IdleDays),
			At:       now,
		})
	}
	return alerts
}
