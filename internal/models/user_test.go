package models

import (
	"testing"
)

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"manager role", RoleManager, true},
		{"dispatcher role", RoleDispatcher, true},
		{"safety role", RoleSafety, true},
		{"analyst role", RoleAnalyst, true},
		{"invalid role", "admin", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestUser_HasPermission(t *testing.T) {
	manager := &User{Role: RoleManager}
	dispatcher := &User{Role: RoleDispatcher}
	safety := &User{Role: RoleSafety}
	analyst := &User{Role: RoleAnalyst}
	unknown := &User{Role: "ghost"}

	tests := []struct {
		name     string
		user     *User
		action   string
		expected bool
	}{
		// Manager can do everything
		{"manager can seed", manager, ActionSeedData, true},
		{"manager can manage vehicles", manager, ActionManageVehicles, true},
		{"manager can manage trips", manager, ActionManageTrips, true},

		// Dispatcher runs trips and logs fuel and expenses
		{"dispatcher can view fleet", dispatcher, ActionViewFleet, true},
		{"dispatcher can manage trips", dispatcher, ActionManageTrips, true},
		{"dispatcher can manage finance", dispatcher, ActionManageFinance, true},
		{"dispatcher cannot manage vehicles", dispatcher, ActionManageVehicles, false},
		{"dispatcher cannot view analytics", dispatcher, ActionViewAnalytics, false},

		// Safety officer looks after drivers and maintenance
		{"safety can manage drivers", safety, ActionManageDrivers, true},
		{"safety can manage maintenance", safety, ActionManageMaintenance, true},
		{"safety can view analytics", safety, ActionViewAnalytics, true},
		{"safety cannot manage trips", safety, ActionManageTrips, false},

		// Analyst is read-only
		{"analyst can view fleet", analyst, ActionViewFleet, true},
		{"analyst can view analytics", analyst, ActionViewAnalytics, true},
		{"analyst cannot manage finance", analyst, ActionManageFinance, false},
		{"analyst cannot seed", analyst, ActionSeedData, false},

		{"unknown role cannot view", unknown, ActionViewFleet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.user.HasPermission(tt.action)
			if result != tt.expected {
				t.Errorf("User with role %s HasPermission(%s) = %v, want %v",
					tt.user.Role, tt.action, result, tt.expected)
			}
		})
	}
}
