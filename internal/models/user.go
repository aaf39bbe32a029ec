package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleManager    Role = "manager"
	RoleDispatcher Role = "dispatcher"
	RoleSafety     Role = "safety"
	RoleAnalyst    Role = "analyst"
)

// DefaultAvatar is shown for users who never picked one.
const DefaultAvatar = "👤"

// Actions checked by HasPermission
const (
	ActionViewFleet         = "view_fleet"
	ActionManageVehicles    = "manage_vehicles"
	ActionManageDrivers     = "manage_drivers"
	ActionManageTrips       = "manage_trips"
	ActionManageMaintenance = "manage_maintenance"
	ActionManageFinance     = "manage_finance"
	ActionViewAnalytics     = "view_analytics"
	ActionSeedData          = "seed_data"
)

// User represents an account holder
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Name         string             `bson:"name" json:"name"`
	Role         Role               `bson:"role" json:"role"`
	CompanyName  string             `bson:"company_name" json:"company_name"`
	Avatar       string             `bson:"avatar" json:"avatar"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	CompanyName string `json:"company_name"`
}

// ProfileRequest updates the display fields of the current user
type ProfileRequest struct {
	Name        *string `json:"name"`
	CompanyName *string `json:"company_name"`
	Avatar      *string `json:"avatar"`
}

// PasswordChangeRequest replaces the current user's password
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleManager, RoleDispatcher, RoleSafety, RoleAnalyst:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	if action == ActionViewFleet {
		return IsValidRole(u.Role)
	}
	switch u.Role {
	case RoleManager:
		return true
	case RoleDispatcher:
		return action == ActionManageTrips || action == ActionManageFinance
	case RoleSafety:
		return action == ActionManageDrivers || action == ActionManageMaintenance ||
			action == ActionViewAnalytics
	case RoleAnalyst:
		return action == ActionViewAnalytics
	default:
		return false
	}
}
