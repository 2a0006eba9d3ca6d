package domain

import (
	"fmt"
	"time"
)

// UserRole determines which profile extension applies to a user.
type UserRole string

const (
	RoleVendor   UserRole = "vendor"
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// ParseUserRole validates a role string coming from the API
func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case RoleVendor, RoleCustomer, RoleAdmin:
		return UserRole(s), nil
	}
	return "", fmt.Errorf("unknown user role %q", s)
}

// User represents a user in the system
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"full_name" db:"full_name"`
	PhoneNumber  *string    `json:"phone_number" db:"phone_number"`
	Role         UserRole   `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsStaff      bool       `json:"is_staff" db:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser" db:"is_superuser"`
	IsVerified   bool       `json:"is_verified" db:"is_verified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// ProfileKind tags the profile variant attached to a user.
type ProfileKind string

const (
	ProfileVendor   ProfileKind = "vendor"
	ProfileCustomer ProfileKind = "customer"
	ProfileAdmin    ProfileKind = "admin"
)

// ProfileKindForRole maps a user role to its profile variant.
// The mapping is total: every valid role has exactly one profile kind.
func ProfileKindForRole(role UserRole) (ProfileKind, error) {
	switch role {
	case RoleVendor:
		return ProfileVendor, nil
	case RoleCustomer:
		return ProfileCustomer, nil
	case RoleAdmin:
		return ProfileAdmin, nil
	}
	return "", fmt.Errorf("no profile kind for role %q", role)
}

// Profile is the role-specific extension record for a user
type Profile struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Kind      ProfileKind `json:"kind" db:"kind"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
