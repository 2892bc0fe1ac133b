package domain

import "time"

// UserRole distinguishes employees raising tickets from support agents.
type UserRole string

const (
	UserRoleEmployee UserRole = "EMPLOYEE"
	UserRoleSupport  UserRole = "SUPPORT"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == UserRoleEmployee || r == UserRoleSupport
}

// User is the domain model for accounts that use the service.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
