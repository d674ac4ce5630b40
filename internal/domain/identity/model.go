// Package identity manages clinic user accounts: registration, login,
// password changes, and role-based lookups of doctors and patients.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is a user's function within the clinic.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("incorrect password")
	ErrInvalidRole    = errors.New("invalid role")
	ErrBadRefresh     = errors.New("refresh token is invalid or expired")
)

// User maps to the users table. Deactivated accounts keep their rows; only
// active accounts can log in or be booked.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
