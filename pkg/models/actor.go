package models

import (
	"github.com/google/uuid"
)

// Role is the kind of user performing an operation
type Role string

const (
	RoleParent Role = "parent"
	RoleDriver Role = "driver"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleParent || r == RoleDriver
}

// Actor identifies who is calling a core operation. It is always passed
// explicitly and never read from ambient state.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// NewParent returns a parent actor
func NewParent(id uuid.UUID) Actor { return Actor{UserID: id, Role: RoleParent} }

// NewDriver returns a driver actor
func NewDriver(id uuid.UUID) Actor { return Actor{UserID: id, Role: RoleDriver} }

// IsParent reports whether the actor is a parent
func (a Actor) IsParent() bool { return a.Role == RoleParent }

// IsDriver reports whether the actor is a driver
func (a Actor) IsDriver() bool { return a.Role == RoleDriver }

// Location is a point with an optional human-readable address
type Location struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address,omitempty" validate:"max=500"`
}

// SameCoordinates reports exact coordinate equality
func (l Location) SameCoordinates(o Location) bool {
	return l.Latitude == o.Latitude && l.Longitude == o.Longitude
}
