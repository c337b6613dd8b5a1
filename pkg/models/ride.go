package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RideStatus is the lifecycle state of a ride request or ride
type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusScheduled  RideStatus = "scheduled"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// IsActive reports whether a ride still lives in the active table
func (s RideStatus) IsActive() bool {
	return s == RideStatusScheduled || s == RideStatusInProgress
}

// IsTerminal reports whether no further transition is possible
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// RideRequest is a parent's pending request for a driver
type RideRequest struct {
	ID            uuid.UUID       `json:"id"`
	ChildID       uuid.UUID       `json:"child_id"`
	ParentID      uuid.UUID       `json:"parent_id"`
	Origin        Location        `json:"origin"`
	Destination   Location        `json:"destination"`
	ScheduledTime time.Time       `json:"scheduled_time"`
	EstimatedFare decimal.Decimal `json:"estimated_fare"`
	Notes         string          `json:"notes,omitempty"`
	Status        RideStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Ride is an accepted request. While scheduled or in progress it lives in
// the active table; afterwards exactly one terminal table holds it.
type Ride struct {
	ID              uuid.UUID       `json:"id"`
	SourceRequestID *uuid.UUID      `json:"source_request_id,omitempty"`
	ChildID         uuid.UUID       `json:"child_id"`
	ParentID        uuid.UUID       `json:"parent_id"`
	DriverID        uuid.UUID       `json:"driver_id"`
	Origin          Location        `json:"origin"`
	Destination     Location        `json:"destination"`
	ScheduledTime   time.Time       `json:"scheduled_time"`
	Status          RideStatus      `json:"status"`
	OTP             string          `json:"otp,omitempty"`
	OTPGeneratedAt  time.Time       `json:"otp_generated_at"`
	CurrentLocation *Location       `json:"current_location,omitempty"`
	Fare            decimal.Decimal `json:"fare"`
	Notes           string          `json:"notes,omitempty"`
	AcceptedAt      time.Time       `json:"accepted_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	StatusAtCancel     RideStatus       `json:"status_at_cancel,omitempty"`
	CancelledBy        *uuid.UUID       `json:"cancelled_by,omitempty"`
	CancelledByType    Role             `json:"cancelled_by_type,omitempty"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
	Penalty            *decimal.Decimal `json:"penalty,omitempty"`
}

// IsParticipant reports whether userID is the ride's parent or driver
func (r *Ride) IsParticipant(userID uuid.UUID) bool {
	return r.ParentID == userID || r.DriverID == userID
}
