package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened
type Type string

const (
	TypeRideAccepted   Type = "ride_accepted"
	TypeRideStarted    Type = "ride_started"
	TypeRideCompleted  Type = "ride_completed"
	TypeRideEarning    Type = "ride_earning"
	TypeRideCancelled  Type = "ride_cancelled"
	TypeOTPRegenerated Type = "otp_regenerated"
	TypeRequestExpired Type = "request_expired"
)

// Notification is an inbox entry for one user
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	RideID    *uuid.UUID `json:"ride_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

// Event is the message published to the broker for each notification
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       Type       `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	RideID     *uuid.UUID `json:"ride_id,omitempty"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Message describes a notification to send. Args fill the localised body.
type Message struct {
	UserID uuid.UUID
	Type   Type
	RideID *uuid.UUID
	Args   []interface{}
}
