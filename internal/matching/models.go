package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/models"
)

// RideSource reads the requests and rides eligibility is computed from
type RideSource interface {
	ListPendingRequests(ctx context.Context) ([]models.RideRequest, error)
	ListActiveRidesByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Ride, error)
}

// EligibleRequest is a pending request surfaced to one driver with the
// deadline for acting on it
type EligibleRequest struct {
	models.RideRequest
	OfferExpiresAt time.Time `json:"offer_expires_at"`
}

// DriverLocation is a driver's last reported position
type DriverLocation struct {
	DriverID  uuid.UUID `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusRequest toggles a driver's availability
type StatusRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// LocationRequest reports a driver's position
type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}
