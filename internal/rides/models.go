package rides

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/cancellation"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
)

// CreateRequestInput is a parent's request for a school ride
type CreateRequestInput struct {
	ChildID       uuid.UUID       `json:"child_id" validate:"required"`
	Origin        models.Location `json:"origin"`
	Destination   models.Location `json:"destination"`
	ScheduledTime time.Time       `json:"scheduled_time" validate:"required"`
	EstimatedFare decimal.Decimal `json:"estimated_fare"`
	Notes         string          `json:"notes" validate:"max=500"`
}

// VerifyOTPInput carries the pickup code the driver typed in
type VerifyOTPInput struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// CancelInput carries the cancelling party's reason
type CancelInput struct {
	Reason string `json:"reason" validate:"max=500"`
}

// LocationInput is a driver's position during a ride
type LocationInput struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// CancellationPreview tells a party what cancelling now would cost
type CancellationPreview struct {
	RideID  uuid.UUID         `json:"ride_id"`
	Status  models.RideStatus `json:"status"`
	Fare    decimal.Decimal   `json:"fare"`
	Penalty decimal.Decimal   `json:"penalty"`
	Message string            `json:"message"`
}

func newPreview(ride *models.Ride, p cancellation.Penalty) *CancellationPreview {
	return &CancellationPreview{
		RideID:  ride.ID,
		Status:  ride.Status,
		Fare:    ride.Fare,
		Penalty: p.Amount,
		Message: p.Message,
	}
}
