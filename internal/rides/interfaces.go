package rides

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/cancellation"
	"github.com/richxcame/schoolrun/internal/notifications"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/ratelimit"
	"github.com/shopspring/decimal"
)

// RepositoryInterface defines the persistence operations for requests and
// rides. Lookups return pgx.ErrNoRows when nothing matches.
type RepositoryInterface interface {
	CreateRequest(ctx context.Context, req *models.RideRequest) error
	ListPendingRequests(ctx context.Context) ([]models.RideRequest, error)
	ListRequestsByParent(ctx context.Context, parentID uuid.UUID) ([]models.RideRequest, error)
	// ClaimRequest deletes the pending request and returns it. Only one
	// caller can claim a request.
	ClaimRequest(ctx context.Context, requestID uuid.UUID) (*models.RideRequest, error)
	DeleteRequestByParent(ctx context.Context, parentID, requestID uuid.UUID) (bool, error)
	DeleteExpiredRequests(ctx context.Context, scheduledBefore time.Time) ([]models.RideRequest, error)
	RequestWasAccepted(ctx context.Context, requestID uuid.UUID) (bool, error)

	CreateActiveRide(ctx context.Context, ride *models.Ride) error
	GetActiveRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	// LockActiveRide reads the ride and holds it until the transaction ends
	LockActiveRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	HasRideInProgress(ctx context.Context, driverID uuid.UUID) (bool, error)
	MarkInProgress(ctx context.Context, rideID uuid.UUID, startedAt time.Time) error
	UpdateOTP(ctx context.Context, rideID uuid.UUID, code string, generatedAt time.Time) error
	UpdateLocation(ctx context.Context, rideID, driverID uuid.UUID, latitude, longitude float64, at time.Time) (bool, error)
	MoveToCompleted(ctx context.Context, ride *models.Ride) error
	MoveToCancelled(ctx context.Context, ride *models.Ride) error

	GetCompletedRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	GetCancelledRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	ListActiveRidesByUser(ctx context.Context, userID uuid.UUID) ([]models.Ride, error)
	ListActiveRidesByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Ride, error)
	ListRideHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Ride, int64, error)
}

// Ledger moves money for rides
type Ledger interface {
	CheckBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error)
	TransferFare(ctx context.Context, t wallet.FareTransfer) error
}

// Penalties prices and charges cancellations
type Penalties interface {
	ComputePenalty(status models.RideStatus, fare decimal.Decimal, role models.Role) cancellation.Penalty
	ApplyPenalty(ctx context.Context, actor models.Actor, rideID uuid.UUID, p cancellation.Penalty) (*wallet.Transaction, error)
}

// Presence reports whether a driver is taking requests
type Presence interface {
	IsOnline(ctx context.Context, driverID uuid.UUID) (bool, error)
}

// Notifier delivers best-effort notifications
type Notifier interface {
	Notify(ctx context.Context, m notifications.Message)
}

// ChildDirectory checks that a child belongs to a parent
type ChildDirectory interface {
	ChildBelongsTo(ctx context.Context, parentID, childID uuid.UUID) (bool, error)
}

// AttemptLimiter bounds pickup code guesses per ride
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
	Reset(ctx context.Context, key string) error
}

// CodeGenerator issues pickup codes
type CodeGenerator interface {
	NewCode() (string, error)
}
