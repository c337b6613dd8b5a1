package cancellation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger debits penalties from the cancelling party
type Ledger interface {
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, entry wallet.Entry) (*wallet.Transaction, error)
}

// Service computes and applies cancellation penalties
type Service struct {
	policy *Policy
	ledger Ledger
}

// NewService creates a new cancellation service
func NewService(policy *Policy, ledger Ledger) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Service{policy: policy, ledger: ledger}
}

// ComputePenalty returns what cancelling a ride in status costs role.
// The amount is never negative.
func (s *Service) ComputePenalty(status models.RideStatus, fare decimal.Decimal, role models.Role) Penalty {
	rule, ok := s.policy.Rule(status, role)
	if !ok {
		return Penalty{Amount: decimal.Zero, Message: freeMessage(status)}
	}

	amount := rule.Amount(fare)
	if !amount.IsPositive() {
		return Penalty{Amount: decimal.Zero, Message: freeMessage(status)}
	}

	return Penalty{
		Amount: amount,
		Message: fmt.Sprintf("A cancellation penalty of R%s (%s) applies because the ride is %s.",
			amount.StringFixed(2), rule.describe(), statusPhrase(status)),
	}
}

// ApplyPenalty debits a positive penalty from the cancelling party. The
// debit joins the caller's transaction.
func (s *Service) ApplyPenalty(ctx context.Context, actor models.Actor, rideID uuid.UUID, p Penalty) (*wallet.Transaction, error) {
	if p.IsZero() {
		return nil, nil
	}

	ref := rideID
	txn, err := s.ledger.Debit(ctx, actor.UserID, p.Amount, wallet.Entry{
		Category:    wallet.CategoryCancellationPenalty,
		Description: fmt.Sprintf("Ride cancellation penalty for ride %s", rideID.String()[:8]),
		ReferenceID: &ref,
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("cancellation penalty charged",
		zap.String("user_id", actor.UserID.String()),
		zap.String("role", string(actor.Role)),
		zap.String("ride_id", rideID.String()),
		zap.String("amount", p.Amount.StringFixed(2)),
	)
	return txn, nil
}

// GetCancellationReasons lists the predefined reasons for a party
func (s *Service) GetCancellationReasons(role models.Role) *ReasonsResponse {
	if role == models.RoleDriver {
		return &ReasonsResponse{Reasons: driverReasons}
	}
	return &ReasonsResponse{Reasons: parentReasons}
}

func freeMessage(status models.RideStatus) string {
	if status == models.RideStatusScheduled {
		return "Free cancellation: the ride has not started yet."
	}
	return "No cancellation penalty applies."
}

func statusPhrase(status models.RideStatus) string {
	if status == models.RideStatusInProgress {
		return "already in progress"
	}
	return string(status)
}

var parentReasons = []ReasonOption{
	{ReasonParentChildSick, "Child is sick", "My child is unwell and will not attend school"},
	{ReasonParentScheduleChanged, "Schedule changed", "School times or plans changed"},
	{ReasonParentOwnTransport, "Found own transport", "Someone else is taking my child"},
	{ReasonParentDriverLate, "Driver is late", "The driver has not arrived on time"},
	{ReasonParentSafetyConcern, "Safety concern", "I am not comfortable with this ride"},
	{ReasonParentOther, "Other", "Another reason"},
}

var driverReasons = []ReasonOption{
	{ReasonDriverVehicleIssue, "Vehicle problem", "My vehicle broke down or is unsafe to drive"},
	{ReasonDriverChildNoShow, "Child not at pickup", "The child was not at the pickup point"},
	{ReasonDriverParentUnreachable, "Parent unreachable", "I could not contact the parent"},
	{ReasonDriverUnsafePickup, "Unsafe pickup", "The pickup location is unsafe"},
	{ReasonDriverEmergency, "Emergency", "I have a personal emergency"},
	{ReasonDriverOther, "Other", "Another reason"},
}
