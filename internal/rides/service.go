package rides

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/schoolrun/internal/notifications"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/database"
	"github.com/richxcame/schoolrun/pkg/i18n"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const scheduleLayout = "Mon 2 Jan 15:04"

// Service drives requests and rides through their lifecycle:
// pending -> scheduled -> in_progress -> completed, with cancellation
// allowed from scheduled and in_progress.
type Service struct {
	repo      RepositoryInterface
	tx        database.Transactor
	ledger    Ledger
	penalties Penalties
	presence  Presence
	notifier  Notifier
	children  ChildDirectory
	attempts  AttemptLimiter
	codes     CodeGenerator
	cfg       config.BusinessConfig
	now       func() time.Time
}

// NewService creates a new rides service
func NewService(
	repo RepositoryInterface,
	tx database.Transactor,
	ledger Ledger,
	penalties Penalties,
	presence Presence,
	notifier Notifier,
	cfg config.BusinessConfig,
) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		ledger:    ledger,
		penalties: penalties,
		presence:  presence,
		notifier:  notifier,
		codes:     HOTPGenerator{},
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithNow overrides the clock
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithCodeGenerator overrides how pickup codes are issued
func (s *Service) WithCodeGenerator(g CodeGenerator) *Service {
	s.codes = g
	return s
}

// SetChildDirectory enables child ownership checks on new requests
func (s *Service) SetChildDirectory(d ChildDirectory) {
	s.children = d
}

// SetAttemptLimiter bounds pickup code guesses
func (s *Service) SetAttemptLimiter(l AttemptLimiter) {
	s.attempts = l
}

// ========================================
// RIDE REQUESTS
// ========================================

// CreateRequest posts a pending request. The parent's balance must cover
// the estimated fare.
func (s *Service) CreateRequest(ctx context.Context, actor models.Actor, in *CreateRequestInput) (*models.RideRequest, error) {
	if !actor.IsParent() {
		return nil, common.NewForbiddenError("only parents can request rides")
	}

	now := s.now()
	if err := validateRequest(in, now); err != nil {
		return nil, err
	}

	if s.children != nil {
		ok, err := s.children.ChildBelongsTo(ctx, actor.UserID, in.ChildID)
		if err != nil {
			return nil, common.NewInternalError("failed to check child", err)
		}
		if !ok {
			return nil, common.NewNotFoundError("child not found", nil)
		}
	}

	ok, err := s.ledger.CheckBalance(ctx, actor.UserID, in.EstimatedFare)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, wallet.ErrInsufficientFunds
	}

	req := &models.RideRequest{
		ID:            uuid.New(),
		ChildID:       in.ChildID,
		ParentID:      actor.UserID,
		Origin:        in.Origin,
		Destination:   in.Destination,
		ScheduledTime: in.ScheduledTime,
		EstimatedFare: in.EstimatedFare,
		Notes:         strings.TrimSpace(in.Notes),
		Status:        models.RideStatusPending,
		CreatedAt:     now,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, common.NewInternalError("failed to create ride request", err)
	}

	transitionsTotal.WithLabelValues("request_created").Inc()
	logger.WithContext(ctx).Info("ride requested",
		zap.String("request_id", req.ID.String()),
		zap.String("parent_id", actor.UserID.String()),
		zap.Time("scheduled_time", req.ScheduledTime),
	)
	return req, nil
}

// CancelRequest withdraws a pending request. It loses cleanly to a
// concurrent accept.
func (s *Service) CancelRequest(ctx context.Context, actor models.Actor, requestID uuid.UUID) error {
	if !actor.IsParent() {
		return common.NewForbiddenError("only parents can cancel ride requests")
	}

	deleted, err := s.repo.DeleteRequestByParent(ctx, actor.UserID, requestID)
	if err != nil {
		return common.NewInternalError("failed to cancel ride request", err)
	}
	if !deleted {
		accepted, err := s.repo.RequestWasAccepted(ctx, requestID)
		if err != nil {
			return common.NewInternalError("failed to cancel ride request", err)
		}
		if accepted {
			return common.NewDomainError(ErrStateConflict.Code, ErrStateConflict.Reason,
				"a driver already accepted this request, cancel the ride instead")
		}
		return ErrRequestNotFound
	}

	transitionsTotal.WithLabelValues("request_cancelled").Inc()
	logger.WithContext(ctx).Info("ride request cancelled",
		zap.String("request_id", requestID.String()),
		zap.String("parent_id", actor.UserID.String()),
	)
	return nil
}

// ListMyRequests returns the parent's pending requests
func (s *Service) ListMyRequests(ctx context.Context, actor models.Actor) ([]models.RideRequest, error) {
	if !actor.IsParent() {
		return nil, common.NewForbiddenError("only parents have ride requests")
	}
	reqs, err := s.repo.ListRequestsByParent(ctx, actor.UserID)
	if err != nil {
		return nil, common.NewInternalError("failed to list ride requests", err)
	}
	return reqs, nil
}

// ExpireStaleRequests removes requests nobody accepted before their
// scheduled time passed the expiry window, and tells the parents
func (s *Service) ExpireStaleRequests(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.RequestExpiry)
	expired, err := s.repo.DeleteExpiredRequests(ctx, cutoff)
	if err != nil {
		return 0, common.NewInternalError("failed to expire ride requests", err)
	}

	for _, req := range expired {
		transitionsTotal.WithLabelValues("request_expired").Inc()
		s.notifier.Notify(ctx, notifications.Message{
			UserID: req.ParentID,
			Type:   notifications.TypeRequestExpired,
			Args:   []interface{}{req.ScheduledTime.Format(scheduleLayout)},
		})
	}
	if len(expired) > 0 {
		logger.WithContext(ctx).Info("expired stale ride requests",
			zap.Int("count", len(expired)),
			zap.Time("cutoff", cutoff),
		)
	}
	return len(expired), nil
}

// ========================================
// STATE TRANSITIONS
// ========================================

// AcceptRequest turns a pending request into a scheduled ride for the
// driver. Claiming the request and creating the ride happen in one
// transaction, so exactly one of several concurrent drivers wins.
func (s *Service) AcceptRequest(ctx context.Context, actor models.Actor, requestID uuid.UUID) (*models.Ride, error) {
	if !actor.IsDriver() {
		return nil, common.NewForbiddenError("only drivers can accept ride requests")
	}

	ctx, span := tracing.StartSpan(ctx, "rides.AcceptRequest",
		attribute.String("request_id", requestID.String()),
		attribute.String("driver_id", actor.UserID.String()),
	)
	ride, err := s.acceptRequest(ctx, actor, requestID)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	transitionsTotal.WithLabelValues("accepted").Inc()
	logger.WithContext(ctx).Info("ride request accepted",
		zap.String("request_id", requestID.String()),
		zap.String("ride_id", ride.ID.String()),
		zap.String("driver_id", actor.UserID.String()),
	)
	s.notifier.Notify(ctx, notifications.Message{
		UserID: ride.ParentID,
		Type:   notifications.TypeRideAccepted,
		RideID: &ride.ID,
		Args:   []interface{}{ride.ScheduledTime.Format(scheduleLayout)},
	})
	return visibleTo(ride, actor), nil
}

func (s *Service) acceptRequest(ctx context.Context, actor models.Actor, requestID uuid.UUID) (*models.Ride, error) {
	online, err := s.presence.IsOnline(ctx, actor.UserID)
	if err != nil {
		return nil, common.NewInternalError("failed to read driver status", err)
	}
	if !online {
		return nil, ErrDriverOffline
	}

	var ride *models.Ride
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		busy, err := s.repo.HasRideInProgress(ctx, actor.UserID)
		if err != nil {
			return common.NewInternalError("failed to check driver rides", err)
		}
		if busy {
			return ErrDriverBusy
		}

		req, err := s.repo.ClaimRequest(ctx, requestID)
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingRequest(ctx, requestID)
		}
		if err != nil {
			return common.NewInternalError("failed to claim ride request", err)
		}

		// the parent may have spent the money since posting the request
		ok, err := s.ledger.CheckBalance(ctx, req.ParentID, req.EstimatedFare)
		if err != nil {
			return err
		}
		if !ok {
			return wallet.ErrInsufficientFunds
		}

		code, err := s.codes.NewCode()
		if err != nil {
			return common.NewInternalError("failed to issue pickup code", err)
		}

		now := s.now()
		sourceID := req.ID
		ride = &models.Ride{
			ID:              uuid.New(),
			SourceRequestID: &sourceID,
			ChildID:         req.ChildID,
			ParentID:        req.ParentID,
			DriverID:        actor.UserID,
			Origin:          req.Origin,
			Destination:     req.Destination,
			ScheduledTime:   req.ScheduledTime,
			Status:          models.RideStatusScheduled,
			OTP:             code,
			OTPGeneratedAt:  now,
			Fare:            req.EstimatedFare,
			Notes:           req.Notes,
			AcceptedAt:      now,
			UpdatedAt:       now,
		}
		if err := s.repo.CreateActiveRide(ctx, ride); err != nil {
			if database.IsUniqueViolation(err) {
				acceptConflictsTotal.Inc()
				return ErrAlreadyAccepted.WithCause(err)
			}
			return common.NewInternalError("failed to create ride", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// missingRequest tells a lost race apart from a request that is simply gone
func (s *Service) missingRequest(ctx context.Context, requestID uuid.UUID) error {
	accepted, err := s.repo.RequestWasAccepted(ctx, requestID)
	if err != nil {
		return common.NewInternalError("failed to look up ride request", err)
	}
	if accepted {
		acceptConflictsTotal.Inc()
		return ErrAlreadyAccepted
	}
	return ErrRequestNotFound
}

// VerifyOTP starts the ride once the driver enters the parent's pickup
// code. Codes are valid for the configured window after they are issued.
func (s *Service) VerifyOTP(ctx context.Context, actor models.Actor, rideID uuid.UUID, code string) (*models.Ride, error) {
	if !actor.IsDriver() {
		return nil, common.NewForbiddenError("only drivers can start rides")
	}

	attemptKey := rideID.String()
	if s.attempts != nil {
		res, err := s.attempts.Allow(ctx, attemptKey)
		if err != nil {
			logger.WithContext(ctx).Warn("otp attempt limiter unavailable",
				zap.String("ride_id", rideID.String()),
				zap.Error(err),
			)
		} else if !res.Allowed {
			otpFailuresTotal.WithLabelValues("rate_limited").Inc()
			return nil, ErrTooManyAttempts
		}
	}

	ctx, span := tracing.StartSpan(ctx, "rides.VerifyOTP",
		attribute.String("ride_id", rideID.String()),
		attribute.String("driver_id", actor.UserID.String()),
	)
	var ride *models.Ride
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ride, err = s.lockOwnRide(ctx, actor, rideID)
		if err != nil {
			return err
		}
		if ride.Status != models.RideStatusScheduled {
			return ErrStateConflict
		}

		now := s.now()
		if now.Sub(ride.OTPGeneratedAt) > s.cfg.OTPValidity {
			otpFailuresTotal.WithLabelValues("expired").Inc()
			return ErrOTPExpired
		}
		if !s.codeMatches(ride.OTP, code) {
			otpFailuresTotal.WithLabelValues("invalid").Inc()
			return ErrInvalidOTP
		}

		if err := s.repo.MarkInProgress(ctx, ride.ID, now); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDriverBusy.WithCause(err)
			}
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrStateConflict
			}
			return common.NewInternalError("failed to start ride", err)
		}

		origin := ride.Origin
		ride.Status = models.RideStatusInProgress
		ride.StartedAt = &now
		ride.CurrentLocation = &origin
		ride.UpdatedAt = now
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, attemptKey); err != nil {
			logger.WithContext(ctx).Warn("failed to reset otp attempts", zap.Error(err))
		}
	}

	transitionsTotal.WithLabelValues("started").Inc()
	logger.WithContext(ctx).Info("ride started",
		zap.String("ride_id", ride.ID.String()),
		zap.String("driver_id", actor.UserID.String()),
	)
	s.notifier.Notify(ctx, notifications.Message{
		UserID: ride.ParentID,
		Type:   notifications.TypeRideStarted,
		RideID: &ride.ID,
	})
	return visibleTo(ride, actor), nil
}

func (s *Service) codeMatches(stored, given string) bool {
	if codesEqual(stored, given) {
		return true
	}
	return s.cfg.AllowFallbackOTP() && codesEqual(s.cfg.FallbackOTP, given)
}

// RegenerateOTP issues a new pickup code for a scheduled ride and restarts
// its validity window
func (s *Service) RegenerateOTP(ctx context.Context, actor models.Actor, rideID uuid.UUID) (*models.Ride, error) {
	if !actor.IsParent() {
		return nil, common.NewForbiddenError("only parents can generate pickup codes")
	}

	var ride *models.Ride
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ride, err = s.lockOwnRide(ctx, actor, rideID)
		if err != nil {
			return err
		}
		if ride.Status != models.RideStatusScheduled {
			return ErrStateConflict
		}

		code, err := s.codes.NewCode()
		if err != nil {
			return common.NewInternalError("failed to issue pickup code", err)
		}
		now := s.now()
		if err := s.repo.UpdateOTP(ctx, ride.ID, code, now); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrStateConflict
			}
			return common.NewInternalError("failed to update pickup code", err)
		}

		ride.OTP = code
		ride.OTPGeneratedAt = now
		ride.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, rideID.String()); err != nil {
			logger.WithContext(ctx).Warn("failed to reset otp attempts", zap.Error(err))
		}
	}

	logger.WithContext(ctx).Info("pickup code regenerated", zap.String("ride_id", ride.ID.String()))
	s.notifier.Notify(ctx, notifications.Message{
		UserID: ride.DriverID,
		Type:   notifications.TypeOTPRegenerated,
		RideID: &ride.ID,
	})
	return visibleTo(ride, actor), nil
}

// Complete finishes an in-progress ride and pays the driver. Completing a
// ride that is already completed returns the stored ride and moves no
// money.
func (s *Service) Complete(ctx context.Context, actor models.Actor, rideID uuid.UUID) (*models.Ride, error) {
	if !actor.IsDriver() {
		return nil, common.NewForbiddenError("only drivers can complete rides")
	}

	ctx, span := tracing.StartSpan(ctx, "rides.Complete",
		attribute.String("ride_id", rideID.String()),
		attribute.String("driver_id", actor.UserID.String()),
	)
	var (
		ride  *models.Ride
		fresh bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ride, err = s.repo.LockActiveRide(ctx, rideID)
		if errors.Is(err, pgx.ErrNoRows) {
			ride, err = s.completedBefore(ctx, actor, rideID)
			return err
		}
		if err != nil {
			return common.NewInternalError("failed to get ride", err)
		}
		if !isParty(ride, actor) {
			return ErrRideNotFound
		}
		if ride.Status != models.RideStatusInProgress {
			return ErrStateConflict
		}

		if err := s.ledger.TransferFare(ctx, wallet.FareTransfer{
			RideID:   ride.ID,
			ParentID: ride.ParentID,
			DriverID: ride.DriverID,
			Fare:     ride.Fare,
		}); err != nil {
			return err
		}

		now := s.now()
		ride.Status = models.RideStatusCompleted
		ride.CompletedAt = &now
		ride.UpdatedAt = now
		if err := s.repo.MoveToCompleted(ctx, ride); err != nil {
			return common.NewInternalError("failed to complete ride", err)
		}
		fresh = true
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return visibleTo(ride, actor), nil
	}

	transitionsTotal.WithLabelValues("completed").Inc()
	logger.WithContext(ctx).Info("ride completed",
		zap.String("ride_id", ride.ID.String()),
		zap.String("driver_id", ride.DriverID.String()),
		zap.String("fare", ride.Fare.StringFixed(2)),
	)
	amount := i18n.FormatAmount(ride.Fare, s.cfg.Currency)
	s.notifier.Notify(ctx, notifications.Message{
		UserID: ride.ParentID,
		Type:   notifications.TypeRideCompleted,
		RideID: &ride.ID,
		Args:   []interface{}{amount},
	})
	s.notifier.Notify(ctx, notifications.Message{
		UserID: ride.DriverID,
		Type:   notifications.TypeRideEarning,
		RideID: &ride.ID,
		Args:   []interface{}{amount},
	})
	return visibleTo(ride, actor), nil
}

func (s *Service) completedBefore(ctx context.Context, actor models.Actor, rideID uuid.UUID) (*models.Ride, error) {
	ride, err := s.repo.GetCompletedRide(ctx, rideID)
	if err == nil {
		if !isParty(ride, actor) {
			return nil, ErrRideNotFound
		}
		return ride, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewInternalError("failed to get ride", err)
	}
	return nil, s.terminalConflict(ctx, actor, rideID)
}

// Cancel ends a scheduled or in-progress ride and charges the cancelling
// party the policy penalty in the same transaction. Retrying a cancel
// returns the stored record.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, rideID uuid.UUID, reason string) (*models.Ride, error) {
	if !actor.Role.Valid() {
		return nil, common.NewForbiddenError("unknown role")
	}
	reason = strings.TrimSpace(reason)

	ctx, span := tracing.StartSpan(ctx, "rides.Cancel",
		attribute.String("ride_id", rideID.String()),
		attribute.String("role", string(actor.Role)),
	)
	var (
		ride  *models.Ride
		fresh bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		ride, err = s.repo.LockActiveRide(ctx, rideID)
		if errors.Is(err, pgx.ErrNoRows) {
			ride, err = s.cancelledBefore(ctx, actor, rideID)
			return err
		}
		if err != nil {
			return common.NewInternalError("failed to get ride", err)
		}
		if !isParty(ride, actor) {
			return ErrRideNotFound
		}
		if !ride.Status.IsActive() {
			return ErrStateConflict
		}

		penalty := s.penalties.ComputePenalty(ride.Status, ride.Fare, actor.Role)
		if _, err := s.penalties.ApplyPenalty(ctx, actor, ride.ID, penalty); err != nil {
			return err
		}

		now := s.now()
		by := actor.UserID
		amount := penalty.Amount
		ride.StatusAtCancel = ride.Status
		ride.Status = models.RideStatusCancelled
		ride.CancelledAt = &now
		ride.CancelledBy = &by
		ride.CancelledByType = actor.Role
		ride.CancellationReason = reason
		ride.Penalty = &amount
		ride.UpdatedAt = now
		if err := s.repo.MoveToCancelled(ctx, ride); err != nil {
			return common.NewInternalError("failed to cancel ride", err)
		}
		fresh = true
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return visibleTo(ride, actor), nil
	}

	transitionsTotal.WithLabelValues("cancelled").Inc()
	logger.WithContext(ctx).Info("ride cancelled",
		zap.String("ride_id", ride.ID.String()),
		zap.String("cancelled_by", string(actor.Role)),
		zap.String("status_at_cancel", string(ride.StatusAtCancel)),
		zap.String("penalty", ride.Penalty.StringFixed(2)),
	)

	other := ride.DriverID
	if actor.IsDriver() {
		other = ride.ParentID
	}
	shown := reason
	if shown == "" {
		shown = "-"
	}
	s.notifier.Notify(ctx, notifications.Message{
		UserID: other,
		Type:   notifications.TypeRideCancelled,
		RideID: &ride.ID,
		Args:   []interface{}{string(actor.Role), shown},
	})
	return visibleTo(ride, actor), nil
}

func (s *Service) cancelledBefore(ctx context.Context, actor models.Actor, rideID uuid.UUID) (*models.Ride, error) {
	ride, err := s.repo.GetCancelledRide(ctx, rideID)
	if err == nil {
		if !ride.IsParticipant(actor.UserID) {
			return nil, ErrRideNotFound
		}
		if ride.CancelledBy != nil && *ride.CancelledBy == actor.UserID {
			return ride, nil
		}
		return nil, ErrStateConflict
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewInternalError("failed to get ride", err)
	}
	return nil, s.terminalConflict(ctx, actor, rideID)
}

// CancellationPreview reports what cancelling the ride now would cost the caller
func (s *Service) CancellationPreview(ctx context.Context, actor models.Actor, rideID uuid.UUID) (*CancellationPreview, error) {
	ride, err := s.repo.GetActiveRide(ctx, rideID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.terminalConflict(ctx, actor, rideID)
	}
	if err != nil {
		return nil, common.NewInternalError("failed to get ride", err)
	}
	if !isParty(ride, actor) {
		return nil, ErrRideNotFound
	}

	return newPreview(ride, s.penalties.ComputePenalty(ride.Status, ride.Fare, actor.Role)), nil
}

// ========================================
// QUERIES
// ========================================

// GetRide returns a ride the caller takes part in, wherever it lives
func (s *Service) GetRide(ctx context.Context, actor models.Actor, rideID uuid.UUID) (*models.Ride, error) {
	ride, err := s.findRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsParticipant(actor.UserID) {
		return nil, ErrRideNotFound
	}
	return visibleTo(ride, actor), nil
}

// ListActiveRides returns the caller's scheduled and in-progress rides
func (s *Service) ListActiveRides(ctx context.Context, actor models.Actor) ([]models.Ride, error) {
	rides, err := s.repo.ListActiveRidesByUser(ctx, actor.UserID)
	if err != nil {
		return nil, common.NewInternalError("failed to list rides", err)
	}
	for i := range rides {
		rides[i] = *visibleTo(&rides[i], actor)
	}
	return rides, nil
}

// ListRideHistory returns a page of the caller's finished rides
func (s *Service) ListRideHistory(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Ride, int64, error) {
	rides, total, err := s.repo.ListRideHistory(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list ride history", err)
	}
	return rides, total, nil
}

// UpdateRideLocation records the driver's position on an active ride. The
// last write wins.
func (s *Service) UpdateRideLocation(ctx context.Context, actor models.Actor, rideID uuid.UUID, in *LocationInput) error {
	if !actor.IsDriver() {
		return common.NewForbiddenError("only drivers can report ride location")
	}
	ok, err := s.repo.UpdateLocation(ctx, rideID, actor.UserID, in.Latitude, in.Longitude, s.now())
	if err != nil {
		return common.NewInternalError("failed to update ride location", err)
	}
	if !ok {
		return ErrRideNotFound
	}
	return nil
}

// ========================================
// HELPERS
// ========================================

// lockOwnRide locks an active ride the actor takes part in
func (s *Service) lockOwnRide(ctx context.Context, actor models.Actor, rideID uuid.UUID) (*models.Ride, error) {
	ride, err := s.repo.LockActiveRide(ctx, rideID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.terminalConflict(ctx, actor, rideID)
	}
	if err != nil {
		return nil, common.NewInternalError("failed to get ride", err)
	}
	if !isParty(ride, actor) {
		return nil, ErrRideNotFound
	}
	return ride, nil
}

// terminalConflict reports a ride that already left the active table as a
// state conflict to its participants and as not found to everyone else
func (s *Service) terminalConflict(ctx context.Context, actor models.Actor, rideID uuid.UUID) error {
	ride, err := s.findRide(ctx, rideID)
	if err != nil {
		return err
	}
	if !ride.IsParticipant(actor.UserID) {
		return ErrRideNotFound
	}
	return ErrStateConflict
}

func (s *Service) findRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	lookups := []func(context.Context, uuid.UUID) (*models.Ride, error){
		s.repo.GetActiveRide,
		s.repo.GetCompletedRide,
		s.repo.GetCancelledRide,
	}
	for _, get := range lookups {
		ride, err := get(ctx, rideID)
		if err == nil {
			return ride, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewInternalError("failed to get ride", err)
		}
	}
	return nil, ErrRideNotFound
}

// isParty reports whether actor is the ride's parent or driver in the role
// they claim
func isParty(ride *models.Ride, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleParent:
		return ride.ParentID == actor.UserID
	case models.RoleDriver:
		return ride.DriverID == actor.UserID
	}
	return false
}

// visibleTo hides the pickup code from everyone except the parent of a
// scheduled ride
func visibleTo(ride *models.Ride, actor models.Actor) *models.Ride {
	cp := *ride
	if !(actor.IsParent() && ride.ParentID == actor.UserID && ride.Status == models.RideStatusScheduled) {
		cp.OTP = ""
	}
	return &cp
}

func validateRequest(in *CreateRequestInput, now time.Time) error {
	if in.ChildID == uuid.Nil {
		return common.NewValidationError("child is required")
	}
	if !in.EstimatedFare.IsPositive() {
		return common.NewValidationError("estimated fare must be greater than zero")
	}
	if !in.EstimatedFare.Equal(in.EstimatedFare.Round(2)) {
		return common.NewValidationError("estimated fare cannot have more than two decimal places")
	}
	if !in.ScheduledTime.After(now) {
		return common.NewValidationError("scheduled time must be in the future")
	}
	if in.Origin.SameCoordinates(in.Destination) {
		return common.NewValidationError("pickup and drop-off must be different places")
	}
	if strings.TrimSpace(in.Origin.Address) == "" || strings.TrimSpace(in.Destination.Address) == "" {
		return common.NewValidationError("pickup and drop-off addresses are required")
	}
	return nil
}
