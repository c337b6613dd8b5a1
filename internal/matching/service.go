package matching

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultLocationTTL = 5 * time.Minute

// Service decides which pending requests a driver sees and tracks driver
// presence in Redis
type Service struct {
	rdb         redis.Cmdable
	source      RideSource
	tolerance   time.Duration
	offerWindow time.Duration
	declineTTL  time.Duration
	locationTTL time.Duration
	now         func() time.Time
}

// NewService creates a new matching service
func NewService(rdb redis.Cmdable, source RideSource, cfg config.BusinessConfig) *Service {
	return &Service{
		rdb:         rdb,
		source:      source,
		tolerance:   cfg.DedupTolerance,
		offerWindow: cfg.OfferWindow,
		declineTTL:  cfg.DeclineTTL,
		locationTTL: defaultLocationTTL,
		now:         time.Now,
	}
}

// WithNow overrides the clock
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListEligibleRequests returns the pending requests driver may accept:
// none while offline, otherwise all pending requests minus those the
// driver declined or already holds a ride for. Each carries an offer
// deadline; offers left to lapse count as declined.
func (s *Service) ListEligibleRequests(ctx context.Context, driverID uuid.UUID) ([]EligibleRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.ListEligibleRequests",
		attribute.String("driver_id", driverID.String()))
	out, err := s.listEligible(ctx, driverID)
	tracing.End(span, err)
	return out, err
}

func (s *Service) listEligible(ctx context.Context, driverID uuid.UUID) ([]EligibleRequest, error) {
	eligible := make([]EligibleRequest, 0)

	online, err := s.IsOnline(ctx, driverID)
	if err != nil {
		return nil, common.NewInternalError("failed to read driver status", err)
	}
	if !online {
		return eligible, nil
	}

	declined, err := s.rdb.SMembers(ctx, declinedKey(driverID)).Result()
	if err != nil {
		return nil, common.NewInternalError("failed to read declined requests", err)
	}
	declinedSet := make(map[string]struct{}, len(declined))
	for _, id := range declined {
		declinedSet[id] = struct{}{}
	}

	pending, err := s.source.ListPendingRequests(ctx)
	if err != nil {
		return nil, common.NewInternalError("failed to list pending requests", err)
	}
	rides, err := s.source.ListActiveRidesByDriver(ctx, driverID)
	if err != nil {
		return nil, common.NewInternalError("failed to list driver rides", err)
	}

	candidates := make([]models.RideRequest, 0, len(pending))
	for _, req := range pending {
		if _, ok := declinedSet[req.ID.String()]; ok {
			continue
		}
		if duplicatesAny(req, rides, s.tolerance) {
			continue
		}
		candidates = append(candidates, req)
	}
	if len(candidates) == 0 {
		return eligible, nil
	}

	deadlines, err := s.openOffers(ctx, driverID, candidates)
	if err != nil {
		return nil, common.NewInternalError("failed to record offers", err)
	}

	now := s.now()
	var lapsed []string
	for _, req := range candidates {
		deadline, ok := deadlines[req.ID.String()]
		if !ok {
			continue
		}
		if now.After(deadline) {
			lapsed = append(lapsed, req.ID.String())
			continue
		}
		eligible = append(eligible, EligibleRequest{RideRequest: req, OfferExpiresAt: deadline})
	}

	if len(lapsed) > 0 {
		if err := s.decline(ctx, driverID, lapsed...); err != nil {
			logger.WithContext(ctx).Warn("failed to expire lapsed offers",
				zap.String("driver_id", driverID.String()),
				zap.Error(err),
			)
		}
	}
	return eligible, nil
}

// openOffers starts an offer window for each candidate not yet offered and
// returns every recorded deadline
func (s *Service) openOffers(ctx context.Context, driverID uuid.UUID, candidates []models.RideRequest) (map[string]time.Time, error) {
	key := offersKey(driverID)
	deadline := strconv.FormatInt(s.now().Add(s.offerWindow).UnixMilli(), 10)

	pipe := s.rdb.Pipeline()
	for _, req := range candidates {
		pipe.HSetNX(ctx, key, req.ID.String(), deadline)
	}
	pipe.Expire(ctx, key, s.declineTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(raw))
	for id, ms := range raw {
		v, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			continue
		}
		out[id] = time.UnixMilli(v).UTC()
	}
	return out, nil
}

// DeclineRequest hides a request from this driver only
func (s *Service) DeclineRequest(ctx context.Context, driverID, requestID uuid.UUID) error {
	if err := s.decline(ctx, driverID, requestID.String()); err != nil {
		return common.NewInternalError("failed to decline request", err)
	}

	logger.WithContext(ctx).Info("request declined",
		zap.String("driver_id", driverID.String()),
		zap.String("request_id", requestID.String()),
	)
	return nil
}

func (s *Service) decline(ctx context.Context, driverID uuid.UUID, requestIDs ...string) error {
	members := make([]interface{}, len(requestIDs))
	for i, id := range requestIDs {
		members[i] = id
	}

	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, declinedKey(driverID), members...)
	pipe.Expire(ctx, declinedKey(driverID), s.declineTTL)
	pipe.HDel(ctx, offersKey(driverID), requestIDs...)
	_, err := pipe.Exec(ctx)
	return err
}
