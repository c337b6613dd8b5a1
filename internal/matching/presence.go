package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/logger"
	"go.uber.org/zap"
)

const (
	driverOnlinePrefix   = "driver:online:"
	driverDeclinedPrefix = "driver:declined:"
	driverOffersPrefix   = "driver:offers:"
	driverLocationPrefix = "driver:location:"
)

func onlineKey(driverID uuid.UUID) string   { return driverOnlinePrefix + driverID.String() }
func declinedKey(driverID uuid.UUID) string { return driverDeclinedPrefix + driverID.String() }
func offersKey(driverID uuid.UUID) string   { return driverOffersPrefix + driverID.String() }
func locationKey(driverID uuid.UUID) string { return driverLocationPrefix + driverID.String() }

// SetOnline records whether a driver is taking requests. Going offline
// forgets the driver's declined requests and open offers.
func (s *Service) SetOnline(ctx context.Context, driverID uuid.UUID, online bool) error {
	if online {
		if err := s.rdb.Set(ctx, onlineKey(driverID), "1", 0).Err(); err != nil {
			return common.NewInternalError("failed to update driver status", err)
		}
	} else {
		pipe := s.rdb.Pipeline()
		pipe.Del(ctx, onlineKey(driverID))
		pipe.Del(ctx, declinedKey(driverID))
		pipe.Del(ctx, offersKey(driverID))
		if _, err := pipe.Exec(ctx); err != nil {
			return common.NewInternalError("failed to update driver status", err)
		}
	}

	logger.WithContext(ctx).Info("driver availability changed",
		zap.String("driver_id", driverID.String()),
		zap.Bool("online", online),
	)
	return nil
}

// IsOnline reports whether a driver is taking requests
func (s *Service) IsOnline(ctx context.Context, driverID uuid.UUID) (bool, error) {
	n, err := s.rdb.Exists(ctx, onlineKey(driverID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read driver status: %w", err)
	}
	return n == 1, nil
}

// UpdateLocation stores the driver's last position
func (s *Service) UpdateLocation(ctx context.Context, driverID uuid.UUID, latitude, longitude float64) error {
	location := &DriverLocation{
		DriverID:  driverID,
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: s.now(),
	}

	data, err := json.Marshal(location)
	if err != nil {
		return common.NewInternalError("failed to marshal location data", err)
	}

	if err := s.rdb.Set(ctx, locationKey(driverID), data, s.locationTTL).Err(); err != nil {
		return common.NewInternalError("failed to update driver location", err)
	}
	return nil
}

// GetLocation returns the driver's last position
func (s *Service) GetLocation(ctx context.Context, driverID uuid.UUID) (*DriverLocation, error) {
	data, err := s.rdb.Get(ctx, locationKey(driverID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, common.NewNotFoundError("driver location not found", nil)
	}
	if err != nil {
		return nil, common.NewInternalError("failed to read driver location", err)
	}

	var location DriverLocation
	if err := json.Unmarshal([]byte(data), &location); err != nil {
		return nil, common.NewInternalError("failed to unmarshal location data", err)
	}
	return &location, nil
}
