package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/schoolrun/internal/matching"
	"github.com/richxcame/schoolrun/internal/rides"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	_ rides.RepositoryInterface = (*RideRepository)(nil)
	_ matching.RideSource       = (*RideRepository)(nil)
)

// RideRepository implements rides.RepositoryInterface over the request,
// active, completed and cancelled tables
type RideRepository struct {
	s *Store
}

// ========================================
// RIDE REQUESTS
// ========================================

// CreateRequest inserts a pending request
func (r *RideRepository) CreateRequest(ctx context.Context, req *models.RideRequest) error {
	return r.s.exec(ctx, func(db *tables) error {
		if _, exists := db.requests[req.ID]; exists {
			return uniqueViolation("ride_requests_pkey")
		}
		db.requests[req.ID] = *req
		return nil
	})
}

// ListPendingRequests returns every pending request, soonest first
func (r *RideRepository) ListPendingRequests(ctx context.Context) ([]models.RideRequest, error) {
	return r.requests(ctx, func(models.RideRequest) bool { return true })
}

// ListRequestsByParent returns the parent's pending requests, soonest first
func (r *RideRepository) ListRequestsByParent(ctx context.Context, parentID uuid.UUID) ([]models.RideRequest, error) {
	return r.requests(ctx, func(req models.RideRequest) bool { return req.ParentID == parentID })
}

// ClaimRequest removes the request and returns it. A second claim finds
// nothing.
func (r *RideRepository) ClaimRequest(ctx context.Context, requestID uuid.UUID) (*models.RideRequest, error) {
	var claimed models.RideRequest
	err := r.s.exec(ctx, func(db *tables) error {
		req, exists := db.requests[requestID]
		if !exists {
			return pgx.ErrNoRows
		}
		delete(db.requests, requestID)
		claimed = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// DeleteRequestByParent removes the parent's own request
func (r *RideRepository) DeleteRequestByParent(ctx context.Context, parentID, requestID uuid.UUID) (bool, error) {
	deleted := false
	err := r.s.exec(ctx, func(db *tables) error {
		if req, exists := db.requests[requestID]; exists && req.ParentID == parentID {
			delete(db.requests, requestID)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

// DeleteExpiredRequests removes requests scheduled before the cutoff and
// returns them
func (r *RideRepository) DeleteExpiredRequests(ctx context.Context, scheduledBefore time.Time) ([]models.RideRequest, error) {
	expired := []models.RideRequest{}
	err := r.s.exec(ctx, func(db *tables) error {
		for id, req := range db.requests {
			if req.ScheduledTime.Before(scheduledBefore) {
				expired = append(expired, req)
				delete(db.requests, id)
			}
		}
		return nil
	})
	sortRequests(expired)
	return expired, err
}

// RequestWasAccepted reports whether any ride was created from the request
func (r *RideRepository) RequestWasAccepted(ctx context.Context, requestID uuid.UUID) (bool, error) {
	accepted := false
	err := r.s.exec(ctx, func(db *tables) error {
		for _, table := range []map[uuid.UUID]models.Ride{db.active, db.completed, db.cancelled} {
			for _, ride := range table {
				if ride.SourceRequestID != nil && *ride.SourceRequestID == requestID {
					accepted = true
					return nil
				}
			}
		}
		return nil
	})
	return accepted, err
}

func (r *RideRepository) requests(ctx context.Context, match func(models.RideRequest) bool) ([]models.RideRequest, error) {
	out := []models.RideRequest{}
	err := r.s.exec(ctx, func(db *tables) error {
		for _, req := range db.requests {
			if match(req) {
				out = append(out, req)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRequests(out)
	return out, nil
}

func sortRequests(reqs []models.RideRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].ScheduledTime.Equal(reqs[j].ScheduledTime) {
			return reqs[i].ScheduledTime.Before(reqs[j].ScheduledTime)
		}
		return reqs[i].ID.String() < reqs[j].ID.String()
	})
}

// ========================================
// ACTIVE RIDES
// ========================================

// CreateActiveRide inserts a scheduled ride
func (r *RideRepository) CreateActiveRide(ctx context.Context, ride *models.Ride) error {
	return r.s.exec(ctx, func(db *tables) error {
		if _, exists := db.active[ride.ID]; exists {
			return uniqueViolation("active_rides_pkey")
		}
		if ride.SourceRequestID != nil {
			for _, other := range db.active {
				if other.SourceRequestID != nil && *other.SourceRequestID == *ride.SourceRequestID {
					return uniqueViolation("active_rides_source_request_id_key")
				}
			}
		}
		if ride.Status == models.RideStatusInProgress && driverInProgress(db, ride.DriverID, ride.ID) {
			return uniqueViolation("uq_active_rides_driver_in_progress")
		}
		db.active[ride.ID] = *ride
		return nil
	})
}

// GetActiveRide reads a scheduled or in-progress ride
func (r *RideRepository) GetActiveRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	return r.get(ctx, rideID, func(db *tables) map[uuid.UUID]models.Ride { return db.active })
}

// LockActiveRide reads the ride. The surrounding transaction already holds
// the store lock.
func (r *RideRepository) LockActiveRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	return r.GetActiveRide(ctx, rideID)
}

// HasRideInProgress reports whether the driver is currently driving a child
func (r *RideRepository) HasRideInProgress(ctx context.Context, driverID uuid.UUID) (bool, error) {
	busy := false
	err := r.s.exec(ctx, func(db *tables) error {
		busy = driverInProgress(db, driverID, uuid.Nil)
		return nil
	})
	return busy, err
}

// MarkInProgress starts a scheduled ride at its pickup point
func (r *RideRepository) MarkInProgress(ctx context.Context, rideID uuid.UUID, startedAt time.Time) error {
	return r.s.exec(ctx, func(db *tables) error {
		ride, exists := db.active[rideID]
		if !exists || ride.Status != models.RideStatusScheduled {
			return pgx.ErrNoRows
		}
		if driverInProgress(db, ride.DriverID, rideID) {
			return uniqueViolation("uq_active_rides_driver_in_progress")
		}
		origin := ride.Origin
		started := startedAt
		ride.Status = models.RideStatusInProgress
		ride.StartedAt = &started
		ride.CurrentLocation = &models.Location{Latitude: origin.Latitude, Longitude: origin.Longitude}
		ride.UpdatedAt = startedAt
		db.active[rideID] = ride
		return nil
	})
}

// UpdateOTP replaces the pickup code of a scheduled ride
func (r *RideRepository) UpdateOTP(ctx context.Context, rideID uuid.UUID, code string, generatedAt time.Time) error {
	return r.s.exec(ctx, func(db *tables) error {
		ride, exists := db.active[rideID]
		if !exists || ride.Status != models.RideStatusScheduled {
			return pgx.ErrNoRows
		}
		ride.OTP = code
		ride.OTPGeneratedAt = generatedAt
		ride.UpdatedAt = generatedAt
		db.active[rideID] = ride
		return nil
	})
}

// UpdateLocation stores the driver's position on their active ride
func (r *RideRepository) UpdateLocation(ctx context.Context, rideID, driverID uuid.UUID, latitude, longitude float64, at time.Time) (bool, error) {
	updated := false
	err := r.s.exec(ctx, func(db *tables) error {
		ride, exists := db.active[rideID]
		if !exists || ride.DriverID != driverID {
			return nil
		}
		ride.CurrentLocation = &models.Location{Latitude: latitude, Longitude: longitude}
		ride.UpdatedAt = at
		db.active[rideID] = ride
		updated = true
		return nil
	})
	return updated, err
}

// MoveToCompleted moves the ride into the completed table
func (r *RideRepository) MoveToCompleted(ctx context.Context, ride *models.Ride) error {
	return r.s.exec(ctx, func(db *tables) error {
		if _, exists := db.active[ride.ID]; !exists {
			return pgx.ErrNoRows
		}
		if _, exists := db.completed[ride.ID]; exists {
			return uniqueViolation("completed_rides_pkey")
		}
		delete(db.active, ride.ID)

		row := terminalRow(ride)
		row.Status = models.RideStatusCompleted
		if row.CompletedAt != nil {
			row.UpdatedAt = *row.CompletedAt
		}
		db.completed[ride.ID] = row
		return nil
	})
}

// MoveToCancelled moves the ride into the cancelled table
func (r *RideRepository) MoveToCancelled(ctx context.Context, ride *models.Ride) error {
	return r.s.exec(ctx, func(db *tables) error {
		if _, exists := db.active[ride.ID]; !exists {
			return pgx.ErrNoRows
		}
		if _, exists := db.cancelled[ride.ID]; exists {
			return uniqueViolation("cancelled_rides_pkey")
		}
		delete(db.active, ride.ID)

		row := terminalRow(ride)
		row.Status = models.RideStatusCancelled
		penalty := decimal.Zero
		if ride.Penalty != nil {
			penalty = *ride.Penalty
		}
		row.Penalty = &penalty
		if row.CancelledAt != nil {
			row.UpdatedAt = *row.CancelledAt
		}
		db.cancelled[ride.ID] = row
		return nil
	})
}

// terminalRow drops the columns the terminal tables do not keep
func terminalRow(ride *models.Ride) models.Ride {
	row := *ride
	row.OTP = ""
	row.OTPGeneratedAt = time.Time{}
	row.CurrentLocation = nil
	return row
}

func driverInProgress(db *tables, driverID, except uuid.UUID) bool {
	for id, ride := range db.active {
		if id != except && ride.DriverID == driverID && ride.Status == models.RideStatusInProgress {
			return true
		}
	}
	return false
}

// ========================================
// QUERIES
// ========================================

// GetCompletedRide reads a completed ride
func (r *RideRepository) GetCompletedRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	return r.get(ctx, rideID, func(db *tables) map[uuid.UUID]models.Ride { return db.completed })
}

// GetCancelledRide reads a cancelled ride
func (r *RideRepository) GetCancelledRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	return r.get(ctx, rideID, func(db *tables) map[uuid.UUID]models.Ride { return db.cancelled })
}

// ListActiveRidesByUser returns the rides where the user is parent or
// driver, soonest first
func (r *RideRepository) ListActiveRidesByUser(ctx context.Context, userID uuid.UUID) ([]models.Ride, error) {
	return r.active(ctx, func(ride models.Ride) bool { return ride.IsParticipant(userID) })
}

// ListActiveRidesByDriver returns the driver's scheduled and in-progress
// rides, soonest first
func (r *RideRepository) ListActiveRidesByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Ride, error) {
	return r.active(ctx, func(ride models.Ride) bool { return ride.DriverID == driverID })
}

// ListRideHistory returns a page of the user's completed and cancelled
// rides, most recently finished first
func (r *RideRepository) ListRideHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Ride, int64, error) {
	history := []models.Ride{}
	err := r.s.exec(ctx, func(db *tables) error {
		for _, table := range []map[uuid.UUID]models.Ride{db.completed, db.cancelled} {
			for _, ride := range table {
				if ride.IsParticipant(userID) {
					history = append(history, ride)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(history, func(i, j int) bool {
		if !history[i].UpdatedAt.Equal(history[j].UpdatedAt) {
			return history[i].UpdatedAt.After(history[j].UpdatedAt)
		}
		return history[i].ID.String() < history[j].ID.String()
	})
	return page(history, limit, offset), int64(len(history)), nil
}

func (r *RideRepository) get(ctx context.Context, rideID uuid.UUID, table func(*tables) map[uuid.UUID]models.Ride) (*models.Ride, error) {
	var ride models.Ride
	err := r.s.exec(ctx, func(db *tables) error {
		found, exists := table(db)[rideID]
		if !exists {
			return pgx.ErrNoRows
		}
		ride = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *RideRepository) active(ctx context.Context, match func(models.Ride) bool) ([]models.Ride, error) {
	out := []models.Ride{}
	err := r.s.exec(ctx, func(db *tables) error {
		for _, ride := range db.active {
			if match(ride) {
				out = append(out, ride)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
