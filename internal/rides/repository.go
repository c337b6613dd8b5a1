package rides

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/schoolrun/pkg/database"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
)

// Repository handles ride request and ride persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new rides repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const requestColumns = `id, child_id, parent_id,
	origin_lat, origin_lng, origin_address,
	destination_lat, destination_lng, destination_address,
	scheduled_time, estimated_fare, notes, status, created_at`

const activeColumns = `id, source_request_id, child_id, parent_id, driver_id,
	origin_lat, origin_lng, origin_address,
	destination_lat, destination_lng, destination_address,
	scheduled_time, status, otp, otp_generated_at, current_lat, current_lng,
	fare, notes, accepted_at, started_at, updated_at`

const completedColumns = `id, source_request_id, child_id, parent_id, driver_id,
	origin_lat, origin_lng, origin_address,
	destination_lat, destination_lng, destination_address,
	scheduled_time, fare, notes, accepted_at, started_at, completed_at`

const cancelledColumns = `id, source_request_id, child_id, parent_id, driver_id,
	origin_lat, origin_lng, origin_address,
	destination_lat, destination_lng, destination_address,
	scheduled_time, fare, notes, accepted_at, started_at,
	status_at_cancel, cancelled_by, cancelled_by_type, cancellation_reason, penalty, cancelled_at`

// ========================================
// RIDE REQUESTS
// ========================================

// CreateRequest inserts a pending request
func (r *Repository) CreateRequest(ctx context.Context, req *models.RideRequest) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO ride_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		req.ID, req.ChildID, req.ParentID,
		req.Origin.Latitude, req.Origin.Longitude, req.Origin.Address,
		req.Destination.Latitude, req.Destination.Longitude, req.Destination.Address,
		req.ScheduledTime, req.EstimatedFare, req.Notes, req.Status, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ride request: %w", err)
	}
	return nil
}

// ListPendingRequests returns every pending request, soonest first
func (r *Repository) ListPendingRequests(ctx context.Context) ([]models.RideRequest, error) {
	return r.queryRequests(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests
		ORDER BY scheduled_time ASC`)
}

// ListRequestsByParent returns a parent's pending requests
func (r *Repository) ListRequestsByParent(ctx context.Context, parentID uuid.UUID) ([]models.RideRequest, error) {
	return r.queryRequests(ctx, `
		SELECT `+requestColumns+`
		FROM ride_requests
		WHERE parent_id = $1
		ORDER BY scheduled_time ASC`, parentID)
}

// ClaimRequest deletes the request and returns it. A concurrent claimer
// blocks on the row and then sees no rows.
func (r *Repository) ClaimRequest(ctx context.Context, requestID uuid.UUID) (*models.RideRequest, error) {
	row := database.Conn(ctx, r.db).QueryRow(ctx, `
		DELETE FROM ride_requests
		WHERE id = $1
		RETURNING `+requestColumns, requestID)
	return scanRequest(row)
}

// DeleteRequestByParent removes a pending request owned by parentID
func (r *Repository) DeleteRequestByParent(ctx context.Context, parentID, requestID uuid.UUID) (bool, error) {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `
		DELETE FROM ride_requests
		WHERE id = $1 AND parent_id = $2`,
		requestID, parentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete ride request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpiredRequests removes and returns requests scheduled before the cutoff
func (r *Repository) DeleteExpiredRequests(ctx context.Context, scheduledBefore time.Time) ([]models.RideRequest, error) {
	return r.queryRequests(ctx, `
		DELETE FROM ride_requests
		WHERE scheduled_time < $1
		RETURNING `+requestColumns, scheduledBefore)
}

// RequestWasAccepted reports whether any ride was created from the request
func (r *Repository) RequestWasAccepted(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM active_rides WHERE source_request_id = $1)
			OR EXISTS (SELECT 1 FROM completed_rides WHERE source_request_id = $1)
			OR EXISTS (SELECT 1 FROM cancelled_rides WHERE source_request_id = $1)`,
		requestID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up accepted request: %w", err)
	}
	return exists, nil
}

func (r *Repository) queryRequests(ctx context.Context, sql string, args ...any) ([]models.RideRequest, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ride requests: %w", err)
	}
	defer rows.Close()

	reqs := make([]models.RideRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// ========================================
// ACTIVE RIDES
// ========================================

// CreateActiveRide inserts a scheduled ride
func (r *Repository) CreateActiveRide(ctx context.Context, ride *models.Ride) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO active_rides (
			id, source_request_id, child_id, parent_id, driver_id,
			origin_lat, origin_lng, origin_address,
			destination_lat, destination_lng, destination_address,
			scheduled_time, status, otp, otp_generated_at,
			fare, notes, accepted_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		ride.ID, ride.SourceRequestID, ride.ChildID, ride.ParentID, ride.DriverID,
		ride.Origin.Latitude, ride.Origin.Longitude, ride.Origin.Address,
		ride.Destination.Latitude, ride.Destination.Longitude, ride.Destination.Address,
		ride.ScheduledTime, ride.Status, ride.OTP, ride.OTPGeneratedAt,
		ride.Fare, ride.Notes, ride.AcceptedAt, ride.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}
	return nil
}

// GetActiveRide reads a scheduled or in-progress ride
func (r *Repository) GetActiveRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	row := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+activeColumns+`
		FROM active_rides
		WHERE id = $1`, rideID)
	return scanActive(row)
}

// LockActiveRide reads the ride FOR UPDATE. It must run inside a transaction.
func (r *Repository) LockActiveRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	row := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+activeColumns+`
		FROM active_rides
		WHERE id = $1
		FOR UPDATE`, rideID)
	return scanActive(row)
}

// HasRideInProgress reports whether the driver is currently driving a child
func (r *Repository) HasRideInProgress(ctx context.Context, driverID uuid.UUID) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM active_rides WHERE driver_id = $1 AND status = 'in_progress'
		)`, driverID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check rides in progress: %w", err)
	}
	return exists, nil
}

// MarkInProgress starts a scheduled ride at its pickup point
func (r *Repository) MarkInProgress(ctx context.Context, rideID uuid.UUID, startedAt time.Time) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE active_rides
		SET status = 'in_progress',
			started_at = $2,
			current_lat = origin_lat,
			current_lng = origin_lng,
			updated_at = $2
		WHERE id = $1 AND status = 'scheduled'`,
		rideID, startedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to start ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateOTP replaces the pickup code of a scheduled ride
func (r *Repository) UpdateOTP(ctx context.Context, rideID uuid.UUID, code string, generatedAt time.Time) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE active_rides
		SET otp = $2, otp_generated_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'scheduled'`,
		rideID, code, generatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateLocation stores the driver's position on their active ride
func (r *Repository) UpdateLocation(ctx context.Context, rideID, driverID uuid.UUID, latitude, longitude float64, at time.Time) (bool, error) {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE active_rides
		SET current_lat = $3, current_lng = $4, updated_at = $5
		WHERE id = $1 AND driver_id = $2`,
		rideID, driverID, latitude, longitude, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update ride location: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MoveToCompleted moves the ride into completed_rides. It must run inside
// a transaction.
func (r *Repository) MoveToCompleted(ctx context.Context, ride *models.Ride) error {
	conn := database.Conn(ctx, r.db)
	if err := deleteActive(ctx, conn, ride.ID); err != nil {
		return err
	}

	_, err := conn.Exec(ctx, `
		INSERT INTO completed_rides (`+completedColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		ride.ID, ride.SourceRequestID, ride.ChildID, ride.ParentID, ride.DriverID,
		ride.Origin.Latitude, ride.Origin.Longitude, ride.Origin.Address,
		ride.Destination.Latitude, ride.Destination.Longitude, ride.Destination.Address,
		ride.ScheduledTime, ride.Fare, ride.Notes, ride.AcceptedAt, ride.StartedAt, ride.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert completed ride: %w", err)
	}
	return nil
}

// MoveToCancelled moves the ride into cancelled_rides. It must run inside
// a transaction.
func (r *Repository) MoveToCancelled(ctx context.Context, ride *models.Ride) error {
	conn := database.Conn(ctx, r.db)
	if err := deleteActive(ctx, conn, ride.ID); err != nil {
		return err
	}

	penalty := decimal.Zero
	if ride.Penalty != nil {
		penalty = *ride.Penalty
	}
	_, err := conn.Exec(ctx, `
		INSERT INTO cancelled_rides (`+cancelledColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		ride.ID, ride.SourceRequestID, ride.ChildID, ride.ParentID, ride.DriverID,
		ride.Origin.Latitude, ride.Origin.Longitude, ride.Origin.Address,
		ride.Destination.Latitude, ride.Destination.Longitude, ride.Destination.Address,
		ride.ScheduledTime, ride.Fare, ride.Notes, ride.AcceptedAt, ride.StartedAt,
		ride.StatusAtCancel, ride.CancelledBy, ride.CancelledByType, ride.CancellationReason, penalty, ride.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cancelled ride: %w", err)
	}
	return nil
}

func deleteActive(ctx context.Context, conn database.Querier, rideID uuid.UUID) error {
	tag, err := conn.Exec(ctx, `DELETE FROM active_rides WHERE id = $1`, rideID)
	if err != nil {
		return fmt.Errorf("failed to delete active ride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListActiveRidesByUser returns the active rides a parent or driver takes part in
func (r *Repository) ListActiveRidesByUser(ctx context.Context, userID uuid.UUID) ([]models.Ride, error) {
	return r.queryActive(ctx, `
		SELECT `+activeColumns+`
		FROM active_rides
		WHERE parent_id = $1 OR driver_id = $1
		ORDER BY scheduled_time ASC`, userID)
}

// ListActiveRidesByDriver returns a driver's active rides
func (r *Repository) ListActiveRidesByDriver(ctx context.Context, driverID uuid.UUID) ([]models.Ride, error) {
	return r.queryActive(ctx, `
		SELECT `+activeColumns+`
		FROM active_rides
		WHERE driver_id = $1
		ORDER BY scheduled_time ASC`, driverID)
}

func (r *Repository) queryActive(ctx context.Context, sql string, args ...any) ([]models.Ride, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	rides := make([]models.Ride, 0)
	for rows.Next() {
		ride, err := scanActive(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		rides = append(rides, *ride)
	}
	return rides, rows.Err()
}

// ========================================
// TERMINAL RIDES
// ========================================

// GetCompletedRide reads a completed ride
func (r *Repository) GetCompletedRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	row := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+completedColumns+`
		FROM completed_rides
		WHERE id = $1`, rideID)
	return scanCompleted(row)
}

// GetCancelledRide reads a cancelled ride
func (r *Repository) GetCancelledRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	row := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT `+cancelledColumns+`
		FROM cancelled_rides
		WHERE id = $1`, rideID)
	return scanCancelled(row)
}

// ListRideHistory returns completed and cancelled rides for a user, most
// recent first
func (r *Repository) ListRideHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Ride, int64, error) {
	conn := database.Conn(ctx, r.db)

	var total int64
	err := conn.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM completed_rides WHERE parent_id = $1 OR driver_id = $1) +
			(SELECT COUNT(*) FROM cancelled_rides WHERE parent_id = $1 OR driver_id = $1)`,
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ride history: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, finished_at, kind FROM (
			SELECT id, completed_at AS finished_at, 'completed' AS kind
			FROM completed_rides WHERE parent_id = $1 OR driver_id = $1
			UNION ALL
			SELECT id, cancelled_at AS finished_at, 'cancelled' AS kind
			FROM cancelled_rides WHERE parent_id = $1 OR driver_id = $1
		) history
		ORDER BY finished_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query ride history: %w", err)
	}

	type entry struct {
		id   uuid.UUID
		kind string
	}
	var page []entry
	for rows.Next() {
		var e entry
		var finishedAt time.Time
		if err := rows.Scan(&e.id, &finishedAt, &e.kind); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan ride history: %w", err)
		}
		page = append(page, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read ride history: %w", err)
	}

	rides := make([]models.Ride, 0, len(page))
	for _, e := range page {
		var ride *models.Ride
		if e.kind == string(models.RideStatusCompleted) {
			ride, err = r.GetCompletedRide(ctx, e.id)
		} else {
			ride, err = r.GetCancelledRide(ctx, e.id)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load ride %s: %w", e.id, err)
		}
		rides = append(rides, *ride)
	}
	return rides, total, nil
}

// ========================================
// SCANNING
// ========================================

func scanRequest(row pgx.Row) (*models.RideRequest, error) {
	req := &models.RideRequest{}
	err := row.Scan(
		&req.ID, &req.ChildID, &req.ParentID,
		&req.Origin.Latitude, &req.Origin.Longitude, &req.Origin.Address,
		&req.Destination.Latitude, &req.Destination.Longitude, &req.Destination.Address,
		&req.ScheduledTime, &req.EstimatedFare, &req.Notes, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func scanActive(row pgx.Row) (*models.Ride, error) {
	ride := &models.Ride{}
	var lat, lng *float64
	err := row.Scan(
		&ride.ID, &ride.SourceRequestID, &ride.ChildID, &ride.ParentID, &ride.DriverID,
		&ride.Origin.Latitude, &ride.Origin.Longitude, &ride.Origin.Address,
		&ride.Destination.Latitude, &ride.Destination.Longitude, &ride.Destination.Address,
		&ride.ScheduledTime, &ride.Status, &ride.OTP, &ride.OTPGeneratedAt, &lat, &lng,
		&ride.Fare, &ride.Notes, &ride.AcceptedAt, &ride.StartedAt, &ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		ride.CurrentLocation = &models.Location{Latitude: *lat, Longitude: *lng}
	}
	return ride, nil
}

func scanCompleted(row pgx.Row) (*models.Ride, error) {
	ride := &models.Ride{Status: models.RideStatusCompleted}
	err := row.Scan(
		&ride.ID, &ride.SourceRequestID, &ride.ChildID, &ride.ParentID, &ride.DriverID,
		&ride.Origin.Latitude, &ride.Origin.Longitude, &ride.Origin.Address,
		&ride.Destination.Latitude, &ride.Destination.Longitude, &ride.Destination.Address,
		&ride.ScheduledTime, &ride.Fare, &ride.Notes, &ride.AcceptedAt, &ride.StartedAt, &ride.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if ride.CompletedAt != nil {
		ride.UpdatedAt = *ride.CompletedAt
	}
	return ride, nil
}

func scanCancelled(row pgx.Row) (*models.Ride, error) {
	ride := &models.Ride{Status: models.RideStatusCancelled}
	var penalty decimal.Decimal
	err := row.Scan(
		&ride.ID, &ride.SourceRequestID, &ride.ChildID, &ride.ParentID, &ride.DriverID,
		&ride.Origin.Latitude, &ride.Origin.Longitude, &ride.Origin.Address,
		&ride.Destination.Latitude, &ride.Destination.Longitude, &ride.Destination.Address,
		&ride.ScheduledTime, &ride.Fare, &ride.Notes, &ride.AcceptedAt, &ride.StartedAt,
		&ride.StatusAtCancel, &ride.CancelledBy, &ride.CancelledByType, &ride.CancellationReason, &penalty, &ride.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	ride.Penalty = &penalty
	if ride.CancelledAt != nil {
		ride.UpdatedAt = *ride.CancelledAt
	}
	return ride, nil
}
