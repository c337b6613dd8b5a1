package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/schoolrun/pkg/database"
)

// Repository handles inbox persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new notifications repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateNotification inserts an inbox entry
func (r *Repository) CreateNotification(ctx context.Context, n *Notification) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, ride_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.RideID, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListNotifications returns a page of the user's inbox, newest first
func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int64, error) {
	conn := database.Conn(ctx, r.db)

	var total int64
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, user_id, type, title, body, ride_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.RideID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// MarkRead flags one of the user's notifications as read
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
