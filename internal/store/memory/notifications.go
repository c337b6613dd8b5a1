package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/notifications"
)

var _ notifications.RepositoryInterface = (*NotificationRepository)(nil)

// NotificationRepository implements notifications.RepositoryInterface
type NotificationRepository struct {
	s *Store
}

// CreateNotification stores an inbox entry
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *notifications.Notification) error {
	return r.s.exec(ctx, func(db *tables) error {
		db.notifications = append(db.notifications, *n)
		return nil
	})
}

// ListNotifications returns a page of the user's inbox, newest first
func (r *NotificationRepository) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]notifications.Notification, int64, error) {
	inbox := []notifications.Notification{}
	err := r.s.exec(ctx, func(db *tables) error {
		for i := len(db.notifications) - 1; i >= 0; i-- {
			if db.notifications[i].UserID == userID {
				inbox = append(inbox, db.notifications[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(inbox, func(i, j int) bool {
		return inbox[i].CreatedAt.After(inbox[j].CreatedAt)
	})
	return page(inbox, limit, offset), int64(len(inbox)), nil
}

// MarkRead flags one of the user's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	found := false
	err := r.s.exec(ctx, func(db *tables) error {
		for i := range db.notifications {
			if db.notifications[i].ID == id && db.notifications[i].UserID == userID {
				db.notifications[i].IsRead = true
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
