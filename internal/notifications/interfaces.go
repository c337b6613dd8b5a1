package notifications

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the inbox persistence operations
type RepositoryInterface interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// Publisher delivers events to a message broker
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// LanguageResolver returns a user's preferred language
type LanguageResolver interface {
	Language(ctx context.Context, userID uuid.UUID) string
}
