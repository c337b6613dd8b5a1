package paymentcards

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence operations for saved cards
type RepositoryInterface interface {
	// LockUserCards serialises card changes for one user until the
	// surrounding transaction ends
	LockUserCards(ctx context.Context, userID uuid.UUID) error
	CountCards(ctx context.Context, userID uuid.UUID) (int, error)
	CreateCard(ctx context.Context, card *Card) error
	ListCards(ctx context.Context, userID uuid.UUID) ([]Card, error)
	GetCard(ctx context.Context, userID, cardID uuid.UUID) (*Card, error)
	GetDefaultCard(ctx context.Context, userID uuid.UUID) (*Card, error)
	ClearDefault(ctx context.Context, userID uuid.UUID) error
	MarkDefault(ctx context.Context, userID, cardID uuid.UUID) (bool, error)
	DeleteCard(ctx context.Context, userID, cardID uuid.UUID) (bool, error)
	// LatestCard returns the most recently added card
	LatestCard(ctx context.Context, userID uuid.UUID) (*Card, error)
}
