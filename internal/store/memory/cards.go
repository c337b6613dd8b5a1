package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/schoolrun/internal/paymentcards"
)

var _ paymentcards.RepositoryInterface = (*CardRepository)(nil)

// CardRepository implements paymentcards.RepositoryInterface
type CardRepository struct {
	s *Store
}

// LockUserCards is a no-op: the surrounding transaction already holds the
// store lock
func (r *CardRepository) LockUserCards(ctx context.Context, userID uuid.UUID) error {
	return ctx.Err()
}

// CountCards returns how many cards the user has saved
func (r *CardRepository) CountCards(ctx context.Context, userID uuid.UUID) (int, error) {
	n := 0
	err := r.s.exec(ctx, func(db *tables) error {
		for _, c := range db.cards {
			if c.UserID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// CreateCard inserts a card
func (r *CardRepository) CreateCard(ctx context.Context, card *paymentcards.Card) error {
	return r.s.exec(ctx, func(db *tables) error {
		if _, exists := db.cards[card.ID]; exists {
			return uniqueViolation("payment_cards_pkey")
		}
		if card.IsDefault && hasDefault(db, card.UserID) {
			return uniqueViolation("uq_payment_cards_default")
		}
		db.cards[card.ID] = *card
		return nil
	})
}

// ListCards returns the user's cards, default first then newest
func (r *CardRepository) ListCards(ctx context.Context, userID uuid.UUID) ([]paymentcards.Card, error) {
	cards, err := r.userCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].IsDefault != cards[j].IsDefault {
			return cards[i].IsDefault
		}
		return cards[i].CreatedAt.After(cards[j].CreatedAt)
	})
	return cards, nil
}

// GetCard returns one of the user's cards
func (r *CardRepository) GetCard(ctx context.Context, userID, cardID uuid.UUID) (*paymentcards.Card, error) {
	return r.findOne(ctx, userID, func(c paymentcards.Card) bool { return c.ID == cardID })
}

// GetDefaultCard returns the user's default card
func (r *CardRepository) GetDefaultCard(ctx context.Context, userID uuid.UUID) (*paymentcards.Card, error) {
	return r.findOne(ctx, userID, func(c paymentcards.Card) bool { return c.IsDefault })
}

// ClearDefault unsets the user's default card
func (r *CardRepository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.s.exec(ctx, func(db *tables) error {
		for id, c := range db.cards {
			if c.UserID == userID && c.IsDefault {
				c.IsDefault = false
				db.cards[id] = c
			}
		}
		return nil
	})
}

// MarkDefault sets the card as default. It reports false when the card
// does not belong to the user.
func (r *CardRepository) MarkDefault(ctx context.Context, userID, cardID uuid.UUID) (bool, error) {
	found := false
	err := r.s.exec(ctx, func(db *tables) error {
		c, exists := db.cards[cardID]
		if !exists || c.UserID != userID {
			return nil
		}
		found = true
		if c.IsDefault {
			return nil
		}
		if hasDefault(db, userID) {
			return uniqueViolation("uq_payment_cards_default")
		}
		c.IsDefault = true
		db.cards[cardID] = c
		return nil
	})
	return found, err
}

// DeleteCard removes the card. It reports false when nothing was deleted.
func (r *CardRepository) DeleteCard(ctx context.Context, userID, cardID uuid.UUID) (bool, error) {
	deleted := false
	err := r.s.exec(ctx, func(db *tables) error {
		if c, exists := db.cards[cardID]; exists && c.UserID == userID {
			delete(db.cards, cardID)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

// LatestCard returns the most recently added card
func (r *CardRepository) LatestCard(ctx context.Context, userID uuid.UUID) (*paymentcards.Card, error) {
	cards, err := r.userCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}
		return cards[i].ID.String() < cards[j].ID.String()
	})
	return &cards[0], nil
}

func (r *CardRepository) userCards(ctx context.Context, userID uuid.UUID) ([]paymentcards.Card, error) {
	cards := []paymentcards.Card{}
	err := r.s.exec(ctx, func(db *tables) error {
		for _, c := range db.cards {
			if c.UserID == userID {
				cards = append(cards, c)
			}
		}
		return nil
	})
	return cards, err
}

func (r *CardRepository) findOne(ctx context.Context, userID uuid.UUID, match func(paymentcards.Card) bool) (*paymentcards.Card, error) {
	cards, err := r.userCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if match(cards[i]) {
			return &cards[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func hasDefault(db *tables, userID uuid.UUID) bool {
	for _, c := range db.cards {
		if c.UserID == userID && c.IsDefault {
			return true
		}
	}
	return false
}
