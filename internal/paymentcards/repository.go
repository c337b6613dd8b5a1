package paymentcards

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/schoolrun/pkg/database"
)

const cardColumns = `id, user_id, last_four, brand, expiry_month, expiry_year,
	cardholder_name, bank_name, is_default, created_at`

// Repository handles payment card persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new payment cards repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LockUserCards takes a transaction-scoped advisory lock on the user's cards
func (r *Repository) LockUserCards(ctx context.Context, userID uuid.UUID) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID)
	if err != nil {
		return fmt.Errorf("failed to lock cards: %w", err)
	}
	return nil
}

// CountCards counts a user's saved cards
func (r *Repository) CountCards(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_cards WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// CreateCard inserts a card
func (r *Repository) CreateCard(ctx context.Context, c *Card) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO payment_cards (`+cardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.UserID, c.LastFour, c.Brand, c.ExpiryMonth, c.ExpiryYear,
		c.CardholderName, c.BankName, c.IsDefault, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// ListCards returns the user's cards, default first
func (r *Repository) ListCards(ctx context.Context, userID uuid.UUID) ([]Card, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT `+cardColumns+`
		FROM payment_cards
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]Card, 0)
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.UserID, &c.LastFour, &c.Brand, &c.ExpiryMonth, &c.ExpiryYear,
			&c.CardholderName, &c.BankName, &c.IsDefault, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetCard returns one of the user's cards or pgx.ErrNoRows
func (r *Repository) GetCard(ctx context.Context, userID, cardID uuid.UUID) (*Card, error) {
	return r.getOne(ctx, `WHERE user_id = $1 AND id = $2`, userID, cardID)
}

// GetDefaultCard returns the user's default card or pgx.ErrNoRows
func (r *Repository) GetDefaultCard(ctx context.Context, userID uuid.UUID) (*Card, error) {
	return r.getOne(ctx, `WHERE user_id = $1 AND is_default`, userID)
}

// LatestCard returns the newest card or pgx.ErrNoRows
func (r *Repository) LatestCard(ctx context.Context, userID uuid.UUID) (*Card, error) {
	return r.getOne(ctx, `WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT 1`, userID)
}

func (r *Repository) getOne(ctx context.Context, where string, args ...any) (*Card, error) {
	var c Card
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+cardColumns+` FROM payment_cards `+where, args...,
	).Scan(&c.ID, &c.UserID, &c.LastFour, &c.Brand, &c.ExpiryMonth, &c.ExpiryYear,
		&c.CardholderName, &c.BankName, &c.IsDefault, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClearDefault unsets the user's default card
func (r *Repository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE payment_cards SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear default card: %w", err)
	}
	return nil
}

// MarkDefault makes a card the default; false when it does not belong to the user
func (r *Repository) MarkDefault(ctx context.Context, userID, cardID uuid.UUID) (bool, error) {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE payment_cards SET is_default = TRUE WHERE user_id = $1 AND id = $2`, userID, cardID)
	if err != nil {
		return false, fmt.Errorf("failed to set default card: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteCard removes a card; false when nothing was deleted
func (r *Repository) DeleteCard(ctx context.Context, userID, cardID uuid.UUID) (bool, error) {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM payment_cards WHERE user_id = $1 AND id = $2`, userID, cardID)
	if err != nil {
		return false, fmt.Errorf("failed to delete card: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
