package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/schoolrun/pkg/database"
	"github.com/shopspring/decimal"
)

// Repository handles wallet persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new wallet repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetWallet retrieves a user's wallet
func (r *Repository) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	w := &Wallet{UserID: userID}
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT balance, currency, updated_at
		FROM wallets
		WHERE user_id = $1`,
		userID,
	).Scan(&w.Balance, &w.Currency, &w.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return &Wallet{UserID: userID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// DebitIfSufficient subtracts amount in a single conditional statement
func (r *Repository) DebitIfSufficient(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	var balance decimal.Decimal
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance`,
		userID, amount,
	).Scan(&balance)

	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to debit wallet: %w", err)
	}
	return balance, true, nil
}

// Credit increments the balance, creating the wallet on first use
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO wallets (user_id, balance, currency, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance`,
		userID, amount, currency,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return balance, nil
}

// CreateTransaction inserts a ledger entry
func (r *Repository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO wallet_transactions (id, user_id, type, category, amount, description, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.UserID, tx.Type, tx.Category, tx.Amount, tx.Description, tx.ReferenceID, tx.CreatedAt,
	)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyRecorded.WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListTransactions returns a page of ledger entries, newest first
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int64, error) {
	conn := database.Conn(ctx, r.db)

	var total int64
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, user_id, type, category, amount, description, reference_id, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Category, &t.Amount,
			&t.Description, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, total, rows.Err()
}

// LedgerTotals sums credits and debits for a user
func (r *Repository) LedgerTotals(ctx context.Context, userID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var credits, debits decimal.Decimal
	err := database.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0)
		FROM wallet_transactions
		WHERE user_id = $1`,
		userID,
	).Scan(&credits, &debits)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return credits, debits, nil
}
