package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryInterface defines the persistence operations of the ledger
type RepositoryInterface interface {
	// GetWallet returns the wallet, or a zero-balance wallet if none exists yet
	GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	// DebitIfSufficient subtracts amount only when the balance covers it.
	// ok is false when no row qualified.
	DebitIfSufficient(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (balance decimal.Decimal, ok bool, err error)
	// Credit adds amount, creating the wallet when needed
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, tx *Transaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int64, error)
	LedgerTotals(ctx context.Context, userID uuid.UUID) (credits, debits decimal.Decimal, err error)
}

// CardChecker reports whether a user has at least one saved card
type CardChecker interface {
	HasCard(ctx context.Context, userID uuid.UUID) (bool, error)
}
