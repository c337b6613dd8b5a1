package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/shopspring/decimal"
)

var _ wallet.RepositoryInterface = (*WalletRepository)(nil)

// WalletRepository implements wallet.RepositoryInterface
type WalletRepository struct {
	s *Store
}

// GetWallet returns the wallet, or a zero-balance wallet if none exists yet
func (r *WalletRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := r.s.exec(ctx, func(db *tables) error {
		var ok bool
		if w, ok = db.wallets[userID]; !ok {
			w = wallet.Wallet{UserID: userID, Balance: decimal.Zero}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// DebitIfSufficient subtracts amount only when the balance covers it
func (r *WalletRepository) DebitIfSufficient(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	balance, ok := decimal.Zero, false
	err := r.s.exec(ctx, func(db *tables) error {
		w, exists := db.wallets[userID]
		if !exists || w.Balance.LessThan(amount) {
			return nil
		}
		w.Balance = w.Balance.Sub(amount)
		w.UpdatedAt = time.Now()
		db.wallets[userID] = w
		balance, ok = w.Balance, true
		return nil
	})
	if err != nil {
		return decimal.Zero, false, err
	}
	return balance, ok, nil
}

// Credit adds amount, creating the wallet on first use
func (r *WalletRepository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.s.exec(ctx, func(db *tables) error {
		w, exists := db.wallets[userID]
		if !exists {
			w = wallet.Wallet{UserID: userID, Balance: decimal.Zero, Currency: currency}
		}
		w.Balance = w.Balance.Add(amount)
		w.UpdatedAt = time.Now()
		db.wallets[userID] = w
		balance = w.Balance
		return nil
	})
	return balance, err
}

// CreateTransaction appends a ledger entry. A second fare, earning or
// penalty for the same ride and user is rejected.
func (r *WalletRepository) CreateTransaction(ctx context.Context, tx *wallet.Transaction) error {
	return r.s.exec(ctx, func(db *tables) error {
		if tx.ReferenceID != nil && rideCategory(tx.Category) {
			for _, existing := range db.transactions {
				if existing.UserID == tx.UserID &&
					existing.Category == tx.Category &&
					existing.ReferenceID != nil && *existing.ReferenceID == *tx.ReferenceID {
					return wallet.ErrAlreadyRecorded.WithCause(uniqueViolation("uq_wallet_transactions_ride"))
				}
			}
		}
		db.transactions = append(db.transactions, *tx)
		return nil
	})
}

// ListTransactions returns a page of ledger entries, newest first
func (r *WalletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]wallet.Transaction, int64, error) {
	var out []wallet.Transaction
	err := r.s.exec(ctx, func(db *tables) error {
		for i := len(db.transactions) - 1; i >= 0; i-- {
			if db.transactions[i].UserID == userID {
				out = append(out, db.transactions[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), int64(len(out)), nil
}

// LedgerTotals sums credits and debits for a user
func (r *WalletRepository) LedgerTotals(ctx context.Context, userID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	credits, debits := decimal.Zero, decimal.Zero
	err := r.s.exec(ctx, func(db *tables) error {
		for _, t := range db.transactions {
			if t.UserID != userID {
				continue
			}
			switch t.Type {
			case wallet.TransactionCredit:
				credits = credits.Add(t.Amount)
			case wallet.TransactionDebit:
				debits = debits.Add(t.Amount)
			}
		}
		return nil
	})
	return credits, debits, err
}

func rideCategory(c wallet.Category) bool {
	switch c {
	case wallet.CategoryRideFare, wallet.CategoryRideEarning, wallet.CategoryCancellationPenalty:
		return true
	}
	return false
}

// page applies LIMIT and OFFSET
func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
