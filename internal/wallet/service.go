package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/database"
	"github.com/richxcame/schoolrun/pkg/logger"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/richxcame/schoolrun/pkg/tracing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Service is the wallet ledger. Every balance change writes exactly one
// transaction in the same database transaction.
type Service struct {
	repo  RepositoryInterface
	tx    database.Transactor
	cards CardChecker
	cfg   config.BusinessConfig
	now   func() time.Time
}

// NewService creates a new wallet service
func NewService(repo RepositoryInterface, tx database.Transactor, cards CardChecker, cfg config.BusinessConfig) *Service {
	return &Service{
		repo:  repo,
		tx:    tx,
		cards: cards,
		cfg:   cfg,
		now:   time.Now,
	}
}

// WithNow overrides the clock
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// ========================================
// LEDGER PRIMITIVES
// ========================================

// CheckBalance reports whether the cached balance covers amount
func (s *Service) CheckBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	w, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return false, common.NewInternalError("failed to read wallet", err)
	}
	return w.Balance.GreaterThanOrEqual(amount), nil
}

// Debit removes amount from the user's balance. It fails with
// ErrInsufficientFunds instead of letting the balance go negative.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, entry Entry) (*Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "wallet.Debit",
		attribute.String("user_id", userID.String()),
		attribute.String("category", string(entry.Category)),
	)
	var txn *Transaction
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		balance, ok, err := s.repo.DebitIfSufficient(ctx, userID, amount)
		if err != nil {
			return common.NewInternalError("failed to debit wallet", err)
		}
		if !ok {
			insufficientFundsTotal.WithLabelValues(string(entry.Category)).Inc()
			return ErrInsufficientFunds
		}

		txn = s.newTransaction(userID, TransactionDebit, amount, entry)
		if err := s.record(ctx, txn); err != nil {
			return err
		}

		logger.WithContext(ctx).Info("wallet debited",
			zap.String("user_id", userID.String()),
			zap.String("category", string(entry.Category)),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("balance", balance.StringFixed(2)),
		)
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Credit adds amount to the user's balance, creating the wallet if needed
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, entry Entry) (*Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "wallet.Credit",
		attribute.String("user_id", userID.String()),
		attribute.String("category", string(entry.Category)),
	)
	var txn *Transaction
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		balance, err := s.repo.Credit(ctx, userID, amount, s.cfg.Currency)
		if err != nil {
			return common.NewInternalError("failed to credit wallet", err)
		}

		txn = s.newTransaction(userID, TransactionCredit, amount, entry)
		if err := s.record(ctx, txn); err != nil {
			return err
		}

		logger.WithContext(ctx).Info("wallet credited",
			zap.String("user_id", userID.String()),
			zap.String("category", string(entry.Category)),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("balance", balance.StringFixed(2)),
		)
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// TransferFare moves the fare from the parent to the driver. It joins the
// caller's transaction when one is open.
func (s *Service) TransferFare(ctx context.Context, t FareTransfer) error {
	rideID := t.RideID
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.Debit(ctx, t.ParentID, t.Fare, Entry{
			Category:    CategoryRideFare,
			Description: fmt.Sprintf("Ride fare for ride %s", shortID(rideID)),
			ReferenceID: &rideID,
		}); err != nil {
			return err
		}

		_, err := s.Credit(ctx, t.DriverID, t.Fare, Entry{
			Category:    CategoryRideEarning,
			Description: fmt.Sprintf("Earnings for ride %s", shortID(rideID)),
			ReferenceID: &rideID,
		})
		return err
	})
}

// ========================================
// DEPOSITS AND WITHDRAWALS
// ========================================

// Deposit tops up a parent's wallet. A saved card is required.
func (s *Service) Deposit(ctx context.Context, actor models.Actor, req *DepositRequest) (*Transaction, error) {
	if !actor.IsParent() {
		return nil, common.NewForbiddenError("only parents can deposit funds")
	}
	if err := s.checkBounds(req.Amount, s.cfg.MinDeposit, s.cfg.MaxDeposit, "deposit"); err != nil {
		return nil, err
	}
	if err := s.requireCard(ctx, actor.UserID); err != nil {
		return nil, err
	}

	return s.Credit(ctx, actor.UserID, req.Amount, Entry{
		Category:    CategoryDeposit,
		Description: "Wallet deposit",
	})
}

// Withdraw pays a driver's earnings out. The atomic debit enforces the
// balance.
func (s *Service) Withdraw(ctx context.Context, actor models.Actor, req *WithdrawRequest) (*Transaction, error) {
	if !actor.IsDriver() {
		return nil, common.NewForbiddenError("only drivers can withdraw funds")
	}
	if err := s.checkBounds(req.Amount, s.cfg.MinWithdrawal, s.cfg.MaxWithdrawal, "withdrawal"); err != nil {
		return nil, err
	}
	if err := s.requireCard(ctx, actor.UserID); err != nil {
		return nil, err
	}

	return s.Debit(ctx, actor.UserID, req.Amount, Entry{
		Category:    CategoryWithdrawal,
		Description: "Withdrawal to bank account",
	})
}

// ========================================
// QUERIES
// ========================================

// GetWallet returns the caller's wallet
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError("failed to get wallet", err)
	}
	if w.Currency == "" {
		w.Currency = s.cfg.Currency
	}
	return w, nil
}

// ListTransactions returns a page of the caller's ledger
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int64, error) {
	txs, total, err := s.repo.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list transactions", err)
	}
	return txs, total, nil
}

// VerifyBalance recomputes the balance from the ledger and reports drift
func (s *Service) VerifyBalance(ctx context.Context, userID uuid.UUID) (*Reconciliation, error) {
	w, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError("failed to get wallet", err)
	}
	credits, debits, err := s.repo.LedgerTotals(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError("failed to sum ledger", err)
	}

	expected := credits.Sub(debits)
	rec := &Reconciliation{
		UserID:     userID,
		Balance:    w.Balance,
		Credits:    credits,
		Debits:     debits,
		Expected:   expected,
		Drift:      w.Balance.Sub(expected),
		Consistent: w.Balance.Equal(expected),
	}

	if !rec.Consistent {
		logger.WithContext(ctx).Error("wallet balance drift detected",
			zap.String("user_id", userID.String()),
			zap.String("balance", w.Balance.StringFixed(2)),
			zap.String("expected", expected.StringFixed(2)),
		)
	}
	return rec, nil
}

// ========================================
// HELPERS
// ========================================

func (s *Service) newTransaction(userID uuid.UUID, typ TransactionType, amount decimal.Decimal, entry Entry) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        typ,
		Category:    entry.Category,
		Amount:      amount,
		Description: entry.Description,
		ReferenceID: entry.ReferenceID,
		CreatedAt:   s.now(),
	}
}

func (s *Service) record(ctx context.Context, txn *Transaction) error {
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		if _, ok := common.AsAppError(err); ok {
			return err
		}
		return common.NewInternalError("failed to record transaction", err)
	}
	transactionsTotal.WithLabelValues(string(txn.Type), string(txn.Category)).Inc()
	return nil
}

func (s *Service) checkBounds(amount, lo, hi decimal.Decimal, kind string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.LessThan(lo) || amount.GreaterThan(hi) {
		return common.NewValidationError(fmt.Sprintf("%s amount must be between R%s and R%s",
			kind, lo.StringFixed(2), hi.StringFixed(2)))
	}
	return nil
}

func (s *Service) requireCard(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.cards.HasCard(ctx, userID)
	if err != nil {
		return common.NewInternalError("failed to check payment cards", err)
	}
	if !ok {
		return ErrNoPaymentCard
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return common.NewValidationError("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return common.NewValidationError("amount cannot have more than two decimal places")
	}
	return nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
