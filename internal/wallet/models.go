package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a ledger entry
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Category classifies why money moved
type Category string

const (
	CategoryRideFare            Category = "ride_fare"
	CategoryRideEarning         Category = "ride_earning"
	CategoryCancellationPenalty Category = "cancellation_penalty"
	CategoryDeposit             Category = "deposit"
	CategoryWithdrawal          Category = "withdrawal"
)

// Wallet is a user's cached balance
type Wallet struct {
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is an immutable ledger entry. Amount is always positive.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Type        TransactionType `json:"type"`
	Category    Category        `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Entry describes the ledger line written alongside a balance change
type Entry struct {
	Category    Category
	Description string
	ReferenceID *uuid.UUID
}

// FareTransfer moves a ride fare from the parent to the driver
type FareTransfer struct {
	RideID   uuid.UUID
	ParentID uuid.UUID
	DriverID uuid.UUID
	Fare     decimal.Decimal
}

// DepositRequest tops up a parent's wallet from a saved card
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// WithdrawRequest pays a driver's balance out to a saved card
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Reconciliation compares the cached balance with the ledger
type Reconciliation struct {
	UserID     uuid.UUID       `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	Credits    decimal.Decimal `json:"credits"`
	Debits     decimal.Decimal `json:"debits"`
	Expected   decimal.Decimal `json:"expected"`
	Drift      decimal.Decimal `json:"drift"`
	Consistent bool            `json:"consistent"`
}
