// Package memory keeps every table in process memory. It backs
// STORAGE_DRIVER=memory and the lifecycle tests, and mirrors the Postgres
// repositories: lookups return pgx.ErrNoRows and unique constraints fail
// with SQLSTATE 23505.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/schoolrun/internal/notifications"
	"github.com/richxcame/schoolrun/internal/paymentcards"
	"github.com/richxcame/schoolrun/internal/profiles"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/richxcame/schoolrun/pkg/models"
)

type tables struct {
	wallets       map[uuid.UUID]wallet.Wallet
	transactions  []wallet.Transaction
	cards         map[uuid.UUID]paymentcards.Card
	requests      map[uuid.UUID]models.RideRequest
	active        map[uuid.UUID]models.Ride
	completed     map[uuid.UUID]models.Ride
	cancelled     map[uuid.UUID]models.Ride
	notifications []notifications.Notification
	profiles      map[uuid.UUID]profiles.Profile
	children      map[uuid.UUID]profiles.Child
	vehicles      map[uuid.UUID]profiles.Vehicle
}

func newTables() *tables {
	return &tables{
		wallets:   make(map[uuid.UUID]wallet.Wallet),
		cards:     make(map[uuid.UUID]paymentcards.Card),
		requests:  make(map[uuid.UUID]models.RideRequest),
		active:    make(map[uuid.UUID]models.Ride),
		completed: make(map[uuid.UUID]models.Ride),
		cancelled: make(map[uuid.UUID]models.Ride),
		profiles:  make(map[uuid.UUID]profiles.Profile),
		children:  make(map[uuid.UUID]profiles.Child),
		vehicles:  make(map[uuid.UUID]profiles.Vehicle),
	}
}

// clone copies every table. Rows are values, so the copy is independent
// of later writes.
func (t *tables) clone() *tables {
	return &tables{
		wallets:       maps.Clone(t.wallets),
		transactions:  slices.Clone(t.transactions),
		cards:         maps.Clone(t.cards),
		requests:      maps.Clone(t.requests),
		active:        maps.Clone(t.active),
		completed:     maps.Clone(t.completed),
		cancelled:     maps.Clone(t.cancelled),
		notifications: slices.Clone(t.notifications),
		profiles:      maps.Clone(t.profiles),
		children:      maps.Clone(t.children),
		vehicles:      maps.Clone(t.vehicles),
	}
}

// Store holds the tables. A transaction holds the store lock until it
// ends, so transactions are serialisable; statements outside one run under
// the lock individually.
type Store struct {
	mu sync.Mutex
	db *tables
}

// New creates an empty store
func New() *Store {
	return &Store{db: newTables()}
}

type txKey struct{}

// InTx runs fn as one transaction and restores the previous state when fn
// fails. A ctx already inside a transaction on this store joins it.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.db.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.db = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// exec runs one statement, inside the caller's transaction when there is one
func (s *Store) exec(ctx context.Context, fn func(db *tables) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(s.db)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.db)
}

// Wallets returns the wallet ledger repository
func (s *Store) Wallets() *WalletRepository { return &WalletRepository{s: s} }

// Cards returns the saved card repository
func (s *Store) Cards() *CardRepository { return &CardRepository{s: s} }

// Rides returns the request and ride repository
func (s *Store) Rides() *RideRepository { return &RideRepository{s: s} }

// Notifications returns the inbox repository
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }

// Profiles returns the profile repository
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint \"" + constraint + "\"",
		ConstraintName: constraint,
	}
}
