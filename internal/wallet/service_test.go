package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ========================================
// INTERNAL MOCKS
// ========================================

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *mockRepo) DebitIfSufficient(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *mockRepo) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, amount, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockRepo) CreateTransaction(ctx context.Context, tx *Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *mockRepo) LedgerTotals(ctx context.Context, userID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

type mockCards struct {
	mock.Mock
}

func (m *mockCards) HasCard(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// passthroughTx runs fn directly; transactional rollback is covered by the
// in-memory store tests.
type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ========================================
// TEST HELPERS
// ========================================

var (
	parentID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	driverID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	rideID   = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	fixedNow = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
)

func testConfig() config.BusinessConfig {
	return config.BusinessConfig{
		Currency:      "ZAR",
		MinDeposit:    decimal.NewFromInt(10),
		MaxDeposit:    decimal.NewFromInt(10000),
		MinWithdrawal: decimal.NewFromInt(50),
		MaxWithdrawal: decimal.NewFromInt(5000),
	}
}

func newTestService(repo RepositoryInterface, cards CardChecker) *Service {
	return NewService(repo, passthroughTx{}, cards, testConfig()).WithNow(func() time.Time { return fixedNow })
}

func amount(v string) interface{} {
	want := decimal.RequireFromString(v)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func txnOf(typ TransactionType, category Category) interface{} {
	return mock.MatchedBy(func(t *Transaction) bool {
		return t.Type == typ && t.Category == category
	})
}

// ========================================
// DEBIT TESTS
// ========================================

func TestDebit(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		setupMocks func(m *mockRepo)
		wantErr    error
		errMessage string
		validate   func(t *testing.T, txn *Transaction)
	}{
		{
			name:   "success - writes one debit entry",
			amount: "45.00",
			setupMocks: func(m *mockRepo) {
				m.On("DebitIfSufficient", mock.Anything, parentID, amount("45")).Return(decimal.NewFromInt(55), true, nil)
				m.On("CreateTransaction", mock.Anything, txnOf(TransactionDebit, CategoryRideFare)).Return(nil)
			},
			validate: func(t *testing.T, txn *Transaction) {
				assert.Equal(t, parentID, txn.UserID)
				assert.Equal(t, TransactionDebit, txn.Type)
				assert.True(t, txn.Amount.Equal(decimal.NewFromInt(45)))
				assert.Equal(t, fixedNow, txn.CreatedAt)
			},
		},
		{
			name:   "error - balance does not cover amount",
			amount: "120",
			setupMocks: func(m *mockRepo) {
				m.On("DebitIfSufficient", mock.Anything, parentID, amount("120")).Return(decimal.Zero, false, nil)
			},
			wantErr: ErrInsufficientFunds,
		},
		{
			name:   "error - repository failure is internal",
			amount: "10",
			setupMocks: func(m *mockRepo) {
				m.On("DebitIfSufficient", mock.Anything, parentID, amount("10")).Return(decimal.Zero, false, errors.New("db down"))
			},
			errMessage: "failed to debit wallet",
		},
		{
			name:       "error - zero amount",
			amount:     "0",
			setupMocks: func(m *mockRepo) {},
			errMessage: "greater than zero",
		},
		{
			name:       "error - fractional cents",
			amount:     "10.005",
			setupMocks: func(m *mockRepo) {},
			errMessage: "two decimal places",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			tt.setupMocks(repo)
			svc := newTestService(repo, new(mockCards))

			txn, err := svc.Debit(context.Background(), parentID, decimal.RequireFromString(tt.amount), Entry{
				Category:    CategoryRideFare,
				Description: "Ride fare",
				ReferenceID: &rideID,
			})

			switch {
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
			case tt.errMessage != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMessage)
			default:
				require.NoError(t, err)
				tt.validate(t, txn)
			}
			repo.AssertExpectations(t)
		})
	}
}

// ========================================
// CREDIT TESTS
// ========================================

func TestCredit_CreatesWalletAndEntry(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Credit", mock.Anything, driverID, amount("45"), "ZAR").Return(decimal.NewFromInt(45), nil)
	repo.On("CreateTransaction", mock.Anything, txnOf(TransactionCredit, CategoryRideEarning)).Return(nil)

	svc := newTestService(repo, new(mockCards))
	txn, err := svc.Credit(context.Background(), driverID, decimal.NewFromInt(45), Entry{Category: CategoryRideEarning})

	require.NoError(t, err)
	assert.Equal(t, TransactionCredit, txn.Type)
	repo.AssertExpectations(t)
}

func TestCredit_DuplicateRideEntryKeepsDomainError(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Credit", mock.Anything, driverID, amount("45"), "ZAR").Return(decimal.NewFromInt(90), nil)
	repo.On("CreateTransaction", mock.Anything, mock.Anything).Return(ErrAlreadyRecorded)

	svc := newTestService(repo, new(mockCards))
	_, err := svc.Credit(context.Background(), driverID, decimal.NewFromInt(45), Entry{Category: CategoryRideEarning, ReferenceID: &rideID})

	assert.ErrorIs(t, err, ErrAlreadyRecorded)
}

// ========================================
// TRANSFER FARE TESTS
// ========================================

func TestTransferFare(t *testing.T) {
	t.Run("success - parent debited and driver credited", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("DebitIfSufficient", mock.Anything, parentID, amount("45")).Return(decimal.NewFromInt(55), true, nil)
		repo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(t *Transaction) bool {
			return t.Category == CategoryRideFare && t.ReferenceID != nil && *t.ReferenceID == rideID
		})).Return(nil)
		repo.On("Credit", mock.Anything, driverID, amount("45"), "ZAR").Return(decimal.NewFromInt(45), nil)
		repo.On("CreateTransaction", mock.Anything, txnOf(TransactionCredit, CategoryRideEarning)).Return(nil)

		svc := newTestService(repo, new(mockCards))
		err := svc.TransferFare(context.Background(), FareTransfer{
			RideID: rideID, ParentID: parentID, DriverID: driverID, Fare: decimal.NewFromInt(45),
		})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("error - driver is not credited when parent cannot pay", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("DebitIfSufficient", mock.Anything, parentID, amount("45")).Return(decimal.Zero, false, nil)

		svc := newTestService(repo, new(mockCards))
		err := svc.TransferFare(context.Background(), FareTransfer{
			RideID: rideID, ParentID: parentID, DriverID: driverID, Fare: decimal.NewFromInt(45),
		})

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		repo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

// ========================================
// DEPOSIT TESTS
// ========================================

func TestDeposit_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"below minimum", "5", true},
		{"at minimum", "10", false},
		{"at maximum", "10000", false},
		{"above maximum", "10001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			cards := new(mockCards)
			cards.On("HasCard", mock.Anything, parentID).Return(true, nil).Maybe()
			repo.On("Credit", mock.Anything, parentID, amount(tt.amount), "ZAR").Return(decimal.RequireFromString(tt.amount), nil).Maybe()
			repo.On("CreateTransaction", mock.Anything, txnOf(TransactionCredit, CategoryDeposit)).Return(nil).Maybe()

			svc := newTestService(repo, cards)
			txn, err := svc.Deposit(context.Background(), models.NewParent(parentID), &DepositRequest{
				Amount: decimal.RequireFromString(tt.amount),
			})

			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := common.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, common.ReasonValidation, appErr.Reason)
				assert.Contains(t, appErr.Message, "R10.00 and R10000.00")
				repo.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, CategoryDeposit, txn.Category)
		})
	}
}

func TestDeposit_Rejections(t *testing.T) {
	t.Run("drivers cannot deposit", func(t *testing.T) {
		svc := newTestService(new(mockRepo), new(mockCards))
		_, err := svc.Deposit(context.Background(), models.NewDriver(driverID), &DepositRequest{Amount: decimal.NewFromInt(100)})

		appErr, ok := common.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, common.ReasonForbidden, appErr.Reason)
	})

	t.Run("a payment card is required", func(t *testing.T) {
		cards := new(mockCards)
		cards.On("HasCard", mock.Anything, parentID).Return(false, nil)

		svc := newTestService(new(mockRepo), cards)
		_, err := svc.Deposit(context.Background(), models.NewParent(parentID), &DepositRequest{Amount: decimal.NewFromInt(100)})

		assert.ErrorIs(t, err, ErrNoPaymentCard)
	})
}

// ========================================
// WITHDRAW TESTS
// ========================================

func TestWithdraw(t *testing.T) {
	tests := []struct {
		name       string
		actor      models.Actor
		amount     string
		setupMocks func(m *mockRepo, c *mockCards)
		wantErr    error
		errReason  string
	}{
		{
			name:   "error - 50 with balance 30",
			actor:  models.NewDriver(driverID),
			amount: "50",
			setupMocks: func(m *mockRepo, c *mockCards) {
				c.On("HasCard", mock.Anything, driverID).Return(true, nil)
				m.On("DebitIfSufficient", mock.Anything, driverID, amount("50")).Return(decimal.Zero, false, nil)
			},
			wantErr: ErrInsufficientFunds,
		},
		{
			name:   "success - 50 with balance 100",
			actor:  models.NewDriver(driverID),
			amount: "50",
			setupMocks: func(m *mockRepo, c *mockCards) {
				c.On("HasCard", mock.Anything, driverID).Return(true, nil)
				m.On("DebitIfSufficient", mock.Anything, driverID, amount("50")).Return(decimal.NewFromInt(50), true, nil)
				m.On("CreateTransaction", mock.Anything, txnOf(TransactionDebit, CategoryWithdrawal)).Return(nil)
			},
		},
		{
			name:       "error - below minimum",
			actor:      models.NewDriver(driverID),
			amount:     "49.99",
			setupMocks: func(m *mockRepo, c *mockCards) {},
			errReason:  common.ReasonValidation,
		},
		{
			name:       "error - parents cannot withdraw",
			actor:      models.NewParent(parentID),
			amount:     "100",
			setupMocks: func(m *mockRepo, c *mockCards) {},
			errReason:  common.ReasonForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			cards := new(mockCards)
			tt.setupMocks(repo, cards)
			svc := newTestService(repo, cards)

			txn, err := svc.Withdraw(context.Background(), tt.actor, &WithdrawRequest{Amount: decimal.RequireFromString(tt.amount)})

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errReason != "":
				appErr, ok := common.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, tt.errReason, appErr.Reason)
			default:
				require.NoError(t, err)
				assert.Equal(t, CategoryWithdrawal, txn.Category)
			}
			repo.AssertExpectations(t)
		})
	}
}

// ========================================
// QUERY TESTS
// ========================================

func TestCheckBalance(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetWallet", mock.Anything, parentID).Return(&Wallet{UserID: parentID, Balance: decimal.NewFromInt(100)}, nil)
	svc := newTestService(repo, new(mockCards))

	ok, err := svc.CheckBalance(context.Background(), parentID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckBalance(context.Background(), parentID, decimal.RequireFromString("100.01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyBalance(t *testing.T) {
	tests := []struct {
		name       string
		balance    string
		consistent bool
		drift      string
	}{
		{"consistent", "55", true, "0"},
		{"drifted", "60", false, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			repo.On("GetWallet", mock.Anything, parentID).Return(&Wallet{UserID: parentID, Balance: decimal.RequireFromString(tt.balance)}, nil)
			repo.On("LedgerTotals", mock.Anything, parentID).Return(decimal.NewFromInt(100), decimal.NewFromInt(45), nil)

			rec, err := newTestService(repo, new(mockCards)).VerifyBalance(context.Background(), parentID)

			require.NoError(t, err)
			assert.Equal(t, tt.consistent, rec.Consistent)
			assert.True(t, rec.Expected.Equal(decimal.NewFromInt(55)))
			assert.True(t, rec.Drift.Equal(decimal.RequireFromString(tt.drift)))
		})
	}
}

func TestGetWallet_DefaultsCurrency(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetWallet", mock.Anything, driverID).Return(&Wallet{UserID: driverID, Balance: decimal.Zero}, nil)

	w, err := newTestService(repo, new(mockCards)).GetWallet(context.Background(), driverID)

	require.NoError(t, err)
	assert.Equal(t, "ZAR", w.Currency)
	assert.True(t, w.Balance.IsZero())
}
