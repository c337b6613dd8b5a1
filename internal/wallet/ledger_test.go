package wallet_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/store/memory"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noCards struct{}

func (noCards) HasCard(context.Context, uuid.UUID) (bool, error) { return false, nil }

func newLedger() *wallet.Service {
	store := memory.New()
	now := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	return wallet.NewService(store.Wallets(), store, noCards{}, config.BusinessConfig{Currency: "ZAR"}).
		WithNow(func() time.Time { return now })
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc := newLedger()
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Credit(ctx, user, decimal.NewFromInt(100), wallet.Entry{Category: wallet.CategoryDeposit})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, user, decimal.NewFromInt(15), wallet.Entry{Category: wallet.CategoryWithdrawal})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
				fail++
				return
			}
			ok++
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, ok)
	assert.Equal(t, 4, fail)

	rec, err := svc.VerifyBalance(ctx, user)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, "10", rec.Balance.String())
}

func TestLedger_TransferFareIsAllOrNothing(t *testing.T) {
	svc := newLedger()
	ctx := context.Background()
	parent, driver, ride := uuid.New(), uuid.New(), uuid.New()

	_, err := svc.Credit(ctx, parent, decimal.NewFromInt(30), wallet.Entry{Category: wallet.CategoryDeposit})
	require.NoError(t, err)

	transfer := wallet.FareTransfer{RideID: ride, ParentID: parent, DriverID: driver, Fare: decimal.NewFromInt(45)}
	err = svc.TransferFare(ctx, transfer)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	_, err = svc.Credit(ctx, parent, decimal.NewFromInt(70), wallet.Entry{Category: wallet.CategoryDeposit})
	require.NoError(t, err)
	require.NoError(t, svc.TransferFare(ctx, transfer))

	// the same ride cannot be charged twice
	err = svc.TransferFare(ctx, transfer)
	assert.ErrorIs(t, err, wallet.ErrAlreadyRecorded)

	p, err := svc.GetWallet(ctx, parent)
	require.NoError(t, err)
	d, err := svc.GetWallet(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, "55", p.Balance.String())
	assert.Equal(t, "45", d.Balance.String())

	for _, u := range []uuid.UUID{parent, driver} {
		rec, err := svc.VerifyBalance(ctx, u)
		require.NoError(t, err)
		assert.True(t, rec.Consistent)
	}
}
