package rides_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/schoolrun/internal/cancellation"
	"github.com/richxcame/schoolrun/internal/notifications"
	"github.com/richxcame/schoolrun/internal/rides"
	"github.com/richxcame/schoolrun/internal/store/memory"
	"github.com/richxcame/schoolrun/internal/wallet"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alwaysOnline struct{}

func (alwaysOnline) IsOnline(context.Context, uuid.UUID) (bool, error) { return true, nil }

type hasCard struct{}

func (hasCard) HasCard(context.Context, uuid.UUID) (bool, error) { return true, nil }

type inbox struct {
	mu   sync.Mutex
	sent []notifications.Message
}

func (n *inbox) Notify(_ context.Context, m notifications.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
}

func (n *inbox) count(userID uuid.UUID, typ notifications.Type) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.UserID == userID && m.Type == typ {
			c++
		}
	}
	return c
}

type staticCode string

func (c staticCode) NewCode() (string, error) { return string(c), nil }

const pickupCode = "482913"

var start = time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)

type world struct {
	store  *memory.Store
	wallet *wallet.Service
	rides  *rides.Service
	inbox  *inbox
	now    time.Time
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{store: memory.New(), inbox: &inbox{}, now: start}
	clock := func() time.Time { return w.now }

	cfg := config.BusinessConfig{
		Currency:      "ZAR",
		OTPValidity:   10 * time.Minute,
		RequestExpiry: 30 * time.Minute,
		Environment:   "production",
	}
	w.wallet = wallet.NewService(w.store.Wallets(), w.store, hasCard{}, cfg).WithNow(clock)
	penalties := cancellation.NewService(cancellation.DefaultPolicy(), w.wallet)
	w.rides = rides.NewService(w.store.Rides(), w.store, w.wallet, penalties, alwaysOnline{}, w.inbox, cfg).
		WithNow(clock).
		WithCodeGenerator(staticCode(pickupCode))
	return w
}

func (w *world) fund(t *testing.T, userID uuid.UUID, amount int64) {
	t.Helper()
	_, err := w.wallet.Credit(context.Background(), userID, decimal.NewFromInt(amount), wallet.Entry{
		Category:    wallet.CategoryDeposit,
		Description: "Wallet deposit",
	})
	require.NoError(t, err)
}

func (w *world) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	wl, err := w.wallet.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return wl.Balance
}

func (w *world) assertLedgerConsistent(t *testing.T, users ...uuid.UUID) {
	t.Helper()
	for _, u := range users {
		rec, err := w.wallet.VerifyBalance(context.Background(), u)
		require.NoError(t, err)
		assert.True(t, rec.Consistent, "balance %s, ledger %s", rec.Balance, rec.Expected)
		assert.False(t, rec.Balance.IsNegative())
	}
}

func (w *world) request(t *testing.T, parent models.Actor, fare int64) *models.RideRequest {
	t.Helper()
	req, err := w.rides.CreateRequest(context.Background(), parent, &rides.CreateRequestInput{
		ChildID:       uuid.New(),
		Origin:        models.Location{Latitude: -26.1076, Longitude: 28.0567, Address: "12 Rivonia Rd"},
		Destination:   models.Location{Latitude: -26.1420, Longitude: 28.0390, Address: "Parktown Boys"},
		ScheduledTime: w.now.Add(time.Hour),
		EstimatedFare: decimal.NewFromInt(fare),
	})
	require.NoError(t, err)
	return req
}

func (w *world) scheduled(t *testing.T, parent, driver models.Actor, fare int64) *models.Ride {
	t.Helper()
	req := w.request(t, parent, fare)
	ride, err := w.rides.AcceptRequest(context.Background(), driver, req.ID)
	require.NoError(t, err)
	return ride
}

func (w *world) inProgress(t *testing.T, parent, driver models.Actor, fare int64) *models.Ride {
	t.Helper()
	ride := w.scheduled(t, parent, driver, fare)
	started, err := w.rides.VerifyOTP(context.Background(), driver, ride.ID, pickupCode)
	require.NoError(t, err)
	return started
}

func TestLifecycle_SchoolRunEndToEnd(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
	w.fund(t, parent.UserID, 100)

	req := w.request(t, parent, 45)

	ride, err := w.rides.AcceptRequest(ctx, driver, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusScheduled, ride.Status)
	assert.Empty(t, ride.OTP, "the driver never sees the pickup code")

	seen, err := w.rides.GetRide(ctx, parent, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, pickupCode, seen.OTP)

	w.now = w.now.Add(9 * time.Minute)
	started, err := w.rides.VerifyOTP(ctx, driver, ride.ID, pickupCode)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusInProgress, started.Status)

	w.now = w.now.Add(20 * time.Minute)
	done, err := w.rides.Complete(ctx, driver, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusCompleted, done.Status)

	assert.Equal(t, "55", w.balance(t, parent.UserID).String())
	assert.Equal(t, "45", w.balance(t, driver.UserID).String())
	w.assertLedgerConsistent(t, parent.UserID, driver.UserID)

	history, total, err := w.rides.ListRideHistory(ctx, parent, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ride.ID, history[0].ID)

	active, err := w.rides.ListActiveRides(ctx, driver)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Equal(t, 1, w.inbox.count(parent.UserID, notifications.TypeRideAccepted))
	assert.Equal(t, 1, w.inbox.count(parent.UserID, notifications.TypeRideStarted))
	assert.Equal(t, 1, w.inbox.count(parent.UserID, notifications.TypeRideCompleted))
	assert.Equal(t, 1, w.inbox.count(driver.UserID, notifications.TypeRideEarning))
}

func TestLifecycle_ConcurrentAcceptCreatesOneRide(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent := models.NewParent(uuid.New())
	w.fund(t, parent.UserID, 100)
	req := w.request(t, parent, 45)

	const drivers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losers  int
	)
	for i := 0; i < drivers; i++ {
		driver := models.NewDriver(uuid.New())
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.rides.AcceptRequest(ctx, driver, req.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, driver.UserID)
				return
			}
			assert.ErrorIs(t, err, rides.ErrAlreadyAccepted)
			losers++
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, drivers-1, losers)

	active, err := w.rides.ListActiveRides(ctx, parent)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, winners[0], active[0].DriverID)

	pending, err := w.rides.ListMyRequests(ctx, parent)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLifecycle_ConcurrentCompleteChargesOnce(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
	w.fund(t, parent.UserID, 100)
	ride := w.inProgress(t, parent, driver, 45)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := w.rides.Complete(ctx, driver, ride.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, models.RideStatusCompleted, done.Status)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "55", w.balance(t, parent.UserID).String())
	assert.Equal(t, "45", w.balance(t, driver.UserID).String())
	w.assertLedgerConsistent(t, parent.UserID, driver.UserID)
	assert.Equal(t, 1, w.inbox.count(driver.UserID, notifications.TypeRideEarning))
}

func TestLifecycle_PickupCodeWindow(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"nine minutes after issue", 9 * time.Minute, nil},
		{"exactly at the window", 10 * time.Minute, nil},
		{"eleven minutes after issue", 11 * time.Minute, rides.ErrOTPExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld(t)
			parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
			w.fund(t, parent.UserID, 100)
			ride := w.scheduled(t, parent, driver, 45)

			w.now = w.now.Add(tt.elapsed)
			got, err := w.rides.VerifyOTP(context.Background(), driver, ride.ID, pickupCode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				current, err := w.rides.GetRide(context.Background(), parent, ride.ID)
				require.NoError(t, err)
				assert.Equal(t, models.RideStatusScheduled, current.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RideStatusInProgress, got.Status)
		})
	}
}

func TestLifecycle_RegeneratedCodeRestartsWindow(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
	w.fund(t, parent.UserID, 100)
	ride := w.scheduled(t, parent, driver, 45)

	w.now = w.now.Add(15 * time.Minute)
	_, err := w.rides.VerifyOTP(ctx, driver, ride.ID, pickupCode)
	require.ErrorIs(t, err, rides.ErrOTPExpired)

	_, err = w.rides.RegenerateOTP(ctx, parent, ride.ID)
	require.NoError(t, err)

	w.now = w.now.Add(5 * time.Minute)
	_, err = w.rides.VerifyOTP(ctx, driver, ride.ID, pickupCode)
	assert.NoError(t, err)
}

func TestLifecycle_CancelChargesPolicyPenalty(t *testing.T) {
	tests := []struct {
		name        string
		started     bool
		byDriver    bool
		wantParent  string
		wantDriver  string
		wantPenalty string
	}{
		{"parent cancels scheduled ride", false, false, "100", "20", "0"},
		{"driver cancels scheduled ride", false, true, "100", "20", "0"},
		{"parent cancels in progress", true, false, "77.5", "20", "22.5"},
		{"driver cancels in progress", true, true, "100", "0", "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld(t)
			parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
			w.fund(t, parent.UserID, 100)
			w.fund(t, driver.UserID, 20)

			var ride *models.Ride
			if tt.started {
				ride = w.inProgress(t, parent, driver, 45)
			} else {
				ride = w.scheduled(t, parent, driver, 45)
			}

			actor := parent
			if tt.byDriver {
				actor = driver
			}
			cancelled, err := w.rides.Cancel(context.Background(), actor, ride.ID, "child is sick")
			require.NoError(t, err)
			assert.Equal(t, models.RideStatusCancelled, cancelled.Status)
			require.NotNil(t, cancelled.Penalty)
			assert.Equal(t, tt.wantPenalty, cancelled.Penalty.String())

			assert.Equal(t, tt.wantParent, w.balance(t, parent.UserID).String())
			assert.Equal(t, tt.wantDriver, w.balance(t, driver.UserID).String())
			w.assertLedgerConsistent(t, parent.UserID, driver.UserID)

			// a retried cancel returns the stored record without charging again
			again, err := w.rides.Cancel(context.Background(), actor, ride.ID, "child is sick")
			require.NoError(t, err)
			assert.Equal(t, cancelled.ID, again.ID)
			assert.Equal(t, tt.wantParent, w.balance(t, parent.UserID).String())
			assert.Equal(t, tt.wantDriver, w.balance(t, driver.UserID).String())
		})
	}
}

func TestLifecycle_CancelRolledBackWhenPenaltyUnpaid(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
	w.fund(t, parent.UserID, 100)
	ride := w.inProgress(t, parent, driver, 45)

	_, err := w.rides.Cancel(ctx, driver, ride.ID, "")
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	current, err := w.rides.GetRide(ctx, driver, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RideStatusInProgress, current.Status)
	assert.True(t, w.balance(t, driver.UserID).IsZero())

	// the ride can still finish normally
	_, err = w.rides.Complete(ctx, driver, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, "45", w.balance(t, driver.UserID).String())
}

func TestLifecycle_CompletedRideCannotBeCancelled(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
	w.fund(t, parent.UserID, 100)
	ride := w.inProgress(t, parent, driver, 45)

	_, err := w.rides.Complete(ctx, driver, ride.ID)
	require.NoError(t, err)

	_, err = w.rides.Cancel(ctx, parent, ride.ID, "")
	assert.ErrorIs(t, err, rides.ErrStateConflict)
	assert.Equal(t, "55", w.balance(t, parent.UserID).String())
}

func TestLifecycle_DriverDrivesOneChildAtATime(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
	w.fund(t, parent.UserID, 200)

	first := w.scheduled(t, parent, driver, 45)
	second := w.scheduled(t, parent, driver, 45)

	_, err := w.rides.VerifyOTP(ctx, driver, first.ID, pickupCode)
	require.NoError(t, err)

	_, err = w.rides.VerifyOTP(ctx, driver, second.ID, pickupCode)
	assert.ErrorIs(t, err, rides.ErrDriverBusy)

	third := w.request(t, parent, 45)
	_, err = w.rides.AcceptRequest(ctx, driver, third.ID)
	assert.ErrorIs(t, err, rides.ErrDriverBusy)

	// the rejected accept left the request pending
	pending, err := w.rides.ListMyRequests(ctx, parent)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, third.ID, pending[0].ID)
}

func TestLifecycle_ParentCancelLosesToAccept(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent, driver := models.NewParent(uuid.New()), models.NewDriver(uuid.New())
	w.fund(t, parent.UserID, 100)
	req := w.request(t, parent, 45)

	_, err := w.rides.AcceptRequest(ctx, driver, req.ID)
	require.NoError(t, err)

	err = w.rides.CancelRequest(ctx, parent, req.ID)
	assert.ErrorIs(t, err, rides.ErrStateConflict)
}

func TestLifecycle_ExpireStaleRequests(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	parent := models.NewParent(uuid.New())
	w.fund(t, parent.UserID, 100)
	w.request(t, parent, 45)

	w.now = w.now.Add(80 * time.Minute)
	n, err := w.rides.ExpireStaleRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "still inside the expiry window")

	w.now = w.now.Add(15 * time.Minute)
	n, err = w.rides.ExpireStaleRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, w.inbox.count(parent.UserID, notifications.TypeRequestExpired))
}
