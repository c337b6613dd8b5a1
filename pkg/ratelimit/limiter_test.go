package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 2, 9, 7, 15, 30, 0, time.UTC)

func newTestLimiter(t *testing.T, limit int) (*Limiter, redismock.ClientMock, string) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	l := NewLimiter(client, "otp", Rule{Limit: limit, Window: 10 * time.Minute}, true)
	l.WithNow(func() time.Time { return fixed })
	key := fmt.Sprintf("otp:ride-1:%d", fixed.Truncate(10*time.Minute).Unix())
	return l, mock, key
}

func TestAllow_FirstAttemptSetsExpiry(t *testing.T) {
	l, mock, key := newTestLimiter(t, 3)
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, 10*time.Minute).SetVal(true)

	res, err := l.Allow(context.Background(), "ride-1")

	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, fixed.Truncate(10*time.Minute).Add(10*time.Minute), res.ResetAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllow_ExceedsLimit(t *testing.T) {
	l, mock, key := newTestLimiter(t, 3)
	mock.ExpectIncr(key).SetVal(4)

	res, err := l.Allow(context.Background(), "ride-1")

	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllow_AtLimitStillAllowed(t *testing.T) {
	l, mock, key := newTestLimiter(t, 3)
	mock.ExpectIncr(key).SetVal(3)

	res, err := l.Allow(context.Background(), "ride-1")

	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestAllow_RedisError(t *testing.T) {
	l, mock, key := newTestLimiter(t, 3)
	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

	_, err := l.Allow(context.Background(), "ride-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit incr")
}

func TestAllow_DisabledSkipsRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewLimiter(client, "otp", Rule{Limit: 3, Window: time.Minute}, false)

	res, err := l.Allow(context.Background(), "ride-1")

	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewLimiter_ZeroWindowFallsBack(t *testing.T) {
	l := NewLimiter(nil, "otp", Rule{Limit: 1}, true)
	assert.Equal(t, time.Minute, l.rule.Window)
}

func TestReset(t *testing.T) {
	l, mock, key := newTestLimiter(t, 3)
	mock.ExpectDel(key).SetVal(1)

	require.NoError(t, l.Reset(context.Background(), "ride-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
