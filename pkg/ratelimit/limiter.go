package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule bounds the number of attempts per window
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result describes the outcome of an Allow call
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a Redis-backed fixed-window counter
type Limiter struct {
	client  redis.Cmdable
	prefix  string
	rule    Rule
	enabled bool
	now     func() time.Time
}

// NewLimiter creates a limiter. A disabled limiter or a non-positive limit
// allows every call without touching Redis.
func NewLimiter(client redis.Cmdable, prefix string, rule Rule, enabled bool) *Limiter {
	if rule.Window <= 0 {
		rule.Window = time.Minute
	}
	return &Limiter{
		client:  client,
		prefix:  prefix,
		rule:    rule,
		enabled: enabled,
		now:     time.Now,
	}
}

// WithNow overrides the clock, for tests
func (l *Limiter) WithNow(now func() time.Time) {
	l.now = now
}

// Allow counts one attempt for key
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Truncate(l.rule.Window)
	resetAt := windowStart.Add(l.rule.Window)

	if !l.enabled || l.rule.Limit <= 0 || l.client == nil {
		return Result{Allowed: true, Remaining: l.rule.Limit, ResetAt: resetAt}, nil
	}

	redisKey := l.key(key, windowStart)
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.rule.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	remaining := l.rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   int(count) <= l.rule.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the current window for key
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if !l.enabled || l.client == nil {
		return nil
	}
	windowStart := l.now().Truncate(l.rule.Window)
	return l.client.Del(ctx, l.key(key, windowStart)).Err()
}

func (l *Limiter) key(key string, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())
}
