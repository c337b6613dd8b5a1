package resilience

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryConfig controls Retry
type RetryConfig struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	Multiplier       float64
	RetryableChecker func(err error) bool
}

// DefaultRetryConfig returns a short exponential backoff
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2,
	}
}

// Retry runs op until it succeeds, the error is not retryable or attempts
// run out. Open circuits and cancelled contexts are never retried.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !isRetryable(cfg, err) || attempt == cfg.MaxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateBackoff(cfg, attempt)):
		}
	}
	return err
}

func isRetryable(cfg RetryConfig, err error) bool {
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if cfg.RetryableChecker != nil {
		return cfg.RetryableChecker(err)
	}
	return true
}

func calculateBackoff(cfg RetryConfig, attempt int) time.Duration {
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 2
	}
	backoff := time.Duration(float64(cfg.InitialBackoff) * math.Pow(mult, float64(attempt-1)))
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	return backoff
}
