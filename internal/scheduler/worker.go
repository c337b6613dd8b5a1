package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSweepTimeout = 30 * time.Second

// Worker periodically expires stale ride requests
type Worker struct {
	sweeper  Sweeper
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a worker that sweeps every interval. An optional
// timeout bounds each sweep.
func NewWorker(sweeper Sweeper, logger *zap.Logger, interval time.Duration, timeout ...time.Duration) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	t := defaultSweepTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}
	return &Worker{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		timeout:  t,
		done:     make(chan struct{}),
	}
}

// Start sweeps once immediately and then on every tick until ctx ends or
// Stop is called. It blocks.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("request expiry worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("request expiry worker stopped", zap.String("reason", "context done"))
			return
		case <-w.done:
			w.logger.Info("request expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop ends Start. Calling it again is a no-op.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Worker) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	n, err := w.sweeper.ExpireStaleRequests(ctx)
	if err != nil {
		w.logger.Error("failed to expire ride requests", zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("expired ride requests", zap.Int("count", n))
	}
}
