package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/logger"
	"go.uber.org/zap"
)

const (
	connectAttempts = 3
	connectBackoff  = time.Second
)

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client and waits until it answers
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return &Client{Client: client}, nil
		}
		if attempt == connectAttempts || !isRedisRetryable(err) {
			_ = client.Close()
			return nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		logger.Warn("redis not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(connectBackoff * time.Duration(attempt))
	}
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

func isRedisRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "i/o timeout", "loading", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
