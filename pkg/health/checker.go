package health

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/schoolrun/pkg/common"
)

var (
	errNilDatabase = errors.New("database connection is nil")
	errNilRedis    = errors.New("redis client is nil")
)

// DatabaseChecker returns a readiness probe for the PostgreSQL pool
func DatabaseChecker(pool *pgxpool.Pool) common.DependencyCheck {
	return func(ctx context.Context) error {
		if pool == nil {
			return errNilDatabase
		}
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a readiness probe for Redis
func RedisChecker(client redis.UniversalClient) common.DependencyCheck {
	return func(ctx context.Context) error {
		if client == nil {
			return errNilRedis
		}
		return client.Ping(ctx).Err()
	}
}
