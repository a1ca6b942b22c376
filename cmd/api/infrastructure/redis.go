package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"user-crud-service/internal/adapter/lock"
	"user-crud-service/internal/config"
	redisclient "user-crud-service/pkg/redis"
)

// NewRedisClient connects to Redis when REDIS_ENABLED is set. It returns
// a nil client otherwise.
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		l.Info("Redis disabled, email uniqueness relies on the backend index")
		return nil, nil
	}

	rdb, err := redisclient.NewClient(ctx, redisclient.Config{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// NewEmailLocker returns the Redis email lock, or nil when Redis is disabled.
func NewEmailLocker(rdb *redisclient.Client, cfg *config.Config, l *zap.Logger) lock.EmailLocker {
	if rdb == nil {
		return nil
	}
	return lock.NewRedisEmailLocker(rdb.Client, cfg.Redis.EmailLockTTL, l)
}
