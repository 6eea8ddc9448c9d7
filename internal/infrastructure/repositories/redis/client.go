package redis

import (
	"context"
	"fmt"
	"time"

	"framewire/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects with retry, then brings the keyspace schema up to date.
func NewRedisClient(ctx context.Context, address, password string, db, poolSize int, retryCfg retry.Config, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	attempt := 0
	err := retry.Do(ctx, retryCfg, func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err != nil && logger != nil {
			logger.Debugw("redis ping failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := Migrate(ctx, client, logger); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if logger != nil {
		logger.Infow("connected to Redis",
			"address", address,
			"db", db,
			"pool_size", poolSize,
		)
	}
	return client, nil
}
