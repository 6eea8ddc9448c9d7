package repositories

import (
	"context"
	"time"

	"framewire/internal/core/ports"
	"framewire/internal/infrastructure/repositories/memory"
	redisrepo "framewire/internal/infrastructure/repositories/redis"
	"framewire/pkg/circuitbreaker"
	"framewire/pkg/config"
	"framewire/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	memoryReportCapacity = 256
	reportCacheTTL       = 5 * time.Minute
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	reportTTL   time.Duration
	logger      *zap.SugaredLogger

	cached *CachedReportRepository
}

// NewRepositoryFactory connects to Redis when enabled and falls back to memory
// repositories if the connection cannot be established.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) *RepositoryFactory {
	factory := &RepositoryFactory{
		useRedis:  cfg.Redis.Enabled,
		reportTTL: cfg.Redis.ReportTTL,
		logger:    logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(ctx,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			retry.DefaultConfig(),
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}
	return factory
}

// CreateReportRepository returns the Redis report store behind a circuit breaker
// and a read cache, or an in-memory store.
func (f *RepositoryFactory) CreateReportRepository() ports.ReportRepository {
	if f.useRedis && f.redisClient != nil {
		store := redisrepo.NewRedisReportRepository(f.redisClient, f.reportTTL)
		guarded := NewGuardedReportRepository(store, circuitbreaker.DefaultConfig(), f.logger)
		if f.cached == nil {
			f.cached = NewCachedReportRepository(guarded, reportCacheTTL)
		}
		return f.cached
	}
	return memory.NewMemoryReportRepository(memoryReportCapacity)
}

// RedisClient returns the shared client, or nil when running on memory repositories.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if !f.useRedis {
		return nil
	}
	return f.redisClient
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.cached != nil {
		f.cached.Close()
	}
	if f.redisClient != nil {
		return f.redisClient.Close()
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
