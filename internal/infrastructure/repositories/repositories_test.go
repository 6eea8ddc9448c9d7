package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/infrastructure/repositories/memory"
	"framewire/pkg/circuitbreaker"
	"framewire/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingStore struct {
	calls int
}

func (f *failingStore) Save(ctx context.Context, report *domain.SessionReport) error {
	f.calls++
	return errors.New("connection refused")
}

func (f *failingStore) GetByID(ctx context.Context, id domain.SessionID) (*domain.SessionReport, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingStore) List(ctx context.Context, limit int) ([]*domain.SessionReport, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestGuardedReportRepository_OpensOnFailures(t *testing.T) {
	store := &failingStore{}
	cfg := circuitbreaker.Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Hour, MaxRequestsHalfOpen: 1}
	repo := NewGuardedReportRepository(store, cfg, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	assert.Error(t, repo.Save(ctx, &domain.SessionReport{SessionID: "a"}))
	assert.Error(t, repo.Save(ctx, &domain.SessionReport{SessionID: "b"}))
	assert.Equal(t, circuitbreaker.StateOpen, repo.State())

	err := repo.Save(ctx, &domain.SessionReport{SessionID: "c"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, store.calls)
}

func TestGuardedReportRepository_NotFoundDoesNotTrip(t *testing.T) {
	cfg := circuitbreaker.Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour, MaxRequestsHalfOpen: 1}
	repo := NewGuardedReportRepository(memory.NewMemoryReportRepository(0), cfg, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	}
	assert.Equal(t, circuitbreaker.StateClosed, repo.State())

	require.NoError(t, repo.Save(ctx, &domain.SessionReport{SessionID: "a"}))
	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRepositoryFactory_FallsBackToMemory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	factory := NewRepositoryFactory(ctx, cfg, zaptest.NewLogger(t).Sugar())
	defer factory.Close()

	repo := factory.CreateReportRepository()
	_, isMemory := repo.(*memory.MemoryReportRepository)
	assert.True(t, isMemory)
	assert.Nil(t, factory.RedisClient())
	assert.NoError(t, factory.HealthCheck(context.Background()))
}

type countingStore struct {
	*memory.MemoryReportRepository
	gets int
}

func (c *countingStore) GetByID(ctx context.Context, id domain.SessionID) (*domain.SessionReport, error) {
	c.gets++
	return c.MemoryReportRepository.GetByID(ctx, id)
}

func TestCachedReportRepository(t *testing.T) {
	store := &countingStore{MemoryReportRepository: memory.NewMemoryReportRepository(0).(*memory.MemoryReportRepository)}
	repo := NewCachedReportRepository(store, time.Minute)
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.SessionReport{SessionID: "a", Reason: domain.StopPeer}))

	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, domain.StopPeer, got.Reason)
		got.Reason = domain.StopLocal
	}
	assert.Equal(t, 0, store.gets, "saved reports are served from cache")

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	assert.Equal(t, 2, store.gets, "misses are not cached")

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
