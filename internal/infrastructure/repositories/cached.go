package repositories

import (
	"context"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/pkg/cache"
)

// CachedReportRepository serves GetByID from memory. Reports never change once
// saved, so only the TTL bounds staleness against out-of-band deletes.
type CachedReportRepository struct {
	next  ports.ReportRepository
	cache *cache.Cache[domain.SessionID, domain.SessionReport]
}

func NewCachedReportRepository(next ports.ReportRepository, ttl time.Duration) *CachedReportRepository {
	return &CachedReportRepository{
		next:  next,
		cache: cache.New[domain.SessionID, domain.SessionReport](ttl),
	}
}

func (r *CachedReportRepository) Save(ctx context.Context, report *domain.SessionReport) error {
	if err := r.next.Save(ctx, report); err != nil {
		return err
	}
	r.cache.Set(report.SessionID, *report)
	return nil
}

func (r *CachedReportRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.SessionReport, error) {
	report, err := r.cache.GetOrLoad(ctx, id, func(ctx context.Context) (domain.SessionReport, error) {
		report, err := r.next.GetByID(ctx, id)
		if err != nil {
			return domain.SessionReport{}, err
		}
		return *report, nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *CachedReportRepository) List(ctx context.Context, limit int) ([]*domain.SessionReport, error) {
	return r.next.List(ctx, limit)
}

func (r *CachedReportRepository) Close() {
	r.cache.Stop()
}
