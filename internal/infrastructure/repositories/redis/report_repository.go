package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "framewire:"
	reportPrefix   = keyPrefix + "report:"
	reportIndexKey = keyPrefix + "reports"
)

// RedisReportRepository stores each report as JSON under its own key and keeps
// a sorted set of session IDs scored by stop time for listing.
type RedisReportRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisReportRepository(client redis.UniversalClient, ttl time.Duration) ports.ReportRepository {
	return &RedisReportRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisReportRepository) reportKey(id domain.SessionID) string {
	return reportPrefix + string(id)
}

func (r *RedisReportRepository) Save(ctx context.Context, report *domain.SessionReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.reportKey(report.SessionID), data, r.ttl)
	pipe.ZAdd(ctx, reportIndexKey, redis.Z{
		Score:  float64(report.StoppedAt.UnixNano()),
		Member: string(report.SessionID),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save report in Redis: %w", err)
	}
	return nil
}

func (r *RedisReportRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.SessionReport, error) {
	data, err := r.client.Get(ctx, r.reportKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report from Redis: %w", err)
	}

	var report domain.SessionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// List returns up to limit reports, newest first. Index entries whose report
// expired are pruned on the way.
func (r *RedisReportRepository) List(ctx context.Context, limit int) ([]*domain.SessionReport, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.client.ZRevRange(ctx, reportIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports from Redis: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.SessionReport{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.reportKey(domain.SessionID(id))
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reports from Redis: %w", err)
	}

	reports := make([]*domain.SessionReport, 0, len(values))
	var expired []interface{}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var report domain.SessionReport
		if err := json.Unmarshal([]byte(s), &report); err != nil {
			continue
		}
		reports = append(reports, &report)
	}
	if len(expired) > 0 {
		r.client.ZRem(ctx, reportIndexKey, expired...)
	}
	return reports, nil
}
