package memory

import (
	"context"
	"sync"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
)

const defaultReportCapacity = 256

// MemoryReportRepository keeps the most recent session reports in process.
// Once capacity is reached the oldest report is evicted.
type MemoryReportRepository struct {
	mu       sync.RWMutex
	reports  map[domain.SessionID]*domain.SessionReport
	order    []domain.SessionID
	capacity int
}

func NewMemoryReportRepository(capacity int) ports.ReportRepository {
	if capacity <= 0 {
		capacity = defaultReportCapacity
	}
	return &MemoryReportRepository{
		reports:  make(map[domain.SessionID]*domain.SessionReport),
		capacity: capacity,
	}
}

func (r *MemoryReportRepository) Save(ctx context.Context, report *domain.SessionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *report
	if _, exists := r.reports[report.SessionID]; !exists {
		r.order = append(r.order, report.SessionID)
	}
	r.reports[report.SessionID] = &stored

	for len(r.order) > r.capacity {
		delete(r.reports, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

func (r *MemoryReportRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.SessionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.reports[id]
	if !exists {
		return nil, domain.ErrReportNotFound
	}
	out := *report
	return &out, nil
}

// List returns up to limit reports, newest first. A limit <= 0 returns all.
func (r *MemoryReportRepository) List(ctx context.Context, limit int) ([]*domain.SessionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}
	result := make([]*domain.SessionReport, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(result) < limit; i-- {
		out := *r.reports[r.order[i]]
		result = append(result, &out)
	}
	return result, nil
}
