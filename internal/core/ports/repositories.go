package ports

import (
	"context"

	"framewire/internal/core/domain"
)

type ReportRepository interface {
	Save(ctx context.Context, report *domain.SessionReport) error
	GetByID(ctx context.Context, id domain.SessionID) (*domain.SessionReport, error)
	List(ctx context.Context, limit int) ([]*domain.SessionReport, error)
}
