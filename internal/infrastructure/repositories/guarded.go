package repositories

import (
	"context"
	"errors"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/pkg/circuitbreaker"
	"framewire/pkg/tracing"

	"go.uber.org/zap"
)

// GuardedReportRepository puts a circuit breaker in front of a remote store so a
// dead backend costs one fast error per stopped session instead of a full timeout.
type GuardedReportRepository struct {
	next    ports.ReportRepository
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedReportRepository(next ports.ReportRepository, cfg circuitbreaker.Config, logger *zap.SugaredLogger) *GuardedReportRepository {
	breaker := circuitbreaker.New(cfg)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("report store circuit changed state", "from", from.String(), "to", to.String())
	})
	return &GuardedReportRepository{next: next, breaker: breaker}
}

func (r *GuardedReportRepository) Save(ctx context.Context, report *domain.SessionReport) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "save", "reports")
	defer span.End()

	err := r.breaker.Execute(ctx, func() error {
		return r.next.Save(ctx, report)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
	}
	return err
}

func (r *GuardedReportRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.SessionReport, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "get", "reports")
	defer span.End()

	// a missing report is an answer, not a backend failure
	var notFound error
	report, err := circuitbreaker.ExecuteWithResult(ctx, r.breaker, func() (*domain.SessionReport, error) {
		report, err := r.next.GetByID(ctx, id)
		if errors.Is(err, domain.ErrReportNotFound) {
			notFound = err
			return nil, nil
		}
		return report, err
	})
	if notFound != nil {
		return nil, notFound
	}
	return report, err
}

func (r *GuardedReportRepository) List(ctx context.Context, limit int) ([]*domain.SessionReport, error) {
	ctx, span := tracing.TraceDatabaseOperation(ctx, "list", "reports")
	defer span.End()

	return circuitbreaker.ExecuteWithResult(ctx, r.breaker, func() ([]*domain.SessionReport, error) {
		return r.next.List(ctx, limit)
	})
}

func (r *GuardedReportRepository) State() circuitbreaker.State {
	return r.breaker.State()
}
