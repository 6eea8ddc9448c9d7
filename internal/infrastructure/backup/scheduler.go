package backup

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/pkg/backup"

	"go.uber.org/zap"
)

const (
	// ReportsKind tags report archives.
	ReportsKind = "session_reports"

	archiveLimit = 10000
)

// Locker serializes archive runs across instances sharing one report store.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Scheduler periodically archives session reports and prunes old archives.
type Scheduler struct {
	backupService *backup.BackupService
	reports       ports.ReportRepository
	locker        Locker
	interval      time.Duration
	retentionDays int
	logger        *zap.SugaredLogger

	stopOnce sync.Once
	stopChan chan struct{}
}

// Config contains scheduler configuration
type Config struct {
	Interval      time.Duration
	RetentionDays int // 0 keeps every archive
}

// NewScheduler creates a backup scheduler. locker may be nil when only one
// instance writes archives.
func NewScheduler(
	backupService *backup.BackupService,
	reports ports.ReportRepository,
	locker Locker,
	cfg Config,
	logger *zap.SugaredLogger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		backupService: backupService,
		reports:       reports,
		locker:        locker,
		interval:      cfg.Interval,
		retentionDays: cfg.RetentionDays,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start runs an archive immediately and then every interval until ctx is done
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runBackup(ctx)

	for {
		select {
		case <-ticker.C:
			s.runBackup(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Scheduler) runBackup(ctx context.Context) {
	name, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Errorw("scheduled report archive failed", "error", err)
		return
	}
	if name != "" {
		s.logger.Infow("report archive created", "backup_name", name)
	}
}

// RunOnce archives every stored report. It returns an empty name when another
// instance holds the archive lock.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to acquire archive lock: %w", err)
		}
		if !acquired {
			s.logger.Debugw("archive lock held elsewhere, skipping run")
			return "", nil
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warnw("failed to release archive lock", "error", err)
			}
		}()
	}

	reports, err := s.reports.List(ctx, archiveLimit)
	if err != nil {
		return "", fmt.Errorf("failed to list reports: %w", err)
	}
	if reports == nil {
		reports = []*domain.SessionReport{}
	}

	name, err := s.backupService.CreateBackup(ctx, ReportsKind, reports, len(reports), map[string]string{
		"backup_type":  "scheduled",
		"report_count": strconv.Itoa(len(reports)),
	})
	if err != nil {
		return "", err
	}

	if s.retentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
		deleted, err := s.backupService.PruneBefore(ctx, cutoff)
		if err != nil {
			s.logger.Warnw("failed to cleanup old backups", "error", err)
		}
		for _, old := range deleted {
			s.logger.Infow("deleted old backup", "backup_name", old)
		}
	}
	return name, nil
}
