package backup

import (
	"context"
	"errors"
	"fmt"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/pkg/backup"

	"go.uber.org/zap"
)

// RestoreService loads report archives back into a ReportRepository.
type RestoreService struct {
	backupService *backup.BackupService
	reports       ports.ReportRepository
	logger        *zap.SugaredLogger
}

func NewRestoreService(backupService *backup.BackupService, reports ports.ReportRepository, logger *zap.SugaredLogger) *RestoreService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RestoreService{
		backupService: backupService,
		reports:       reports,
		logger:        logger,
	}
}

// RestoreOptions contains restore options
type RestoreOptions struct {
	OverwriteExisting bool
}

// RestoreResult counts what a restore did.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// RestoreFromBackup saves every report in the named archive. Reports already in
// the store are skipped unless OverwriteExisting is set.
func (rs *RestoreService) RestoreFromBackup(ctx context.Context, backupName string, options RestoreOptions) (RestoreResult, error) {
	var result RestoreResult
	rs.logger.Infow("starting restore", "backup_name", backupName, "overwrite", options.OverwriteExisting)

	data, err := rs.backupService.RestoreBackup(ctx, backupName)
	if err != nil {
		return result, err
	}
	if data.Kind != ReportsKind {
		return result, fmt.Errorf("backup %s holds %q, not %q", backupName, data.Kind, ReportsKind)
	}

	var reports []*domain.SessionReport
	if err := data.Decode(&reports); err != nil {
		return result, fmt.Errorf("failed to decode reports: %w", err)
	}

	for _, report := range reports {
		if report == nil || report.SessionID == "" {
			result.Skipped++
			continue
		}
		if !options.OverwriteExisting {
			_, err := rs.reports.GetByID(ctx, report.SessionID)
			if err == nil {
				rs.logger.Debugw("skipping existing report", "session_id", string(report.SessionID))
				result.Skipped++
				continue
			}
			if !errors.Is(err, domain.ErrReportNotFound) {
				return result, fmt.Errorf("failed to check report %s: %w", report.SessionID, err)
			}
		}
		if err := rs.reports.Save(ctx, report); err != nil {
			return result, fmt.Errorf("failed to restore report %s: %w", report.SessionID, err)
		}
		result.Restored++
	}

	rs.logger.Infow("restore completed successfully",
		"backup_name", backupName,
		"restored", result.Restored,
		"skipped", result.Skipped,
	)
	return result, nil
}
