package worker

import (
	"context"
	"time"

	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/pkg/logger"
)

// AuditCleanupWorker prunes audit logs past the retention window.
type AuditCleanupWorker struct {
	repo          repository.AuditRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewAuditCleanupWorker(repo repository.AuditRepository, retentionDays int, interval time.Duration, logger *logger.Logger) *AuditCleanupWorker {
	return &AuditCleanupWorker{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -w.retentionDays)
			removed, err := w.repo.Cleanup(ctx, cutoff)
			if err != nil {
				w.logger.Error(err, "Failed to clean up audit logs")
				continue
			}
			if removed > 0 {
				w.logger.Info("Pruned audit logs", map[string]interface{}{"removed": removed})
			}
		}
	}
}
