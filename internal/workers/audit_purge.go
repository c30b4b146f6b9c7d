package workers

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/audit"
	"github.com/stockd-dev/stockd/internal/models"
)

// HandleAuditPurge deletes audit entries older than the configured retention
func HandleAuditPurge(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	var config models.Config
	if err := db.First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug().Msg("No config found - skipping audit purge")
			return nil
		}
		logger.Error().Err(err).Msg("Failed to load config for audit purge")
		return err
	}

	recorder := audit.NewRecorder(db, logger)
	deleted, err := recorder.Purge(ctx, config.AuditRetentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("Audit purge failed")
		return err
	}

	logger.Info().
		Int64("deleted", deleted).
		Int("retention_days", config.AuditRetentionDays).
		Msg("Audit purge complete")
	return nil
}
