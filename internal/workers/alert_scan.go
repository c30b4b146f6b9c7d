package workers

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/alerts"
	"github.com/stockd-dev/stockd/internal/tasks"
)

// HandleAlertScan processes alert scan tasks. An empty article ID means a
// full scan of every article.
func HandleAlertScan(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParseAlertScanPayload(t)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse alert scan payload")
		return err
	}

	svc := alerts.NewService(db, logger)

	if payload.ArticleID == "" {
		logger.Info().Msg("Starting full alert scan")
		return svc.ScanAll(ctx)
	}

	logger.Debug().Str("article_id", payload.ArticleID).Msg("Scanning article")
	return svc.ScanArticle(ctx, payload.ArticleID)
}
