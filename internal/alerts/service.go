package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/models"
)

// Service evaluates stock levels against thresholds and maintains alerts.
// At most one open alert exists per article.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a new alerts service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "alerts_service").Logger(),
	}
}

// LevelFor returns the alert level an article should carry, or "" when the
// stock is healthy. A MinQuantity of zero disables low-stock alerting but an
// empty article still raises OUT.
func LevelFor(article *models.Article) string {
	switch {
	case article.Quantity == 0:
		return models.AlertLevelOut
	case article.MinQuantity > 0 && article.Quantity <= article.MinQuantity:
		return models.AlertLevelLow
	default:
		return ""
	}
}

// ScanArticle re-evaluates a single article: raises, updates or resolves its
// open alert to match the current stock level.
func (s *Service) ScanArticle(ctx context.Context, articleID string) error {
	var article models.Article
	if err := s.db.WithContext(ctx).Where("id = ?", articleID).First(&article).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Article deleted since the scan was enqueued; resolve any leftover alert
			return s.resolveOpen(ctx, articleID)
		}
		return fmt.Errorf("failed to load article: %w", err)
	}

	level := LevelFor(&article)

	var open models.Alert
	err := s.db.WithContext(ctx).
		Where("article_id = ? AND resolved_at IS NULL", article.ID).
		First(&open).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if level == "" {
			return nil
		}
		alert := models.Alert{ArticleID: article.ID, Level: level}
		if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
			return fmt.Errorf("failed to create alert: %w", err)
		}
		s.logger.Info().
			Str("article_id", article.ID).
			Str("sku", article.SKU).
			Str("level", level).
			Int("quantity", article.Quantity).
			Msg("Alert raised")
		return nil
	case err != nil:
		return fmt.Errorf("failed to load open alert: %w", err)
	}

	if level == "" {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&open).Update("resolved_at", &now).Error; err != nil {
			return fmt.Errorf("failed to resolve alert: %w", err)
		}
		s.logger.Info().Str("article_id", article.ID).Str("sku", article.SKU).Msg("Alert resolved")
		return nil
	}

	if open.Level != level {
		if err := s.db.WithContext(ctx).Model(&open).Update("level", level).Error; err != nil {
			return fmt.Errorf("failed to update alert level: %w", err)
		}
	}
	return nil
}

// ScanAll re-evaluates every article. Used by the periodic scan task.
func (s *Service) ScanAll(ctx context.Context) error {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Article{}).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	for _, id := range ids {
		if err := s.ScanArticle(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("article_id", id).Msg("Failed to scan article")
		}
	}

	s.logger.Info().Int("articles", len(ids)).Msg("Alert scan complete")
	return nil
}

// Acknowledge marks an open alert as seen by a user
func (s *Service) Acknowledge(ctx context.Context, alertID string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ? AND acknowledged_at IS NULL", alertID).
		Update("acknowledged_at", &now)
	if result.Error != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) resolveOpen(ctx context.Context, articleID string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("article_id = ? AND resolved_at IS NULL", articleID).
		Update("resolved_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to resolve orphan alert: %w", err)
	}
	return nil
}
