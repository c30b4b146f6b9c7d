package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/models"
)

// Recorder writes audit trail entries. Recording never fails a request:
// errors are logged and swallowed.
type Recorder struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(db *gorm.DB, logger zerolog.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record appends an entry to the audit trail
func (r *Recorder) Record(ctx context.Context, actorID, action, entity, entityID, detail string) {
	entry := models.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Error().
			Err(err).
			Str("action", action).
			Str("entity", entity).
			Msg("Failed to record audit entry")
	}
}

// Purge deletes entries older than the retention window and returns how many
// rows were removed. A non-positive retention disables purging.
func (r *Recorder) Purge(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.logger.Info().
			Int64("deleted", result.RowsAffected).
			Time("cutoff", cutoff).
			Msg("Audit entries purged")
	}
	return result.RowsAffected, nil
}
