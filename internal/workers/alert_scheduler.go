package workers

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/models"
	"github.com/stockd-dev/stockd/internal/tasks"
)

// StartAlertScheduler runs a periodic check (every minute) for the configured
// alert scan schedule and enqueues a full scan when one is due.
func StartAlertScheduler(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run immediately on startup, then every minute
	checkAndEnqueueScan(client, db, logger)

	for range ticker.C {
		checkAndEnqueueScan(client, db, logger)
	}
}

func checkAndEnqueueScan(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	// Load the singleton config
	var config models.Config
	err := db.First(&config).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Debug().Msg("No config found - skipping alert scan check")
			return
		}
		logger.Error().Err(err).Msg("Failed to query config for alert scan")
		return
	}

	// Check if a scan schedule is configured
	if config.AlertSchedule == "" {
		logger.Debug().Msg("No alert schedule configured")
		return
	}

	if config.NextScanAt != nil && config.NextScanAt.After(time.Now()) {
		logger.Debug().
			Time("next_scan_at", *config.NextScanAt).
			Msg("Alert scan not due yet")
		return
	}

	logger.Info().
		Str("alert_schedule", config.AlertSchedule).
		Msg("Alert scan due - enqueueing full scan")

	scanTask, err := tasks.NewFullAlertScanTask()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create alert scan task")
		return
	}
	if _, err := client.Enqueue(scanTask, asynq.Timeout(30*time.Minute)); err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue alert scan task")
		return
	}

	// Ride the same schedule for audit retention; the purge is cheap and
	// idempotent so over-running it is harmless.
	purgeTask, err := tasks.NewAuditPurgeTask()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create audit purge task")
	} else if _, err := client.Enqueue(purgeTask, asynq.Queue("low")); err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue audit purge task")
	}

	// Advance the schedule immediately after enqueueing so the scheduler
	// does not re-enqueue every minute.
	now := time.Now()
	updates := map[string]interface{}{"last_scan_at": &now}
	if next := calculateNextScanTime(config.AlertSchedule, now); next != nil {
		updates["next_scan_at"] = next
	}
	if err := db.Model(&config).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to update scan schedule state")
		return
	}

	logger.Info().Msg("Alert scan task enqueued successfully")
}

// calculateNextScanTime calculates the next scan time from a cron schedule
func calculateNextScanTime(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	// Parse cron expression (standard 5-field format: minute hour day-of-month month day-of-week)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}
