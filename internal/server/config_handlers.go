package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/stockd-dev/stockd/internal/models"
)

// UpdateConfigRequest represents a partial configuration update
type UpdateConfigRequest struct {
	AlertSchedule      *string `json:"alert_schedule"`
	AuditRetentionDays *int    `json:"audit_retention_days"`
}

// @Summary Get configuration
// @Tags config
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Config
// @Router /api/config [get]
func (s *Server) getConfig(c *gin.Context) {
	var config models.Config
	if err := s.db.First(&config).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, config)
}

// @Summary Update configuration
// @Description Update alert schedule and audit retention (admin only)
// @Tags config
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateConfigRequest true "Config update"
// @Success 200 {object} models.Config
// @Failure 400 {object} map[string]interface{}
// @Router /api/config [patch]
func (s *Server) updateConfig(c *gin.Context) {
	var config models.Config
	if err := s.db.First(&config).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}

	if req.AlertSchedule != nil {
		schedule := *req.AlertSchedule
		if schedule != "" {
			parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
			parsed, err := parser.Parse(schedule)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cron expression"})
				return
			}
			next := parsed.Next(time.Now())
			updates["next_scan_at"] = &next
		} else {
			updates["next_scan_at"] = nil
		}
		updates["alert_schedule"] = schedule
	}

	if req.AuditRetentionDays != nil {
		if *req.AuditRetentionDays < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audit_retention_days cannot be negative"})
			return
		}
		updates["audit_retention_days"] = *req.AuditRetentionDays
	}

	if len(updates) > 0 {
		if err := s.db.Model(&config).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update config")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config"})
			return
		}
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "config.update", "config", config.ID, "")
	s.logger.Info().Str("updated_by", sessionData.UserID).Msg("Config updated")

	c.JSON(http.StatusOK, config)
}
