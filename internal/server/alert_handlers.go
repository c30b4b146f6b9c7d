package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/models"
)

// @Summary List alerts
// @Description List open alerts. Pass all=true to include resolved ones.
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Include resolved alerts"
// @Success 200 {array} models.Alert
// @Router /api/alerts [get]
func (s *Server) listAlerts(c *gin.Context) {
	query := s.db.Preload("Article").Preload("Article.Site").Order("created_at DESC")
	if c.Query("all") != "true" {
		query = query.Where("resolved_at IS NULL")
	}

	var alerts []models.Alert
	if err := query.Find(&alerts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// @Summary Acknowledge alert
// @Tags alerts
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /api/alerts/{id}/acknowledge [post]
func (s *Server) acknowledgeAlert(c *gin.Context) {
	alertID := c.Param("id")

	if err := s.alertsService.Acknowledge(c.Request.Context(), alertID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found or already acknowledged"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to acknowledge alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "alert.acknowledge", "alert", alertID, "")

	c.Status(http.StatusNoContent)
}
