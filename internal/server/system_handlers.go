package server

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stockd-dev/stockd/internal/models"
	"github.com/stockd-dev/stockd/internal/sysinfo"
)

// SystemInfo represents basic deployment information
type SystemInfo struct {
	Version string           `json:"version"`
	Metrics *sysinfo.Metrics `json:"metrics,omitempty"`
}

// StatsResponse represents the dashboard counters
type StatsResponse struct {
	Articles       int64 `json:"articles"`
	Sites          int64 `json:"sites"`
	OpenAlerts     int64 `json:"open_alerts"`
	MovementsToday int64 `json:"movements_today"`
}

// @Summary System info
// @Tags system
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SystemInfo
// @Router /api/system/info [get]
func (s *Server) getSystemInfo(c *gin.Context) {
	info := SystemInfo{Version: s.version}

	// Host metrics are informational; leave them out rather than fail
	// the whole request when they can't be read.
	dataDir := "."
	if url := s.config.Database.URL; url != "" && !strings.Contains(url, ":memory:") {
		dataDir = filepath.Dir(url)
	}
	if metrics, err := sysinfo.GetMetrics(dataDir); err == nil {
		info.Metrics = &metrics
	} else {
		s.logger.Debug().Err(err).Msg("Failed to read host metrics")
	}

	c.JSON(http.StatusOK, info)
}

// @Summary Dashboard stats
// @Description Counters shown on the dashboard landing page
// @Tags system
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Router /api/system/stats [get]
func (s *Server) getStats(c *gin.Context) {
	var stats StatsResponse

	if err := s.db.Model(&models.Article{}).Count(&stats.Articles).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count articles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if err := s.db.Model(&models.Site{}).Count(&stats.Sites).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count sites")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if err := s.db.Model(&models.Alert{}).Where("resolved_at IS NULL").Count(&stats.OpenAlerts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	if err := s.db.Model(&models.Movement{}).Where("created_at >= ?", midnight).Count(&stats.MovementsToday).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count movements")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
