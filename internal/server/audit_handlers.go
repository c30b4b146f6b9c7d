package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stockd-dev/stockd/internal/models"
)

// @Summary List audit entries
// @Description List audit trail entries, newest first (admin only)
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param entity query string false "Filter by entity kind"
// @Param actor_id query string false "Filter by actor"
// @Param limit query int false "Page size (default 100, max 500)"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.AuditEntry
// @Router /api/audit [get]
func (s *Server) listAuditEntries(c *gin.Context) {
	limit, offset := pagination(c, 100, 500)

	query := s.db.Preload("Actor").
		Order("created_at DESC").
		Limit(limit).Offset(offset)

	if entity := c.Query("entity"); entity != "" {
		query = query.Where("entity = ?", entity)
	}
	if actorID := c.Query("actor_id"); actorID != "" {
		query = query.Where("actor_id = ?", actorID)
	}

	var entries []models.AuditEntry
	if err := query.Find(&entries).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list audit entries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
