package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stockd-dev/stockd/internal/inventory"
	"github.com/stockd-dev/stockd/internal/models"
	"github.com/stockd-dev/stockd/internal/tasks"
)

// CreateMovementRequest represents a request to record a stock movement
type CreateMovementRequest struct {
	ArticleID string `json:"article_id" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=ENTRY EXIT TRANSFER"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	ToSiteID  string `json:"to_site_id"`
	Reason    string `json:"reason"`
}

// enqueueAlertScan asks the worker to re-evaluate one article's stock level.
// Enqueue failures are logged and dropped: the periodic full scan will catch
// up, so a movement never fails because Redis is down.
func (s *Server) enqueueAlertScan(articleID string) {
	task, err := tasks.NewAlertScanTask(articleID)
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", articleID).Msg("Failed to create alert scan task")
		return
	}
	if _, err := s.asynqClient.Enqueue(task); err != nil {
		s.logger.Warn().Err(err).Str("article_id", articleID).Msg("Failed to enqueue alert scan task")
	}
}

// @Summary Record movement
// @Description Apply a stock movement (entry, exit, or transfer between sites)
// @Tags movements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMovementRequest true "Movement request"
// @Success 201 {object} models.Movement
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/movements [post]
func (s *Server) createMovement(c *gin.Context) {
	var req CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionData, _ := GetSessionData(c)

	movement, err := s.inventoryService.Apply(c.Request.Context(), inventory.MovementInput{
		ArticleID: req.ArticleID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		ToSiteID:  req.ToSiteID,
		Reason:    req.Reason,
		ActorID:   sessionData.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrArticleNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		case errors.Is(err, inventory.ErrSiteNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Destination site not found"})
		case errors.Is(err, inventory.ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, inventory.ErrInvalidMovement):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			s.logger.Error().Err(err).Msg("Failed to apply movement")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply movement"})
		}
		return
	}

	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "movement.apply", "movement", movement.ID, req.Type)
	s.enqueueAlertScan(req.ArticleID)

	c.JSON(http.StatusCreated, movement)
}

// @Summary List movements
// @Description List movements, newest first, optionally filtered by article
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param article_id query string false "Filter by article"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Movement
// @Router /api/movements [get]
func (s *Server) listMovements(c *gin.Context) {
	limit, offset := pagination(c, 50, 200)

	query := s.db.Preload("Article").Preload("CreatedBy").
		Order("created_at DESC").
		Limit(limit).Offset(offset)

	if articleID := c.Query("article_id"); articleID != "" {
		query = query.Where("article_id = ?", articleID)
	}

	var movements []models.Movement
	if err := query.Find(&movements).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list movements")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, movements)
}

func pagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
