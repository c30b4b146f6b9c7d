package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/models"
)

// CreateArticleRequest represents a request to create an article
type CreateArticleRequest struct {
	SKU         string `json:"sku" binding:"required,alphanumdash"`
	SiteID      string `json:"site_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity" binding:"min=0"`
	MinQuantity int    `json:"min_quantity" binding:"min=0"`
}

// UpdateArticleRequest represents a partial article update.
// Quantity is deliberately absent: stock changes go through movements so
// they leave a trail.
type UpdateArticleRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	MinQuantity *int    `json:"min_quantity"`
}

// @Summary List articles
// @Description List articles, optionally filtered by site, category, or low stock
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param site_id query string false "Filter by site"
// @Param category query string false "Filter by category"
// @Param low query bool false "Only articles at or below their threshold"
// @Success 200 {array} models.Article
// @Router /api/articles [get]
func (s *Server) listArticles(c *gin.Context) {
	query := s.db.Preload("Site").Order("sku ASC")

	if siteID := c.Query("site_id"); siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("low") == "true" {
		query = query.Where("quantity = 0 OR (min_quantity > 0 AND quantity <= min_quantity)")
	}

	var articles []models.Article
	if err := query.Find(&articles).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list articles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, articles)
}

// @Summary Get article
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article ID"
// @Success 200 {object} models.Article
// @Router /api/articles/{id} [get]
func (s *Server) getArticle(c *gin.Context) {
	var article models.Article
	if err := models.FindByIDWithPreload(s.db, c.Param("id"), &article, "Site"); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find article")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, article)
}

// @Summary Create article
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateArticleRequest true "Create article request"
// @Success 201 {object} models.Article
// @Router /api/articles [post]
func (s *Server) createArticle(c *gin.Context) {
	var req CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var site models.Site
	if err := models.FindByID(s.db, req.SiteID, &site); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown site"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find site")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	article := &models.Article{
		SKU:         req.SKU,
		SiteID:      req.SiteID,
		Name:        req.Name,
		Category:    req.Category,
		Quantity:    req.Quantity,
		MinQuantity: req.MinQuantity,
	}
	if err := s.db.Create(article).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "This SKU already exists at this site"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create article")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create article"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "article.create", "article", article.ID, article.SKU)
	s.logger.Info().Str("article_id", article.ID).Str("sku", article.SKU).Msg("Article created")

	s.enqueueAlertScan(article.ID)

	c.JSON(http.StatusCreated, article)
}

// @Summary Update article
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article ID"
// @Success 200 {object} models.Article
// @Router /api/articles/{id} [patch]
func (s *Server) updateArticle(c *gin.Context) {
	var article models.Article
	if err := models.FindByID(s.db, c.Param("id"), &article); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find article")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req UpdateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.MinQuantity != nil {
		if *req.MinQuantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_quantity cannot be negative"})
			return
		}
		updates["min_quantity"] = *req.MinQuantity
	}
	if len(updates) > 0 {
		if err := s.db.Model(&article).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update article")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update article"})
			return
		}
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "article.update", "article", article.ID, article.SKU)

	// A threshold change can raise or clear an alert
	if req.MinQuantity != nil {
		s.enqueueAlertScan(article.ID)
	}

	c.JSON(http.StatusOK, article)
}

// @Summary Delete article
// @Tags articles
// @Security BearerAuth
// @Param id path string true "Article ID"
// @Success 204
// @Router /api/articles/{id} [delete]
func (s *Server) deleteArticle(c *gin.Context) {
	var article models.Article
	if err := models.FindByID(s.db, c.Param("id"), &article); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find article")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := s.db.Delete(&article).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete article")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete article"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "article.delete", "article", article.ID, article.SKU)
	s.logger.Info().Str("article_id", article.ID).Str("deleted_by", sessionData.UserID).Msg("Article deleted")

	s.enqueueAlertScan(article.ID)

	c.Status(http.StatusNoContent)
}
