package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stockd-dev/stockd/internal/models"
)

// CreateSiteRequest represents a request to create a site
type CreateSiteRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// UpdateSiteRequest represents a partial site update
type UpdateSiteRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// @Summary List sites
// @Tags sites
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Site
// @Router /api/sites [get]
func (s *Server) listSites(c *gin.Context) {
	var sites []models.Site
	if err := s.db.Order("name ASC").Find(&sites).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list sites")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, sites)
}

// @Summary Create site
// @Tags sites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSiteRequest true "Create site request"
// @Success 201 {object} models.Site
// @Router /api/sites [post]
func (s *Server) createSite(c *gin.Context) {
	var req CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	site := &models.Site{Name: req.Name, Address: req.Address}
	if err := s.db.Create(site).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "A site with this name already exists"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create site")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create site"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "site.create", "site", site.ID, site.Name)
	s.logger.Info().Str("site_id", site.ID).Str("name", site.Name).Msg("Site created")

	c.JSON(http.StatusCreated, site)
}

// @Summary Update site
// @Tags sites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Site ID"
// @Success 200 {object} models.Site
// @Router /api/sites/{id} [patch]
func (s *Server) updateSite(c *gin.Context) {
	var site models.Site
	if err := models.FindByID(s.db, c.Param("id"), &site); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Site not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find site")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req UpdateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if len(updates) > 0 {
		if err := s.db.Model(&site).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update site")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update site"})
			return
		}
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "site.update", "site", site.ID, site.Name)

	c.JSON(http.StatusOK, site)
}

// @Summary Delete site
// @Description Delete a site (admin only). Refused while articles are stocked there.
// @Tags sites
// @Security BearerAuth
// @Param id path string true "Site ID"
// @Success 204
// @Failure 409 {object} map[string]interface{}
// @Router /api/sites/{id} [delete]
func (s *Server) deleteSite(c *gin.Context) {
	var site models.Site
	if err := models.FindByID(s.db, c.Param("id"), &site); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Site not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find site")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var articleCount int64
	if err := s.db.Model(&models.Article{}).Where("site_id = ?", site.ID).Count(&articleCount).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count site articles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if articleCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Site still holds articles"})
		return
	}

	if err := s.db.Delete(&site).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete site")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete site"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.auditRecorder.Record(c.Request.Context(), sessionData.UserID, "site.delete", "site", site.ID, site.Name)
	s.logger.Info().Str("site_id", site.ID).Str("deleted_by", sessionData.UserID).Msg("Site deleted")

	c.Status(http.StatusNoContent)
}
