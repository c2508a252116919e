package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strings"                    // String manipulation
	"time"                       // Launch dates

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// CollabRequest creates or replaces a design collaboration
type CollabRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Slug        string     `json:"slug" binding:"max=280"` // Derived from the title when empty
	Designer    string     `json:"designer" binding:"required,max=255"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url" binding:"omitempty,url,max=512"`
	LaunchDate  *time.Time `json:"launch_date"`
	IsActive    *bool      `json:"is_active"`
}

// ListCollabsHandler returns active collaborations, latest launch first
func ListCollabsHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheKey := cacheContent + "collabs"
		if serveCached(c, cache, cacheKey) {
			return
		}
		var collabs []domain.DesignCollab
		if err := db.Where("is_active = ?", true).Order("launch_date DESC, id DESC").Find(&collabs).Error; err != nil {
			serverError(c, "Failed to fetch collaborations", err, nil)
			return
		}
		if collabs == nil {
			collabs = []domain.DesignCollab{}
		}
		resp := gin.H{"collabs": collabs, "cached": false}
		_ = cache.Set(c.Request.Context(), cacheKey, resp, 0)
		c.JSON(http.StatusOK, resp)
	}
}

// GetCollabHandler returns an active collaboration by slug
func GetCollabHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var collab domain.DesignCollab
		if err := db.Where("slug = ? AND is_active = ?", c.Param("slug"), true).First(&collab).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collaboration not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"collab": collab})
	}
}

// AdminListCollabsHandler returns every collaboration
func AdminListCollabsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var collabs []domain.DesignCollab
		if err := db.Order("id DESC").Find(&collabs).Error; err != nil {
			serverError(c, "Failed to fetch collaborations", err, nil)
			return
		}
		if collabs == nil {
			collabs = []domain.DesignCollab{}
		}
		c.JSON(http.StatusOK, gin.H{"collabs": collabs})
	}
}

// saveCollab validates the request and writes it onto collab
func saveCollab(c *gin.Context, db *gorm.DB, cache *utils.Cache, collab *domain.DesignCollab) bool {
	var req CollabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false
	}
	requested := req.Slug
	if requested == "" {
		requested = collab.Slug // Keep the published URL on edits
	}
	slug, ok := resolveSlug(c, db, &domain.DesignCollab{}, requested, req.Title, collab.ID)
	if !ok {
		return false
	}
	collab.Title = strings.TrimSpace(req.Title)
	collab.Slug = slug
	collab.Designer = strings.TrimSpace(req.Designer)
	collab.Description = req.Description
	collab.ImageURL = req.ImageURL
	collab.LaunchDate = req.LaunchDate
	collab.IsActive = req.IsActive == nil || *req.IsActive
	if err := db.Save(collab).Error; err != nil {
		serverError(c, "Failed to save collaboration", err, logrus.Fields{"slug": slug})
		return false
	}
	invalidate(cache, cacheContent)
	return true
}

// CreateCollabHandler adds a collaboration
func CreateCollabHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var collab domain.DesignCollab
		if !saveCollab(c, db, cache, &collab) {
			return
		}
		c.JSON(http.StatusCreated, gin.H{"collab": collab})
	}
}

// UpdateCollabHandler replaces a collaboration
func UpdateCollabHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var collab domain.DesignCollab
		if err := db.First(&collab, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collaboration not found"})
			return
		}
		if !saveCollab(c, db, cache, &collab) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"collab": collab})
	}
}

// DeleteCollabHandler removes a collaboration
func DeleteCollabHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		res := db.Delete(&domain.DesignCollab{}, id)
		if res.Error != nil {
			serverError(c, "Failed to delete collaboration", res.Error, logrus.Fields{"collab_id": id})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collaboration not found"})
			return
		}
		invalidate(cache, cacheContent)
		c.JSON(http.StatusOK, gin.H{"message": "Collaboration deleted"})
	}
}
