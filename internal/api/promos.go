package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strings"                    // String manipulation
	"time"                       // Promo windows

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// PromoRequest creates or replaces a promo
type PromoRequest struct {
	Title     string     `json:"title" binding:"required,max=255"`
	Body      string     `json:"body"`
	ImageURL  string     `json:"image_url" binding:"omitempty,url,max=512"`
	LinkURL   string     `json:"link_url" binding:"max=512"`
	Placement string     `json:"placement" binding:"required,max=32"`
	IsActive  *bool      `json:"is_active"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	SortOrder int        `json:"sort_order"`
}

// apply copies the request onto p
func (r PromoRequest) apply(p *domain.PromoPost) {
	p.Title = strings.TrimSpace(r.Title)
	p.Body = r.Body
	p.ImageURL = r.ImageURL
	p.LinkURL = r.LinkURL
	p.Placement = strings.TrimSpace(r.Placement)
	p.IsActive = r.IsActive == nil || *r.IsActive // Active unless stated otherwise
	p.StartsAt = r.StartsAt
	p.EndsAt = r.EndsAt
	p.SortOrder = r.SortOrder
}

// bindPromo binds and checks a promo request, writing 400 on failure
func bindPromo(c *gin.Context) (PromoRequest, bool) {
	var req PromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return req, false
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must not be before starts_at"})
		return req, false
	}
	return req, true
}

// ListLivePromosHandler returns the promos currently shown in the storefront
func ListLivePromosHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheKey := queryKey(c, cacheContent+"promos:", "placement")
		if serveCached(c, cache, cacheKey) {
			return
		}
		query := db.Where("is_active = ?", true)
		if placement := c.Query("placement"); placement != "" {
			query = query.Where("placement = ?", placement)
		}
		var promos []domain.PromoPost
		if err := query.Order("sort_order ASC, id ASC").Find(&promos).Error; err != nil {
			serverError(c, "Failed to fetch promos", err, nil)
			return
		}
		now := time.Now()
		live := make([]domain.PromoPost, 0, len(promos))
		for _, p := range promos {
			if p.LiveAt(now) {
				live = append(live, p)
			}
		}
		resp := gin.H{"promos": live, "cached": false}
		// Windows open and close on their own, keep the entry short lived
		_ = cache.Set(c.Request.Context(), cacheKey, resp, time.Minute)
		c.JSON(http.StatusOK, resp)
	}
}

// AdminListPromosHandler returns every promo
func AdminListPromosHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&domain.PromoPost{})
		if placement := c.Query("placement"); placement != "" {
			query = query.Where("placement = ?", placement)
		}
		var promos []domain.PromoPost
		if err := query.Order("placement ASC, sort_order ASC, id ASC").Find(&promos).Error; err != nil {
			serverError(c, "Failed to fetch promos", err, nil)
			return
		}
		if promos == nil {
			promos = []domain.PromoPost{}
		}
		c.JSON(http.StatusOK, gin.H{"promos": promos})
	}
}

// CreatePromoHandler adds a promo
func CreatePromoHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindPromo(c)
		if !ok {
			return
		}
		var promo domain.PromoPost
		req.apply(&promo)
		if err := db.Create(&promo).Error; err != nil {
			serverError(c, "Failed to create promo", err, nil)
			return
		}
		invalidate(cache, cacheContent)
		c.JSON(http.StatusCreated, gin.H{"promo": promo})
	}
}

// UpdatePromoHandler replaces a promo
func UpdatePromoHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		req, ok := bindPromo(c)
		if !ok {
			return
		}
		var promo domain.PromoPost
		if err := db.First(&promo, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Promo not found"})
			return
		}
		req.apply(&promo)
		if err := db.Save(&promo).Error; err != nil {
			serverError(c, "Failed to update promo", err, logrus.Fields{"promo_id": id})
			return
		}
		invalidate(cache, cacheContent)
		c.JSON(http.StatusOK, gin.H{"promo": promo})
	}
}

// DeletePromoHandler removes a promo
func DeletePromoHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		res := db.Delete(&domain.PromoPost{}, id)
		if res.Error != nil {
			serverError(c, "Failed to delete promo", res.Error, logrus.Fields{"promo_id": id})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Promo not found"})
			return
		}
		invalidate(cache, cacheContent)
		c.JSON(http.StatusOK, gin.H{"message": "Promo deleted"})
	}
}
