package api

import (
	"context"                    // Context for cache operations
	"errors"                     // Error matching
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strconv"                    // String conversion
	"strings"                    // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Cache key prefixes, invalidated by prefix on writes
const (
	cacheCatalog   = "catalog:"
	cacheContent   = "content:"
	cacheSettings  = "settings:"
	cacheDashboard = "admin:dashboard:"
	cacheUsers     = "admin:users:"
)

// Prefixes dropped by writes that touch several cached views
var (
	signupCachePrefixes = []string{cacheUsers, cacheDashboard}               // User list and customer count
	orderCachePrefixes  = []string{cacheCatalog, cacheDashboard, cacheUsers} // Stock, revenue and per-user order totals
)

// currentUserID returns the authenticated user's ID
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID") // Set by the JWT middleware
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// requireUser returns the authenticated user's ID or writes 401
func requireUser(c *gin.Context) (uint, bool) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return id, ok
}

// isStaff reports whether the role may moderate community content
func isStaff(role string) bool {
	return role == domain.RoleAdmin || role == domain.RoleEditor
}

// userRole reads the current role from the database, token claims may be stale
func userRole(db *gorm.DB, userID uint) string {
	var user domain.User
	if err := db.Select("id", "role").First(&user, userID).Error; err != nil {
		return ""
	}
	return user.Role
}

// paramID parses a positive numeric path parameter or writes 400
func paramID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// isNotFound reports whether err means the record does not exist
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// serverError logs err with context and writes a 500 carrying only msg
func serverError(c *gin.Context, msg string, err error, fields logrus.Fields) {
	entry := logrus.WithFields(fields).WithField("error", err.Error())
	if id, ok := c.Get("requestID"); ok {
		entry = entry.WithField("request_id", id)
	}
	entry.Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// pageResponse shapes a paginated listing
func pageResponse(key string, items any, p utils.Page, total int64) gin.H {
	return gin.H{
		key:           items,               // Listed records
		"page":        p.Page,              // Current page
		"page_size":   p.PageSize,          // Page size
		"total":       total,               // Total number of records
		"total_pages": p.TotalPages(total), // Total pages
		"cached":      false,               // Indicate response is not from cache
	}
}

// serveCached writes the cached response for key when present
func serveCached(c *gin.Context, cache *utils.Cache, key string) bool {
	var cached gin.H
	found, err := cache.Get(c.Request.Context(), key, &cached)
	if err != nil || !found {
		return false
	}
	cached["cached"] = true // Indicate response is from cache
	c.JSON(http.StatusOK, cached)
	return true
}

// invalidate drops every cached entry under the given prefixes
func invalidate(cache *utils.Cache, prefixes ...string) {
	ctx := context.Background()
	for _, prefix := range prefixes {
		if err := cache.DeletePrefix(ctx, prefix); err != nil {
			logrus.WithFields(logrus.Fields{"prefix": prefix, "error": err.Error()}).Warn("Cache invalidation failed")
		}
	}
}

// queryKey builds a cache key from the listed query parameters
func queryKey(c *gin.Context, prefix string, params ...string) string {
	parts := make([]string, 0, len(params))
	for _, k := range params {
		parts = append(parts, k+"="+c.Query(k)) // Append key-value pair
	}
	return prefix + strings.Join(parts, ":")
}

// shippingPolicy reads the shipping settings, falling back per key
func shippingPolicy(db *gorm.DB, fallback domain.ShippingPolicy) domain.ShippingPolicy {
	var settings []domain.SiteSetting
	keys := []string{domain.SettingFreeShippingThreshold, domain.SettingFlatShippingFee}
	if err := db.Where("setting_key IN ?", keys).Find(&settings).Error; err != nil {
		return fallback
	}
	policy := fallback
	for _, s := range settings {
		v, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
		if err != nil || v < 0 {
			continue // Ignore malformed values
		}
		switch s.Key {
		case domain.SettingFreeShippingThreshold:
			policy.FreeThreshold = v
		case domain.SettingFlatShippingFee:
			policy.FlatFee = v
		}
	}
	return policy
}

// uniqueSlug derives a slug from base that is not yet used in model's table
func uniqueSlug(db *gorm.DB, model any, base string, excludeID uint) string {
	slug := utils.Slugify(base)
	if slug == "" {
		slug = strings.ToLower(utils.RandomCode(8))
	}
	candidate := slug
	for i := 2; ; i++ {
		var count int64
		q := db.Model(model).Where("slug = ?", candidate)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = slug + "-" + strconv.Itoa(i)
	}
}
