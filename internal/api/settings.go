package api

import (
	"encoding/json"              // Numeric setting values
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strconv"                    // Scalar formatting
	"strings"                    // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Upsert clauses
)

// maxSettingKey matches the column size of setting keys
const maxSettingKey = 128

// settingsMap flattens settings into key value pairs
func settingsMap(settings []domain.SiteSetting) map[string]string {
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out
}

// settingValue renders a scalar JSON value as stored text
func settingValue(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false // null, objects and arrays
	}
}

// isPublicSetting reports whether key may be shown in the storefront
func isPublicSetting(key string) bool {
	for _, prefix := range domain.PublicSettingPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// PublicSettingsHandler returns the storefront-visible settings
func PublicSettingsHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheKey := cacheSettings + "public"
		if serveCached(c, cache, cacheKey) {
			return
		}
		var settings []domain.SiteSetting
		if err := db.Order("setting_key ASC").Find(&settings).Error; err != nil {
			serverError(c, "Failed to fetch settings", err, nil)
			return
		}
		public := settings[:0]
		for _, s := range settings {
			if isPublicSetting(s.Key) {
				public = append(public, s)
			}
		}
		resp := gin.H{"settings": settingsMap(public), "cached": false}
		_ = cache.Set(c.Request.Context(), cacheKey, resp, 0)
		c.JSON(http.StatusOK, resp)
	}
}

// AdminSettingsHandler returns every setting
func AdminSettingsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings []domain.SiteSetting
		if err := db.Order("setting_key ASC").Find(&settings).Error; err != nil {
			serverError(c, "Failed to fetch settings", err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settingsMap(settings)})
	}
}

// UpdateSettingsHandler upserts the given key value pairs
func UpdateSettingsHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req map[string]any
		if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Expected an object of settings"})
			return
		}
		settings := make([]domain.SiteSetting, 0, len(req))
		for k, v := range req {
			k = strings.TrimSpace(k)
			if k == "" || len(k) > maxSettingKey {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid setting key", "key": k})
				return
			}
			value, ok := settingValue(v)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Setting values must be strings, numbers or booleans", "key": k})
				return
			}
			settings = append(settings, domain.SiteSetting{Key: k, Value: value})
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
		}).Create(&settings).Error
		if err != nil {
			serverError(c, "Failed to save settings", err, nil)
			return
		}
		adminID, _ := currentUserID(c)
		logrus.WithFields(logrus.Fields{"admin_id": adminID, "keys": len(settings)}).Info("Settings updated")
		invalidate(cache, cacheSettings)
		var all []domain.SiteSetting
		if err := db.Order("setting_key ASC").Find(&all).Error; err != nil {
			serverError(c, "Failed to fetch settings", err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settingsMap(all)})
	}
}
