package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strings"                    // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	domain.User
	OrderCount int64   `json:"order_count"` // Orders placed
	TotalSpent float64 `json:"total_spent"` // Sum of non-cancelled order totals
}

// RoleRequest changes a user's role
type RoleRequest struct {
	Role string `json:"role" binding:"required"` // user, editor or admin
}

// ListUsersHandler returns users with their order activity, with optional search and role filters
func ListUsersHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Create a cache key based on filters and pagination parameters
		cacheKey := queryKey(c, cacheUsers, "q", "role", "page", "page_size")
		if serveCached(c, cache, cacheKey) {
			return
		}
		page := utils.ParsePage(c)
		query := db.Model(&domain.User{}) // Start building the query
		if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
			like := "%" + q + "%"
			query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like) // Search email and name
		}
		if role := c.Query("role"); role != "" {
			query = query.Where("role = ?", role) // Filter by role
		}
		query = query.Session(&gorm.Session{})
		var total int64 // Total user count
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count users", err, logrus.Fields{"query": c.Request.URL.RawQuery})
			return
		}
		var users []domain.User // Slice to hold users
		if err := query.Order("id ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&users).Error; err != nil {
			serverError(c, "Failed to fetch users", err, logrus.Fields{"query": c.Request.URL.RawQuery})
			return
		}
		// Aggregate order activity for the listed users in one query
		type activity struct {
			UserID     uint
			OrderCount int64
			TotalSpent float64
		}
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		byUser := make(map[uint]activity, len(users))
		if len(ids) > 0 {
			var rows []activity
			err := db.Model(&domain.Order{}).
				Select("user_id, COUNT(*) AS order_count, COALESCE(SUM(total), 0) AS total_spent").
				Where("user_id IN ? AND status <> ?", ids, domain.OrderCancelled).
				Group("user_id").Scan(&rows).Error
			if err != nil {
				serverError(c, "Failed to aggregate orders", err, nil)
				return
			}
			for _, r := range rows {
				byUser[r.UserID] = r
			}
		}
		// Map users to response format
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			a := byUser[u.ID]
			resp[i] = UserAdminResponse{User: u, OrderCount: a.OrderCount, TotalSpent: domain.Round2(a.TotalSpent)}
		}
		respData := pageResponse("users", resp, page, total)
		// Cache the response for future requests
		_ = cache.Set(c.Request.Context(), cacheKey, respData, 0)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// UpdateUserRoleHandler promotes or demotes a user
func UpdateUserRoleHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req RoleRequest
		if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be one of user, editor, admin"})
			return
		}
		// An admin cannot lock themself out of the back-office
		if id == adminID && req.Role != domain.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot change your own role"})
			return
		}
		var user domain.User
		if err := db.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			serverError(c, "Failed to load user", err, logrus.Fields{"user_id": id})
			return
		}
		previous := user.Role
		if err := db.Model(&user).Update("role", req.Role).Error; err != nil {
			serverError(c, "Failed to update role", err, logrus.Fields{"user_id": id})
			return
		}
		user.Role = req.Role
		logrus.WithFields(logrus.Fields{
			"admin_id": adminID,  // Acting admin
			"user_id":  id,       // Target user
			"from":     previous, // Previous role
			"to":       req.Role, // New role
		}).Info("User role changed")
		invalidate(cache, cacheUsers)
		c.JSON(http.StatusOK, gin.H{"message": "Role updated", "user": user})
	}
}
