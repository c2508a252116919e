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

// AffiliateApplyRequest is an application to the affiliate programme
type AffiliateApplyRequest struct {
	PayoutDetails string `json:"payout_details" binding:"required,max=512"` // Where commission is paid
}

// AffiliateReviewRequest is an admin decision on an affiliate
type AffiliateReviewRequest struct {
	Status         *string  `json:"status"`
	CommissionRate *float64 `json:"commission_rate"`
}

// affiliateStats aggregates referrals of non-cancelled orders
func affiliateStats(db *gorm.DB, affiliateID uint) (domain.AffiliateStats, error) {
	var stats domain.AffiliateStats
	err := db.Model(&domain.AffiliateReferral{}).
		Select("COUNT(*) AS referrals, COALESCE(SUM(affiliate_referrals.order_total), 0) AS total_sales, COALESCE(SUM(affiliate_referrals.commission), 0) AS total_commission").
		Joins("JOIN orders ON orders.id = affiliate_referrals.order_id").
		Where("affiliate_referrals.affiliate_id = ? AND orders.status <> ?", affiliateID, domain.OrderCancelled).
		Scan(&stats).Error
	stats.TotalSales = domain.Round2(stats.TotalSales)
	stats.TotalCommission = domain.Round2(stats.TotalCommission)
	return stats, err
}

// uniqueAffiliateCode draws codes until one is unused
func uniqueAffiliateCode(db *gorm.DB) (string, error) {
	for {
		code := utils.NewAffiliateCode()
		var count int64
		if err := db.Model(&domain.Affiliate{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

// ApplyAffiliateHandler registers the caller as a pending affiliate
func ApplyAffiliateHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req AffiliateApplyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var count int64
		if err := db.Model(&domain.Affiliate{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			serverError(c, "Failed to apply", err, logrus.Fields{"user_id": userID})
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "You have already applied"})
			return
		}
		code, err := uniqueAffiliateCode(db)
		if err != nil {
			serverError(c, "Failed to apply", err, logrus.Fields{"user_id": userID})
			return
		}
		affiliate := domain.Affiliate{
			UserID:         userID,
			Code:           code,
			Status:         domain.AffiliatePending,
			CommissionRate: domain.DefaultCommissionRate,
			PayoutDetails:  strings.TrimSpace(req.PayoutDetails),
		}
		if err := db.Create(&affiliate).Error; err != nil {
			serverError(c, "Failed to apply", err, logrus.Fields{"user_id": userID})
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "code": code}).Info("Affiliate application received")
		c.JSON(http.StatusCreated, gin.H{"affiliate": affiliate})
	}
}

// MyAffiliateHandler returns the caller's affiliate record with referral stats
func MyAffiliateHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var affiliate domain.Affiliate
		if err := db.Where("user_id = ?", userID).First(&affiliate).Error; err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not an affiliate"})
				return
			}
			serverError(c, "Failed to load affiliate", err, logrus.Fields{"user_id": userID})
			return
		}
		stats, err := affiliateStats(db, affiliate.ID)
		if err != nil {
			serverError(c, "Failed to load affiliate stats", err, logrus.Fields{"affiliate_id": affiliate.ID})
			return
		}
		var recent []domain.AffiliateReferral
		if err := db.Preload("Order").Where("affiliate_id = ?", affiliate.ID).Order("id DESC").Limit(10).Find(&recent).Error; err != nil {
			serverError(c, "Failed to load referrals", err, logrus.Fields{"affiliate_id": affiliate.ID})
			return
		}
		if recent == nil {
			recent = []domain.AffiliateReferral{}
		}
		c.JSON(http.StatusOK, gin.H{"affiliate": affiliate, "stats": stats, "recent_referrals": recent})
	}
}

// ListAffiliatesHandler returns affiliates, optionally filtered by status
func ListAffiliatesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		query := db.Model(&domain.Affiliate{})
		if status := c.Query("status"); status != "" {
			if !domain.ValidAffiliateStatus(status) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
				return
			}
			query = query.Where("status = ?", status)
		}
		query = query.Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count affiliates", err, nil)
			return
		}
		var affiliates []domain.Affiliate
		if err := query.Preload("User").Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.PageSize).Find(&affiliates).Error; err != nil {
			serverError(c, "Failed to fetch affiliates", err, nil)
			return
		}
		if affiliates == nil {
			affiliates = []domain.Affiliate{}
		}
		c.JSON(http.StatusOK, pageResponse("affiliates", affiliates, page, total))
	}
}

// ReviewAffiliateHandler approves, rejects or re-rates an affiliate
func ReviewAffiliateHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req AffiliateReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		updates := map[string]any{}
		if req.Status != nil {
			if !domain.ValidAffiliateStatus(*req.Status) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
				return
			}
			updates["status"] = *req.Status
		}
		if req.CommissionRate != nil {
			if *req.CommissionRate < 0 || *req.CommissionRate > domain.MaxCommissionRate {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Commission rate must be between 0 and 50"})
				return
			}
			updates["commission_rate"] = *req.CommissionRate
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}
		var affiliate domain.Affiliate
		if err := db.First(&affiliate, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Affiliate not found"})
			return
		}
		if err := db.Model(&affiliate).Updates(updates).Error; err != nil {
			serverError(c, "Failed to update affiliate", err, logrus.Fields{"affiliate_id": id})
			return
		}
		if err := db.First(&affiliate, id).Error; err != nil {
			serverError(c, "Failed to reload affiliate", err, logrus.Fields{"affiliate_id": id})
			return
		}
		logrus.WithFields(logrus.Fields{
			"affiliate_id":    id,
			"status":          affiliate.Status,
			"commission_rate": affiliate.CommissionRate,
		}).Info("Affiliate reviewed")
		c.JSON(http.StatusOK, gin.H{"affiliate": affiliate})
	}
}
