package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strconv"                    // String conversion
	"time"                       // Cache lifetime

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// defaultLowStock is the stock level at or below which products are flagged
const defaultLowStock = 5

// dashboardTTL bounds how stale the dashboard may be
const dashboardTTL = 60 * time.Second

// LowStockProduct is a product running out
type LowStockProduct struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Stock int    `json:"stock"`
}

// DashboardHandler returns the back-office overview
func DashboardHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		lowStock := defaultLowStock
		if v, err := strconv.Atoi(c.Query("low_stock")); err == nil && v >= 0 {
			lowStock = v
		}
		cacheKey := cacheDashboard + "low_stock=" + strconv.Itoa(lowStock)
		if serveCached(c, cache, cacheKey) {
			return
		}

		// Revenue counts delivered orders and paid orders that were not cancelled
		var revenue float64
		if err := db.Model(&domain.Order{}).
			Select("COALESCE(SUM(total), 0)").
			Where("status = ? OR (payment_status = ? AND status <> ?)", domain.OrderDelivered, domain.PaymentPaid, domain.OrderCancelled).
			Scan(&revenue).Error; err != nil {
			serverError(c, "Failed to compute revenue", err, nil)
			return
		}

		var statusRows []struct {
			Status string
			Count  int64
		}
		if err := db.Model(&domain.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&statusRows).Error; err != nil {
			serverError(c, "Failed to count orders", err, nil)
			return
		}
		byStatus := make(map[string]int64, len(domain.OrderStatuses))
		for _, s := range domain.OrderStatuses {
			byStatus[s] = 0
		}
		var orderCount int64
		for _, r := range statusRows {
			byStatus[r.Status] = r.Count
			orderCount += r.Count
		}

		var customers, products int64
		if err := db.Model(&domain.User{}).Where("role = ?", domain.RoleUser).Count(&customers).Error; err != nil {
			serverError(c, "Failed to count customers", err, nil)
			return
		}
		if err := db.Model(&domain.Product{}).Count(&products).Error; err != nil {
			serverError(c, "Failed to count products", err, nil)
			return
		}

		var low []LowStockProduct
		if err := db.Model(&domain.Product{}).Select("id, name, slug, stock").
			Where("is_active = ? AND stock <= ?", true, lowStock).
			Order("stock ASC, id ASC").Limit(50).Scan(&low).Error; err != nil {
			serverError(c, "Failed to fetch low stock", err, nil)
			return
		}
		if low == nil {
			low = []LowStockProduct{}
		}

		var recent []domain.Order
		if err := db.Order("created_at DESC, id DESC").Limit(5).Find(&recent).Error; err != nil {
			serverError(c, "Failed to fetch recent orders", err, nil)
			return
		}
		if recent == nil {
			recent = []domain.Order{}
		}

		resp := gin.H{
			"revenue":          domain.Round2(revenue), // Realised revenue
			"orders":           orderCount,             // All orders
			"orders_by_status": byStatus,               // Orders per workflow status
			"customers":        customers,              // Customer accounts
			"products":         products,               // Catalog size
			"low_stock":        low,                    // Products to restock
			"low_stock_at":     lowStock,               // Threshold applied
			"recent_orders":    recent,                 // Latest orders
			"cached":           false,                  // Indicate response is not from cache
		}
		_ = cache.Set(c.Request.Context(), cacheKey, resp, dashboardTTL)
		c.JSON(http.StatusOK, resp)
	}
}
