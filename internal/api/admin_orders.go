package api

import (
	"errors"                     // Error matching
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/events" // Order events
	"peak_pulse/internal/utils"  // Utility functions
	"strings"                    // String manipulation
	"time"                       // Date filters

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// StatusRequest moves an order through the workflow
type StatusRequest struct {
	Status string `json:"status" binding:"required"` // Target order status
}

// PaymentStatusRequest records a payment outcome
type PaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"` // unpaid, pending, paid or refunded
}

// parseDay accepts RFC 3339 timestamps or plain dates
func parseDay(v string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ListOrdersHandler returns all orders, with optional filtering by status, user, date or search text
func ListOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		query := db.Model(&domain.Order{}) // Start building the query
		if status := c.Query("status"); status != "" {
			if !domain.ValidOrderStatus(status) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
				return
			}
			query = query.Where("status = ?", status) // Filter by status
		}
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID) // Filter by buyer
		}
		if from := c.Query("from"); from != "" {
			t, ok := parseDay(from)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
				return
			}
			query = query.Where("created_at >= ?", t) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			t, ok := parseDay(to)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
				return
			}
			if len(to) == len(time.DateOnly) {
				t = t.Add(24 * time.Hour) // Plain dates include the whole day
				query = query.Where("created_at < ?", t)
			} else {
				query = query.Where("created_at <= ?", t) // Filter by end date
			}
		}
		if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
			like := "%" + q + "%"
			query = query.Where("LOWER(number) LIKE ? OR LOWER(shipping_name) LIKE ? OR shipping_phone LIKE ?", like, like, like)
		}
		query = query.Session(&gorm.Session{})
		var total int64 // Total order count
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count orders", err, logrus.Fields{"query": c.Request.URL.RawQuery})
			return
		}
		var orders []domain.Order // Slice to hold orders
		if err := query.Preload("Items").Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.PageSize).Find(&orders).Error; err != nil {
			serverError(c, "Failed to fetch orders", err, logrus.Fields{"query": c.Request.URL.RawQuery})
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		c.JSON(http.StatusOK, pageResponse("orders", orders, page, total))
	}
}

// loadOrder fetches an order with items by number, writing 404 or 500 on failure
func loadOrder(c *gin.Context, db *gorm.DB) (*domain.Order, bool) {
	var order domain.Order
	if err := db.Preload("Items").Where("number = ?", c.Param("number")).First(&order).Error; err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return nil, false
		}
		serverError(c, "Failed to load order", err, logrus.Fields{"order_number": c.Param("number")})
		return nil, false
	}
	return &order, true
}

// AdminGetOrderHandler returns any order with its buyer
func AdminGetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := loadOrder(c, db)
		if !ok {
			return
		}
		var buyer domain.User
		if err := db.First(&buyer, order.UserID).Error; err != nil && !isNotFound(err) {
			serverError(c, "Failed to load buyer", err, logrus.Fields{"user_id": order.UserID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "customer": buyer})
	}
}

// UpdateOrderStatusHandler moves an order along the fulfilment workflow
func UpdateOrderStatusHandler(db *gorm.DB, cache *utils.Cache, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidOrderStatus(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		order, ok := loadOrder(c, db)
		if !ok {
			return
		}
		from := order.Status
		err := db.Transaction(func(tx *gorm.DB) error {
			return changeOrderStatus(tx, order, req.Status)
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": from})
				return
			}
			serverError(c, "Failed to update order", err, logrus.Fields{"order_number": order.Number})
			return
		}
		adminID, _ := currentUserID(c)
		logrus.WithFields(logrus.Fields{
			"admin_id":     adminID,      // Acting admin
			"order_number": order.Number, // Order
			"from":         from,         // Previous status
			"to":           order.Status, // New status
		}).Info("Order status changed")
		events.PublishAsync(pub, orderEvent(events.OrderStatusChanged, *order))
		if domain.RestocksOnTransition(order.Status) {
			invalidate(cache, orderCachePrefixes...)
		} else {
			invalidate(cache, cacheDashboard)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order updated", "order": order})
	}
}

// UpdatePaymentStatusHandler records a payment outcome for an order
func UpdatePaymentStatusHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidPaymentStatus(req.PaymentStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment status"})
			return
		}
		order, ok := loadOrder(c, db)
		if !ok {
			return
		}
		if err := db.Model(order).Update("payment_status", req.PaymentStatus).Error; err != nil {
			serverError(c, "Failed to update payment", err, logrus.Fields{"order_number": order.Number})
			return
		}
		order.PaymentStatus = req.PaymentStatus
		logrus.WithFields(logrus.Fields{
			"order_number":   order.Number,
			"payment_status": req.PaymentStatus,
		}).Info("Payment status changed")
		invalidate(cache, cacheDashboard) // Revenue depends on payment status
		c.JSON(http.StatusOK, gin.H{"message": "Payment updated", "order": order})
	}
}
