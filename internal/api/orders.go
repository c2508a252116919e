package api

import (
	"errors"                     // Error matching
	"fmt"                        // Error wrapping
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/events" // Order events
	"peak_pulse/internal/notify" // Order mail
	"peak_pulse/internal/utils"  // Utility functions
	"strings"                    // String manipulation
	"time"                       // Timestamps

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// errUnknownPaymentMethod is returned when checkout names a missing or disabled gateway
var errUnknownPaymentMethod = errors.New("payment method not available")

// CheckoutRequest represents a checkout request
type CheckoutRequest struct {
	ShippingName    string `json:"shipping_name" binding:"required,max=255"`    // Recipient
	ShippingPhone   string `json:"shipping_phone" binding:"required,max=32"`    // Recipient phone
	ShippingAddress string `json:"shipping_address" binding:"required,max=512"` // Street address
	ShippingCity    string `json:"shipping_city" binding:"required,max=128"`    // City
	PaymentMethod   string `json:"payment_method" binding:"required,max=32"`    // Gateway code
	Note            string `json:"note" binding:"max=1024"`                     // Buyer note
	AffiliateCode   string `json:"affiliate_code" binding:"max=16"`             // Referral code
}

// orderEvent builds the published payload for an order
func orderEvent(eventType string, o domain.Order) events.OrderEvent {
	return events.OrderEvent{
		Type:        eventType,
		OrderNumber: o.Number,
		Status:      o.Status,
		Total:       o.Total,
		UserID:      o.UserID,
		OccurredAt:  time.Now().UTC(),
	}
}

// placeOrder turns the user's cart into an order inside tx
func placeOrder(tx *gorm.DB, userID uint, req CheckoutRequest, fallback domain.ShippingPolicy) (*domain.Order, error) {
	var gateway domain.PaymentGateway // Payment method must be an enabled gateway
	if err := tx.Where("code = ? AND enabled = ?", strings.ToLower(req.PaymentMethod), true).First(&gateway).Error; err != nil {
		if isNotFound(err) {
			return nil, errUnknownPaymentMethod
		}
		return nil, err
	}
	items, err := loadCart(tx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	// Claim the cart; fewer deleted lines means another checkout took it
	claimed := tx.Where("user_id = ?", userID).Delete(&domain.CartItem{})
	if claimed.Error != nil {
		return nil, claimed.Error
	}
	if claimed.RowsAffected != int64(len(items)) {
		return nil, domain.ErrEmptyCart
	}
	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if !it.Product.IsActive {
			return nil, fmt.Errorf("%s: %w", it.Product.Name, domain.ErrInactiveProduct)
		}
		// Decrement stock only if enough is left; the database arbitrates concurrent checkouts
		res := tx.Model(&domain.Product{}).
			Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
			Update("stock", gorm.Expr("stock - ?", it.Quantity))
		if res.Error != nil {
			return nil, res.Error // Return error to rollback
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("%s: %w", it.Product.Name, domain.ErrOutOfStock)
		}
		unit := it.Product.EffectivePrice()
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			Size:      it.Size,
			Color:     it.Color,
			UnitPrice: unit,
			Quantity:  it.Quantity,
			LineTotal: domain.Round2(unit * float64(it.Quantity)),
		})
	}
	totals := domain.ComputeTotals(items, shippingPolicy(tx, fallback))

	// Only approved affiliates other than the buyer earn commission
	var affiliate *domain.Affiliate
	if code := strings.ToUpper(strings.TrimSpace(req.AffiliateCode)); code != "" {
		var a domain.Affiliate
		err := tx.Where("code = ? AND status = ? AND user_id <> ?", code, domain.AffiliateApproved, userID).First(&a).Error
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if err == nil {
			affiliate = &a
		}
	}

	order := domain.Order{
		Number:          utils.NewOrderNumber(),
		UserID:          userID,
		Status:          domain.OrderPending,
		PaymentMethod:   gateway.Code,
		PaymentStatus:   domain.InitialPaymentStatus(gateway.Code),
		ShippingName:    strings.TrimSpace(req.ShippingName),
		ShippingPhone:   strings.TrimSpace(req.ShippingPhone),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		ShippingCity:    strings.TrimSpace(req.ShippingCity),
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		ShippingFee:     totals.ShippingFee,
		Total:           totals.Total,
		Note:            strings.TrimSpace(req.Note),
		Items:           orderItems,
	}
	if affiliate != nil {
		order.AffiliateCode = affiliate.Code
	}
	// Save order and its items
	if err := tx.Create(&order).Error; err != nil {
		return nil, err
	}
	if affiliate != nil {
		referral := domain.AffiliateReferral{
			AffiliateID: affiliate.ID,
			OrderID:     order.ID,
			OrderTotal:  order.Subtotal,
			Commission:  domain.Commission(order.Subtotal, affiliate.CommissionRate),
		}
		if err := tx.Create(&referral).Error; err != nil {
			return nil, err
		}
	}
	return &order, nil
}

// checkoutStatus maps checkout failures to HTTP statuses
func checkoutStatus(err error) int {
	switch {
	case errors.Is(err, errUnknownPaymentMethod):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrOutOfStock), errors.Is(err, domain.ErrInactiveProduct):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PlaceOrderHandler checks out the caller's cart atomically
func PlaceOrderHandler(db *gorm.DB, cache *utils.Cache, pub events.Publisher, mailer notify.Mailer, fallback domain.ShippingPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req CheckoutRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var order *domain.Order
		// Atomic checkout
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			order, err = placeOrder(tx, userID, req, fallback)
			return err
		})
		// Handle transaction result
		if err != nil {
			if status := checkoutStatus(err); status != http.StatusInternalServerError {
				c.JSON(status, gin.H{"error": err.Error()})
				return
			}
			serverError(c, "Checkout failed", err, logrus.Fields{"user_id": userID})
			return
		}
		// Log successful checkout
		logrus.WithFields(logrus.Fields{
			"user_id":      userID,                          // Buyer
			"order_number": order.Number,                    // Public order number
			"total":        order.Total,                     // Amount due
			"items":        len(order.Items),                // Line count
			"timestamp":    time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Order placed")

		events.PublishAsync(pub, orderEvent(events.OrderPlaced, *order))
		var user domain.User
		if err := db.First(&user, userID).Error; err == nil {
			notify.SendAsync(mailer, notify.OrderConfirmation(user, *order))
		}
		invalidate(cache, orderCachePrefixes...) // Stock levels and order totals changed
		c.JSON(http.StatusCreated, gin.H{"message": "Order placed", "order": order})
	}
}

// ListMyOrdersHandler returns the caller's orders, newest first
func ListMyOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		page := utils.ParsePage(c)
		query := db.Model(&domain.Order{}).Where("user_id = ?", userID).Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count orders", err, logrus.Fields{"user_id": userID})
			return
		}
		var orders []domain.Order
		if err := query.Preload("Items").Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.PageSize).Find(&orders).Error; err != nil {
			serverError(c, "Failed to fetch orders", err, logrus.Fields{"user_id": userID})
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		c.JSON(http.StatusOK, pageResponse("orders", orders, page, total))
	}
}

// GetMyOrderHandler returns one of the caller's orders by number
func GetMyOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var order domain.Order
		if err := db.Preload("Items").Where("number = ? AND user_id = ?", c.Param("number"), userID).First(&order).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// changeOrderStatus applies a workflow transition inside tx, restocking when the goods come back.
// Items must be loaded on order.
func changeOrderStatus(tx *gorm.DB, order *domain.Order, to string) error {
	from := order.Status
	if err := order.Transition(to); err != nil {
		return err
	}
	updates := map[string]any{"status": to}
	if to == domain.OrderCancelled && order.PaymentStatus == domain.PaymentPaid {
		updates["payment_status"] = domain.PaymentRefunded
	}
	// Guard on the previous status so concurrent transitions cannot both apply
	res := tx.Model(&domain.Order{}).Where("id = ? AND status = ?", order.ID, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		order.Status = from
		return fmt.Errorf("order changed concurrently: %w", domain.ErrInvalidTransition)
	}
	if ps, ok := updates["payment_status"].(string); ok {
		order.PaymentStatus = ps
	}
	if domain.RestocksOnTransition(to) {
		for _, it := range order.Items {
			if err := tx.Model(&domain.Product{}).Where("id = ?", it.ProductID).
				Update("stock", gorm.Expr("stock + ?", it.Quantity)).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// CancelOrderHandler lets the buyer cancel an order that has not been processed yet
func CancelOrderHandler(db *gorm.DB, cache *utils.Cache, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var order domain.Order
		if err := db.Preload("Items").Where("number = ? AND user_id = ?", c.Param("number"), userID).First(&order).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		if !order.Cancellable() {
			c.JSON(http.StatusConflict, gin.H{"error": "Order can no longer be cancelled", "status": order.Status})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			return changeOrderStatus(tx, &order, domain.OrderCancelled)
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			serverError(c, "Failed to cancel order", err, logrus.Fields{"order_number": order.Number})
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "order_number": order.Number}).Info("Order cancelled by customer")
		events.PublishAsync(pub, orderEvent(events.OrderStatusChanged, order))
		invalidate(cache, orderCachePrefixes...)
		c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "order": order})
	}
}
