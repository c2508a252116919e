package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"strings"                    // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// AddToCartRequest represents an add to cart request
type AddToCartRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`      // Product to add
	Size      string `json:"size" binding:"max=16"`              // Chosen size
	Color     string `json:"color" binding:"max=32"`             // Chosen color
	Quantity  int    `json:"quantity" binding:"omitempty,gte=1"` // Units, defaults to 1
}

// UpdateCartRequest sets a cart line's quantity, 0 removes the line
type UpdateCartRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// matchOption finds v in options ignoring case and returns the stored spelling
func matchOption(options []string, v string) (string, bool) {
	v = strings.TrimSpace(v)
	if len(options) == 0 {
		return "", v == ""
	}
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return o, true
		}
	}
	return "", false
}

// loadCart returns the user's cart lines with their products
func loadCart(db *gorm.DB, userID uint) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := db.Preload("Product").Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&items).Error
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, err
}

// GetCartHandler returns the caller's cart with computed totals
func GetCartHandler(db *gorm.DB, fallback domain.ShippingPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		items, err := loadCart(db, userID)
		if err != nil {
			serverError(c, "Failed to fetch cart", err, logrus.Fields{"user_id": userID})
			return
		}
		policy := shippingPolicy(db, fallback)
		c.JSON(http.StatusOK, gin.H{
			"items":    items,                               // Cart lines
			"totals":   domain.ComputeTotals(items, policy), // Priced summary
			"shipping": policy,                              // Applied shipping rule
		})
	}
}

// addToCart validates req against the product and merges it into the user's cart.
// Failures are written to c.
func addToCart(c *gin.Context, db *gorm.DB, userID uint, req AddToCartRequest) (*domain.CartItem, bool) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	var product domain.Product
	if err := db.First(&product, req.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return nil, false
	}
	if !product.IsActive {
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrInactiveProduct.Error()})
		return nil, false
	}
	size, ok := matchOption(product.SizeList(), req.Size)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrUnknownSize.Error(), "sizes": product.SizeList()})
		return nil, false
	}
	color, ok := matchOption(product.ColorList(), req.Color)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "color not offered for this product", "colors": product.ColorList()})
		return nil, false
	}
	var item domain.CartItem
	err := db.Where("user_id = ? AND product_id = ? AND size = ? AND color = ?", userID, product.ID, size, color).First(&item).Error
	if err != nil && !isNotFound(err) {
		serverError(c, "Failed to add to cart", err, logrus.Fields{"user_id": userID})
		return nil, false
	}
	quantity := item.Quantity + req.Quantity
	if quantity > product.Stock {
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrOutOfStock.Error(), "available": product.Stock})
		return nil, false
	}
	if item.ID == 0 {
		item = domain.CartItem{UserID: userID, ProductID: product.ID, Size: size, Color: color, Quantity: quantity}
		err = db.Create(&item).Error
	} else {
		err = db.Model(&item).Update("quantity", quantity).Error
	}
	if err != nil {
		serverError(c, "Failed to add to cart", err, logrus.Fields{"user_id": userID, "product_id": product.ID})
		return nil, false
	}
	item.Quantity = quantity
	item.Product = product
	return &item, true
}

// AddToCartHandler adds a product to the cart, merging with an identical line
func AddToCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req AddToCartRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		item, ok := addToCart(c, db, userID, req)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": item})
	}
}

// UpdateCartItemHandler changes the quantity of one of the caller's cart lines
func UpdateCartItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req UpdateCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var item domain.CartItem
		if err := db.Preload("Product").Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
			return
		}
		if *req.Quantity == 0 {
			if err := db.Delete(&item).Error; err != nil {
				serverError(c, "Failed to update cart", err, logrus.Fields{"user_id": userID})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
			return
		}
		if *req.Quantity > item.Product.Stock {
			c.JSON(http.StatusConflict, gin.H{"error": domain.ErrOutOfStock.Error(), "available": item.Product.Stock})
			return
		}
		if err := db.Model(&item).Update("quantity", *req.Quantity).Error; err != nil {
			serverError(c, "Failed to update cart", err, logrus.Fields{"user_id": userID})
			return
		}
		item.Quantity = *req.Quantity
		c.JSON(http.StatusOK, gin.H{"item": item})
	}
}

// RemoveCartItemHandler deletes one of the caller's cart lines
func RemoveCartItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.CartItem{})
		if res.Error != nil {
			serverError(c, "Failed to remove cart item", res.Error, logrus.Fields{"user_id": userID})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
	}
}

// ClearCartHandler empties the caller's cart
func ClearCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		if err := db.Where("user_id = ?", userID).Delete(&domain.CartItem{}).Error; err != nil {
			serverError(c, "Failed to clear cart", err, logrus.Fields{"user_id": userID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}
