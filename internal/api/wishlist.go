package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Upsert clauses
)

// WishlistRequest adds a product to the wishlist
type WishlistRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// MoveToCartRequest picks the options used when a saved product goes to the cart
type MoveToCartRequest struct {
	Size     string `json:"size" binding:"max=16"`
	Color    string `json:"color" binding:"max=32"`
	Quantity int    `json:"quantity" binding:"omitempty,gte=1"`
}

// GetWishlistHandler returns the caller's saved products, newest first
func GetWishlistHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var items []domain.WishlistItem
		if err := db.Preload("Product").Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
			serverError(c, "Failed to fetch wishlist", err, logrus.Fields{"user_id": userID})
			return
		}
		if items == nil {
			items = []domain.WishlistItem{}
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// AddToWishlistHandler saves a product, saving it twice is a no-op
func AddToWishlistHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req WishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var product domain.Product
		if err := db.Where("id = ? AND is_active = ?", req.ProductID, true).First(&product).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		item := domain.WishlistItem{UserID: userID, ProductID: product.ID}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
			serverError(c, "Failed to update wishlist", err, logrus.Fields{"user_id": userID, "product_id": product.ID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Saved to wishlist", "product_id": product.ID})
	}
}

// RemoveFromWishlistHandler drops a saved product
func RemoveFromWishlistHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		productID, ok := paramID(c, "product_id")
		if !ok {
			return
		}
		res := db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&domain.WishlistItem{})
		if res.Error != nil {
			serverError(c, "Failed to update wishlist", res.Error, logrus.Fields{"user_id": userID})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not in wishlist"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist"})
	}
}

// MoveToCartHandler adds a saved product to the cart and removes it from the wishlist
func MoveToCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		productID, ok := paramID(c, "product_id")
		if !ok {
			return
		}
		var req MoveToCartRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
		}
		var saved domain.WishlistItem
		if err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&saved).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not in wishlist"})
			return
		}
		item, ok := addToCart(c, db, userID, AddToCartRequest{
			ProductID: productID,
			Size:      req.Size,
			Color:     req.Color,
			Quantity:  req.Quantity,
		})
		if !ok {
			return // Stays in the wishlist
		}
		if err := db.Delete(&saved).Error; err != nil {
			serverError(c, "Failed to update wishlist", err, logrus.Fields{"user_id": userID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Moved to cart", "item": item})
	}
}
