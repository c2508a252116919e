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

// GatewayRequest creates or updates a payment gateway; nil fields are left unchanged on update
type GatewayRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=64"`
	Code         *string `json:"code" binding:"omitempty,max=32"`
	Enabled      *bool   `json:"enabled"`
	PublicKey    *string `json:"public_key" binding:"omitempty,max=255"`
	SecretKey    *string `json:"secret_key" binding:"omitempty,max=255"` // Never echoed back
	Instructions *string `json:"instructions"`
	SortOrder    *int    `json:"sort_order"`
}

// PublicGateway is what shoppers see of a gateway
type PublicGateway struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	Instructions string `json:"instructions"`
}

// AdminGateway reports whether a secret is configured without revealing it
type AdminGateway struct {
	domain.PaymentGateway
	HasSecret bool `json:"has_secret"`
}

func toAdminGateway(g domain.PaymentGateway) AdminGateway {
	return AdminGateway{PaymentGateway: g, HasSecret: g.SecretKey != ""}
}

// ListGatewaysHandler returns the enabled gateways offered at checkout
func ListGatewaysHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheKey := cacheContent + "gateways"
		if serveCached(c, cache, cacheKey) {
			return
		}
		var gateways []domain.PaymentGateway
		if err := db.Where("enabled = ?", true).Order("sort_order ASC, id ASC").Find(&gateways).Error; err != nil {
			serverError(c, "Failed to fetch payment gateways", err, nil)
			return
		}
		resp := make([]PublicGateway, len(gateways))
		for i, g := range gateways {
			resp[i] = PublicGateway{Name: g.Name, Code: g.Code, Instructions: g.Instructions}
		}
		respData := gin.H{"gateways": resp, "cached": false}
		_ = cache.Set(c.Request.Context(), cacheKey, respData, 0)
		c.JSON(http.StatusOK, respData)
	}
}

// AdminListGatewaysHandler returns every gateway
func AdminListGatewaysHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var gateways []domain.PaymentGateway
		if err := db.Order("sort_order ASC, id ASC").Find(&gateways).Error; err != nil {
			serverError(c, "Failed to fetch payment gateways", err, nil)
			return
		}
		resp := make([]AdminGateway, len(gateways))
		for i, g := range gateways {
			resp[i] = toAdminGateway(g)
		}
		c.JSON(http.StatusOK, gin.H{"gateways": resp})
	}
}

// applyGateway copies the set request fields onto g
func applyGateway(req GatewayRequest, g *domain.PaymentGateway) {
	if req.Name != nil {
		g.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		g.Code = strings.ToLower(strings.TrimSpace(*req.Code))
	}
	if req.Enabled != nil {
		g.Enabled = *req.Enabled
	}
	if req.PublicKey != nil {
		g.PublicKey = *req.PublicKey
	}
	if req.SecretKey != nil {
		g.SecretKey = *req.SecretKey
	}
	if req.Instructions != nil {
		g.Instructions = *req.Instructions
	}
	if req.SortOrder != nil {
		g.SortOrder = *req.SortOrder
	}
}

// gatewayCodeTaken reports whether another gateway uses code
func gatewayCodeTaken(db *gorm.DB, code string, excludeID uint) (bool, error) {
	var count int64
	err := db.Model(&domain.PaymentGateway{}).Where("code = ? AND id <> ?", code, excludeID).Count(&count).Error
	return count > 0, err
}

// CreateGatewayHandler adds a payment gateway
func CreateGatewayHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GatewayRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Name == nil || req.Code == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name and code are required"})
			return
		}
		var gateway domain.PaymentGateway
		applyGateway(req, &gateway)
		if gateway.Name == "" || gateway.Code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name and code are required"})
			return
		}
		taken, err := gatewayCodeTaken(db, gateway.Code, 0)
		if err != nil {
			serverError(c, "Failed to create payment gateway", err, logrus.Fields{"code": gateway.Code})
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Gateway code already in use"})
			return
		}
		if err := db.Create(&gateway).Error; err != nil {
			serverError(c, "Failed to create payment gateway", err, logrus.Fields{"code": gateway.Code})
			return
		}
		logrus.WithFields(logrus.Fields{"code": gateway.Code, "enabled": gateway.Enabled}).Info("Payment gateway created")
		invalidate(cache, cacheContent)
		c.JSON(http.StatusCreated, gin.H{"gateway": toAdminGateway(gateway)})
	}
}

// UpdateGatewayHandler changes the given fields of a payment gateway
func UpdateGatewayHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req GatewayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var gateway domain.PaymentGateway
		if err := db.First(&gateway, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment gateway not found"})
			return
		}
		applyGateway(req, &gateway)
		if gateway.Name == "" || gateway.Code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name and code are required"})
			return
		}
		taken, err := gatewayCodeTaken(db, gateway.Code, gateway.ID)
		if err != nil {
			serverError(c, "Failed to update payment gateway", err, logrus.Fields{"gateway_id": id})
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Gateway code already in use"})
			return
		}
		if err := db.Save(&gateway).Error; err != nil {
			serverError(c, "Failed to update payment gateway", err, logrus.Fields{"gateway_id": id})
			return
		}
		logrus.WithFields(logrus.Fields{"code": gateway.Code, "enabled": gateway.Enabled}).Info("Payment gateway updated")
		invalidate(cache, cacheContent)
		c.JSON(http.StatusOK, gin.H{"gateway": toAdminGateway(gateway)})
	}
}

// DeleteGatewayHandler removes a payment gateway
func DeleteGatewayHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		res := db.Delete(&domain.PaymentGateway{}, id)
		if res.Error != nil {
			serverError(c, "Failed to delete payment gateway", res.Error, logrus.Fields{"gateway_id": id})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment gateway not found"})
			return
		}
		invalidate(cache, cacheContent)
		c.JSON(http.StatusOK, gin.H{"message": "Payment gateway deleted"})
	}
}
