package api

import (
	"errors"                      // Error matching
	"net/http"                    // HTTP status codes
	"peak_pulse/internal/domain"  // Importing domain models
	"peak_pulse/internal/summary" // Product summaries
	"peak_pulse/internal/utils"   // Utility functions
	"strings"                     // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ProductRequest creates or replaces a product
type ProductRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Slug        string   `json:"slug" binding:"omitempty,max=255"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	SalePrice   *float64 `json:"sale_price" binding:"omitempty,gte=0"`
	Stock       int      `json:"stock" binding:"gte=0"`
	Sizes       []string `json:"sizes"`
	Colors      []string `json:"colors"`
	ImageURL    string   `json:"image_url" binding:"omitempty,url"`
	CategoryID  *uint    `json:"category_id"`
	IsFeatured  bool     `json:"is_featured"`
	IsActive    *bool    `json:"is_active"` // Defaults to true on create
}

// StockRequest adjusts stock by a signed delta
type StockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// CategoryRequest creates or replaces a category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Slug        string `json:"slug" binding:"omitempty,max=128"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
	SortOrder   int    `json:"sort_order"`
}

// resolveSlug returns the requested slug when free, or derives a unique one from name
func resolveSlug(c *gin.Context, db *gorm.DB, model any, requested, name string, excludeID uint) (string, bool) {
	if requested == "" {
		return uniqueSlug(db, model, name, excludeID), true
	}
	slug := utils.Slugify(requested)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slug"})
		return "", false
	}
	var count int64
	q := db.Model(model).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		serverError(c, "Failed to check slug", err, logrus.Fields{"slug": slug})
		return "", false
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Slug already in use"})
		return "", false
	}
	return slug, true
}

// categoryExists writes 400 when a referenced category is missing
func categoryExists(c *gin.Context, db *gorm.DB, id *uint) bool {
	if id == nil {
		return true
	}
	var count int64
	if err := db.Model(&domain.Category{}).Where("id = ?", *id).Count(&count).Error; err != nil || count == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return false
	}
	return true
}

// applyProduct copies the request onto the product
func applyProduct(p *domain.Product, req ProductRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Price = domain.Round2(req.Price)
	p.SalePrice = nil
	if req.SalePrice != nil {
		v := domain.Round2(*req.SalePrice)
		p.SalePrice = &v
	}
	p.Stock = req.Stock
	p.Sizes = domain.JoinList(req.Sizes)
	p.Colors = domain.JoinList(req.Colors)
	p.ImageURL = req.ImageURL
	p.CategoryID = req.CategoryID
	p.IsFeatured = req.IsFeatured
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
}

// AdminListProductsHandler lists products including inactive ones
func AdminListProductsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := listProducts(db, c, true)
		if err != nil {
			serverError(c, "Failed to fetch products", err, nil)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// CreateProductHandler adds a product to the catalog
func CreateProductHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if !categoryExists(c, db, req.CategoryID) {
			return
		}
		slug, ok := resolveSlug(c, db, &domain.Product{}, req.Slug, req.Name, 0)
		if !ok {
			return
		}
		product := domain.Product{Slug: slug, IsActive: true}
		applyProduct(&product, req)
		if err := db.Create(&product).Error; err != nil {
			serverError(c, "Failed to create product", err, logrus.Fields{"slug": slug})
			return
		}
		logrus.WithFields(logrus.Fields{"product_id": product.ID, "slug": slug}).Info("Product created")
		invalidate(cache, cacheCatalog, cacheDashboard)
		c.JSON(http.StatusCreated, gin.H{"product": product})
	}
}

// UpdateProductHandler replaces a product's fields
func UpdateProductHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var product domain.Product
		if err := db.First(&product, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if !categoryExists(c, db, req.CategoryID) {
			return
		}
		slug := product.Slug
		if req.Slug != "" && utils.Slugify(req.Slug) != product.Slug {
			if slug, ok = resolveSlug(c, db, &domain.Product{}, req.Slug, req.Name, id); !ok {
				return
			}
		}
		product.Slug = slug
		applyProduct(&product, req)
		product.Category = nil // Do not upsert the association
		if err := db.Save(&product).Error; err != nil {
			serverError(c, "Failed to update product", err, logrus.Fields{"product_id": id})
			return
		}
		logrus.WithField("product_id", id).Info("Product updated")
		invalidate(cache, cacheCatalog, cacheDashboard)
		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

// DeleteProductHandler removes a product; past orders keep their item snapshots
func DeleteProductHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("product_id = ?", id).Delete(&domain.CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", id).Delete(&domain.WishlistItem{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&domain.Product{}, id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return nil
		})
		if err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			serverError(c, "Failed to delete product", err, logrus.Fields{"product_id": id})
			return
		}
		logrus.WithField("product_id", id).Info("Product deleted")
		invalidate(cache, cacheCatalog, cacheDashboard)
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
	}
}

// AdjustStockHandler adds a signed delta to a product's stock, never going below zero
func AdjustStockHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req StockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Conditional update keeps stock at or above zero
		res := db.Model(&domain.Product{}).
			Where("id = ? AND stock + ? >= 0", id, req.Delta).
			Update("stock", gorm.Expr("stock + ?", req.Delta))
		if res.Error != nil {
			serverError(c, "Failed to adjust stock", res.Error, logrus.Fields{"product_id": id})
			return
		}
		var product domain.Product
		if err := db.First(&product, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Stock cannot go below zero", "stock": product.Stock})
			return
		}
		logrus.WithFields(logrus.Fields{"product_id": id, "delta": req.Delta, "stock": product.Stock}).Info("Stock adjusted")
		invalidate(cache, cacheCatalog, cacheDashboard)
		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

// GenerateSummaryHandler regenerates a product's AI summary from its description
func GenerateSummaryHandler(db *gorm.DB, cache *utils.Cache, summarizer summary.Summarizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var product domain.Product
		if err := db.First(&product, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		text, err := summarizer.Summarize(c.Request.Context(), product.Name, product.Description)
		if err != nil {
			if errors.Is(err, summary.ErrEmptyText) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Product has no description to summarise"})
				return
			}
			serverError(c, "Failed to generate summary", err, logrus.Fields{"product_id": id})
			return
		}
		if err := db.Model(&product).Update("ai_summary", text).Error; err != nil {
			serverError(c, "Failed to store summary", err, logrus.Fields{"product_id": id})
			return
		}
		invalidate(cache, cacheCatalog)
		c.JSON(http.StatusOK, gin.H{"product_id": id, "ai_summary": text})
	}
}

// CreateCategoryHandler adds a category
func CreateCategoryHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		slug, ok := resolveSlug(c, db, &domain.Category{}, req.Slug, req.Name, 0)
		if !ok {
			return
		}
		category := domain.Category{
			Name:        strings.TrimSpace(req.Name),
			Slug:        slug,
			Description: req.Description,
			ImageURL:    req.ImageURL,
			SortOrder:   req.SortOrder,
		}
		if err := db.Create(&category).Error; err != nil {
			serverError(c, "Failed to create category", err, logrus.Fields{"slug": slug})
			return
		}
		invalidate(cache, cacheCatalog)
		c.JSON(http.StatusCreated, gin.H{"category": category})
	}
}

// UpdateCategoryHandler replaces a category's fields
func UpdateCategoryHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var category domain.Category
		if err := db.First(&category, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if req.Slug != "" && utils.Slugify(req.Slug) != category.Slug {
			slug, ok := resolveSlug(c, db, &domain.Category{}, req.Slug, req.Name, id)
			if !ok {
				return
			}
			category.Slug = slug
		}
		category.Name = strings.TrimSpace(req.Name)
		category.Description = req.Description
		category.ImageURL = req.ImageURL
		category.SortOrder = req.SortOrder
		if err := db.Save(&category).Error; err != nil {
			serverError(c, "Failed to update category", err, logrus.Fields{"category_id": id})
			return
		}
		invalidate(cache, cacheCatalog)
		c.JSON(http.StatusOK, gin.H{"category": category})
	}
}

// DeleteCategoryHandler removes a category that no product references
func DeleteCategoryHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var count int64
		if err := db.Model(&domain.Product{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			serverError(c, "Failed to delete category", err, logrus.Fields{"category_id": id})
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Category still has products", "products": count})
			return
		}
		res := db.Delete(&domain.Category{}, id)
		if res.Error != nil {
			serverError(c, "Failed to delete category", res.Error, logrus.Fields{"category_id": id})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		invalidate(cache, cacheCatalog)
		c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
	}
}
