package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strconv"                    // String conversion
	"strings"                    // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// effectivePriceSQL mirrors domain.Product.EffectivePrice for filtering and sorting
const effectivePriceSQL = "CASE WHEN sale_price IS NOT NULL AND sale_price < price THEN sale_price ELSE price END"

// productListParams are the query parameters that shape a product listing
var productListParams = []string{"category", "q", "min_price", "max_price", "size", "featured", "sort", "page", "page_size"}

// filterProducts applies the listing filters from the query string
func filterProducts(db *gorm.DB, c *gin.Context, includeInactive bool) *gorm.DB {
	query := db.Model(&domain.Product{}) // Start building the query
	if !includeInactive {
		query = query.Where("is_active = ?", true) // Storefront only shows active products
	}
	category := c.Query("category")
	if slug := c.Param("slug"); slug != "" {
		category = slug // Category route overrides the query
	}
	if category != "" {
		sub := db.Model(&domain.Category{}).Select("id").Where("slug = ?", category)
		query = query.Where("category_id IN (?)", sub) // Filter by category slug
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern) // Case insensitive search
	}
	if v, err := strconv.ParseFloat(c.Query("min_price"), 64); err == nil {
		query = query.Where(effectivePriceSQL+" >= ?", v) // Lower price bound
	}
	if v, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil {
		query = query.Where(effectivePriceSQL+" <= ?", v) // Upper price bound
	}
	if size := strings.ToLower(strings.TrimSpace(c.Query("size"))); size != "" {
		// Sizes are stored comma separated, match the whole token only
		query = query.Where("(LOWER(sizes) = ? OR LOWER(sizes) LIKE ? OR LOWER(sizes) LIKE ? OR LOWER(sizes) LIKE ?)",
			size, size+",%", "%,"+size, "%,"+size+",%")
	}
	if featured, err := strconv.ParseBool(c.Query("featured")); err == nil {
		query = query.Where("is_featured = ?", featured)
	}
	return query
}

// productOrder maps the sort parameter to an ORDER BY clause
func productOrder(sort string) string {
	switch sort {
	case "price_asc":
		return effectivePriceSQL + " ASC, id ASC"
	case "price_desc":
		return effectivePriceSQL + " DESC, id DESC"
	case "name":
		return "name ASC, id ASC"
	default:
		return "created_at DESC, id DESC" // Newest first
	}
}

// listProducts runs a filtered, sorted and paginated product query
func listProducts(db *gorm.DB, c *gin.Context, includeInactive bool) (gin.H, error) {
	page := utils.ParsePage(c)
	query := filterProducts(db, c, includeInactive).Session(&gorm.Session{}) // Reusable for count and fetch
	var total int64 // Total product count
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var products []domain.Product // Slice to hold products
	if err := query.Preload("Category").
		Order(productOrder(c.Query("sort"))).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&products).Error; err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{} // Serialise as [] rather than null
	}
	return pageResponse("products", products, page, total), nil
}

// ListProductsHandler returns active products with filtering, sorting and pagination
func ListProductsHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheKey := queryKey(c, cacheCatalog+"products:slug="+c.Param("slug")+":", productListParams...)
		if serveCached(c, cache, cacheKey) {
			return
		}
		resp, err := listProducts(db, c, false)
		if err != nil {
			serverError(c, "Failed to fetch products", err, logrus.Fields{"query": c.Request.URL.RawQuery})
			return
		}
		_ = cache.Set(c.Request.Context(), cacheKey, resp, 0) // Cache the response for future requests
		c.JSON(http.StatusOK, resp)
	}
}

// GetProductHandler returns one active product by slug
func GetProductHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		cacheKey := cacheCatalog + "product:" + slug
		if serveCached(c, cache, cacheKey) {
			return
		}
		var product domain.Product
		if err := db.Preload("Category").Where("slug = ? AND is_active = ?", slug, true).First(&product).Error; err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			serverError(c, "Failed to fetch product", err, logrus.Fields{"slug": slug})
			return
		}
		resp := gin.H{"product": product, "cached": false}
		_ = cache.Set(c.Request.Context(), cacheKey, resp, 0)
		c.JSON(http.StatusOK, resp)
	}
}

// ListCategoriesHandler returns every category in menu order
func ListCategoriesHandler(db *gorm.DB, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheKey := cacheCatalog + "categories"
		if serveCached(c, cache, cacheKey) {
			return
		}
		var categories []domain.Category
		if err := db.Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
			serverError(c, "Failed to fetch categories", err, nil)
			return
		}
		if categories == nil {
			categories = []domain.Category{}
		}
		resp := gin.H{"categories": categories, "cached": false}
		_ = cache.Set(c.Request.Context(), cacheKey, resp, 0)
		c.JSON(http.StatusOK, resp)
	}
}
