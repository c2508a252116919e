package api

import (
	"net/http"                       // HTTP status codes
	"peak_pulse/internal/domain"     // Importing domain models
	"peak_pulse/internal/events"     // Order events
	"peak_pulse/internal/middleware" // Custom package for middleware
	"peak_pulse/internal/notify"     // Order mail
	"peak_pulse/internal/summary"    // Product summaries
	"peak_pulse/internal/utils"      // Utility functions
	"time"                           // Token lifetime

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Deps holds everything the handlers need
type Deps struct {
	DB          *gorm.DB                  // Database handle
	Cache       *utils.Cache              // Response cache, nil disables caching
	Events      events.Publisher          // Order event sink
	Mailer      notify.Mailer             // Outgoing mail
	Summarizer  summary.Summarizer        // Product summary generator
	JWTSecret   string                    // Token signing key
	TokenTTL    time.Duration             // Lifetime of issued tokens
	Shipping    domain.ShippingPolicy     // Used when shipping settings are missing
	AuthLimiter *middleware.IPRateLimiter // Throttles auth endpoints, nil disables it
}

// SetupRoutes registers every endpoint on r
func SetupRoutes(r *gin.Engine, d Deps) {
	db, cache := d.DB, d.Cache
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Mailer == nil {
		d.Mailer = notify.NopMailer{}
	}
	if d.Summarizer == nil {
		d.Summarizer = summary.Extractive{}
	}

	r.GET("/healthz", HealthHandler(db))

	api := r.Group("/api")
	auth := middleware.JWTAuthMiddleware(d.JWTSecret)
	optionalAuth := middleware.OptionalAuthMiddleware(d.JWTSecret)

	// Auth routes, rate limited per client
	authGroup := api.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(d.AuthLimiter.Middleware())
	}
	authGroup.POST("/register", RegisterHandler(db, cache))             // Registration endpoint
	authGroup.POST("/login", LoginHandler(db, d.JWTSecret, d.TokenTTL)) // Login endpoint

	// Catalog
	api.GET("/products", ListProductsHandler(db, cache))
	api.GET("/products/:slug", GetProductHandler(db, cache))
	api.GET("/categories", ListCategoriesHandler(db, cache))
	api.GET("/categories/:slug/products", ListProductsHandler(db, cache))

	// Storefront content
	api.GET("/promos", ListLivePromosHandler(db, cache))
	api.GET("/collabs", ListCollabsHandler(db, cache))
	api.GET("/collabs/:slug", GetCollabHandler(db))
	api.GET("/payment-gateways", ListGatewaysHandler(db, cache))
	api.GET("/settings", PublicSettingsHandler(db, cache))

	// Community feed is public, flags are filled for signed-in readers
	api.GET("/posts", optionalAuth, ListPostsHandler(db))
	api.GET("/posts/:id", optionalAuth, GetPostHandler(db))
	api.GET("/posts/:id/comments", ListCommentsHandler(db))

	// Account routes (protected by JWT)
	me := api.Group("/me", auth)
	me.GET("", GetProfileHandler(db))
	me.PUT("", UpdateProfileHandler(db))
	me.PUT("/password", ChangePasswordHandler(db))
	me.GET("/bookmarks", ListBookmarksHandler(db))

	cart := api.Group("/cart", auth)
	cart.GET("", GetCartHandler(db, d.Shipping))
	cart.POST("", AddToCartHandler(db))
	cart.PUT("/:id", UpdateCartItemHandler(db))
	cart.DELETE("/:id", RemoveCartItemHandler(db))
	cart.DELETE("", ClearCartHandler(db))

	orders := api.Group("/orders", auth)
	orders.POST("", PlaceOrderHandler(db, cache, d.Events, d.Mailer, d.Shipping))
	orders.GET("", ListMyOrdersHandler(db))
	orders.GET("/:number", GetMyOrderHandler(db))
	orders.POST("/:number/cancel", CancelOrderHandler(db, cache, d.Events))

	wishlist := api.Group("/wishlist", auth)
	wishlist.GET("", GetWishlistHandler(db))
	wishlist.POST("", AddToWishlistHandler(db))
	wishlist.DELETE("/:product_id", RemoveFromWishlistHandler(db))
	wishlist.POST("/:product_id/move-to-cart", MoveToCartHandler(db))

	affiliate := api.Group("/affiliate", auth)
	affiliate.POST("/apply", ApplyAffiliateHandler(db))
	affiliate.GET("/me", MyAffiliateHandler(db))

	posts := api.Group("/posts", auth)
	posts.POST("", CreatePostHandler(db))
	posts.DELETE("/:id", DeletePostHandler(db))
	posts.POST("/:id/like", ToggleLikeHandler(db))
	posts.POST("/:id/bookmark", ToggleBookmarkHandler(db))
	posts.POST("/:id/comments", CreateCommentHandler(db))
	api.DELETE("/comments/:id", auth, DeleteCommentHandler(db))

	// Back-office routes for admins and editors
	staff := api.Group("/admin", auth, middleware.StaffMiddleware(db))
	staff.GET("/products", AdminListProductsHandler(db))
	staff.POST("/products", CreateProductHandler(db, cache))
	staff.PUT("/products/:id", UpdateProductHandler(db, cache))
	staff.PATCH("/products/:id/stock", AdjustStockHandler(db, cache))
	staff.POST("/products/:id/summary", GenerateSummaryHandler(db, cache, d.Summarizer))
	staff.POST("/categories", CreateCategoryHandler(db, cache))
	staff.PUT("/categories/:id", UpdateCategoryHandler(db, cache))
	staff.GET("/promos", AdminListPromosHandler(db))
	staff.POST("/promos", CreatePromoHandler(db, cache))
	staff.PUT("/promos/:id", UpdatePromoHandler(db, cache))
	staff.DELETE("/promos/:id", DeletePromoHandler(db, cache))
	staff.GET("/collabs", AdminListCollabsHandler(db))
	staff.POST("/collabs", CreateCollabHandler(db, cache))
	staff.PUT("/collabs/:id", UpdateCollabHandler(db, cache))
	staff.DELETE("/collabs/:id", DeleteCollabHandler(db, cache))

	// Admin routes (protected, admin only)
	admin := api.Group("/admin", auth, middleware.AdminOnlyMiddleware(db))
	admin.GET("/dashboard", DashboardHandler(db, cache))
	admin.DELETE("/products/:id", DeleteProductHandler(db, cache))
	admin.DELETE("/categories/:id", DeleteCategoryHandler(db, cache))

	admin.GET("/orders", ListOrdersHandler(db))
	admin.GET("/orders/:number", AdminGetOrderHandler(db))
	admin.PATCH("/orders/:number/status", UpdateOrderStatusHandler(db, cache, d.Events))
	admin.PATCH("/orders/:number/payment", UpdatePaymentStatusHandler(db, cache))

	admin.GET("/users", ListUsersHandler(db, cache))
	admin.PATCH("/users/:id/role", UpdateUserRoleHandler(db, cache))

	admin.GET("/affiliates", ListAffiliatesHandler(db))
	admin.PATCH("/affiliates/:id", ReviewAffiliateHandler(db))

	admin.GET("/payment-gateways", AdminListGatewaysHandler(db))
	admin.POST("/payment-gateways", CreateGatewayHandler(db, cache))
	admin.PUT("/payment-gateways/:id", UpdateGatewayHandler(db, cache))
	admin.DELETE("/payment-gateways/:id", DeleteGatewayHandler(db, cache))

	admin.GET("/loans", ListLoansHandler(db))
	admin.GET("/loans/summary", LoanSummaryHandler(db))
	admin.POST("/loans", CreateLoanHandler(db))
	admin.GET("/loans/:id", GetLoanHandler(db))
	admin.PUT("/loans/:id", UpdateLoanHandler(db))
	admin.DELETE("/loans/:id", DeleteLoanHandler(db))
	admin.POST("/loans/:id/repayments", AddRepaymentHandler(db))

	admin.GET("/settings", AdminSettingsHandler(db))
	admin.PUT("/settings", UpdateSettingsHandler(db, cache))
}

// HealthHandler reports whether the database is reachable
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
