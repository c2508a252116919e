package main

import (
	"context"                        // Redis ping and shutdown deadline
	"errors"                         // Error matching
	"fmt"                            // Error wrapping
	"net/http"                       // HTTP server
	"os"                             // Exit codes and signals
	"os/signal"                      // Signal handling
	"peak_pulse/internal/api"        // Custom package for API handlers
	"peak_pulse/internal/config"     // Custom package for configuration
	"peak_pulse/internal/db"         // Custom package for database access
	"peak_pulse/internal/domain"     // Shipping defaults
	"peak_pulse/internal/events"     // Order events
	"peak_pulse/internal/middleware" // Custom package for middleware
	"peak_pulse/internal/notify"     // Outgoing mail
	"peak_pulse/internal/summary"    // Product summaries
	"peak_pulse/internal/utils"      // Logger and cache
	"syscall"                        // Termination signals
	"time"                           // Timeouts

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	if err := run(); err != nil {
		logrus.WithField("error", err.Error()).Error("Server exited")
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup logger
	if err := utils.SetupLogger(utils.LogOptions{
		Level:      cfg.LogLevel,
		JSON:       cfg.IsProd,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}); err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	// Connect to the database and bring the schema up to date
	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)
	if err := db.Migrate(database); err != nil {
		return err
	}

	deps := api.Deps{
		DB:          database,
		Cache:       connectCache(cfg),
		Events:      connectEvents(cfg),
		Mailer:      newMailer(cfg),
		Summarizer:  summary.New(cfg.AIEndpoint, cfg.AIKey, cfg.AIModel),
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		Shipping:    domain.ShippingPolicy{FreeThreshold: cfg.FreeShippingThreshold, FlatFee: cfg.FlatShippingFee},
		AuthLimiter: middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
	}
	defer deps.Events.Close()

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	api.SetupRoutes(r, deps)

	return serve(r, cfg.AppPort)
}

// connectCache returns a Redis backed cache, or nil when Redis is not configured or unreachable
func connectCache(cfg *config.Config) *utils.Cache {
	if cfg.RedisAddr == "" {
		logrus.Info("Redis not configured, caching disabled")
		return nil
	}
	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.WithFields(logrus.Fields{"addr": cfg.RedisAddr, "error": err.Error()}).Warn("Redis unreachable, caching disabled")
		_ = redisClient.Close()
		return nil
	}
	return utils.NewCache(redisClient, cfg.CacheTTL)
}

// connectEvents returns an AMQP publisher, or a no-op one when RabbitMQ is not configured or unreachable
func connectEvents(cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}
	}
	pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("RabbitMQ unreachable, order events disabled")
		return events.NopPublisher{}
	}
	logrus.WithField("exchange", cfg.AMQPExchange).Info("Publishing order events")
	return pub
}

// newMailer returns a SendGrid mailer when an API key is configured
func newMailer(cfg *config.Config) notify.Mailer {
	if cfg.SendGridKey == "" {
		return notify.NopMailer{}
	}
	return notify.NewSendGridMailer(cfg.SendGridKey, cfg.MailFrom)
}

// serve runs the HTTP server until SIGINT or SIGTERM, then drains it
func serve(handler http.Handler, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logrus.Info("Server running on " + port) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-quit:
		logrus.WithField("signal", sig.String()).Info("Shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logrus.Info("Server stopped")
	return nil
}
