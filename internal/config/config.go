package config

import (
	"fmt"     // For DSN formatting and error wrapping
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"strings" // For splitting list values
	"time"    // For durations

	"github.com/go-playground/validator/v10" // Struct validation
	"github.com/joho/godotenv"               // For loading .env files
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	AppPort string // Application port
	IsProd  bool   // Is production environment

	DBDriver   string `validate:"required,oneof=postgres mysql sqlite"` // Database driver
	DBURL      string // Full connection string, overrides the individual DB fields
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBSSLMode  string // Postgres sslmode

	JWTSecret string        `validate:"required,min=16"` // JWT secret key
	TokenTTL  time.Duration `validate:"gt=0"`            // Lifetime of issued tokens

	RedisAddr string        // Redis server address, empty disables caching
	RedisPass string        // Redis password
	RedisDB   int           // Redis database number
	CacheTTL  time.Duration // Default TTL of cached responses

	CORSOrigins []string // Allowed CORS origins

	LogLevel      string `validate:"oneof=trace debug info warn warning error fatal panic"` // Logrus level
	LogFile       string // Optional rotating log file
	LogMaxSizeMB  int    // Rotate after this many megabytes
	LogMaxBackups int    // Rotated files to keep
	LogMaxAgeDays int    // Days to keep rotated files

	AuthRateLimit float64 `validate:"gt=0"` // Auth requests per second per client
	AuthRateBurst int     `validate:"gt=0"` // Auth request burst per client

	AMQPURL      string // RabbitMQ URL, empty disables event publishing
	AMQPExchange string // Exchange order events are published to

	SendGridKey string // SendGrid API key, empty disables mail
	MailFrom    string // Sender address of outgoing mail

	AIEndpoint string // OpenAI-compatible base URL
	AIKey      string // API key for the summary endpoint
	AIModel    string // Model used for summaries

	FreeShippingThreshold float64 `validate:"gte=0"` // Subtotal above which shipping is free
	FlatShippingFee       float64 `validate:"gte=0"` // Shipping fee below the threshold
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),   // Application port
		IsProd:  os.Getenv("IS_PROD") == "true", // Is production environment

		DBDriver:   getEnv("DB_DRIVER", DriverPostgres), // Database driver
		DBURL:      os.Getenv("DATABASE_URL"),           // Full connection string
		DBUser:     os.Getenv("DB_USER"),                // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),            // Database password
		DBHost:     getEnv("DB_HOST", "localhost"),      // Database host
		DBPort:     os.Getenv("DB_PORT"),                // Database port
		DBName:     getEnv("DB_NAME", "peak_pulse"),     // Database name
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),     // Supabase requires TLS

		JWTSecret: os.Getenv("JWT_SECRET"),                   // JWT secret key
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour), // Issued token lifetime

		RedisAddr: os.Getenv("REDIS_ADDR"),                  // Redis server address
		RedisPass: os.Getenv("REDIS_PASS"),                  // Redis password
		RedisDB:   getEnvInt("REDIS_DB", 0),                 // Redis database number
		CacheTTL:  getEnvDuration("CACHE_TTL", 60*time.Second), // Cached response lifetime

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),

		AuthRateLimit: getEnvFloat("AUTH_RATE_LIMIT", 1),
		AuthRateBurst: getEnvInt("AUTH_RATE_BURST", 5),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "peak_pulse.orders"),

		SendGridKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:    getEnv("MAIL_FROM", "orders@peakpulse.com"),

		AIEndpoint: getEnv("AI_ENDPOINT", "https://api.openai.com/v1"),
		AIKey:      os.Getenv("AI_API_KEY"),
		AIModel:    getEnv("AI_MODEL", "gpt-4o-mini"),

		FreeShippingThreshold: getEnvFloat("FREE_SHIPPING_THRESHOLD", 5000),
		FlatShippingFee:       getEnvFloat("FLAT_SHIPPING_FEE", 150),
	}
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DSN builds the driver specific data source name
func (c *Config) DSN() string {
	if c.DBURL != "" {
		return c.DBURL // Explicit connection string wins
	}
	switch c.DBDriver {
	case DriverMySQL:
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true"
	case DriverSQLite:
		return c.DBName + ".db"
	default:
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DBHost, port, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
	}
}

// getEnv returns the variable or the fallback when unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getEnvList splits a comma separated variable
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
