package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store types
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// JWT settings
	JWTSecret              string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration

	// Delivery payload signing (HMAC-SHA256 over the grant reference)
	PayloadSecret string

	// OTP settings
	OTPLength     int
	OTPExpiration time.Duration

	// Share grant settings
	GrantMaxExpiry     time.Duration // Upper bound for expires_in (default: 168h)
	GrantDefaultExpiry time.Duration
	GrantRetention     time.Duration // How long dead grants are kept before GC

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Audit logging
	EnableAuditLogging bool
	AuditLogBufferSize int
	AuditLogRetention  time.Duration

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateInterval time.Duration

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	RateLimitCleanupInterval time.Duration
	LoginRateLimit           int // requests per minute
	RefreshRateLimit         int
	RedeemRateLimit          int

	// Redis (only used when RateLimitStore = "redis")
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Record metadata cache
	RecordCacheTTL time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "healthbook.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		JWTSecret:              getEnv("JWT_SECRET", "your-256-bit-secret-change-in-production"),
		AccessTokenExpiration:  getEnvDuration("ACCESS_TOKEN_EXPIRATION", time.Hour),
		RefreshTokenExpiration: getEnvDuration("REFRESH_TOKEN_EXPIRATION", 720*time.Hour), // 30 days

		PayloadSecret: getEnv("PAYLOAD_SECRET", "payload-secret-change-in-production"),

		OTPLength:     getEnvInt("OTP_LENGTH", 6),
		OTPExpiration: getEnvDuration("OTP_EXPIRATION", 10*time.Minute),

		GrantMaxExpiry:     getEnvDuration("GRANT_MAX_EXPIRY", 168*time.Hour), // 7 days
		GrantDefaultExpiry: getEnvDuration("GRANT_DEFAULT_EXPIRY", 24*time.Hour),
		GrantRetention:     getEnvDuration("GRANT_RETENTION", 2160*time.Hour), // 90 days

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 8760*time.Hour), // 1 year

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", true),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", time.Minute),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		LoginRateLimit:           getEnvInt("LOGIN_RATE_LIMIT", 10),
		RefreshRateLimit:         getEnvInt("REFRESH_RATE_LIMIT", 30),
		RedeemRateLimit:          getEnvInt("REDEEM_RATE_LIMIT", 20),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RecordCacheTTL: getEnvDuration("RECORD_CACHE_TTL", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

