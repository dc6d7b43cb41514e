package bootstrap

import (
	"log"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/config"
	"github.com/tpri2322-commits/patient-digi-health-book/internal/middleware"

	"github.com/gin-gonic/gin"
)

// routeLimiters holds the per-endpoint rate limit middleware
type routeLimiters struct {
	login   gin.HandlerFunc
	refresh gin.HandlerFunc
	redeem  gin.HandlerFunc
}

// noLimit passes every request through
func noLimit(c *gin.Context) {
	c.Next()
}

// setupRateLimiting builds the per-route limiters over one shared store
func setupRateLimiting(cfg *config.Config) (routeLimiters, error) {
	if !cfg.EnableRateLimit {
		log.Println("Rate limiting disabled")
		return routeLimiters{login: noLimit, refresh: noLimit, redeem: noLimit}, nil
	}

	factory, err := middleware.NewRateLimiterFactory(middleware.RateLimitConfig{
		StoreType:       cfg.RateLimitStore,
		CleanupInterval: cfg.RateLimitCleanupInterval,
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		RedisDB:         cfg.RedisDB,
	})
	if err != nil {
		return routeLimiters{}, err
	}

	log.Printf("Rate limiting enabled (store=%s, login=%d/min, refresh=%d/min, redeem=%d/min)",
		cfg.RateLimitStore, cfg.LoginRateLimit, cfg.RefreshRateLimit, cfg.RedeemRateLimit)

	return routeLimiters{
		login:   factory.PerMinute("login", cfg.LoginRateLimit),
		refresh: factory.PerMinute("refresh", cfg.RefreshRateLimit),
		redeem:  factory.PerMinute("redeem", cfg.RedeemRateLimit),
	}, nil
}
