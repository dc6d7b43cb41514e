package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitConfig selects the backing store shared by all per-route
// limiters. Memory is fine for a single instance; Redis keeps the limits
// global across replicas.
type RateLimitConfig struct {
	StoreType       string // "memory" or "redis"
	CleanupInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// RateLimiterFactory builds per-route limiters over one shared store so
// the login, refresh, and redeem endpoints can carry different budgets.
type RateLimiterFactory struct {
	store limiter.Store
}

func NewRateLimiterFactory(config RateLimitConfig) (*RateLimiterFactory, error) {
	var store limiter.Store

	switch config.StoreType {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.RedisAddr, err)
		}

		var err error
		store, err = limiterRedis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:          "ratelimit",
			CleanUpInterval: config.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}

	default:
		store = memory.NewStore()
	}

	return &RateLimiterFactory{store: store}, nil
}

// PerMinute returns a middleware allowing requestsPerMinute requests per
// client IP, keyed by the given route prefix.
func (f *RateLimiterFactory) PerMinute(prefix string, requestsPerMinute int) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(requestsPerMinute),
	}

	instance := limiter.New(f.store, rate)
	return mgin.NewMiddleware(instance,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return prefix + ":" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		}),
	)
}
