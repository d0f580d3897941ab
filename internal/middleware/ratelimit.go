package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-directory-api/pkg/errors"
	"github.com/noah-isme/academic-directory-api/pkg/response"
)

type rateLimiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type rateLimitRecorder interface {
	RecordRateLimited()
}

// RateLimitConfig sets a fixed window budget per client IP for one route group.
type RateLimitConfig struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RateLimit rejects clients that exceed Limit requests per Window with 429. Limiter
// failures let the request through.
func RateLimit(limiter rateLimiter, cfg RateLimitConfig, metrics rateLimitRecorder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if cfg.Limit <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}
		count, reset, err := limiter.Hit(c.Request.Context(), cfg.Name+":"+c.ClientIP(), cfg.Window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("limiter", cfg.Name), zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(cfg.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		resetSeconds := strconv.Itoa(int(reset.Round(time.Second) / time.Second))
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", resetSeconds)

		if count > int64(cfg.Limit) {
			if metrics != nil {
				metrics.RecordRateLimited()
			}
			c.Header("Retry-After", resetSeconds)
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
