package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds fixed-window rate limiting settings.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultRateLimitConfig allows 100 requests per client IP every 15 minutes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 100,
		Window:      15 * time.Minute,
		KeyPrefix:   "qrhub:ratelimit",
	}
}

// RateLimit counts requests per client IP in Redis. Redis failures let the
// request through.
func RateLimit(client redis.Cmdable, cfg RateLimitConfig, logger *zap.Logger) fiber.Handler {
	defaults := DefaultRateLimitConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := cfg.KeyPrefix + ":" + c.IP()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Error("rate limit redis error", zap.Error(err))
			return c.Next()
		}

		if count == 1 {
			if err := client.Expire(ctx, key, cfg.Window).Err(); err != nil {
				logger.Warn("failed to set rate limit window", zap.String("key", key), zap.Error(err))
			}
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, cfg.MaxRequests-int(count))))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(cfg.Window).Unix(), 10))

		if count > int64(cfg.MaxRequests) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}
