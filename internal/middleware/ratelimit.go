package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig bounds request rates per client IP
type RateLimitConfig struct {
	PerSecond int
	PerMinute int
}

// DefaultRateLimits returns the search API limits
func DefaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		PerSecond: 10,
		PerMinute: 300,
	}
}

// RateLimitMiddleware implements per-IP rate limiting backed by Redis
// counters. When Redis cannot answer, requests pass through rather
// than failing the search path.
func RateLimitMiddleware(rdb *redis.Client, limits RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		ctx := context.Background()
		now := time.Now()

		keySecond := fmt.Sprintf("rl:ip:%s:second:%d", ip, now.Unix())
		keyMinute := fmt.Sprintf("rl:ip:%s:minute:%s", ip, now.Format("2006-01-02T15:04"))

		if limits.PerSecond > 0 {
			countSecond, err := rdb.Incr(ctx, keySecond).Result()
			if err == nil {
				rdb.Expire(ctx, keySecond, 2*time.Second)

				if countSecond > int64(limits.PerSecond) {
					c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
					c.Set("X-RateLimit-Remaining-Second", "0")
					c.Set("Retry-After", "1")

					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":       "rate_limit_exceeded",
						"message":     "Too many requests per second",
						"limit_type":  "per_second",
						"limit":       limits.PerSecond,
						"retry_after": 1,
					})
				}
			}
		}

		if limits.PerMinute > 0 {
			countMinute, err := rdb.Incr(ctx, keyMinute).Result()
			if err == nil {
				rdb.Expire(ctx, keyMinute, 2*time.Minute)

				if countMinute > int64(limits.PerMinute) {
					c.Set("X-RateLimit-Limit-Minute", strconv.Itoa(limits.PerMinute))
					c.Set("X-RateLimit-Remaining-Minute", "0")
					c.Set("Retry-After", "60")

					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":       "rate_limit_exceeded",
						"message":     "Too many requests per minute",
						"limit_type":  "per_minute",
						"limit":       limits.PerMinute,
						"retry_after": 60,
					})
				}
			}
		}

		return c.Next()
	}
}
