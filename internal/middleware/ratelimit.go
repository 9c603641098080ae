package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit allows at most limit requests per window for each key returned
// by keyFunc, counted in Redis. It is a no-op without Redis and fails open
// on cache errors.
func RateLimit(cache *redis.Client, name string, limit int, window time.Duration, keyFunc func(*fiber.Ctx) string) fiber.Handler {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		key := "rl:" + name + ":" + keyFunc(c)
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, window)
		}
		if cnt > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many "+name+" attempts, try again later")
		}
		return c.Next()
	}
}

// LoginKey keys login attempts by phone, falling back to the client IP.
func LoginKey(c *fiber.Ctx) string {
	var req struct {
		Phone string `json:"phone"`
	}
	_ = c.BodyParser(&req)
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		return phone
	}
	return c.IP()
}

// UserKey keys requests by the authenticated user, falling back to the client IP.
func UserKey(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok && id != "" {
		return id
	}
	return c.IP()
}
