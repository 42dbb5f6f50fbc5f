package middleware

import (
	"fmt"
	"time"

	"verifymc/internal/cache"
	"verifymc/internal/domain"
	"verifymc/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RateLimit enforces a fixed-window request limit per client IP for the named
// scope. Counters live in the shared cache so the limit holds across
// instances. When the cache is unreachable the request is allowed: admission
// availability wins over strictness.
func RateLimit(c domain.Cache, scope string, max int, window time.Duration) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if max <= 0 {
			return ctx.Next()
		}

		key := cache.GenerateCacheKey("ratelimit", scope, ctx.IP(),
			fmt.Sprintf("%d", time.Now().UnixMilli()/window.Milliseconds()))

		count, err := c.Incr(ctx.Context(), key)
		if err != nil {
			logger.Get().Warn("Rate limit counter unavailable, allowing request",
				zap.String("scope", scope),
				zap.Error(err))
			return ctx.Next()
		}
		if count == 1 {
			if err := c.Expire(ctx.Context(), key, window); err != nil {
				logger.Get().Warn("Failed to set rate limit window expiry",
					zap.String("scope", scope),
					zap.Error(err))
			}
		}
		if count > int64(max) {
			return domain.NewRateLimitedError("Too many requests, slow down")
		}
		return ctx.Next()
	}
}
