package ratelimit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Middleware creates a new rate limit middleware. A failing store lets the
// request through rather than taking the site down with it.
func Middleware(limiter Limiter, recorder Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := limiter.Allow(c)
		if err != nil {
			log.Warn().Err(err).Str("path", c.Path()).Msg("Rate limit check failed, allowing request")
			return c.Next()
		}

		for header, value := range result.LimitHeaders {
			c.Set(header, value)
		}

		if result.Limited {
			if recorder != nil {
				recorder.IncRateLimited(result.Scope)
			}
			return ErrRateLimitExceeded
		}

		return c.Next()
	}
}
