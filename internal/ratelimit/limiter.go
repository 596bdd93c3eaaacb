package ratelimit

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Result represents the result of a rate limit check
type Result struct {
	Limited      bool              // Whether the request is rate limited
	Scope        string            // Which limit decided: route, ip or global
	Remaining    int               // Remaining requests in the current window
	ResetTime    time.Time         // When the current window resets
	RetryAfter   time.Duration     // How long to wait before retrying
	LimitHeaders map[string]string // Rate limit headers to include in response
}

// Key represents a rate limit key
type Key struct {
	IP     string
	Path   string
	Method string
}

// Store defines the interface for rate limit storage
type Store interface {
	// Get retrieves the current count and window reset time for a key
	Get(ctx context.Context, key string) (int, time.Time, error)

	// Increment increments the counter for a key and returns the new count
	Increment(ctx context.Context, key string, resetTime time.Time) (int, error)

	// Reset resets the counter for a key
	Reset(ctx context.Context, key string) error

	Close() error
}

// Limiter defines the interface for rate limiting
type Limiter interface {
	Allow(c *fiber.Ctx) (*Result, error)
	Reset(key *Key) error
	Close() error
}

// Recorder counts rejected requests per scope.
type Recorder interface {
	IncRateLimited(scope string)
}

// Headers for rate limiting
const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

var ErrRateLimitExceeded = fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
