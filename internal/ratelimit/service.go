package ratelimit

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tuncerburak97/vitrin/internal/config"
	"github.com/tuncerburak97/vitrin/internal/requestlog"
)

// Service implements the Limiter interface
type Service struct {
	config *config.RateLimitConfig
	store  Store
	now    func() time.Time
}

// NewService creates a new rate limiter service
func NewService(cfg *config.RateLimitConfig, store Store) *Service {
	return &Service{
		config: cfg,
		store:  store,
		now:    time.Now,
	}
}

// NewStore builds the store selected by cfg.Storage.Type.
func NewStore(cfg *config.RateLimitConfig) (Store, error) {
	if cfg.Storage.Type == "redis" {
		r := cfg.Storage.Redis
		return NewRedisStore(r.Host, r.Port, r.Password, r.DB, r.Timeout)
	}
	return NewMemoryStore(5 * time.Minute), nil
}

// Allow implements the Limiter interface
func (s *Service) Allow(c *fiber.Ctx) (*Result, error) {
	if !s.config.Enabled {
		return &Result{Limited: false}, nil
	}

	// The limiter and the request logger must agree on who the client is.
	key := &Key{
		IP:     requestlog.ClientIP(requestlog.FiberRequest(c)),
		Path:   c.Path(),
		Method: c.Method(),
	}

	if s.config.PerIP.Enabled && s.isWhitelisted(key.IP) {
		return &Result{Limited: false}, nil
	}

	ctx := c.UserContext()

	// Apply rate limits in order: Route -> IP -> Global
	var result *Result
	var err error

	if routeLimit := s.findRouteLimit(key.Method, key.Path); routeLimit != nil {
		result, err = s.checkLimit(ctx, key.withSuffix("route"), "route", routeLimit.Requests, routeLimit.Window, routeLimit.Burst)
		if err != nil || result.Limited {
			return result, err
		}
	}

	if s.config.PerIP.Enabled {
		result, err = s.checkLimit(ctx, "ip:"+key.IP, "ip", s.config.PerIP.Requests, s.config.PerIP.Window, s.config.PerIP.Burst)
		if err != nil || result.Limited {
			return result, err
		}
	}

	return s.checkLimit(ctx, "global", "global", s.config.Global.Requests, s.config.Global.Window, s.config.Global.Burst)
}

// Reset clears the route and per-IP counters for key.
func (s *Service) Reset(key *Key) error {
	ctx := context.Background()
	if err := s.store.Reset(ctx, key.withSuffix("route")); err != nil {
		return err
	}
	return s.store.Reset(ctx, "ip:"+key.IP)
}

// Close implements the Limiter interface
func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) isWhitelisted(ip string) bool {
	for _, whitelistedIP := range s.config.PerIP.WhiteList {
		if strings.Contains(whitelistedIP, "/") {
			_, ipNet, err := net.ParseCIDR(whitelistedIP)
			if err != nil {
				continue
			}
			if parsed := net.ParseIP(ip); parsed != nil && ipNet.Contains(parsed) {
				return true
			}
		} else if ip == whitelistedIP {
			return true
		}
	}
	return false
}

func (s *Service) findRouteLimit(method, path string) *config.RouteLimit {
	var bestMatch *config.RouteLimit

	for i := range s.config.Routes {
		route := &s.config.Routes[i]
		if route.Method != "*" && !strings.EqualFold(route.Method, method) {
			continue
		}
		if !pathMatch(route.Path, path) {
			continue
		}

		if bestMatch == nil || route.Priority > bestMatch.Priority {
			bestMatch = route
			continue
		}

		// If same priority, more specific path wins
		if route.Priority == bestMatch.Priority && len(route.Path) > len(bestMatch.Path) {
			bestMatch = route
		}
	}

	return bestMatch
}

func pathMatch(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}

	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")
	if len(patternParts) != len(pathParts) {
		return false
	}

	for i := range patternParts {
		if patternParts[i] == "*" {
			continue
		}
		if patternParts[i] != pathParts[i] {
			return false
		}
	}
	return true
}

func (s *Service) checkLimit(ctx context.Context, key, scope string, limit int, window time.Duration, burst int) (*Result, error) {
	count, resetTime, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.now()
	// If this is a new window
	if !now.Before(resetTime) {
		resetTime = now.Add(window)
		count = 0
	}

	if count >= limit+burst {
		retryAfter := resetTime.Sub(now)
		return &Result{
			Limited:    true,
			Scope:      scope,
			Remaining:  0,
			ResetTime:  resetTime,
			RetryAfter: retryAfter,
			LimitHeaders: map[string]string{
				HeaderRateLimit:     strconv.Itoa(limit),
				HeaderRateRemaining: "0",
				HeaderRateReset:     strconv.FormatInt(resetTime.Unix(), 10),
				HeaderRetryAfter:    strconv.FormatInt(int64(retryAfter.Seconds()), 10),
			},
		}, nil
	}

	newCount, err := s.store.Increment(ctx, key, resetTime)
	if err != nil {
		return nil, err
	}

	remaining := limit + burst - newCount
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Limited:   false,
		Scope:     scope,
		Remaining: remaining,
		ResetTime: resetTime,
		LimitHeaders: map[string]string{
			HeaderRateLimit:     strconv.Itoa(limit),
			HeaderRateRemaining: strconv.Itoa(remaining),
			HeaderRateReset:     strconv.FormatInt(resetTime.Unix(), 10),
		},
	}, nil
}

func (k *Key) String() string {
	parts := []string{k.Method, k.Path}
	if k.IP != "" {
		parts = append(parts, k.IP)
	}
	return strings.Join(parts, ":")
}

func (k *Key) withSuffix(suffix string) string {
	return fmt.Sprintf("%s:%s", k.String(), suffix)
}
