package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tuncerburak97/vitrin/internal/config"
)

type countingRecorder map[string]int

func (r countingRecorder) IncRateLimited(scope string) { r[scope]++ }

func newApp(t *testing.T, cfg *config.RateLimitConfig, rec Recorder) *fiber.App {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	svc := NewService(cfg, store)
	t.Cleanup(func() { svc.Close() })

	app := fiber.New()
	app.Use(Middleware(svc, rec))
	app.Get("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func do(t *testing.T, app *fiber.App, path, ip string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestGlobalLimit(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true}
	cfg.Global.Requests = 2
	cfg.Global.Window = time.Minute
	rec := countingRecorder{}
	app := newApp(t, cfg, rec)

	for i := 0; i < 2; i++ {
		if resp := do(t, app, "/", ""); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: want 200, got %d", i, resp.StatusCode)
		}
	}

	resp := do(t, app, "/", "")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get(HeaderRateRemaining) != "0" {
		t.Errorf("want remaining 0, got %q", resp.Header.Get(HeaderRateRemaining))
	}
	if resp.Header.Get(HeaderRetryAfter) == "" {
		t.Error("want Retry-After header")
	}
	if rec["global"] != 1 {
		t.Errorf("want 1 global rejection, got %v", rec)
	}
}

func TestPerIPLimitUsesResolvedClientIP(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true}
	cfg.Global.Requests = 100
	cfg.Global.Window = time.Minute
	cfg.PerIP.Enabled = true
	cfg.PerIP.Requests = 1
	cfg.PerIP.Window = time.Minute
	cfg.PerIP.WhiteList = []string{"192.168.0.0/16", "8.8.8.8"}
	rec := countingRecorder{}
	app := newApp(t, cfg, rec)

	if resp := do(t, app, "/", "1.2.3.4"); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if resp := do(t, app, "/", "1.2.3.4"); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429 for repeated client, got %d", resp.StatusCode)
	}
	// Same proxy hop, different client.
	if resp := do(t, app, "/", "5.6.7.8"); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 for other client, got %d", resp.StatusCode)
	}
	for i := 0; i < 3; i++ {
		if resp := do(t, app, "/", "192.168.1.20"); resp.StatusCode != http.StatusOK {
			t.Fatalf("want whitelisted cidr client allowed, got %d", resp.StatusCode)
		}
		if resp := do(t, app, "/", "8.8.8.8"); resp.StatusCode != http.StatusOK {
			t.Fatalf("want whitelisted client allowed, got %d", resp.StatusCode)
		}
	}
	if rec["ip"] != 1 {
		t.Errorf("want 1 ip rejection, got %v", rec)
	}
}

func TestRouteLimit(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true}
	cfg.Global.Requests = 100
	cfg.Global.Window = time.Minute
	cfg.Routes = []config.RouteLimit{
		{Path: "/lm-app/*", Method: "GET", Requests: 1, Window: time.Minute},
	}
	app := newApp(t, cfg, nil)

	if resp := do(t, app, "/lm-app/13000", "1.1.1.1"); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if resp := do(t, app, "/lm-app/13000", "1.1.1.1"); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", resp.StatusCode)
	}
	if resp := do(t, app, "/", "1.1.1.1"); resp.StatusCode != http.StatusOK {
		t.Fatalf("want unrelated route allowed, got %d", resp.StatusCode)
	}
}

func TestDisabledAllowsEverything(t *testing.T) {
	app := newApp(t, &config.RateLimitConfig{}, nil)
	for i := 0; i < 5; i++ {
		if resp := do(t, app, "/", ""); resp.StatusCode != http.StatusOK {
			t.Fatalf("want 200, got %d", resp.StatusCode)
		}
	}
}

func TestFindRouteLimitPriority(t *testing.T) {
	cfg := &config.RateLimitConfig{
		Routes: []config.RouteLimit{
			{Path: "/a/*", Method: "*", Requests: 1},
			{Path: "/a/b", Method: "GET", Requests: 2},
			{Path: "/a/*", Method: "GET", Requests: 3, Priority: 5},
		},
	}
	s := NewService(cfg, nil)

	got := s.findRouteLimit("GET", "/a/b")
	if got == nil || got.Requests != 3 {
		t.Errorf("want highest priority route, got %+v", got)
	}
	got = s.findRouteLimit("POST", "/a/b")
	if got == nil || got.Requests != 1 {
		t.Errorf("want wildcard method route, got %+v", got)
	}
	if got := s.findRouteLimit("GET", "/c"); got != nil {
		t.Errorf("want no route, got %+v", got)
	}
}

func TestMemoryStoreWindow(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	reset := time.Now().Add(time.Minute)
	for want := 1; want <= 3; want++ {
		got, err := s.Increment(ctx, "k", reset)
		if err != nil || got != want {
			t.Fatalf("Increment: want %d, got %d (%v)", want, got, err)
		}
	}
	count, resetTime, err := s.Get(ctx, "k")
	if err != nil || count != 3 || !resetTime.Equal(reset) {
		t.Errorf("Get: want 3 %v, got %d %v (%v)", reset, count, resetTime, err)
	}

	if err := s.Reset(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if count, _, _ := s.Get(ctx, "k"); count != 0 {
		t.Errorf("want 0 after reset, got %d", count)
	}

	// Expired windows start over.
	if _, err := s.Increment(ctx, "old", time.Now().Add(-time.Second)); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Increment(ctx, "old", reset); got != 1 {
		t.Errorf("want expired window to restart at 1, got %d", got)
	}
}

func TestResetClearsClientCounters(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: true}
	cfg.Global.Requests = 100
	cfg.Global.Window = time.Minute
	cfg.PerIP.Enabled = true
	cfg.PerIP.Requests = 1
	cfg.PerIP.Window = time.Minute
	cfg.Routes = []config.RouteLimit{
		{Path: "/lm-app/*", Method: "GET", Requests: 1, Window: time.Minute},
	}
	svc := NewService(cfg, NewMemoryStore(time.Minute))
	defer svc.Close()

	app := fiber.New()
	app.Use(Middleware(svc, nil))
	app.Get("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })

	if resp := do(t, app, "/lm-app/13000", "1.2.3.4"); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if resp := do(t, app, "/lm-app/13000", "1.2.3.4"); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", resp.StatusCode)
	}

	if err := svc.Reset(&Key{IP: "1.2.3.4", Path: "/lm-app/13000", Method: "GET"}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if resp := do(t, app, "/lm-app/13000", "1.2.3.4"); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 after reset, got %d", resp.StatusCode)
	}
}
