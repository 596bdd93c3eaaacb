package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/tuncerburak97/vitrin/internal/config"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStoreGetMissingKey(t *testing.T) {
	store, _ := newRedisStore(t)

	count, _, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if count != 0 {
		t.Errorf("want 0 for missing key, got %d", count)
	}
}

func TestRedisStoreWindow(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	reset := time.Now().Add(time.Minute)
	for want := 1; want <= 3; want++ {
		got, err := store.Increment(ctx, "k", reset)
		if err != nil || got != want {
			t.Fatalf("Increment: want %d, got %d (%v)", want, got, err)
		}
	}

	if !mr.Exists(redisKeyPrefix + "k") {
		t.Fatalf("want key stored under %q, have %v", redisKeyPrefix, mr.Keys())
	}
	if ttl := mr.TTL(redisKeyPrefix + "k"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("want ttl within the window, got %v", ttl)
	}

	count, resetTime, err := store.Get(ctx, "k")
	if err != nil || count != 3 {
		t.Fatalf("Get: want 3, got %d (%v)", count, err)
	}
	if !resetTime.After(time.Now()) {
		t.Errorf("want reset time in the future, got %v", resetTime)
	}

	// An elapsed window starts over.
	mr.FastForward(2 * time.Minute)
	if count, _, _ := store.Get(ctx, "k"); count != 0 {
		t.Errorf("want 0 after expiry, got %d", count)
	}
	if got, _ := store.Increment(ctx, "k", time.Now().Add(time.Minute)); got != 1 {
		t.Errorf("want new window to start at 1, got %d", got)
	}
}

func TestRedisStoreReset(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if _, err := store.Increment(ctx, "k", time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := store.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if mr.Exists(redisKeyPrefix + "k") {
		t.Error("want key deleted")
	}
	if count, _, _ := store.Get(ctx, "k"); count != 0 {
		t.Errorf("want 0 after reset, got %d", count)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Error("Get: want error with redis down")
	}
	if _, err := store.Increment(ctx, "k", time.Now().Add(time.Minute)); err == nil {
		t.Error("Increment: want error with redis down")
	}
	if err := store.Reset(ctx, "k"); err == nil {
		t.Error("Reset: want error with redis down")
	}
}

func TestMiddlewareWithRedisStore(t *testing.T) {
	store, mr := newRedisStore(t)

	cfg := &config.RateLimitConfig{Enabled: true}
	cfg.Global.Requests = 100
	cfg.Global.Window = time.Minute
	cfg.PerIP.Enabled = true
	cfg.PerIP.Requests = 2
	cfg.PerIP.Window = time.Minute
	svc := NewService(cfg, store)
	rec := countingRecorder{}

	app := fiber.New()
	app.Use(Middleware(svc, rec))
	app.Get("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 2; i++ {
		if resp := do(t, app, "/", "1.2.3.4"); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: want 200, got %d", i, resp.StatusCode)
		}
	}
	resp := do(t, app, "/", "1.2.3.4")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get(HeaderRateRemaining) != "0" {
		t.Errorf("want remaining 0, got %q", resp.Header.Get(HeaderRateRemaining))
	}
	if rec["ip"] != 1 {
		t.Errorf("want 1 ip rejection, got %v", rec)
	}
	if !mr.Exists(redisKeyPrefix + "ip:1.2.3.4") {
		t.Errorf("want per-ip counter in redis, have %v", mr.Keys())
	}
}
