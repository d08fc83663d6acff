package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	httpUtil "github.com/sifan077/QRHub/internal/http/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeCounter implements the two redis commands the limiter issues.
type fakeCounter struct {
	redis.Cmdable
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func okHandler(c *fiber.Ctx) error { return c.SendString("ok") }

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	counter := newFakeCounter()
	app := fiber.New()
	app.Use(RateLimit(counter, RateLimitConfig{MaxRequests: 2, Window: time.Minute, KeyPrefix: "t"}, zap.NewNop()))
	app.Get("/", okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		codes = append(codes, resp.StatusCode)
		if i == 0 && resp.Header.Get("X-RateLimit-Remaining") != "1" {
			t.Fatalf("unexpected remaining header %q", resp.Header.Get("X-RateLimit-Remaining"))
		}
	}

	if codes[0] != 200 || codes[1] != 200 || codes[2] != fiber.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
	if len(counter.expires) != 1 {
		t.Fatalf("expected window to be set once, got %v", counter.expires)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")

	app := fiber.New()
	app.Use(RateLimit(counter, RateLimitConfig{MaxRequests: 1}, zap.NewNop()))
	app.Get("/", okHandler)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("expected request to pass when redis is down, got %d", resp.StatusCode)
		}
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	app := fiber.New()
	app.Use(RequestID(), Logger(zap.New(core)))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetRequestID(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", resp.Header.Get(RequestIDHeader))
	}

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "req-123" {
		t.Fatalf("expected request id in log, got %v", entries[0].ContextMap())
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	app := fiber.New()
	app.Use(Recovery(zap.New(core)))
	app.Get("/", func(c *fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatal("expected panic to be logged")
	}
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS([]string{"https://admin.example/"}))
	app.Get("/", okHandler)

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "https://admin.example")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "https://admin.example" {
		t.Fatalf("expected origin to be reflected, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin should not be allowed")
	}
}

func TestRequireSession(t *testing.T) {
	signer := httpUtil.NewSessionSigner([]byte("secret"), time.Hour)

	app := fiber.New()
	app.Use(RequireSession(signer))
	app.Get("/", okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", resp.StatusCode)
	}

	token, err := signer.Issue(SessionSubject)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", SessionCookie+"="+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 with session, got %d", resp.StatusCode)
	}
}
