package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLimiter_BurstThenReject(t *testing.T) {
	l := NewKeyedLimiter(1, 2, 0)
	defer l.Stop()

	ok, info := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, info = l.Allow("a")
	assert.False(t, ok)
	assert.Zero(t, info.Remaining)

	ok, _ = l.Allow("b")
	assert.True(t, ok, "keys are limited independently")
	assert.Equal(t, 2, l.KeyCount())
}

func TestKeyedLimiter_Refill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewKeyedLimiter(2, 1, 0)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("a")
	require.True(t, ok)
	ok, _ = l.Allow("a")
	require.False(t, ok)

	now = now.Add(500 * time.Millisecond)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
}

func TestKeyedLimiter_CleanupEvictsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewKeyedLimiter(1, 1, 0)
	l.idle = time.Minute
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Minute)
	l.Allow("fresh")
	l.cleanup()

	assert.Equal(t, 1, l.KeyCount())
}

func TestKeyedLimiter_StopIsIdempotent(t *testing.T) {
	l := NewKeyedLimiter(1, 1, time.Hour)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestRateLimit_Middleware(t *testing.T) {
	l := NewKeyedLimiter(1, 1, 0)
	r := newEngine(RateLimit(l, RateLimitConfig{}))

	req := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		return req
	}

	w := serve(r, req())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	_, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	assert.NoError(t, err)

	w = serve(r, req())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	other := httptest.NewRequest(http.MethodGet, "/ok", nil)
	other.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, http.StatusOK, serve(r, other).Code)
}

func TestRateLimit_SkipPaths(t *testing.T) {
	l := NewKeyedLimiter(1, 1, 0)
	r := newEngine(RateLimit(l, RateLimitConfig{SkipPaths: []string{"/ok"}}))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil)).Code)
	}
	assert.Zero(t, l.KeyCount())
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	l := NewKeyedLimiter(1, 1, 0)
	r := newEngine(RateLimit(l, RateLimitConfig{
		KeyFunc: func(c *gin.Context) string { return c.GetHeader("X-Device") },
	}))

	for _, device := range []string{"tablet", "phone"} {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Device", device)
		assert.Equal(t, http.StatusOK, serve(r, req).Code, device)
	}
	assert.Equal(t, 2, l.KeyCount())
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	assert.Equal(t, 10.0, cfg.RequestsPerSecond)
	assert.Equal(t, 20, cfg.BurstSize)
	assert.NotNil(t, cfg.KeyFunc)
	assert.Contains(t, cfg.SkipPaths, "/healthz")
}
