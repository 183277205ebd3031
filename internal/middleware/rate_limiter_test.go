package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type limitedRequest struct {
	remoteAddr string
	header     http.Header
}

func serveLimited(e *echo.Echo, handler echo.HandlerFunc, r limitedRequest) int {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.RemoteAddr = r.remoteAddr
	for k, v := range r.header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		return -1
	}
	return rec.Code
}

func TestRateLimiter_BurstThenLimited(t *testing.T) {
	e := echo.New()
	handler := NewIPRateLimiter(2, 4).Middleware()(okHandler)
	client := limitedRequest{remoteAddr: "192.168.1.2:12345"}

	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusOK, serveLimited(e, handler, client), "request %d", i)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.RemoteAddr = client.remoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "SYSTEM_006")
}

func TestRateLimiter_Refills(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return start }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	limiter.now = func() time.Time { return start.Add(time.Second) }
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiter_Defaults(t *testing.T) {
	tests := []struct {
		name      string
		perSecond int
		burst     int
		wantBurst int
	}{
		{"non-positive rate", 0, 0, defaultRatePerSecond},
		{"burst below rate", 8, 3, 8},
		{"explicit burst", 2, 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantBurst, NewIPRateLimiter(tt.perSecond, tt.burst).burst)
		})
	}
}

func TestRateLimiter_KeysOnClientIP(t *testing.T) {
	e := echo.New()
	handler := NewIPRateLimiter(1, 1).Middleware()(okHandler)

	first := limitedRequest{remoteAddr: "10.0.0.9:1000", header: http.Header{"X-Forwarded-For": {"203.0.113.7, 10.0.0.9"}}}
	sameClientOtherProxy := limitedRequest{remoteAddr: "10.0.0.10:2000", header: http.Header{"X-Forwarded-For": {"203.0.113.7"}}}
	otherClient := limitedRequest{remoteAddr: "10.0.0.9:1000", header: http.Header{"X-Real-Ip": {"198.51.100.4"}}}

	assert.Equal(t, http.StatusOK, serveLimited(e, handler, first))
	assert.Equal(t, http.StatusTooManyRequests, serveLimited(e, handler, sameClientOtherProxy))
	assert.Equal(t, http.StatusOK, serveLimited(e, handler, otherClient))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewIPRateLimiter(5, 10)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	limiter.now = func() time.Time { return start }
	limiter.Allow("idle")

	limiter.now = func() time.Time { return start.Add(5 * time.Minute) }
	limiter.Allow("recent")

	assert.Equal(t, 1, limiter.Cleanup(visitorTTL))
	assert.Equal(t, 1, limiter.size())
	assert.Contains(t, limiter.visitors, "recent")
}

func TestRateLimiter_Concurrency(t *testing.T) {
	e := echo.New()
	handler := NewIPRateLimiter(5, 10).Middleware()(okHandler)

	var ok, limited atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch serveLimited(e, handler, limitedRequest{remoteAddr: "192.168.1.100:12345"}) {
			case http.StatusOK:
				ok.Add(1)
			case http.StatusTooManyRequests:
				limited.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Positive(t, ok.Load())
	assert.Positive(t, limited.Load())
	assert.EqualValues(t, 20, ok.Load()+limited.Load())
}
