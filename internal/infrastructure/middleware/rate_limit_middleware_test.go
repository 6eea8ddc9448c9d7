package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"framewire/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func rateLimitedRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewHTTPRateLimitMiddleware(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func get(router http.Handler, remote string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remote
	router.ServeHTTP(w, req)
	return w
}

func TestHTTPRateLimitMiddleware_Disabled_AllowsRequests(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = false
	router := rateLimitedRouter(cfg)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1234").Code)
	}
}

func TestHTTPRateLimitMiddleware_Enabled_RateLimited(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 1
	cfg.RateLimiting.HTTP.Burst = 1
	router := rateLimitedRouter(cfg)

	assert.Equal(t, http.StatusOK, get(router, "10.0.0.1:1234").Code)

	w := get(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, get(router, "10.0.0.2:1234").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "192.168.1.5", clientIP(req))
}

func TestRateLimiterStore_EvictsIdleEntries(t *testing.T) {
	now := time.Unix(1700000000, 0)
	store := newRateLimiterStore(rate.Limit(1), 1)
	store.now = func() time.Time { return now }

	store.getLimiter("a")
	store.getLimiter("b")
	require.Equal(t, 2, store.size())

	now = now.Add(2 * limiterIdleTTL)
	store.getLimiter("c")
	assert.Equal(t, 1, store.size())
}

func TestConnectionLimiter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 10
	cfg.RateLimiting.WebSocket.MaxConcurrent = 1
	l := NewConnectionLimiter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/ws/metrics", nil)
	release, err := l.Acquire(req)
	require.Nil(t, err)

	_, err = l.Acquire(req)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)

	release()
	release()
	release2, err := l.Acquire(req)
	require.Nil(t, err)
	release2()

	var disabled *ConnectionLimiter
	release3, err := disabled.Acquire(req)
	assert.Nil(t, err)
	release3()
}
