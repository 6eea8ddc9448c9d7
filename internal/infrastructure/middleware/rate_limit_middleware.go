package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"framewire/pkg/config"
	"framewire/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore stores per-key (for example, per IP) rate limiters.
// Entries idle for longer than limiterIdleTTL are dropped on access.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burstSize int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiterStore(r rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  make(map[string]*limiterEntry),
		rate:      r,
		burstSize: burst,
		now:       time.Now,
	}
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	entry, exists := s.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rate, s.burstSize)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (s *rateLimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// clientIP extracts the caller IP, honouring the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple IP-based rate limiting.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	store := newRateLimiterStore(rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond), cfg.RateLimiting.HTTP.Burst)

	var globalSem chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		globalSem = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if globalSem != nil {
			select {
			case globalSem <- struct{}{}:
				defer func() { <-globalSem }()
			default:
				abortWith(c, errors.NewServiceUnavailableError("too many concurrent requests"))
				return
			}
		}

		if !store.getLimiter(clientIP(c.Request)).Allow() {
			c.Header("Retry-After", "1")
			abortWith(c, errors.NewRateLimitError())
			return
		}
		c.Next()
	}
}

// ConnectionLimiter bounds websocket connections per IP per minute and overall.
type ConnectionLimiter struct {
	store *rateLimiterStore
	sem   chan struct{}
}

// NewConnectionLimiter returns nil when rate limiting is disabled; a nil limiter admits everything.
func NewConnectionLimiter(cfg *config.Config) *ConnectionLimiter {
	if !cfg.RateLimiting.Enabled {
		return nil
	}
	perMinute := cfg.RateLimiting.WebSocket.ConnectionsPerMinute
	l := &ConnectionLimiter{
		store: newRateLimiterStore(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
	if limit := cfg.RateLimiting.WebSocket.MaxConcurrent; limit > 0 {
		l.sem = make(chan struct{}, limit)
	}
	return l
}

// Acquire admits one connection from r. The returned release must be called
// when the connection closes.
func (l *ConnectionLimiter) Acquire(r *http.Request) (release func(), err *errors.AppError) {
	if l == nil {
		return func() {}, nil
	}
	if !l.store.getLimiter(clientIP(r)).Allow() {
		return nil, errors.NewRateLimitError()
	}
	if l.sem == nil {
		return func() {}, nil
	}
	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.sem }) }, nil
	default:
		return nil, errors.NewServiceUnavailableError("too many concurrent connections")
	}
}
