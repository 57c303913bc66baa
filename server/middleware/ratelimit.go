package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/authweave/idkit/errors"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the per-key budget (default 60).
	RequestsPerMinute int

	// KeyFunc extracts the rate limit key from a request. Defaults to the
	// client IP, which is the right key for unauthenticated login traffic.
	KeyFunc func(*gin.Context) string
}

// RateLimit returns a Gin middleware applying per-key sliding-window rate
// limiting.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	rl := &slidingWindow{
		seen:  make(map[string][]time.Time),
		limit: cfg.RequestsPerMinute,
	}
	go rl.evictLoop()

	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c)) {
			c.Header("Retry-After", "60")
			appErr := apperrors.New(apperrors.ErrCodeInvalidRequest,
				"too many requests, slow down", http.StatusTooManyRequests)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

type slidingWindow struct {
	mu    sync.Mutex
	seen  map[string][]time.Time
	limit int
}

func (rl *slidingWindow) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-time.Minute)
	live := keepAfter(rl.seen[key], cutoff)
	if len(live) >= rl.limit {
		rl.seen[key] = live
		return false
	}
	rl.seen[key] = append(live, time.Now())
	return true
}

// evictLoop drops idle keys so the map does not grow with every client IP
// ever seen.
func (rl *slidingWindow) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-time.Minute)
		for key, times := range rl.seen {
			live := keepAfter(times, cutoff)
			if len(live) == 0 {
				delete(rl.seen, key)
			} else {
				rl.seen[key] = live
			}
		}
		rl.mu.Unlock()
	}
}

func keepAfter(times []time.Time, cutoff time.Time) []time.Time {
	var out []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}
