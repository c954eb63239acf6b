package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

// RateLimiter is a per-client token bucket. Each client IP gets a bucket of
// perMinute tokens that refills continuously; an empty bucket answers 429.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute float64
	now       func() time.Time
	done      chan struct{}
	once      sync.Once
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// allowResult carries the decision and the header values for one request.
type allowResult struct {
	allowed   bool
	remaining float64
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
// perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: float64(perMinute),
		now:       time.Now,
		done:      make(chan struct{}),
	}
	if perMinute > 0 {
		go rl.cleanup()
	}
	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

// RateLimit returns Gin middleware that enforces the per-client limit.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.perMinute <= 0 {
			c.Next()
			return
		}

		result := rl.allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(int(rl.perMinute)))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(result.remaining)))

		if !result.allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Rate limit exceeded. Try again later.",
				Code:    http.StatusTooManyRequests,
			})
			return
		}
		c.Next()
	}
}

// allow consumes a token for key when one is available.
func (rl *RateLimiter) allow(key string) allowResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.perMinute, lastRefill: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastRefill).Minutes() * rl.perMinute
	if b.tokens > rl.perMinute {
		b.tokens = rl.perMinute
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return allowResult{allowed: false, remaining: 0}
	}
	b.tokens--
	return allowResult{allowed: true, remaining: b.tokens}
}

// cleanup periodically removes idle buckets to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, b := range rl.buckets {
				if now.Sub(b.lastRefill) > 10*time.Minute {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
