package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Fixed-window counter: first hit in a window sets the expiry, everything
// past the limit inside the window is rejected.
const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RateLimiter throttles per caller using a Redis-backed fixed window.
type RateLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	limit  int
	window time.Duration
}

// NewRateLimiter builds a limiter. A nil client disables limiting.
func NewRateLimiter(client redis.UniversalClient, limit int, window time.Duration) *RateLimiter {
	if client == nil {
		return nil
	}
	return &RateLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
		limit:  limit,
		window: window,
	}
}

// Allow reports whether another request under key fits in the current window.
// Redis failures fail open; throttling is best effort.
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || l.limit <= 0 || l.window <= 0 {
		return true
	}
	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{key}, ttl, l.limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}

// Limiter is the throttle decision RateLimit consults; tests substitute
// their own.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit keys the window by authenticated user id when present and by
// client IP otherwise, so anonymous callers cannot reset each other's window.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "rate:ip:" + c.ClientIP()
		if value, ok := c.Get(UserIDKey); ok {
			if userID, ok := value.(uint); ok {
				key = fmt.Sprintf("rate:user:%d", userID)
			}
		}

		if !limiter.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
