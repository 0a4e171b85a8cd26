package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter stores a token bucket per client key.
type KeyedRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	r        rate.Limit
	b        int
}

// NewKeyedRateLimiter creates a limiter allowing r events per second with burst b per key.
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the bucket for key, creating it on first use.
func (l *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists = l.limiters[key]; !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[key] = limiter
	}
	return limiter
}

// RateLimiter limits requests per client IP.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return RateLimiterBy(r, b, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimiterBy limits requests per key(c). An empty key falls back to the
// client IP.
func RateLimiterBy(r rate.Limit, b int, key func(*gin.Context) string) gin.HandlerFunc {
	limiter := NewKeyedRateLimiter(r, b)
	return func(c *gin.Context) {
		k := key(c)
		if k == "" {
			k = c.ClientIP()
		}
		if !limiter.GetLimiter(k).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests."})
			return
		}
		c.Next()
	}
}
