package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// HeaderClientID identifies a browser across requests. It scopes stored preferences.
const HeaderClientID = "X-Client-ID"

// DefaultClientID is used when a request carries no client id.
const DefaultClientID = "default"

// ClientID returns the request's client id, or DefaultClientID.
func ClientID(c *gin.Context) string {
	if id := c.GetHeader(HeaderClientID); id != "" {
		return id
	}
	return DefaultClientID
}

// ClientRateLimiter keeps one token bucket per client. Buckets idle for the TTL are dropped.
type ClientRateLimiter struct {
	limiters *cache.Cache
	r        rate.Limit
	b        int
}

// NewClientRateLimiter creates a new ClientRateLimiter.
func NewClientRateLimiter(r rate.Limit, b int, ttl time.Duration) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: cache.New(ttl, 2*ttl),
		r:        r,
		b:        b,
	}
}

// GetLimiter returns the limiter for a key, creating it on first use.
func (l *ClientRateLimiter) GetLimiter(key string) *rate.Limiter {
	if v, found := l.limiters.Get(key); found {
		limiter := v.(*rate.Limiter)
		l.limiters.SetDefault(key, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	if err := l.limiters.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, found := l.limiters.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// RateLimiter is a middleware limiting requests per client IP. X-Client-ID is chosen by the
// client and never selects a bucket.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b, 10*time.Minute)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
