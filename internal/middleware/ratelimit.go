package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedLimiter holds one token bucket per key (client IP or user id).
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &KeyedLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (k *KeyedLimiter) Allow(key string) bool {
	return k.get(key).Allow()
}

func (k *KeyedLimiter) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.rps, k.burst)}
		k.limiters[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// Sweep drops buckets not used within the idle window.
func (k *KeyedLimiter) Sweep() {
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := time.Now().Add(-k.idle)
	for key, e := range k.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(k.limiters, key)
		}
	}
}

// RunSweeper sweeps every interval until stop is closed.
func (k *KeyedLimiter) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			k.Sweep()
		case <-stop:
			return
		}
	}
}

// RateLimit limits by client IP.
func RateLimit(limiter *KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// UserRateLimit limits by authenticated user and falls back to client IP.
func UserRateLimit(limiter *KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := GetUserID(c); id != 0 {
			key = fmt.Sprintf("user:%d", id)
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
