package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const staleClientTTL = 10 * time.Minute

type RateLimiter struct {
	mu        sync.Mutex
	rate      int
	burst     int
	tokens    map[string]int
	lastTime  map[string]time.Time
	lastSweep time.Time
}

func NewRateLimiter(rate, burst int) *RateLimiter {
	return &RateLimiter{
		rate:      rate,
		burst:     burst,
		tokens:    make(map[string]int),
		lastTime:  make(map[string]time.Time),
		lastSweep: time.Now(),
	}
}

// sweep drops clients that have been idle long enough to be fully refilled.
// Caller must hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < staleClientTTL {
		return
	}
	for ip, last := range rl.lastTime {
		if now.Sub(last) > staleClientTTL {
			delete(rl.tokens, ip)
			delete(rl.lastTime, ip)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		now := time.Now()
		rl.sweep(now)

		if _, exists := rl.tokens[ip]; !exists {
			rl.tokens[ip] = rl.burst
			rl.lastTime[ip] = now
		}

		elapsed := now.Sub(rl.lastTime[ip])
		rl.lastTime[ip] = now

		tokensToAdd := int(elapsed.Seconds()) * rl.rate
		rl.tokens[ip] += tokensToAdd
		if rl.tokens[ip] > rl.burst {
			rl.tokens[ip] = rl.burst
		}

		if rl.tokens[ip] <= 0 {
			rl.mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		rl.tokens[ip]--
		rl.mu.Unlock()

		c.Next()
	}
}
