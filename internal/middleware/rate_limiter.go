package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu  sync.Mutex
	ips map[string]*ipLimiter
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{ips: make(map[string]*ipLimiter), r: r, b: b}
}

// PorMinuto builds a limiter allowing n requests per minute with a burst of n.
// n <= 0 disables the limit.
func PorMinuto(n int) *IPRateLimiter {
	if n <= 0 {
		return NewIPRateLimiter(rate.Inf, 1)
	}
	return NewIPRateLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// Allow consumes a token for ip.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	e, ok := l.ips[ip]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.ips[ip] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()
	return e.limiter.Allow()
}

// Purge drops buckets idle for longer than idle.
func (l *IPRateLimiter) Purge(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, e := range l.ips {
		if e.lastSeen.Before(cutoff) {
			delete(l.ips, ip)
			n++
		}
	}
	return n
}

// StartPurge runs Purge every interval until ctx is done.
func (l *IPRateLimiter) StartPurge(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Purge(interval); n > 0 {
					log.Debug().Int("purged", n).Msg("rate limiter: entradas eliminadas")
				}
			}
		}
	}()
}

// RateLimiter is the gin form of IPRateLimiter.
func RateLimiter(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.MsgDemasiados))
			return
		}
		c.Next()
	}
}
