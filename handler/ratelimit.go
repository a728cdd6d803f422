package handler

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go-marketplace-api/common"
	"go-marketplace-api/logger"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows Requests per Window with bursts of up to Burst.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	cfg      RateLimitConfig
	limit    rate.Limit
	limiters sync.Map // map[string]*rate.Limiter

	mu          sync.Mutex
	lastCleanup time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Requests
	}
	return &RateLimiter{
		cfg:         cfg,
		limit:       rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		lastCleanup: time.Now(),
	}
}

// clientIP uses the connection address only. Forwarding headers are client
// controlled and would let a caller pick its own bucket.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.cfg.Burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle buckets (full of tokens) at most every five minutes.
func (rl *RateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.cfg.Burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Middleware rejects requests over the limit with 429. A nil limiter is a no-op.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		l := rl.limiter(key)
		if !l.Allow() {
			reservation := l.Reserve()
			retryAfter := max(int(reservation.Delay().Seconds()), 1)
			reservation.Cancel()

			logger.Log.WithFields(logrus.Fields{
				"client_ip": key,
				"path":      r.URL.Path,
			}).Warn("Rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Requests))
			common.NewAppError(http.StatusTooManyRequests, "Too many requests. Please try again later.", nil).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
