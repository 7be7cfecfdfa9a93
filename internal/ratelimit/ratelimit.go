// Package ratelimit throttles requests per client IP.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by client IP.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket // per-IP buckets
	max     int                // tokens per window
	per     time.Duration      // window size
	now     func() time.Time
	swept   time.Time
}

type bucket struct {
	ts     time.Time // window start
	tokens int       // remaining tokens
}

// New creates a new IP-based limiter allowing max requests per window
func New(max int, per time.Duration) *Limiter {
	return &Limiter{buckets: map[string]*bucket{}, max: max, per: per, now: time.Now}
}

// Allow spends one token for key and reports whether one was left.
func (r *Limiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	b := r.buckets[key]
	if b == nil || now.Sub(b.ts) > r.per {
		// Start a new window
		b = &bucket{ts: now, tokens: r.max}
		r.buckets[key] = b
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops expired windows at most once per window so idle IPs do not
// accumulate.
func (r *Limiter) sweep(now time.Time) {
	if now.Sub(r.swept) < r.per {
		return
	}
	for k, b := range r.buckets {
		if now.Sub(b.ts) > r.per {
			delete(r.buckets, k)
		}
	}
	r.swept = now
}

// Middleware enforces the rate limit before calling the next handler
func (r *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip = req.RemoteAddr
		}
		if !r.Allow(ip) {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
