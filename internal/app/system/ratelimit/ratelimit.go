// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use. Expired windows are swept opportunistically on access,
// so the limiter owns no goroutine and needs no teardown.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration

	nextSweep time.Time
}

type bucket struct {
	count    int
	resetsAt time.Time
}

// New creates a limiter allowing limit requests per key per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*bucket),
		limit:     limit,
		window:    window,
		nextSweep: time.Now().Add(2 * window),
	}
}

// Allow records a request for key and reports whether it is within the
// limit for the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetsAt) {
		l.buckets[key] = &bucket{count: 1, resetsAt: now.Add(l.window)}
		return true
	}
	if b.count >= l.limit {
		return false
	}
	b.count++
	return true
}

// Remaining reports how many requests key has left in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || time.Now().After(b.resetsAt) {
		return l.limit
	}
	if left := l.limit - b.count; left > 0 {
		return left
	}
	return 0
}

// Reset clears the count for key. Called after a successful login so a
// correct password is never blocked by earlier typos.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// sweep drops expired buckets. Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for key, b := range l.buckets {
		if now.After(b.resetsAt) {
			delete(l.buckets, key)
		}
	}
	l.nextSweep = now.Add(2 * l.window)
}

// ClientIP extracts the client IP from an HTTP request, preferring the
// X-Forwarded-For and X-Real-IP headers set by proxies, then falling
// back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
