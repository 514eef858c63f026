package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window. Zero disables
	// limiting.
	Max    int
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window counts requests of one key in the current and previous fixed
// windows. The effective count weighs the previous window by its overlap
// with the sliding window ending now.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

// Limiter is a per-key sliding window rate limiter.
type Limiter struct {
	max  int
	size time.Duration

	mu   sync.Mutex
	keys map[string]*window
}

// NewLimiter creates a limiter allowing limit requests per size.
func NewLimiter(limit int, size time.Duration) *Limiter {
	return &Limiter{max: limit, size: size, keys: make(map[string]*window)}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Allow records a request for key at now.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.keys[key]
	if !ok {
		w = &window{start: now.Truncate(l.size)}
		l.keys[key] = w
	}
	if elapsed := now.Sub(w.start); elapsed >= l.size {
		if elapsed >= 2*l.size {
			w.prev = 0
		} else {
			w.prev = w.curr
		}
		w.curr = 0
		w.start = now.Truncate(l.size)
	}

	overlap := 1 - float64(now.Sub(w.start))/float64(l.size)
	effective := w.prev*max(overlap, 0) + w.curr
	reset := w.start.Add(l.size)

	if effective >= float64(l.max) {
		return Decision{Reset: reset}
	}
	w.curr++
	return Decision{
		Allowed:   true,
		Remaining: max(int(float64(l.max)-effective-1), 0),
		Reset:     reset,
	}
}

// Sweep drops keys idle for two windows.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.keys {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.keys, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// RunSweeper sweeps l every two windows until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(2 * l.size)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// RateLimit enforces cfg with a fresh limiter. See RateLimitWith.
func RateLimit(cfg RateLimitConfig) Middleware {
	return RateLimitWith(NewLimiter(cfg.Max, cfg.Window), cfg.KeyFunc)
}

// RateLimitWith responds 429 with a JSON error once key exceeds the limit.
// Every response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset.
func RateLimitWith(l *Limiter, keyFunc func(*http.Request) string) Middleware {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(next http.Handler) http.Handler {
		if l.max <= 0 {
			return next
		}
		limit := strconv.Itoa(l.max)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			d := l.Allow(keyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				wait := max(d.Reset.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
