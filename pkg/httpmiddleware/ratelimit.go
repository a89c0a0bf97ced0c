package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-key token bucket limiter.
type RateLimitConfig struct {
	// Max is the bucket capacity: the number of requests a key may burst
	// before being throttled. Tokens refill continuously at Max per Window.
	Max int
	// Window is the time it takes an empty bucket to refill completely.
	Window time.Duration
	// KeyFunc extracts the throttling key from a request. Nil means the
	// client IP.
	KeyFunc func(*http.Request) string
}

// bucket is the token state for one key.
type bucket struct {
	tokens float64
	filled time.Time
}

type limiter struct {
	cfg  RateLimitConfig
	rate float64 // tokens per second
	now  func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &limiter{
		cfg:     cfg,
		rate:    float64(cfg.Max) / cfg.Window.Seconds(),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// take attempts to consume one token for key. It reports the tokens left,
// the instant the bucket is full again, and whether the request may proceed.
func (l *limiter) take(key string) (remaining int, fullAt time.Time, ok bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{tokens: float64(l.cfg.Max), filled: now}
		l.buckets[key] = b
	} else {
		b.tokens += now.Sub(b.filled).Seconds() * l.rate
		if b.tokens > float64(l.cfg.Max) {
			b.tokens = float64(l.cfg.Max)
		}
		b.filled = now
	}

	if b.tokens < 1 {
		fullAt = now.Add(l.untilFull(b))
		return 0, fullAt, false
	}

	b.tokens--
	fullAt = now.Add(l.untilFull(b))
	return int(b.tokens), fullAt, true
}

func (l *limiter) untilFull(b *bucket) time.Duration {
	missing := float64(l.cfg.Max) - b.tokens
	return time.Duration(missing / l.rate * float64(time.Second))
}

// sweep drops buckets that have been full for a while. A full bucket holds
// no history, so dropping it is free.
func (l *limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		refilled := b.tokens + now.Sub(b.filled).Seconds()*l.rate
		if refilled >= float64(l.cfg.Max) {
			delete(l.buckets, key)
		}
	}
}

// RateLimit throttles requests per key with a token bucket. Throttled
// requests get 429 with a JSON body; every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset.
//
// Stale buckets are never evicted. Use RateLimitWithCleanup on long-running
// servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return throttle(newLimiter(cfg))
}

// RateLimitWithCleanup is RateLimit plus a background sweeper that drops
// refilled buckets every two windows. The sweeper exits when ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
	return throttle(l)
}

func throttle(l *limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, fullAt, ok := l.take(l.cfg.KeyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(fullAt.Unix(), 10))

			if !ok {
				// One token is enough to let the next request through.
				retryAfter := math.Ceil(1 / l.rate)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    429,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the caller's address, preferring X-Forwarded-For and
// X-Real-IP set by the ingress over the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
