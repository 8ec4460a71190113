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
	// Max requests per window. Zero or negative disables limiting.
	Max int
	// Window length.
	Window time.Duration
	// KeyFunc picks the client key. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// slidingWindow approximates a sliding window from the counts of the current
// and the previous fixed window. Windows start at a client's first request.
type slidingWindow struct {
	start time.Time
	curr  float64
	prev  float64
}

func (sw *slidingWindow) advance(now time.Time, window time.Duration) {
	elapsed := now.Sub(sw.start)
	switch {
	case elapsed < window:
		return
	case elapsed < 2*window:
		sw.prev = sw.curr
		sw.start = sw.start.Add(window)
	default:
		sw.prev = 0
		sw.start = now
	}
	sw.curr = 0
}

func (sw *slidingWindow) estimate(now time.Time, window time.Duration) float64 {
	weight := 1 - now.Sub(sw.start).Seconds()/window.Seconds()
	return sw.prev*max(weight, 0) + sw.curr
}

type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	windows map[string]*slidingWindow
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &limiter{cfg: cfg, windows: make(map[string]*slidingWindow)}
}

// take records a request for key when it fits in the limit.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw, found := l.windows[key]
	if !found {
		sw = &slidingWindow{start: now}
		l.windows[key] = sw
	}
	sw.advance(now, l.cfg.Window)

	reset = sw.start.Add(l.cfg.Window)
	used := sw.estimate(now, l.cfg.Window)
	if used >= float64(l.cfg.Max) {
		return 0, reset, false
	}
	sw.curr++
	return max(int(float64(l.cfg.Max)-used-1), 0), reset, true
}

// sweep drops windows that carry no weight any more.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, sw := range l.windows {
		if now.Sub(sw.start) >= 2*l.cfg.Window {
			delete(l.windows, key)
		}
	}
}

// RateLimit limits requests per client key. Rejected requests get 429 with a
// JSON body; every response carries the X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine that drops stale client
// windows until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	if cfg.Window > 0 {
		go func() {
			ticker := time.NewTicker(2 * cfg.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					l.sweep(now)
				}
			}
		}()
	}
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	if l.cfg.Max <= 0 || l.cfg.Window <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		remaining, reset, ok := l.take(l.cfg.KeyFunc(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !ok {
			wait := max(reset.Sub(now), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
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
