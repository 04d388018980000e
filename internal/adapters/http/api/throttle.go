package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pitchline/pitchline/pkg/metrics"
)

const (
	defaultThrottleWindow = time.Second
	defaultThrottleMax    = 10

	// Origins idle for this many windows are purged from the table.
	throttleIdleWindows = 10
)

// originWindow holds the recent request timestamps for one origin,
// oldest first.
type originWindow struct {
	hits []time.Time
}

// Throttle applies a sliding-window request budget per origin. An origin
// is the client IP, or the explicit override header when present.
type Throttle struct {
	mu      sync.Mutex
	origins map[string]*originWindow
	window  time.Duration
	max     int
	now     func() time.Time

	lastPurge time.Time
}

// ThrottleOption configures a Throttle.
type ThrottleOption func(*Throttle)

// WithThrottleWindow sets the sliding window length.
func WithThrottleWindow(d time.Duration) ThrottleOption {
	return func(t *Throttle) {
		if d > 0 {
			t.window = d
		}
	}
}

// WithThrottleMax sets the request budget per window.
func WithThrottleMax(n int) ThrottleOption {
	return func(t *Throttle) {
		if n > 0 {
			t.max = n
		}
	}
}

// WithThrottleClock overrides the time source, for tests.
func WithThrottleClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}

// NewThrottle creates a throttle with the given options.
func NewThrottle(opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		origins: make(map[string]*originWindow),
		window:  defaultThrottleWindow,
		max:     defaultThrottleMax,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastPurge = t.now()
	return t
}

// Middleware wraps a handler with the throttle. Rejected requests get
// 429 with a Retry-After hint in seconds.
func (t *Throttle) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := clientOrigin(r)
		ok, retryAfter := t.Allow(origin)
		if !ok {
			metrics.RecordThrottleRejection()
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "throttled", ErrThrottled)
			return
		}
		next(w, r)
	}
}

// Allow records a request for the origin and reports whether it fits the
// current window. When it does not, the second return value is the time
// until the oldest counted request ages out.
func (t *Throttle) Allow(origin string) (bool, time.Duration) {
	now := t.now()
	cutoff := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.maybePurge(now)

	win := t.origins[origin]
	if win == nil {
		win = &originWindow{}
		t.origins[origin] = win
	}

	// Drop entries that fell out of the window.
	i := 0
	for i < len(win.hits) && !win.hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		win.hits = append(win.hits[:0], win.hits[i:]...)
	}

	if len(win.hits) >= t.max {
		return false, win.hits[0].Add(t.window).Sub(now)
	}
	win.hits = append(win.hits, now)
	return true, 0
}

// maybePurge drops origins whose newest hit is older than several
// windows. Runs at most once per window; the caller holds the lock.
func (t *Throttle) maybePurge(now time.Time) {
	if now.Sub(t.lastPurge) < t.window {
		return
	}
	t.lastPurge = now
	cutoff := now.Add(-time.Duration(throttleIdleWindows) * t.window)
	for origin, win := range t.origins {
		if len(win.hits) == 0 || win.hits[len(win.hits)-1].Before(cutoff) {
			delete(t.origins, origin)
		}
	}
}

// clientOrigin resolves the throttle key for a request. X-Forwarded-For
// wins when present so deployments behind a proxy still see real
// clients.
func clientOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
