package ratelimit

import (
	"sync"
	"time"
)

const gcInterval = 4096 // sweep expired windows every N admissions

// Limiter enforces a fixed request window per key. Callers reject the request
// (429) when Allow returns false.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string]*requestWindow
	calls   int
	nowFn   func() time.Time
}

type requestWindow struct {
	count   int
	resetAt time.Time
}

// New creates a limiter allowing max requests per window per key.
// Defaults: 100 requests per 60 seconds.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		max:     max,
		window:  window,
		windows: make(map[string]*requestWindow),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Allow admits one request for key. A fresh or expired window starts at count
// one; otherwise the count is incremented and checked against the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	l.calls++
	if l.calls%gcInterval == 0 {
		l.sweepLocked(now)
	}
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &requestWindow{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	w.count++
	return w.count <= l.max
}

// RetryAfter returns how long the caller should wait before the window for key
// resets. Zero when the key has no active window.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok {
		return 0
	}
	d := w.resetAt.Sub(l.nowFn())
	if d < 0 {
		return 0
	}
	return d
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
