// Package ratelimit provides a small keyed minimum-interval limiter for the
// warranty status lookup path.
package ratelimit

import (
	"sync"
	"time"
)

// Key distinguishes an email-based from a code-based lookup so the two kinds
// never share a window.
type Key struct {
	Kind  string
	Value string
}

// Limiter enforces a fixed minimum interval between lookups sharing a key.
// Stale entries are evicted on the way through, so the map stays bounded by
// the number of keys seen within one window.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	seen     map[Key]time.Time
	now      func() time.Time

	lastSweep time.Time
}

func New(interval time.Duration) *Limiter {
	return NewWithClock(interval, time.Now)
}

// NewWithClock exists for tests that need a controllable clock.
func NewWithClock(interval time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		interval: interval,
		seen:     make(map[Key]time.Time),
		now:      now,
	}
}

// Allow records a lookup for key if the interval has passed since the last
// one. On rejection it returns false and the remaining wait.
func (l *Limiter) Allow(key Key) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.seen[key]; ok {
		if elapsed := now.Sub(last); elapsed < l.interval {
			return false, l.interval - elapsed
		}
	}
	l.seen[key] = now
	l.sweepLocked(now)
	return true, 0
}

// sweepLocked drops entries that can no longer reject anything. Runs at most
// once per interval so hot paths pay nothing most of the time.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.interval {
		return
	}
	l.lastSweep = now
	for k, t := range l.seen {
		if now.Sub(t) >= l.interval {
			delete(l.seen, k)
		}
	}
}
