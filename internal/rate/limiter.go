package rate

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

type bucket struct {
	windowStart time.Time
	count       int
}

// Limiter enforces a per-key sliding-window request budget. Keys are caller
// IPs for anonymous routes and identity ids for authenticated ones.
type Limiter struct {
	cfg   Config
	clock clock.Clock

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// New creates a [Limiter]. A nil clk uses the wall clock.
func New(cfg Config, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{
		cfg:       cfg,
		clock:     clk,
		buckets:   map[string]*bucket{},
		lastSweep: clk.Now(),
	}
}

// Admit records one request for the key. A fresh window starts with count 1
// when the key is unseen or its window has elapsed; otherwise the count is
// incremented and [ErrThrottled] returned once it exceeds the budget.
// Throttling mutates nothing beyond the bucket itself.
func (l *Limiter) Admit(key string) error {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) >= l.cfg.Window {
		l.buckets[key] = &bucket{windowStart: now, count: 1}
		return nil
	}

	b.count++
	if b.count > l.cfg.MaxRequests {
		return ErrThrottled
	}
	return nil
}

// Remaining reports the unused budget for a key in its current window.
func (l *Limiter) Remaining(key string) int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) >= l.cfg.Window {
		return l.cfg.MaxRequests
	}
	if b.count >= l.cfg.MaxRequests {
		return 0
	}
	return l.cfg.MaxRequests - b.count
}

// Reset forgets the key's current window.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// sweepLocked drops elapsed buckets at most once per window to keep the map
// from accumulating one bucket per key ever seen.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.Window {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.cfg.Window {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
