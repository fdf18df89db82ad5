// Package ratelimit counts attempts per key over a sliding window.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most maxReqs attempts per key within window. A nil
// Limiter allows everything.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	maxReqs   int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

// NewLimiter returns nil when maxRequests or window is not positive, which
// disables limiting.
func NewLimiter(maxRequests int, window time.Duration, now func() time.Time) *Limiter {
	if maxRequests <= 0 || window <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		now:     now,
	}
}

// Allow records an attempt for key and reports whether it fits the limit.
// Rejected attempts are not recorded.
func (l *Limiter) Allow(key string) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.requests = l.recent(b.requests, now)
	b.lastSeen = now

	if len(b.requests) >= l.maxReqs {
		return false
	}
	b.requests = append(b.requests, now)
	return true
}

// RetryAfter returns how long key must wait before Allow succeeds again.
func (l *Limiter) RetryAfter(key string) time.Duration {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return 0
	}
	now := l.now()
	reqs := l.recent(b.requests, now)
	if len(reqs) < l.maxReqs {
		return 0
	}
	return reqs[0].Add(l.window).Sub(now)
}

// Reset forgets every attempt recorded for key.
func (l *Limiter) Reset(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *Limiter) recent(requests []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	var reqs []time.Time
	for _, t := range requests {
		if t.After(cutoff) {
			reqs = append(reqs, t)
		}
	}
	return reqs
}

// sweep drops idle buckets at most once per window. Callers hold mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	stale := now.Add(-l.window)
	for key, b := range l.buckets {
		if b.lastSeen.Before(stale) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
