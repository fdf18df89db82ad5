package testfixtures

import (
	"sync"
	"time"
)

var referenceTime = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime is the instant fixtures and clocks start from.
func ReferenceTime() time.Time {
	return referenceTime
}

// Clock is a manually advanced time source for services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = referenceTime
	}
	return &Clock{now: start}
}

// Now returns the clock's current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
