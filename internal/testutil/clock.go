package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe monotonic logical clock for tests.
//
// Unlike store.SeqClock, DeterministicClock can be reset for test reuse, so
// the same scenario can run twice with identical seq values.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset resets the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// Epoch is the wall time FixedClock starts at when given the zero time.
var Epoch = time.Date(2077, time.January, 1, 0, 0, 0, 0, time.UTC)

// FixedClock is a wall clock that only moves when told to.
//
// Session times and dialogue timestamps derived from it are stable, which
// keeps golden snapshots byte-identical.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at start (Epoch if zero).
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FixedClock{now: start}
}

// Now returns the frozen time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
