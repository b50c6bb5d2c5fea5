// Package testutil provides deterministic helpers shared by package tests.
package testutil

import (
	"sync"
	"time"
)

// ReferenceTime is the timestamp FixedClock starts at unless told otherwise.
// It renders as "2024-03-09 18:30:00".
var ReferenceTime = time.Date(2024, time.March, 9, 18, 30, 0, 0, time.Local)

// FixedClock is a wall clock that only moves when told to.
//
// It makes generation headers ("// Compiled on ...") reproducible so compiled
// output and pushed documents can be compared byte for byte.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at t. A zero t means ReferenceTime.
func NewFixedClock(t time.Time) *FixedClock {
	if t.IsZero() {
		t = ReferenceTime
	}
	return &FixedClock{now: t}
}

// Now returns the frozen time. Its signature matches time.Now so it can be
// passed wherever a func() time.Time is expected.
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
