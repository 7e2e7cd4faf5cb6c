// Package testutil provides deterministic time sources for tests.
package testutil

import (
	"sync"
	"time"
)

// FrozenClock returns a clock function pinned at a single instant.
//
// Retention cutoffs are computed from "today", so tests that assert on
// purge boundaries must not read the wall clock.
func FrozenClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// ManualClock is a clock that only moves when a test advances it.
//
// Unlike FrozenClock, ManualClock supports tests that span several
// import runs: pin "today", run once, advance past the retention
// window, run again.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock pinned at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current instant without moving the clock.
//
// The method value c.Now satisfies the clock seams on the importer and
// the CLI commands.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
