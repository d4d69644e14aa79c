package testutil

import (
	"sync"
	"time"
)

// Clock is a controllable time source. Its Now method satisfies the
// func() time.Time hooks that services accept.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to now, or to 2024-01-06 09:00 UTC when no
// time is given.
func NewClock(now ...time.Time) *Clock {
	t := time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)
	if len(now) > 0 {
		t = now[0]
	}
	return &Clock{now: t}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
