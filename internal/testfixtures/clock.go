package testfixtures

import (
	"sync"
	"time"
)

// ReferenceTime is the shared anchor for time-dependent tests:
// Sunday 2025-03-02 08:00 local.
func ReferenceTime() time.Time {
	return time.Date(2025, time.March, 2, 8, 0, 0, 0, time.Local)
}

// Clock provides a controllable time source for tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock initialised to the supplied time. When start is
// the zero value, ReferenceTime is used.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}

	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}

	return c.Now
}

// Set updates the clock to the provided time.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by the provided duration and returns the
// updated time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()

	return updated
}
