package testfixtures

import (
	"sync"
	"time"
)

// Clock is a mutable time source for tests. It never ticks on its own; tests
// move it with Set or Advance.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock at the given instant. The zero value starts at the
// shared ReferenceTime.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now reports the instant the clock currently holds.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc adapts the clock to the `func() time.Time` shape the services take.
// A nil clock falls back to real time.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to the given instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()
	return updated
}

// Current is an alias for Now used where the test reads the time without
// implying progression.
func (c *Clock) Current() time.Time {
	return c.Now()
}
