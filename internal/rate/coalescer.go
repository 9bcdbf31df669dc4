// Package rate throttles work triggered by bursts of events.
package rate

import (
	"sync"
	"time"
)

const DefaultWindow = 250 * time.Millisecond

// Coalescer folds bursts of Trigger calls into single runs of fn. The first
// trigger arms a timer for the window; triggers inside the window ride along.
// At most one run is in flight, and triggers that land during a run cause
// exactly one follow-up run.
type Coalescer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	again   bool
	closed  bool
}

func NewCoalescer(window time.Duration, fn func()) *Coalescer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Coalescer{window: window, fn: fn}
}

func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timer != nil {
		return
	}
	c.timer = time.AfterFunc(c.window, c.fire)
}

// Pending reports whether a run is scheduled or in flight.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil || c.running
}

// Close drops any scheduled run. A run already in flight finishes but does
// not repeat.
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.again = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coalescer) fire() {
	c.mu.Lock()
	c.timer = nil
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.running {
		c.again = true
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	for {
		c.fn()

		c.mu.Lock()
		if c.again && !c.closed {
			c.again = false
			c.mu.Unlock()
			continue
		}
		c.running = false
		c.mu.Unlock()
		return
	}
}
