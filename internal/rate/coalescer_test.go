package rate

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBurstCollapsesToOneRun(t *testing.T) {
	var runs atomic.Int32
	c := NewCoalescer(20*time.Millisecond, func() { runs.Add(1) })
	defer c.Close()

	for i := 0; i < 50; i++ {
		c.Trigger()
	}
	assert.Eventually(t, func() bool { return runs.Load() == 1 && !c.Pending() }, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestTriggersDuringRunScheduleOneFollowUp(t *testing.T) {
	var runs, active, overlap atomic.Int32
	release := make(chan struct{})
	c := NewCoalescer(5*time.Millisecond, func() {
		if active.Add(1) > 1 {
			overlap.Add(1)
		}
		defer active.Add(-1)
		if runs.Add(1) == 1 {
			<-release
		}
	})
	defer c.Close()

	c.Trigger()
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	// Each trigger arms a window that expires while the first run blocks.
	for i := 0; i < 5; i++ {
		c.Trigger()
		time.Sleep(15 * time.Millisecond)
	}
	close(release)

	assert.Eventually(t, func() bool { return !c.Pending() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
	assert.Zero(t, overlap.Load())
}

func TestCloseDropsScheduledRun(t *testing.T) {
	var runs atomic.Int32
	c := NewCoalescer(20*time.Millisecond, func() { runs.Add(1) })
	c.Trigger()
	c.Close()
	c.Trigger()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, runs.Load())
	assert.False(t, c.Pending())
}

func TestDefaultWindow(t *testing.T) {
	c := NewCoalescer(0, func() {})
	assert.Equal(t, DefaultWindow, c.window)
}
