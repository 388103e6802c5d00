package schedule

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Debouncer runs only the most recently scheduled function, once, after
// no new function has been scheduled for the wait duration.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	slot    timerSlot
	pending func()
	stopped bool
}

// NewDebouncer creates a debouncer. A nil clock uses the real clock.
func NewDebouncer(c clock.Clock, wait time.Duration) *Debouncer {
	return &Debouncer{
		wait: wait,
		slot: timerSlot{clock: orRealClock(c)},
	}
}

// Schedule replaces the pending function and restarts the quiet period.
func (d *Debouncer) Schedule(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	d.pending = fn
	d.slot.arm(d.wait, d.fire)
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.slot.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.slot.timer = nil
	d.mu.Unlock()

	fn()
}

// Flush runs the pending function now.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.slot.disarm()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Cancel drops the pending function.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	dropped := d.pending != nil
	d.pending = nil
	d.slot.disarm()
	return dropped
}

// Pending reports whether a function is waiting for the quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop cancels the pending function and ignores later submissions.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = nil
	d.slot.disarm()
}
