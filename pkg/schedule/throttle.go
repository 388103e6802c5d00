package schedule

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Throttler runs at most one function per interval.
//
// With leading enabled, the first function of an idle period runs
// immediately and opens a window. Functions scheduled inside the window
// replace a single trailing function, which runs when the window closes and
// opens the next window. With leading disabled every function waits for
// the window boundary. Either way the last scheduled function always runs.
type Throttler struct {
	interval time.Duration
	leading  bool

	mu       sync.Mutex
	slot     timerSlot
	trailing func()
	stopped  bool
}

// NewThrottler creates a throttler. A nil clock uses the real clock.
func NewThrottler(c clock.Clock, interval time.Duration, leading bool) *Throttler {
	return &Throttler{
		interval: interval,
		leading:  leading,
		slot:     timerSlot{clock: orRealClock(c)},
	}
}

// Schedule runs fn now if the throttler is idle and leading is enabled,
// otherwise it becomes the trailing function of the current window.
func (t *Throttler) Schedule(fn func()) bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return false
	}

	if t.slot.armed() {
		t.trailing = fn
		t.mu.Unlock()
		return true
	}

	t.slot.arm(t.interval, t.windowClosed)
	if !t.leading {
		t.trailing = fn
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()

	fn()
	return true
}

// windowClosed runs the trailing function and keeps throttling, or goes
// idle when nothing arrived during the window.
func (t *Throttler) windowClosed(gen uint64) {
	t.mu.Lock()
	if gen != t.slot.gen {
		t.mu.Unlock()
		return
	}
	t.slot.timer = nil

	fn := t.trailing
	if fn == nil {
		t.mu.Unlock()
		return
	}
	t.trailing = nil
	t.slot.arm(t.interval, t.windowClosed)
	t.mu.Unlock()

	fn()
}

// Flush runs the trailing function now. The current window stays open.
func (t *Throttler) Flush() bool {
	t.mu.Lock()
	fn := t.trailing
	t.trailing = nil
	t.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Cancel drops the trailing function and closes the window.
func (t *Throttler) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := t.trailing != nil
	t.trailing = nil
	t.slot.disarm()
	return dropped
}

// Pending reports whether a trailing function is waiting.
func (t *Throttler) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trailing != nil
}

// Stop cancels and ignores later submissions.
func (t *Throttler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.trailing = nil
	t.slot.disarm()
}
