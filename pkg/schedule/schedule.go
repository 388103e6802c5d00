package schedule

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Scheduler translates a request into zero or more function runs over time.
type Scheduler interface {
	// Schedule submits fn. Depending on the policy it runs now, later, or is
	// superseded by a later submission. It reports false, and drops fn, once
	// the scheduler is stopped.
	Schedule(fn func()) bool

	// Flush runs the pending function synchronously, if any, and reports
	// whether one ran.
	Flush() bool

	// Cancel drops the pending function, if any, and reports whether one
	// was dropped.
	Cancel() bool

	// Pending reports whether a function is waiting to run.
	Pending() bool

	// Stop cancels and makes further Schedule calls no-ops.
	Stop()
}

// Mode names a scheduling policy.
type Mode string

const (
	ModeImmediate Mode = "immediate"
	ModeDebounce  Mode = "debounce"
	ModeThrottle  Mode = "throttle"
)

// Immediate runs every scheduled function synchronously.
type Immediate struct {
	mu      sync.Mutex
	stopped bool
}

// NewImmediate creates an immediate scheduler.
func NewImmediate() *Immediate {
	return &Immediate{}
}

// Schedule runs fn unless the scheduler is stopped.
func (i *Immediate) Schedule(fn func()) bool {
	i.mu.Lock()
	stopped := i.stopped
	i.mu.Unlock()
	if stopped {
		return false
	}
	fn()
	return true
}

// Flush always reports false; nothing is ever pending.
func (i *Immediate) Flush() bool { return false }

// Cancel always reports false; nothing is ever pending.
func (i *Immediate) Cancel() bool { return false }

// Pending always reports false.
func (i *Immediate) Pending() bool { return false }

// Stop makes further Schedule calls no-ops.
func (i *Immediate) Stop() {
	i.mu.Lock()
	i.stopped = true
	i.mu.Unlock()
}

// timerSlot is the single outstanding timer shared by the deferred
// schedulers. gen invalidates callbacks of stopped timers whose goroutine
// already started.
type timerSlot struct {
	clock clock.Clock
	timer *clock.Timer
	gen   uint64
}

// arm starts a new timer and invalidates the previous one.
// The caller holds the owning scheduler's lock.
func (s *timerSlot) arm(d time.Duration, fire func(gen uint64)) {
	s.disarm()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { fire(gen) })
}

// disarm stops the current timer and invalidates its callback.
func (s *timerSlot) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *timerSlot) armed() bool {
	return s.timer != nil
}

func orRealClock(c clock.Clock) clock.Clock {
	if c == nil {
		return clock.New()
	}
	return c
}
