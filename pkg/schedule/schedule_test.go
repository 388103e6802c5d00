package schedule

import (
	"reflect"
	"testing"
	"time"

	"github.com/facebookgo/clock"
)

type recorder struct {
	calls []string
}

func (r *recorder) fn(name string) func() {
	return func() { r.calls = append(r.calls, name) }
}

func TestImmediateRunsSynchronously(t *testing.T) {
	s := NewImmediate()
	rec := &recorder{}

	s.Schedule(rec.fn("a"))
	s.Schedule(rec.fn("b"))
	if !reflect.DeepEqual(rec.calls, []string{"a", "b"}) {
		t.Fatalf("calls: got %v", rec.calls)
	}
	if s.Pending() || s.Flush() || s.Cancel() {
		t.Error("immediate scheduler should never have pending work")
	}

	s.Stop()
	if s.Schedule(rec.fn("c")) {
		t.Error("Schedule after Stop: got accepted")
	}
	if len(rec.calls) != 2 {
		t.Errorf("Schedule after Stop ran: %v", rec.calls)
	}
}

func TestDebouncerRunsOnlyLast(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, 500*time.Millisecond)
	rec := &recorder{}

	d.Schedule(rec.fn("1"))
	mock.Add(100 * time.Millisecond)
	d.Schedule(rec.fn("2"))

	mock.Add(499 * time.Millisecond)
	if len(rec.calls) != 0 {
		t.Fatalf("ran before quiet period elapsed: %v", rec.calls)
	}
	if !d.Pending() {
		t.Fatal("Pending: got false, want true")
	}

	mock.Add(1 * time.Millisecond)
	if !reflect.DeepEqual(rec.calls, []string{"2"}) {
		t.Fatalf("calls: got %v, want [2]", rec.calls)
	}
	if d.Pending() {
		t.Error("Pending after fire: got true")
	}

	mock.Add(time.Second)
	if len(rec.calls) != 1 {
		t.Errorf("ran more than once: %v", rec.calls)
	}
}

func TestDebouncerCancel(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, 100*time.Millisecond)
	rec := &recorder{}

	d.Schedule(rec.fn("x"))
	if !d.Cancel() {
		t.Error("Cancel: got false, want true")
	}
	if d.Cancel() {
		t.Error("second Cancel: got true, want false")
	}

	mock.Add(time.Second)
	if len(rec.calls) != 0 {
		t.Errorf("canceled function ran: %v", rec.calls)
	}
}

func TestDebouncerFlush(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, 100*time.Millisecond)
	rec := &recorder{}

	if d.Flush() {
		t.Error("Flush with nothing pending: got true")
	}

	d.Schedule(rec.fn("x"))
	if !d.Flush() {
		t.Fatal("Flush: got false, want true")
	}
	if !reflect.DeepEqual(rec.calls, []string{"x"}) {
		t.Fatalf("calls: got %v", rec.calls)
	}

	mock.Add(time.Second)
	if len(rec.calls) != 1 {
		t.Errorf("flushed function ran again: %v", rec.calls)
	}
}

func TestDebouncerStop(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, 100*time.Millisecond)
	rec := &recorder{}

	if !d.Schedule(rec.fn("x")) {
		t.Error("Schedule before Stop: got rejected")
	}
	d.Stop()
	d.Stop()
	if d.Schedule(rec.fn("y")) {
		t.Error("Schedule after Stop: got accepted")
	}

	mock.Add(time.Second)
	if len(rec.calls) != 0 {
		t.Errorf("stopped debouncer ran: %v", rec.calls)
	}
	if d.Pending() {
		t.Error("Pending after Stop: got true")
	}
}

func TestThrottlerLeadingAndTrailing(t *testing.T) {
	mock := clock.NewMock()
	th := NewThrottler(mock, 100*time.Millisecond, true)
	rec := &recorder{}

	th.Schedule(rec.fn("1"))
	if !reflect.DeepEqual(rec.calls, []string{"1"}) {
		t.Fatalf("leading call did not run immediately: %v", rec.calls)
	}

	mock.Add(10 * time.Millisecond)
	th.Schedule(rec.fn("2"))
	mock.Add(10 * time.Millisecond)
	th.Schedule(rec.fn("3"))
	if len(rec.calls) != 1 {
		t.Fatalf("in-window calls ran early: %v", rec.calls)
	}

	mock.Add(80 * time.Millisecond)
	if !reflect.DeepEqual(rec.calls, []string{"1", "3"}) {
		t.Fatalf("trailing: got %v, want [1 3]", rec.calls)
	}

	// The trailing run opened a new window; a call inside it is deferred.
	th.Schedule(rec.fn("4"))
	if len(rec.calls) != 2 {
		t.Fatalf("call inside trailing window ran early: %v", rec.calls)
	}
	mock.Add(100 * time.Millisecond)
	if !reflect.DeepEqual(rec.calls, []string{"1", "3", "4"}) {
		t.Fatalf("second trailing: got %v", rec.calls)
	}

	// A quiet window lets the throttler go idle; the next call leads again.
	mock.Add(100 * time.Millisecond)
	th.Schedule(rec.fn("5"))
	if !reflect.DeepEqual(rec.calls, []string{"1", "3", "4", "5"}) {
		t.Fatalf("leading after idle: got %v", rec.calls)
	}
}

func TestThrottlerTrailingOnly(t *testing.T) {
	mock := clock.NewMock()
	th := NewThrottler(mock, 100*time.Millisecond, false)
	rec := &recorder{}

	th.Schedule(rec.fn("1"))
	th.Schedule(rec.fn("2"))
	if len(rec.calls) != 0 {
		t.Fatalf("trailing-only throttler ran immediately: %v", rec.calls)
	}

	mock.Add(100 * time.Millisecond)
	if !reflect.DeepEqual(rec.calls, []string{"2"}) {
		t.Fatalf("calls: got %v, want [2]", rec.calls)
	}
}

func TestThrottlerCancelAndFlush(t *testing.T) {
	mock := clock.NewMock()
	th := NewThrottler(mock, 100*time.Millisecond, true)
	rec := &recorder{}

	th.Schedule(rec.fn("lead"))
	th.Schedule(rec.fn("trail"))
	if !th.Pending() {
		t.Fatal("Pending: got false, want true")
	}
	if !th.Cancel() {
		t.Fatal("Cancel: got false, want true")
	}
	mock.Add(time.Second)
	if !reflect.DeepEqual(rec.calls, []string{"lead"}) {
		t.Fatalf("canceled trailing ran: %v", rec.calls)
	}

	// Cancel closed the window, so this call leads.
	th.Schedule(rec.fn("lead2"))
	th.Schedule(rec.fn("trail2"))
	if !th.Flush() {
		t.Fatal("Flush: got false, want true")
	}
	if !reflect.DeepEqual(rec.calls, []string{"lead", "lead2", "trail2"}) {
		t.Fatalf("after flush: got %v", rec.calls)
	}
	mock.Add(time.Second)
	if len(rec.calls) != 3 {
		t.Errorf("flushed trailing ran again: %v", rec.calls)
	}
}

func TestThrottlerStop(t *testing.T) {
	mock := clock.NewMock()
	th := NewThrottler(mock, 100*time.Millisecond, true)
	rec := &recorder{}

	th.Schedule(rec.fn("lead"))
	th.Schedule(rec.fn("trail"))
	th.Stop()
	th.Stop()
	if th.Schedule(rec.fn("late")) {
		t.Error("Schedule after Stop: got accepted")
	}
	mock.Add(time.Second)

	if !reflect.DeepEqual(rec.calls, []string{"lead"}) {
		t.Errorf("calls after Stop: got %v", rec.calls)
	}
}

func TestDebouncerRealClock(t *testing.T) {
	d := NewDebouncer(nil, 20*time.Millisecond)
	got := make(chan string, 4)

	d.Schedule(func() { got <- "a" })
	d.Schedule(func() { got <- "ab" })

	select {
	case v := <-got:
		if v != "ab" {
			t.Fatalf("debounced value: got %q, want %q", v, "ab")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for debounced call")
	}

	select {
	case v := <-got:
		t.Fatalf("expected a single call, got extra %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}
