// Package schedule gates deferred function application.
//
// A Scheduler owns at most one outstanding timer and decides when a
// scheduled function runs:
//
//   - Immediate runs every function synchronously.
//   - Debouncer waits for a quiet period and runs only the latest function.
//   - Throttler runs at most once per window and always runs the trailing
//     function when the window closes.
//
// Timers come from a clock.Clock so tests can drive time with
// clock.NewMock():
//
//	mock := clock.NewMock()
//	d := schedule.NewDebouncer(mock, 500*time.Millisecond)
//	d.Schedule(func() { fmt.Println("a") })
//	d.Schedule(func() { fmt.Println("b") })
//	mock.Add(500 * time.Millisecond) // prints "b"
//
// Cancel guarantees a canceled function never runs. Stop cancels and turns
// the scheduler into a sink; it is safe to call more than once.
package schedule
