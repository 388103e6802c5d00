// Package history provides a bounded undo/redo timeline for values of any
// type.
//
// A History holds the present value together with an ordered past (oldest
// first) and future (nearest redo target first). Committing a value that
// differs from the present pushes the present onto the past, evicting the
// oldest entry once the configured capacity is exceeded, and discards the
// future.
//
//	h, err := history.New(Doc{Title: "draft"}, history.WithMaxCapacity(50))
//	if err != nil {
//	    return err
//	}
//	h.Set(Doc{Title: "final"})
//	h.Undo()
//
// # Scheduling
//
// Set, Update and Commit go through a scheduler chosen at construction:
// immediate (the default), debounced with WithDebounce, or throttled with
// WithThrottle. SetDirect and friends always apply immediately. A deferred
// commit applies against the present at the moment it fires, so an Undo in
// between does not cancel it.
//
// # Policies
//
// By default values are compared through their JSON encoding and stored as
// deep copies, so callers may keep mutating what they passed in. Immutable
// switches to identity comparison without copying. Equals replaces the
// comparison in either mode.
//
// # Pausing
//
// While paused, commits replace the present but leave past and future
// alone. Undo, Redo and Clear work as usual.
package history
