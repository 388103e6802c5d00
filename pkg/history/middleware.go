package history

import "context"

// Transition describes one transition as it passes through middleware.
// Fields after next returns are only meaningful once the inner handler has
// run.
type Transition struct {
	// HistoryID identifies the history that applied the transition.
	HistoryID string

	// Kind is the transition kind.
	Kind Kind

	// Deferred is true when a scheduler timer applied the commit.
	Deferred bool

	// Changed reports whether the state changed. False for no-ops and
	// failures.
	Changed bool

	// ListenerPanics holds one error per change listener that panicked.
	ListenerPanics []error

	ctx context.Context
}

// Context returns the transition's context.
func (t *Transition) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// SetContext replaces the context seen by inner middleware.
func (t *Transition) SetContext(ctx context.Context) {
	t.ctx = ctx
}

// Middleware wraps transitions. Handle must call next exactly once unless
// it returns an error, in which case the transition is not applied.
type Middleware interface {
	Handle(t *Transition, next func() error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(t *Transition, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(t *Transition, next func() error) error {
	return f(t, next)
}

// chain runs final through mw, outermost first.
func chain(mw []Middleware, t *Transition, final func() error) error {
	if len(mw) == 0 {
		return final()
	}
	next := final
	for i := len(mw) - 1; i >= 0; i-- {
		m, inner := mw[i], next
		next = func() error { return m.Handle(t, inner) }
	}
	return next()
}
