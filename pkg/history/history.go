package history

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	herrors "github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/schedule"
	"github.com/vango-dev/statehistory/pkg/store"
)

// Change is delivered to change listeners after a transition.
type Change[T any] struct {
	Kind  Kind
	Value T
}

// History is a bounded undo/redo timeline of values of type T.
//
// All methods are safe for concurrent use. Every transition is applied
// atomically; change listeners run after the transition is committed, on
// the goroutine that applied it. State observers receive states one at a
// time in transition order.
type History[T any] struct {
	id       string
	policy   Policy[T]
	capacity int
	initial  T
	mode     schedule.Mode
	sched    schedule.Scheduler
	logger   *slog.Logger
	mw       []Middleware
	ctx      context.Context

	mu       sync.Mutex
	state    State[T]
	disposed bool
	outbox   []State[T] // states not yet delivered to the view
	draining bool

	listeners store.Registry[Change[T]]
	view      *store.Store[State[T]]
}

// New creates a history whose present value is initial.
func New[T any](initial T, opts ...Option) (*History[T], error) {
	cfg := &config{}
	for _, opt := range opts {
		opt.applyHistory(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var equals func(a, b T) bool
	if cfg.equals != nil {
		fn, ok := cfg.equals.(func(a, b T) bool)
		if !ok {
			return nil, configError("H004", "Equals was built for %T, history holds %s", cfg.equals, typeName[T]())
		}
		equals = fn
	}
	policy := newPolicy(cfg.immutable, equals)

	start, err := policy.Clone(initial)
	if err != nil {
		return nil, policyError(&cloneError{err: err})
	}

	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &History[T]{
		id:       id,
		policy:   policy,
		capacity: cfg.capacity,
		initial:  start,
		logger:   logger.With("history_id", id),
		mw:       cfg.middleware,
		ctx:      cfg.ctx,
		state:    State[T]{Present: start, Paused: cfg.paused, initialized: true},
	}
	h.view = store.New(h.state, store.WithEquals(func(a, b State[T]) bool { return false }))

	for _, fn := range cfg.onChange {
		cb, ok := fn.(func(kind Kind, value T))
		if !ok {
			return nil, configError("H004", "OnChange was built for %T, history holds %s", fn, typeName[T]())
		}
		h.listeners.Subscribe(func(c Change[T]) { cb(c.Kind, c.Value) })
	}

	switch {
	case cfg.debounce > 0:
		h.mode = schedule.ModeDebounce
		h.sched = schedule.NewDebouncer(cfg.clock, cfg.debounce)
	case cfg.throttle > 0:
		h.mode = schedule.ModeThrottle
		h.sched = schedule.NewThrottler(cfg.clock, cfg.throttle, !cfg.trailingOnly)
	default:
		h.mode = schedule.ModeImmediate
		h.sched = schedule.NewImmediate()
	}

	return h, nil
}

// ID returns the history identifier.
func (h *History[T]) ID() string { return h.id }

// Mode returns the scheduling policy applied to Commit.
func (h *History[T]) Mode() schedule.Mode { return h.mode }

// Commit submits in through the scheduler.
//
// Under the immediate policy, and for a leading throttled commit, the
// transition is applied before Commit returns and its error is returned.
// Deferred commits apply against whatever present is current when they
// fire; their errors are logged and reported to middleware.
func (h *History[T]) Commit(in Input[T]) error {
	const (
		waiting int32 = iota
		inline
		later
	)
	var st atomic.Int32
	res := make(chan error, 1)

	accepted := h.sched.Schedule(func() {
		if st.CompareAndSwap(waiting, inline) {
			res <- h.commit(in, false)
			return
		}
		if err := h.commit(in, true); err != nil {
			h.logDeferred(err)
		}
	})
	// Dispose stops the scheduler before marking the history disposed.
	if !accepted {
		return disposedError()
	}

	if st.CompareAndSwap(waiting, later) {
		return nil
	}
	return <-res
}

// Set commits v through the scheduler.
func (h *History[T]) Set(v T) error {
	return h.Commit(Value(v))
}

// Update commits fn(present) through the scheduler.
func (h *History[T]) Update(fn func(T) T) error {
	return h.Commit(Updater(fn))
}

// CommitDirect applies in immediately, bypassing the scheduler.
func (h *History[T]) CommitDirect(in Input[T]) error {
	return h.commit(in, false)
}

// SetDirect applies v immediately.
func (h *History[T]) SetDirect(v T) error {
	return h.CommitDirect(Value(v))
}

// UpdateDirect applies fn(present) immediately.
func (h *History[T]) UpdateDirect(fn func(T) T) error {
	return h.CommitDirect(Updater(fn))
}

// Undo moves the present back one step. No-op when there is nothing to
// undo.
func (h *History[T]) Undo() {
	h.transition(KindUndo)
}

// Redo moves the present forward one step. No-op when there is nothing to
// redo.
func (h *History[T]) Redo() {
	h.transition(KindRedo)
}

// Pause stops recording past and future. Set keeps replacing present.
func (h *History[T]) Pause() {
	h.transition(KindPause)
}

// Resume restarts recording.
func (h *History[T]) Resume() {
	h.transition(KindResume)
}

// Clear discards past and future and resets present to the initial value.
// The paused flag is kept.
func (h *History[T]) Clear() error {
	return h.apply(KindClear, false, func(s State[T]) (State[T], bool, error) {
		next, changed, err := reduce(s, action[T]{kind: KindClear, value: h.initial}, h.policy, h.capacity)
		if err != nil {
			return s, false, policyError(err)
		}
		return next, changed, nil
	})
}

// Flush applies a pending deferred commit now and reports whether there
// was one.
func (h *History[T]) Flush() bool {
	return h.sched.Flush()
}

// Pending reports whether a deferred commit is waiting.
func (h *History[T]) Pending() bool {
	return h.sched.Pending()
}

// Dispose cancels any pending deferred commit and rejects further
// scheduled commits. Direct operations keep working. Safe to call more
// than once.
func (h *History[T]) Dispose() {
	h.sched.Stop()

	h.mu.Lock()
	already := h.disposed
	h.disposed = true
	h.mu.Unlock()

	if !already {
		h.logger.Debug("history disposed")
	}
}

// Present returns the present value. In structural mode the result is a
// copy.
func (h *History[T]) Present() T {
	h.mu.Lock()
	v := h.state.Present
	h.mu.Unlock()
	return h.copyOut(v)
}

// Past returns the past values, oldest first.
func (h *History[T]) Past() []T {
	h.mu.Lock()
	past := h.state.Past
	h.mu.Unlock()
	return h.copySlice(past)
}

// Future returns the future values, nearest redo target first.
func (h *History[T]) Future() []T {
	h.mu.Lock()
	future := h.state.Future
	h.mu.Unlock()
	return h.copySlice(future)
}

// CanUndo reports whether Undo would change the present.
func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.CanUndo()
}

// CanRedo reports whether Redo would change the present.
func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.CanRedo()
}

// Paused reports whether recording is paused.
func (h *History[T]) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Paused
}

// Snapshot returns a consistent copy of the whole state.
func (h *History[T]) Snapshot() State[T] {
	h.mu.Lock()
	s := h.state
	h.mu.Unlock()

	s.Present = h.copyOut(s.Present)
	s.Past = h.copySlice(s.Past)
	s.Future = h.copySlice(s.Future)
	return s
}

// Subscribe registers fn to receive every change that may alter the
// present value. Pause and resume are not delivered.
func (h *History[T]) Subscribe(fn func(Change[T])) (unsubscribe func()) {
	return h.listeners.Subscribe(fn)
}

// SubscribeState registers fn to receive the full state after every
// transition, pause and resume included. The state shares storage with
// the history and must not be mutated.
//
// States are delivered in the order the transitions were applied, never
// concurrently. A transition applied while another goroutine is delivering,
// including one started from fn itself, is delivered by that goroutine.
func (h *History[T]) SubscribeState(fn func(State[T])) (unsubscribe func()) {
	return h.view.Subscribe(fn)
}

func (h *History[T]) commit(in Input[T], deferred bool) error {
	return h.apply(KindSet, deferred, func(s State[T]) (State[T], bool, error) {
		v, err := in.resolve(s.Present, h.policy)
		if err != nil {
			return s, false, policyError(err)
		}
		next, changed, err := reduce(s, action[T]{kind: KindSet, value: v}, h.policy, h.capacity)
		if err != nil {
			return s, false, policyError(err)
		}
		return next, changed, nil
	})
}

// transition applies a kind that cannot fail on its own. Middleware
// errors are logged.
func (h *History[T]) transition(kind Kind) {
	err := h.apply(kind, false, func(s State[T]) (State[T], bool, error) {
		return reduce(s, action[T]{kind: kind}, h.policy, h.capacity)
	})
	if err != nil {
		h.logger.Error("history transition failed", "kind", kind, "error", err)
	}
}

// apply runs step under the lock inside the middleware chain and publishes
// the new state after unlocking.
func (h *History[T]) apply(kind Kind, deferred bool, step func(State[T]) (State[T], bool, error)) error {
	t := &Transition{
		HistoryID: h.id,
		Kind:      kind,
		Deferred:  deferred,
		ctx:       h.ctx,
	}

	return chain(h.mw, t, func() error {
		h.mu.Lock()
		if deferred && h.disposed {
			h.mu.Unlock()
			return disposedError()
		}
		next, changed, err := step(h.state)
		if err != nil {
			h.mu.Unlock()
			return err
		}
		if changed {
			h.state = next
			h.outbox = append(h.outbox, next)
		}
		h.mu.Unlock()

		t.Changed = changed
		if changed {
			t.ListenerPanics = h.publish(kind, next)
			h.drain()
		}
		return nil
	})
}

// publish notifies change listeners of s. Panics are recovered, logged and
// returned as coded errors.
func (h *History[T]) publish(kind Kind, s State[T]) []error {
	if !kind.notifies() || h.listeners.Len() == 0 {
		return nil
	}
	recovered := h.listeners.Emit(Change[T]{Kind: kind, Value: h.copyOut(s.Present)})
	if len(recovered) == 0 {
		return nil
	}

	out := make([]error, 0, len(recovered))
	for _, err := range recovered {
		h.logPanic("history: change listener panicked", err, "kind", kind)
		out = append(out, herrors.New("H020").
			WithDetail(err.Error()).
			Wrap(ErrListenerPanic).
			Wrap(err))
	}
	return out
}

// drain delivers queued states to the view unless another call is already
// delivering them.
func (h *History[T]) drain() {
	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		return
	}
	h.draining = true
	for len(h.outbox) > 0 {
		s := h.outbox[0]
		h.outbox[0] = State[T]{}
		h.outbox = h.outbox[1:]
		h.mu.Unlock()

		for _, err := range h.view.Set(s) {
			h.logPanic("history: state observer panicked", err)
		}

		h.mu.Lock()
	}
	h.outbox = nil
	h.draining = false
	h.mu.Unlock()
}

func (h *History[T]) logPanic(msg string, err error, args ...any) {
	var pe *store.PanicError
	if errors.As(err, &pe) {
		h.logger.Error(msg, append(args, "panic", pe.Value)...)
	}
}

func (h *History[T]) logDeferred(err error) {
	if errors.Is(err, ErrDisposed) {
		h.logger.Debug("deferred commit dropped", "error", err)
		return
	}
	h.logger.Error("deferred commit failed", "error", err)
}

// copyOut returns a copy of v that the caller may mutate freely.
func (h *History[T]) copyOut(v T) T {
	out, err := h.policy.Clone(v)
	if err != nil {
		h.logger.Warn("history: clone on read failed", "error", err)
		return v
	}
	return out
}

func (h *History[T]) copySlice(vs []T) []T {
	if len(vs) == 0 {
		return []T{}
	}
	out := make([]T, len(vs))
	for i, v := range vs {
		out[i] = h.copyOut(v)
	}
	return out
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
