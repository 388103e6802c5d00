package history

import "fmt"

// Kind names a history transition.
type Kind string

const (
	KindSet    Kind = "set"
	KindUndo   Kind = "undo"
	KindRedo   Kind = "redo"
	KindClear  Kind = "clear"
	KindPause  Kind = "pause"
	KindResume Kind = "resume"
)

// notifies reports whether a change of this kind reaches change listeners.
// Pause and resume never alter present, so they stay silent.
func (k Kind) notifies() bool {
	return k != KindPause && k != KindResume
}

// State is an immutable snapshot of a history.
//
// Past is ordered oldest first. Future is ordered nearest redo target
// first. Slices held by a State are never written to after the State is
// produced; transitions always allocate new ones.
type State[T any] struct {
	Past    []T
	Present T
	Future  []T
	Paused  bool

	// initialized is false while Present is the empty sentinel.
	initialized bool
}

// CanUndo reports whether Past is non-empty.
func (s State[T]) CanUndo() bool { return len(s.Past) > 0 }

// CanRedo reports whether Future is non-empty.
func (s State[T]) CanRedo() bool { return len(s.Future) > 0 }

// action is the input of a transition. value carries the SET target or the
// CLEAR initial value.
type action[T any] struct {
	kind  Kind
	value T
}

// reduce applies a to s. It never mutates s and returns s unchanged with
// changed=false for no-ops. On error the returned state must be discarded.
func reduce[T any](s State[T], a action[T], p Policy[T], capacity int) (State[T], bool, error) {
	switch a.kind {
	case KindSet:
		return reduceSet(s, a.value, p, capacity)

	case KindUndo:
		if len(s.Past) == 0 {
			return s, false, nil
		}
		last := len(s.Past) - 1
		next := s
		next.Present = s.Past[last]
		next.Past = cloneSlice(s.Past[:last])
		next.Future = prepend(s.Present, s.Future)
		return next, true, nil

	case KindRedo:
		if len(s.Future) == 0 {
			return s, false, nil
		}
		next := s
		next.Present = s.Future[0]
		next.Future = cloneSlice(s.Future[1:])
		next.Past = evict(appendCopy(s.Past, s.Present), capacity)
		return next, true, nil

	case KindClear:
		if s.initialized && len(s.Past) == 0 && len(s.Future) == 0 {
			if same, err := p.Equal(s.Present, a.value); err == nil && same {
				return s, false, nil
			}
		}
		v, err := p.Clone(a.value)
		if err != nil {
			return s, false, &cloneError{err: err}
		}
		return State[T]{Present: v, Paused: s.Paused, initialized: true}, true, nil

	case KindPause, KindResume:
		paused := a.kind == KindPause
		if s.Paused == paused {
			return s, false, nil
		}
		next := s
		next.Paused = paused
		return next, true, nil

	default:
		panic(fmt.Sprintf("history: unsupported transition %q", a.kind))
	}
}

func reduceSet[T any](s State[T], v T, p Policy[T], capacity int) (State[T], bool, error) {
	if s.initialized {
		same, err := p.Equal(v, s.Present)
		if err != nil {
			return s, false, err
		}
		if same {
			return s, false, nil
		}
	}

	cloned, err := p.Clone(v)
	if err != nil {
		return s, false, &cloneError{err: err}
	}

	next := s
	next.Present = cloned
	next.initialized = true
	if s.Paused {
		return next, true, nil
	}

	if s.initialized {
		next.Past = evict(appendCopy(s.Past, s.Present), capacity)
	}
	next.Future = nil
	return next, true, nil
}

// evict drops the oldest entries so that at most capacity remain.
// capacity <= 0 means unbounded.
func evict[T any](past []T, capacity int) []T {
	if capacity <= 0 || len(past) <= capacity {
		return past
	}
	return past[len(past)-capacity:]
}

func appendCopy[T any](s []T, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, s...)
	return append(out, v)
}

func prepend[T any](v T, s []T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, v)
	return append(out, s...)
}

func cloneSlice[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
