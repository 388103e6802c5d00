package store

import (
	"reflect"
	"sync"
)

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithEquals sets the equality function used to suppress no-op updates.
// Returning false unconditionally makes every Set notify.
func WithEquals[T any](fn func(a, b T) bool) Option[T] {
	return func(s *Store[T]) {
		s.equal = fn
	}
}

// Store is an observable value container.
type Store[T any] struct {
	mu    sync.RWMutex
	value T
	equal func(a, b T) bool
	subs  Registry[T]
}

// New creates a store holding initial.
func New[T any](initial T, opts ...Option[T]) *Store[T] {
	s := &Store[T]{value: initial}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies subscribers if it changed.
// It returns the panics recovered from subscribers, if any.
func (s *Store[T]) Set(value T) []error {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.subs.Emit(value)
}

// Update atomically reads and replaces the value.
// fn runs with the store locked and must not call back into the store.
func (s *Store[T]) Update(fn func(T) T) []error {
	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equals(s.value, next)
	if changed {
		s.value = next
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.subs.Emit(next)
}

// Subscribe registers fn to receive every new value.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return s.subs.Subscribe(fn)
}

// Subscribers returns the number of registered subscribers.
func (s *Store[T]) Subscribers() int {
	return s.subs.Len()
}

func (s *Store[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals uses == for scalar kinds and reflect.DeepEqual otherwise.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case uint64:
		bv, ok := any(b).(uint64)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}
