package store

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError reports a subscriber that panicked during delivery.
type PanicError struct {
	// Value is the recovered panic value.
	Value any

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("store: subscriber panicked: %v", e.Value)
}

type subscription[E any] struct {
	id uint64
	fn func(E)
}

// Registry is an ordered set of subscribers for events of type E.
// The zero value is ready to use.
type Registry[E any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[E]
}

// Subscribe appends fn to the registry and returns a function that removes
// it. Calling the returned function more than once is safe.
func (r *Registry[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscription[E]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

// remove deletes a subscriber while preserving the order of the rest.
func (r *Registry[E]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s.id == id {
			subs := make([]subscription[E], 0, len(r.subs)-1)
			subs = append(subs, r.subs[:i]...)
			subs = append(subs, r.subs[i+1:]...)
			r.subs = subs
			return
		}
	}
}

// Len returns the number of registered subscribers.
func (r *Registry[E]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Emit delivers e to every subscriber in registration order and returns
// one *PanicError per subscriber that panicked.
// The subscriber list is copied before delivery so subscribers may
// subscribe or unsubscribe from inside a callback.
func (r *Registry[E]) Emit(e E) []error {
	r.mu.RLock()
	subs := make([]subscription[E], len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := deliver(s.fn, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func deliver[E any](fn func(E), e E) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	fn(e)
	return nil
}
