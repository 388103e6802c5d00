package history

import (
	"fmt"
	"reflect"
)

// Policy decides how values are compared for no-op detection and how they
// are copied into history.
type Policy[T any] interface {
	// Equal reports whether a and b are the same value under this policy.
	Equal(a, b T) (bool, error)

	// Clone returns the value to store in history.
	Clone(v T) (T, error)
}

// Structural compares values by deep equality and stores deep copies, so
// later mutation of a value passed to Set never reaches history.
//
// Values are checked before use: cycles, and non-nil funcs or chans, are
// reported as errors. Unexported struct fields take part in comparison and
// are copied when they hold plain data; a value whose unexported fields
// hold pointers, maps, slices or interfaces cannot be cloned.
type Structural[T any] struct {
	// Equals, when set, replaces the deep comparison.
	Equals func(a, b T) bool
}

// Equal implements Policy.
func (p Structural[T]) Equal(a, b T) (bool, error) {
	if p.Equals != nil {
		return p.Equals(a, b), nil
	}
	if eq, ok := scalarEquals(a, b); ok {
		return eq, nil
	}

	for _, v := range []T{a, b} {
		if err := newInspector(false).walk(reflect.ValueOf(any(v))); err != nil {
			return false, err
		}
	}
	return reflect.DeepEqual(any(a), any(b)), nil
}

// Clone implements Policy with a deep copy.
func (p Structural[T]) Clone(v T) (T, error) {
	var zero T
	in := newInspector(true)
	if err := in.walk(reflect.ValueOf(any(v))); err != nil {
		return zero, err
	}

	out, err := in.config().Copy(v)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("history: clone produced %T", out)
	}
	return typed, nil
}

// Reference compares values by identity and stores them without copying.
// It suits callers that never mutate a value after handing it over.
type Reference[T any] struct {
	// Equals, when set, replaces the identity comparison.
	Equals func(a, b T) bool
}

// Equal implements Policy.
func (p Reference[T]) Equal(a, b T) (bool, error) {
	if p.Equals != nil {
		return p.Equals(a, b), nil
	}
	return identical(a, b), nil
}

// Clone implements Policy and returns v itself.
func (p Reference[T]) Clone(v T) (T, error) {
	return v, nil
}

func newPolicy[T any](immutable bool, equals func(a, b T) bool) Policy[T] {
	if immutable {
		return Reference[T]{Equals: equals}
	}
	return Structural[T]{Equals: equals}
}

// scalarEquals compares basic kinds with == and reports ok=false for
// anything that needs a deep comparison.
func scalarEquals[T any](a, b T) (eq bool, ok bool) {
	switch av := any(a).(type) {
	case int:
		bv, same := any(b).(int)
		return same && av == bv, true
	case int64:
		bv, same := any(b).(int64)
		return same && av == bv, true
	case uint64:
		bv, same := any(b).(uint64)
		return same && av == bv, true
	case string:
		bv, same := any(b).(string)
		return same && av == bv, true
	case bool:
		bv, same := any(b).(bool)
		return same && av == bv, true
	default:
		return false, false
	}
}

// identical reports reference identity: pointer-like kinds compare by
// address (slices also by length), comparable values by ==, and anything
// else is never identical.
func identical[T any](a, b T) bool {
	va, vb := reflect.ValueOf(any(a)), reflect.ValueOf(any(b))
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return false
}
