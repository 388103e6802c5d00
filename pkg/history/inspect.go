package history

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/copystructure"
)

// errCyclic is reported for values that reach themselves through pointers,
// maps, slices or interfaces.
var errCyclic = errors.New("history: value contains a reference cycle")

type visit struct {
	ptr uintptr
	typ reflect.Type
}

// inspector walks a value before the structural policy compares or copies
// it. In clone mode it also collects copiers for struct types whose
// unexported fields copystructure would otherwise leave zeroed.
type inspector struct {
	clone   bool
	path    map[visit]struct{}
	copiers map[reflect.Type]copystructure.CopierFunc
}

func newInspector(clone bool) *inspector {
	return &inspector{clone: clone, path: make(map[visit]struct{})}
}

func (in *inspector) walk(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return nil
		}
		return fmt.Errorf("history: unsupported %s value of type %s", v.Kind(), v.Type())

	case reflect.Interface:
		return in.walk(v.Elem())

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return in.descend(v, func() error { return in.walk(v.Elem()) })

	case reflect.Slice:
		if v.Len() == 0 || basic(v.Type().Elem()) {
			return nil
		}
		return in.descend(v, func() error { return in.walkElems(v) })

	case reflect.Array:
		if basic(v.Type().Elem()) {
			return nil
		}
		return in.walkElems(v)

	case reflect.Map:
		if v.Len() == 0 || (basic(v.Type().Key()) && basic(v.Type().Elem())) {
			return nil
		}
		return in.descend(v, func() error {
			iter := v.MapRange()
			for iter.Next() {
				if err := in.walk(iter.Key()); err != nil {
					return err
				}
				if err := in.walk(iter.Value()); err != nil {
					return err
				}
			}
			return nil
		})

	case reflect.Struct:
		return in.walkStruct(v)
	}
	return nil
}

func (in *inspector) walkElems(v reflect.Value) error {
	for i := 0; i < v.Len(); i++ {
		if err := in.walk(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// descend runs fn with v on the current path and fails if v is already on it.
func (in *inspector) descend(v reflect.Value, fn func() error) error {
	k := visit{ptr: v.Pointer(), typ: v.Type()}
	if _, ok := in.path[k]; ok {
		return fmt.Errorf("%w through %s", errCyclic, v.Type())
	}
	in.path[k] = struct{}{}
	defer delete(in.path, k)
	return fn()
}

func (in *inspector) walkStruct(v reflect.Value) error {
	t := v.Type()
	if _, ok := copystructure.Copiers[t]; ok && in.clone {
		return nil
	}

	hidden := false
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		switch {
		case f.IsExported():
		case byValue(f.Type):
			hidden = true
			continue
		case in.clone:
			return fmt.Errorf("history: cannot deep copy unexported field %s of %s", f.Name, t)
		}
		if err := in.walk(v.Field(i)); err != nil {
			return err
		}
	}

	if hidden && in.clone {
		in.addCopier(t)
	}
	return nil
}

func (in *inspector) addCopier(t reflect.Type) {
	if in.copiers == nil {
		in.copiers = make(map[reflect.Type]copystructure.CopierFunc, len(copystructure.Copiers)+1)
		for k, fn := range copystructure.Copiers {
			in.copiers[k] = fn
		}
	}
	if _, ok := in.copiers[t]; !ok {
		in.copiers[t] = in.copyStruct(t)
	}
}

// config returns the copystructure configuration for the walked value. A
// nil Copiers map falls back to the package defaults.
func (in *inspector) config() copystructure.Config {
	return copystructure.Config{Copiers: in.copiers}
}

// copyStruct copies a struct by value, which carries its plain unexported
// fields, then deep copies the exported fields that hold references.
func (in *inspector) copyStruct(t reflect.Type) copystructure.CopierFunc {
	return func(v interface{}) (interface{}, error) {
		src := reflect.ValueOf(v)
		dst := reflect.New(t).Elem()
		dst.Set(src)

		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || byValue(f.Type) {
				continue
			}
			fv := src.Field(i)
			if isNil(fv) {
				continue
			}
			dup, err := in.config().Copy(fv.Interface())
			if err != nil {
				return nil, err
			}
			if dup == nil {
				dst.Field(i).Set(reflect.Zero(f.Type))
				continue
			}
			dst.Field(i).Set(reflect.ValueOf(dup))
		}
		return dst.Interface(), nil
	}
}

var timeType = reflect.TypeOf(time.Time{})

// byValue reports whether assignment is a faithful copy of a t. time.Time
// qualifies: its location pointer is shared, as copystructure's own time
// copier does.
func byValue(t reflect.Type) bool {
	return t == timeType || plain(t)
}

// plain reports whether a value of type t holds no references.
func plain(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return plain(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !plain(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return basic(t)
}

// basic reports scalar kinds that hold no references and no struct fields.
func basic(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}
