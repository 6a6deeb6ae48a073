package cache

import (
	"math"
	"reflect"
)

// secondary maps field name -> field value -> primary key.
//
// Field values are not unique across records: the last write wins, and the
// earlier record stays reachable by its primary key only.
type secondary struct {
	fields []string
	byName map[string]map[any]any
}

func newSecondary(primary string, fields []string) secondary {
	s := secondary{byName: make(map[string]map[any]any, len(fields))}
	for _, f := range fields {
		if f == primary {
			continue
		}
		if _, dup := s.byName[f]; dup {
			continue
		}
		s.fields = append(s.fields, f)
		s.byName[f] = make(map[any]any)
	}
	return s
}

// add points every indexable field of rec at key.
func (s *secondary) add(key any, rec Record) {
	for _, f := range s.fields {
		v, ok := indexable(rec, f)
		if !ok {
			continue
		}
		s.byName[f][v] = key
	}
}

// drop removes the mappings rec contributed, leaving alone any mapping that
// a newer record has since taken over.
func (s *secondary) drop(key any, rec Record) {
	for _, f := range s.fields {
		v, ok := indexable(rec, f)
		if !ok {
			continue
		}
		idx := s.byName[f]
		if target, found := idx[v]; found && target == key {
			delete(idx, v)
		}
	}
}

func (s *secondary) resolve(field string, value any) (any, bool) {
	idx, ok := s.byName[field]
	if !ok || !hashable(value) {
		return nil, false
	}
	key, ok := idx[value]
	return key, ok
}

func (s *secondary) reset() {
	for _, idx := range s.byName {
		clear(idx)
	}
}

func indexable(rec Record, field string) (any, bool) {
	v, ok := rec[field]
	if !ok || !present(v) || !hashable(v) {
		return nil, false
	}
	return v, true
}

// present reports whether v is set to something other than an empty value:
// nil, false, "", numeric zero, NaN and nil references are all skipped.
// Empty but non-nil maps and slices count as present.
func present(v any) bool {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Invalid:
		return false
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	default:
		return true
	}
}

// hashable reports whether v can be used as a map key without panicking.
func hashable(v any) bool {
	return reflect.ValueOf(v).Comparable()
}
