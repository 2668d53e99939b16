package ir

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"fortio.org/safecast"
)

// maxLowerDepth bounds recursion through self-referential pointers.
const maxLowerDepth = 16

// Lower snapshots an arbitrary Go value into a Value. It never fails:
// kinds with no IR shape (floats, funcs, channels, complex numbers) lower
// to their rendered text so the snapshot stays hashable.
//
// Pointers are followed, nil pointers and interfaces lower to Str("nil").
// Struct fields are keyed by name; unexported fields are skipped.
func Lower(v any) Value {
	return lower(reflect.ValueOf(v), 0)
}

func lower(rv reflect.Value, depth int) Value {
	if !rv.IsValid() {
		return Str("nil")
	}
	if depth > maxLowerDepth {
		return Str("...")
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Str("nil")
		}
		return lower(rv.Elem(), depth+1)
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if n, err := safecast.Conv[int64](u); err == nil {
			return Int(n)
		}
		return Str(strconv.FormatUint(u, 10))
	case reflect.String:
		return Str(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Array{}
		}
		arr := make(Array, rv.Len())
		for i := range arr {
			arr[i] = lower(rv.Index(i), depth+1)
		}
		return arr
	case reflect.Map:
		obj := make(Object, rv.Len())
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			obj[fmt.Sprint(k.Interface())] = lower(rv.MapIndex(k), depth+1)
		}
		return obj
	case reflect.Struct:
		obj := make(Object, rv.NumField())
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			obj[f.Name] = lower(rv.Field(i), depth+1)
		}
		return obj
	default:
		if rv.CanInterface() {
			return Str(fmt.Sprint(rv.Interface()))
		}
		return Str(rv.Type().String())
	}
}

// TypeName returns the Go type name of the value a pointer refers to.
// For a nil interface it returns "nil".
func TypeName(ptr any) string {
	t := reflect.TypeOf(ptr)
	if t == nil {
		return "nil"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
