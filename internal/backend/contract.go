package backend

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/roach88/specbuilder/internal/compiler"
	"github.com/roach88/specbuilder/internal/methodspec"
)

// unitType is the placeholder type of a contract without a return value.
const unitType = "struct {}"

// binder binds one typed value either as an argument or as the return.
type binder struct {
	arg func(*Scope, methodspec.Builder) methodspec.Builder
	ret func(*Scope, methodspec.AssumesBuilder) methodspec.ReturnBuilder
}

func bindingFor[T any](name string, v T) binder {
	ptr := new(T)
	*ptr = v
	return binder{
		arg: func(sc *Scope, b methodspec.Builder) methodspec.Builder {
			sc.Fresh(name, ptr)
			return methodspec.AddArg(b, ptr)
		},
		ret: func(sc *Scope, b methodspec.AssumesBuilder) methodspec.ReturnBuilder {
			sc.Fresh(name, ptr)
			return methodspec.SetReturn(b, ptr)
		},
	}
}

// BuildContract runs the staged protocol for c. values holds concrete
// snapshots keyed by parameter name, including the return name; missing
// parameters take their type's zero value.
//
// The spec is returned even when the arena recorded diagnostics during
// the build; those are returned joined as the error.
func (a *Arena) BuildContract(c *compiler.Contract, values map[string]string) (methodspec.MethodSpec, error) {
	if err := checkValueNames(c, values); err != nil {
		return methodspec.MethodSpec{}, err
	}

	args := make([]binder, len(c.Args))
	for i, p := range c.Args {
		raw, has := values[p.Name]
		bd, err := a.binding(p, raw, has)
		if err != nil {
			return methodspec.MethodSpec{}, fmt.Errorf("contract %s: argument %s: %w", c.Name, p.Name, err)
		}
		args[i] = bd
	}
	ret, err := a.returnBinding(c, values)
	if err != nil {
		return methodspec.MethodSpec{}, fmt.Errorf("contract %s: return: %w", c.Name, err)
	}

	b, sc := a.Open(c.FunctionName())
	for _, bd := range args {
		b = bd.arg(sc, b)
	}
	for _, cl := range c.Assumes {
		sc.Assume(cl.Term, cl.Message)
	}
	r := ret.ret(sc, b.GatherAssumes())
	for _, cl := range c.Asserts {
		sc.Assert(cl.Term, cl.Message)
	}
	spec := r.GatherAsserts().Finish()

	if err := sc.Err(); err != nil {
		return spec, fmt.Errorf("contract %s: %w", c.Name, err)
	}
	return spec, nil
}

func checkValueNames(c *compiler.Contract, values map[string]string) error {
	known := make(map[string]bool, len(c.Args)+1)
	for _, p := range c.Args {
		known[p.Name] = true
	}
	if c.Return != nil {
		known[c.Return.Name] = true
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !known[k] {
			return fmt.Errorf("contract %s has no parameter %q", c.Name, k)
		}
	}
	return nil
}

func (a *Arena) returnBinding(c *compiler.Contract, values map[string]string) (binder, error) {
	if c.Return == nil {
		return bindingFor("ret", struct{}{}), nil
	}
	raw, has := values[c.Return.Name]
	return a.binding(*c.Return, raw, has)
}

// binding parses raw into the Go type named by p.Type.
func (a *Arena) binding(p compiler.Param, raw string, has bool) (binder, error) {
	v, err := ParseScalar(p.Type, raw, has)
	if err != nil {
		return binder{}, err
	}
	switch x := v.(type) {
	case string:
		return bindingFor(p.Name, x), nil
	case bool:
		return bindingFor(p.Name, x), nil
	case int:
		return bindingFor(p.Name, x), nil
	case int8:
		return bindingFor(p.Name, x), nil
	case int16:
		return bindingFor(p.Name, x), nil
	case int32:
		return bindingFor(p.Name, x), nil
	case int64:
		return bindingFor(p.Name, x), nil
	case uint:
		return bindingFor(p.Name, x), nil
	case uint8:
		return bindingFor(p.Name, x), nil
	case uint16:
		return bindingFor(p.Name, x), nil
	case uint32:
		return bindingFor(p.Name, x), nil
	default:
		return bindingFor(p.Name, v.(uint64)), nil
	}
}

// ParseScalar parses raw as the scalar Go type named typ (one of
// compiler.ScalarTypes). When has is false the zero value is returned.
func ParseScalar(typ, raw string, has bool) (any, error) {
	switch typ {
	case "string":
		return raw, nil
	case "bool":
		if !has {
			return false, nil
		}
		return strconv.ParseBool(raw)
	case "int", "int8", "int16", "int32", "int64":
		var n int64
		if has {
			var err error
			if n, err = strconv.ParseInt(raw, 10, bitSize(typ)); err != nil {
				return nil, err
			}
		}
		switch typ {
		case "int":
			return int(n), nil
		case "int8":
			return int8(n), nil
		case "int16":
			return int16(n), nil
		case "int32":
			return int32(n), nil
		default:
			return n, nil
		}
	case "uint", "uint8", "uint16", "uint32", "uint64":
		var n uint64
		if has {
			var err error
			if n, err = strconv.ParseUint(raw, 10, bitSize(typ)); err != nil {
				return nil, err
			}
		}
		switch typ {
		case "uint":
			return uint(n), nil
		case "uint8":
			return uint8(n), nil
		case "uint16":
			return uint16(n), nil
		case "uint32":
			return uint32(n), nil
		default:
			return n, nil
		}
	default:
		return nil, fmt.Errorf("unsupported type %q", typ)
	}
}

// NewValue is ParseScalar returning a pointer to the parsed value, ready
// for methodspec.Dynamic.
func NewValue(typ, raw string, has bool) (any, error) {
	v, err := ParseScalar(typ, raw, has)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(reflect.TypeOf(v))
	ptr.Elem().Set(reflect.ValueOf(v))
	return ptr.Interface(), nil
}

func bitSize(typ string) int {
	switch typ {
	case "int8", "uint8":
		return 8
	case "int16", "uint16":
		return 16
	case "int32", "uint32":
		return 32
	case "int64", "uint64":
		return 64
	default:
		return strconv.IntSize
	}
}
