package term

import (
	"fmt"
	"math"
	"strings"

	"fortio.org/safecast"

	"github.com/roach88/specbuilder/internal/ir"
)

// Encode converts t to its object form.
func Encode(t Term) (ir.Object, error) {
	switch n := t.(type) {
	case Var:
		return ir.Object{"var": ir.Str(n.Name)}, nil
	case *Var:
		return Encode(*n)
	case Lit:
		if n.Value == nil {
			return nil, fmt.Errorf("literal without value")
		}
		return ir.Object{"lit": n.Value}, nil
	case *Lit:
		return Encode(*n)
	case Cmp:
		return encodeOp(n.Op, n.Left, n.Right)
	case *Cmp:
		return Encode(*n)
	case Arith:
		return encodeOp(n.Op, n.Left, n.Right)
	case *Arith:
		return Encode(*n)
	case And:
		return encodeOp(OpAnd, n.Terms...)
	case *And:
		return Encode(*n)
	case Or:
		return encodeOp(OpOr, n.Terms...)
	case *Or:
		return Encode(*n)
	case Not:
		return encodeOp(OpNot, n.Term)
	case *Not:
		return Encode(*n)
	default:
		return nil, fmt.Errorf("unknown term type %T", t)
	}
}

func encodeOp(op Op, args ...Term) (ir.Object, error) {
	arr := make(ir.Array, len(args))
	for i, a := range args {
		enc, err := Encode(a)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		arr[i] = enc
	}
	return ir.Object{"op": ir.Str(op), "args": arr}, nil
}

// MustEncode is like Encode but panics on error. Tests only.
func MustEncode(t Term) ir.Object {
	obj, err := Encode(t)
	if err != nil {
		panic(err)
	}
	return obj
}

// DecodeError reports malformed encoded input at a path such as
// "args[1].args[0]".
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "term: " + e.Message
	}
	return fmt.Sprintf("term %s: %s", e.Path, e.Message)
}

// Decode converts an encoded value back into a Term.
func Decode(v ir.Value) (Term, error) {
	return decode(v, "")
}

func decode(v ir.Value, path string) (Term, error) {
	switch val := v.(type) {
	case ir.Str:
		return Var{Name: string(val)}, nil
	case ir.Int, ir.Bool:
		return Lit{Value: val}, nil
	case ir.Object:
		return decodeObject(val, path)
	default:
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unexpected %T", v)}
	}
}

func decodeObject(obj ir.Object, path string) (Term, error) {
	if name, ok := obj["var"]; ok {
		s, ok := name.(ir.Str)
		if !ok || s == "" {
			return nil, &DecodeError{Path: path, Message: "var must be a non-empty string"}
		}
		return Var{Name: string(s)}, nil
	}
	for _, key := range []string{"lit", "int", "str", "bool"} {
		if lit, ok := obj[key]; ok {
			return decodeLit(key, lit, path)
		}
	}

	rawOp, ok := obj["op"].(ir.Str)
	if !ok {
		return nil, &DecodeError{Path: path, Message: "expected one of var, lit, int, str, bool or op"}
	}
	op := Op(strings.ToLower(string(rawOp)))

	var args []Term
	if rawArgs, present := obj["args"]; present {
		arr, ok := rawArgs.(ir.Array)
		if !ok {
			return nil, &DecodeError{Path: path, Message: "args must be a list"}
		}
		for i, a := range arr {
			t, err := decode(a, joinPath(path, fmt.Sprintf("args[%d]", i)))
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
	}

	switch {
	case op.IsComparison() || op.IsArithmetic():
		if len(args) != 2 {
			return nil, &DecodeError{Path: path, Message: fmt.Sprintf("%s takes 2 args, got %d", op, len(args))}
		}
		if op.IsComparison() {
			return Cmp{Op: op, Left: args[0], Right: args[1]}, nil
		}
		return Arith{Op: op, Left: args[0], Right: args[1]}, nil
	case op == OpAnd:
		return And{Terms: args}, nil
	case op == OpOr:
		return Or{Terms: args}, nil
	case op == OpNot:
		if len(args) != 1 {
			return nil, &DecodeError{Path: path, Message: fmt.Sprintf("not takes 1 arg, got %d", len(args))}
		}
		return Not{Term: args[0]}, nil
	default:
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown op %q", rawOp)}
	}
}

func decodeLit(key string, v ir.Value, path string) (Term, error) {
	var ok bool
	switch key {
	case "int":
		_, ok = v.(ir.Int)
	case "str":
		_, ok = v.(ir.Str)
	case "bool":
		_, ok = v.(ir.Bool)
	default:
		_, isNull := v.(ir.Null)
		ok = v != nil && !isNull
	}
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("%s literal has wrong type %T", key, v)}
	}
	return Lit{Value: v}, nil
}

func joinPath(base, elem string) string {
	if base == "" {
		return elem
	}
	return base + "." + elem
}

// DecodeAny decodes loosely typed input such as YAML- or JSON-parsed maps.
func DecodeAny(v any) (Term, error) {
	val, err := valueOf(v)
	if err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	return Decode(val)
}

// valueOf converts decoder output into an ir.Value. Integral float64s are
// accepted because generic decoders produce them for plain numbers.
func valueOf(v any) (ir.Value, error) {
	switch val := v.(type) {
	case ir.Value:
		return val, nil
	case string:
		return ir.Str(val), nil
	case bool:
		return ir.Bool(val), nil
	case int:
		return ir.Int(val), nil
	case int64:
		return ir.Int(val), nil
	case uint64:
		n, err := safecast.Conv[int64](val)
		if err != nil {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return ir.Int(n), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("floats are not allowed in terms: %v", val)
		}
		n, err := safecast.Convert[int64](val)
		if err != nil {
			return nil, fmt.Errorf("integer %v overflows int64", val)
		}
		return ir.Int(n), nil
	case []any:
		arr := make(ir.Array, len(val))
		for i, elem := range val {
			ev, err := valueOf(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(ir.Object, len(val))
		for k, elem := range val {
			ev, err := valueOf(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	case nil:
		return nil, fmt.Errorf("null is not a term")
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
