package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specbuilder/internal/ir"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"var", V("x"), "x"},
		{"string literal", Str("a"), `"a"`},
		{"comparison", Lt(V("x"), Int(10)), "x < 10"},
		{"sum", Eq(V("r"), Add(V("x"), V("y"))), "r == x + y"},
		{"mul binds tighter", Mul(Add(V("a"), V("b")), V("c")), "(a + b) * c"},
		{"left assoc sub", Sub(V("a"), Sub(V("b"), V("c"))), "a - (b - c)"},
		{"and of cmps", All(Ge(V("x"), Int(0)), Le(V("x"), Int(100))), "x >= 0 && x <= 100"},
		{"or inside and", All(Any(V("p"), V("q")), V("r")), "(p || q) && r"},
		{"not", Negate(Eq(V("x"), Int(0))), "!(x == 0)"},
		{"empty and", All(), "true"},
		{"empty or", Any(), "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.term))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := All(
		Ge(V("x"), Int(0)),
		Negate(Eq(V("name"), Str("root"))),
		Any(Lt(Mul(V("x"), Int(2)), V("y")), Bool(true)),
	)

	enc, err := Encode(orig)
	require.NoError(t, err)

	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestEncodeShape(t *testing.T) {
	enc := MustEncode(Lt(V("x"), Int(10)))
	assert.Equal(t, ir.Object{
		"op": ir.Str("lt"),
		"args": ir.Array{
			ir.Object{"var": ir.Str("x")},
			ir.Object{"lit": ir.Int(10)},
		},
	}, enc)
}

func TestDecodeAnyLoose(t *testing.T) {
	// Shape produced by yaml.v3 for `{op: le, args: [x, 100]}`.
	got, err := DecodeAny(map[string]any{"op": "le", "args": []any{"x", 100}})
	require.NoError(t, err)
	assert.Equal(t, Le(V("x"), Int(100)), got)

	got, err = DecodeAny(map[string]any{"op": "EQ", "args": []any{"s", map[string]any{"str": "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, Eq(V("s"), Str("hi")), got)

	got, err = DecodeAny(float64(3))
	require.NoError(t, err)
	assert.Equal(t, Int(3), got)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"float", 1.5, "floats"},
		{"big uint", ^uint64(0), "overflows int64"},
		{"big float", 1e30, "overflows int64"},
		{"unknown op", map[string]any{"op": "xor", "args": []any{"a", "b"}}, "unknown op"},
		{"arity", map[string]any{"op": "lt", "args": []any{"a"}}, "takes 2 args"},
		{"not arity", map[string]any{"op": "not"}, "takes 1 arg"},
		{"no key", map[string]any{"foo": 1}, "expected one of"},
		{"bad int", map[string]any{"int": "x"}, "wrong type"},
		{"nested path", map[string]any{"op": "and", "args": []any{"a", map[string]any{"op": "?"}}}, "args[1]"},
		{"null", nil, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAny(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVars(t *testing.T) {
	tm := All(Lt(V("y"), V("x")), Eq(V("x"), Add(V("z"), Int(1))))
	assert.Equal(t, []string{"x", "y", "z"}, Vars(tm))
	assert.Empty(t, Vars(Int(1)))
}

func TestValidate(t *testing.T) {
	known := func(name string) bool { return name == "x" }

	res := Validate(Lt(V("x"), Int(1)), known)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Problems)

	res = Validate(All(Lt(V("x"), V("ret")), Cmp{Op: OpAdd, Left: V("x"), Right: Int(1)}), known)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Problems, `undefined variable "ret"`)
	assert.Contains(t, res.Problems, `"add" is not a comparison`)

	res = Validate(Negate(nil), nil)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"nil term"}, res.Problems)
}
