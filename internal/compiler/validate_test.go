package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specbuilder/internal/term"
)

func absContract() *Contract {
	return &Contract{
		Name: "abs",
		Args: []Param{{Name: "x", Type: "int"}},
		Assumes: []Clause{
			{Term: term.Ge(term.V("x"), term.Int(0))},
		},
		Return: &Param{Name: "ret", Type: "int"},
		Asserts: []Clause{
			{Term: term.Eq(term.V("ret"), term.V("x")), Message: "identity"},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateContractValid(t *testing.T) {
	assert.Empty(t, Validate(absContract()))
	assert.Empty(t, Validate(*absContract()), "value form is accepted too")
}

func TestValidateContractNoFunction(t *testing.T) {
	c := absContract()
	c.Name = ""
	errs := Validate(c)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNoFunction, errs[0].Code)
	assert.Equal(t, "function", errs[0].Field)
}

func TestValidateContractBadTypes(t *testing.T) {
	c := absContract()
	c.Args = append(c.Args, Param{Name: "ratio", Type: "float64"}, Param{Name: "xs", Type: "[]int"})
	errs := Validate(c)

	require.Len(t, errs, 2)
	assert.Equal(t, []string{ErrInvalidParamType, ErrInvalidParamType}, codes(errs))
	assert.Equal(t, "args[1].type", errs[0].Field)
	assert.Contains(t, errs[0].Message, "float type forbidden")
	assert.Contains(t, errs[1].Message, `invalid type "[]int"`)
}

func TestValidateContractDuplicateParam(t *testing.T) {
	c := absContract()
	c.Return = &Param{Name: "x", Type: "int"}
	c.Asserts = nil
	errs := Validate(c)

	require.NotEmpty(t, errs)
	assert.Contains(t, codes(errs), ErrDuplicateParam)
}

func TestValidateContractInvalidName(t *testing.T) {
	c := absContract()
	c.Args[0].Name = "1x"
	c.Assumes = nil
	c.Asserts = nil
	errs := Validate(c)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidParamName, errs[0].Code)
}

func TestValidateContractUndefinedVariable(t *testing.T) {
	c := absContract()
	c.Asserts = append(c.Asserts, Clause{Term: term.Lt(term.V("y"), term.V("ret"))})
	errs := Validate(c)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrUndefinedVariable, errs[0].Code)
	assert.Equal(t, "asserts[1]", errs[0].Field)
	assert.Contains(t, errs[0].Message, `"y"`)
	assert.Contains(t, errs[0].Message, "y < ret")
}

func TestValidateContractAssumeUsesReturn(t *testing.T) {
	c := absContract()
	c.Assumes = []Clause{{Term: term.Gt(term.V("ret"), term.Int(0))}}
	errs := Validate(c)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrAssumeUsesReturn, errs[0].Code)
	assert.Equal(t, "assumes[0]", errs[0].Field)
}

func TestValidateContractMalformedTerm(t *testing.T) {
	c := absContract()
	c.Assumes = []Clause{{Term: nil}}
	c.Asserts = []Clause{{Term: term.Cmp{Op: term.OpAdd, Left: term.V("ret"), Right: term.Int(1)}}}
	errs := Validate(c)

	require.Len(t, errs, 2)
	assert.Equal(t, []string{ErrMalformedTerm, ErrMalformedTerm}, codes(errs))
	assert.Contains(t, errs[0].Message, "nil term")
	assert.Contains(t, errs[1].Message, "not a comparison")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	c := &Contract{
		Args:    []Param{{Name: "a", Type: "float"}, {Name: "a", Type: "int"}},
		Assumes: []Clause{{Term: term.V("missing")}},
	}
	errs := Validate(c)
	assert.ElementsMatch(t,
		[]string{ErrNoFunction, ErrInvalidParamType, ErrDuplicateParam, ErrUndefinedVariable},
		codes(errs))
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a contract")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedContract, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "args[0].type", Message: "bad", Code: ErrInvalidParamType}
	assert.Equal(t, "[E202] args[0].type: bad", e.Error())
	e.Line = 7
	assert.Equal(t, "[E202] line 7: args[0].type: bad", e.Error())
}
