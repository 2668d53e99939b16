package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/specbuilder/internal/term"
)

// Contract is a compiled method contract: the declaration a backend
// replays through the staged builder.
type Contract struct {
	Name     string
	Function string
	Args     []Param
	Assumes  []Clause
	Return   *Param
	Asserts  []Clause

	// Scenarios lists conformance scenario files, relative to the
	// contract's directory.
	Scenarios []string
}

// FunctionName returns Function, or Name when Function is empty.
func (c *Contract) FunctionName() string {
	if c.Function != "" {
		return c.Function
	}
	return c.Name
}

// Param is a named, typed argument or return value.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Clause is one assumption or assertion.
type Clause struct {
	Term    term.Term
	Message string
}

// ScalarTypes lists the Go types a contract parameter may have.
var ScalarTypes = []string{
	"bool", "string",
	"int", "int8", "int16", "int32", "int64",
	"uint", "uint8", "uint16", "uint32", "uint64",
}

// IsScalarType reports whether typ is one of ScalarTypes.
func IsScalarType(typ string) bool {
	for _, s := range ScalarTypes {
		if s == typ {
			return true
		}
	}
	return false
}

// CompileContract parses a CUE value into a Contract. The value should be
// the contract struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`contract: abs: { ... }`)
//	c, err := CompileContract(v.LookupPath(cue.ParsePath("contract.abs")))
//
// Structural problems fail here; semantic checks are left to Validate.
func CompileContract(v cue.Value) (*Contract, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &Contract{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		c.Name = labels[len(labels)-1].String()
	}

	if fv := v.LookupPath(cue.ParsePath("function")); fv.Exists() {
		fn, err := fv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c.Function = fn
	}

	var err error
	if c.Args, err = parseParams(v.LookupPath(cue.ParsePath("args"))); err != nil {
		return nil, err
	}
	if c.Assumes, err = parseClauses(v.LookupPath(cue.ParsePath("assumes")), "assumes"); err != nil {
		return nil, err
	}
	if rv := v.LookupPath(cue.ParsePath("returns")); rv.Exists() {
		p, err := parseParam(rv, "returns")
		if err != nil {
			return nil, err
		}
		c.Return = &p
	}
	if c.Asserts, err = parseClauses(v.LookupPath(cue.ParsePath("asserts")), "asserts"); err != nil {
		return nil, err
	}
	if sv := v.LookupPath(cue.ParsePath("scenarios")); sv.Exists() {
		if err := sv.Decode(&c.Scenarios); err != nil {
			return nil, &CompileError{Field: "scenarios", Message: err.Error(), Pos: sv.Pos()}
		}
	}
	return c, nil
}

func parseParams(v cue.Value) ([]Param, error) {
	params := []Param{}
	if !v.Exists() {
		return params, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		p, err := parseParam(iter.Value(), fmt.Sprintf("args[%d]", i))
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

func parseParam(v cue.Value, field string) (Param, error) {
	var p Param
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return p, &CompileError{Field: field + ".name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return p, formatCUEError(err)
	}
	p.Name = name

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return p, &CompileError{Field: field + ".type", Message: "type is required", Pos: v.Pos()}
	}
	typ, err := typeVal.String()
	if err != nil {
		return p, formatCUEError(err)
	}
	p.Type = typ
	return p, nil
}

// parseClauses accepts a list whose items are either a term or a struct
// {term, message}.
func parseClauses(v cue.Value, field string) ([]Clause, error) {
	clauses := []Clause{}
	if !v.Exists() {
		return clauses, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		path := fmt.Sprintf("%s[%d]", field, i)

		var cl Clause
		termVal := item
		if tv := item.LookupPath(cue.ParsePath("term")); item.Kind() == cue.StructKind && tv.Exists() {
			termVal = tv
			if mv := item.LookupPath(cue.ParsePath("message")); mv.Exists() {
				msg, err := mv.String()
				if err != nil {
					return nil, formatCUEError(err)
				}
				cl.Message = msg
			}
		}

		raw, err := toGo(termVal)
		if err != nil {
			return nil, &CompileError{Field: path, Message: err.Error(), Pos: termVal.Pos()}
		}
		t, err := term.DecodeAny(raw)
		if err != nil {
			return nil, &CompileError{Field: path, Message: err.Error(), Pos: termVal.Pos()}
		}
		cl.Term = t
		clauses = append(clauses, cl)
	}
	return clauses, nil
}

// toGo converts a concrete CUE value into plain Go values. Integers become
// int64; floats are rejected.
func toGo(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.BoolKind:
		return v.Bool()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		out := []any{}
		for iter.Next() {
			elem, err := toGo(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := map[string]any{}
		for iter.Next() {
			elem, err := toGo(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Label(), err)
			}
			out[iter.Label()] = elem
		}
		return out, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, fmt.Errorf("floats are not allowed in terms")
	case cue.BottomKind:
		return nil, fmt.Errorf("value is not concrete: %v", v.IncompleteKind())
	default:
		return nil, fmt.Errorf("unsupported value kind %v", v.Kind())
	}
}
