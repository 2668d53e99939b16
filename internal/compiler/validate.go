package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/specbuilder/internal/term"
)

// Validation error codes (E200-E299)
const (
	ErrUnsupportedContract = "E200" // not a Contract

	ErrNoFunction        = "E201" // contract has no function name
	ErrInvalidParamType  = "E202" // parameter type is not a scalar Go type
	ErrDuplicateParam    = "E203" // parameter name used twice
	ErrUndefinedVariable = "E204" // clause references an unknown variable
	ErrAssumeUsesReturn  = "E205" // precondition references the return value
	ErrMalformedTerm     = "E206" // clause term is structurally invalid
	ErrInvalidParamName  = "E207" // parameter name is not an identifier
)

// ValidationError represents a contract validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled contract and returns every error found.
func Validate(v any) []ValidationError {
	switch c := v.(type) {
	case *Contract:
		return validateContract(c)
	case Contract:
		return validateContract(&c)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedContract,
		}}
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateContract(c *Contract) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.FunctionName()) == "" {
		errs = append(errs, ValidationError{
			Field:   "function",
			Message: "contract needs a function name",
			Code:    ErrNoFunction,
		})
	}

	seen := make(map[string]bool)
	checkParam := func(p Param, field string) {
		if !identPattern.MatchString(p.Name) {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("invalid parameter name %q", p.Name),
				Code:    ErrInvalidParamName,
			})
		}
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate parameter name: %q", p.Name),
				Code:    ErrDuplicateParam,
			})
		}
		seen[p.Name] = true
		errs = append(errs, validateParamType(p, field+".type")...)
	}

	for i, p := range c.Args {
		checkParam(p, fmt.Sprintf("args[%d]", i))
	}
	returnName := ""
	if c.Return != nil {
		checkParam(*c.Return, "returns")
		returnName = c.Return.Name
	}

	argNames := make(map[string]bool, len(c.Args))
	for _, p := range c.Args {
		argNames[p.Name] = true
	}

	for i, cl := range c.Assumes {
		field := fmt.Sprintf("assumes[%d]", i)
		if !checkTerm(&errs, cl.Term, field) {
			continue
		}
		for _, name := range term.Vars(cl.Term) {
			switch {
			case returnName != "" && name == returnName:
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("precondition references return value %q", name),
					Code:    ErrAssumeUsesReturn,
				})
			case !argNames[name]:
				errs = append(errs, undefinedVariable(field, name, cl.Term))
			}
		}
	}

	for i, cl := range c.Asserts {
		field := fmt.Sprintf("asserts[%d]", i)
		if !checkTerm(&errs, cl.Term, field) {
			continue
		}
		for _, name := range term.Vars(cl.Term) {
			if !argNames[name] && name != returnName {
				errs = append(errs, undefinedVariable(field, name, cl.Term))
			}
		}
	}

	return errs
}

// checkTerm reports structural problems and whether t is sound enough for
// variable checks.
func checkTerm(errs *[]ValidationError, t term.Term, field string) bool {
	res := term.Validate(t, nil)
	for _, p := range res.Problems {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: p,
			Code:    ErrMalformedTerm,
		})
	}
	return res.Valid
}

func undefinedVariable(field, name string, t term.Term) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("undefined variable %q in %s", name, term.Render(t)),
		Code:    ErrUndefinedVariable,
	}
}

func validateParamType(p Param, field string) []ValidationError {
	if IsScalarType(p.Type) {
		return nil
	}
	msg := fmt.Sprintf("invalid type %q for parameter %q", p.Type, p.Name)
	if isFloatType(p.Type) {
		msg = fmt.Sprintf("float type forbidden for parameter %q, use an integer type", p.Name)
	}
	return []ValidationError{{Field: field, Message: msg, Code: ErrInvalidParamType}}
}

func isFloatType(t string) bool {
	switch t {
	case "float", "float32", "float64", "number", "double":
		return true
	}
	return false
}
