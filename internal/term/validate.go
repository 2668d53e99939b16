package term

import (
	"fmt"
	"slices"
)

// Vars returns the distinct variable names referenced by t, sorted.
func Vars(t Term) []string {
	seen := map[string]bool{}
	walk(t, func(n Term) {
		switch v := n.(type) {
		case Var:
			seen[v.Name] = true
		case *Var:
			seen[v.Name] = true
		}
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// walk visits t and its children in pre-order.
func walk(t Term, visit func(Term)) {
	if t == nil {
		return
	}
	visit(t)
	for _, child := range children(t) {
		walk(child, visit)
	}
}

func children(t Term) []Term {
	switch n := t.(type) {
	case Cmp:
		return []Term{n.Left, n.Right}
	case *Cmp:
		return []Term{n.Left, n.Right}
	case Arith:
		return []Term{n.Left, n.Right}
	case *Arith:
		return []Term{n.Left, n.Right}
	case And:
		return n.Terms
	case *And:
		return n.Terms
	case Or:
		return n.Terms
	case *Or:
		return n.Terms
	case Not:
		return []Term{n.Term}
	case *Not:
		return []Term{n.Term}
	default:
		return nil
	}
}

// ValidationResult lists problems found in a term. Valid is true when
// Problems is empty.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Validate checks t for structural problems and, when known is non-nil,
// for references to variables it does not report as defined.
//
// Validate is a pure function.
func Validate(t Term, known func(name string) bool) ValidationResult {
	v := &validator{known: known}
	v.check(t)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	known    func(string) bool
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) check(t Term) {
	switch n := t.(type) {
	case nil:
		v.addProblem("nil term")
	case Var:
		v.checkVar(n.Name)
	case *Var:
		v.checkVar(n.Name)
	case Lit:
		if n.Value == nil {
			v.addProblem("literal without value")
		}
	case *Lit:
		v.check(*n)
	case Cmp:
		if !n.Op.IsComparison() {
			v.addProblem("%q is not a comparison", n.Op)
		}
		v.check(n.Left)
		v.check(n.Right)
	case *Cmp:
		v.check(*n)
	case Arith:
		if !n.Op.IsArithmetic() {
			v.addProblem("%q is not an arithmetic operator", n.Op)
		}
		v.check(n.Left)
		v.check(n.Right)
	case *Arith:
		v.check(*n)
	default:
		for _, child := range children(t) {
			v.check(child)
		}
	}
}

func (v *validator) checkVar(name string) {
	if name == "" {
		v.addProblem("empty variable name")
		return
	}
	if v.known != nil && !v.known(name) {
		v.addProblem("undefined variable %q", name)
	}
}
