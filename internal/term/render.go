package term

import (
	"fmt"
	"strings"

	"github.com/roach88/specbuilder/internal/ir"
)

// Binding precedence, loosest first.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCmp
	precAdd
	precMul
	precAtom
)

// Render writes t in infix notation with minimal parentheses.
func Render(t Term) string {
	var sb strings.Builder
	render(&sb, t)
	return sb.String()
}

func precedence(t Term) int {
	switch n := t.(type) {
	case Or, *Or:
		return precOr
	case And, *And:
		return precAnd
	case Not, *Not:
		return precNot
	case Cmp, *Cmp:
		return precCmp
	case Arith:
		if n.Op == OpMul {
			return precMul
		}
		return precAdd
	case *Arith:
		if n.Op == OpMul {
			return precMul
		}
		return precAdd
	default:
		return precAtom
	}
}

// renderChild parenthesizes child when it binds looser than min.
func renderChild(sb *strings.Builder, child Term, min int) {
	if precedence(child) < min {
		sb.WriteByte('(')
		render(sb, child)
		sb.WriteByte(')')
		return
	}
	render(sb, child)
}

func render(sb *strings.Builder, t Term) {
	switch n := t.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Var:
		sb.WriteString(n.Name)
	case *Var:
		sb.WriteString(n.Name)
	case Lit:
		sb.WriteString(ir.Text(n.Value))
	case *Lit:
		sb.WriteString(ir.Text(n.Value))
	case Cmp:
		renderBinary(sb, cmpOps[n.Op], n.Left, n.Right, precCmp+1, precCmp+1)
	case *Cmp:
		renderBinary(sb, cmpOps[n.Op], n.Left, n.Right, precCmp+1, precCmp+1)
	case Arith:
		renderArith(sb, n)
	case *Arith:
		renderArith(sb, *n)
	case And:
		renderNary(sb, " && ", "true", n.Terms, precAnd+1)
	case *And:
		renderNary(sb, " && ", "true", n.Terms, precAnd+1)
	case Or:
		renderNary(sb, " || ", "false", n.Terms, precOr+1)
	case *Or:
		renderNary(sb, " || ", "false", n.Terms, precOr+1)
	case Not:
		sb.WriteByte('!')
		renderChild(sb, n.Term, precAtom)
	case *Not:
		sb.WriteByte('!')
		renderChild(sb, n.Term, precAtom)
	default:
		fmt.Fprintf(sb, "<%T>", t)
	}
}

func renderArith(sb *strings.Builder, n Arith) {
	p := precAdd
	if n.Op == OpMul {
		p = precMul
	}
	// Left-associative: the right operand needs parens at equal precedence.
	renderBinary(sb, arithOps[n.Op], n.Left, n.Right, p, p+1)
}

func renderBinary(sb *strings.Builder, sym string, l, r Term, lmin, rmin int) {
	if sym == "" {
		sym = "?"
	}
	renderChild(sb, l, lmin)
	sb.WriteString(" " + sym + " ")
	renderChild(sb, r, rmin)
}

func renderNary(sb *strings.Builder, sep, empty string, terms []Term, min int) {
	if len(terms) == 0 {
		sb.WriteString(empty)
		return
	}
	for i, t := range terms {
		if i > 0 {
			sb.WriteString(sep)
		}
		renderChild(sb, t, min)
	}
}
