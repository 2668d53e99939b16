package term

import "github.com/roach88/specbuilder/internal/ir"

// Term is a sealed formula node.
type Term interface {
	termNode()
}

// Op names a comparison, arithmetic or logical operator.
type Op string

// Operators.
const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpLt  Op = "lt"
	OpLe  Op = "le"
	OpGt  Op = "gt"
	OpGe  Op = "ge"
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpMul Op = "mul"
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpNot Op = "not"
)

var cmpOps = map[Op]string{OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">="}

var arithOps = map[Op]string{OpAdd: "+", OpSub: "-", OpMul: "*"}

// IsComparison reports whether op is a comparison operator.
func (op Op) IsComparison() bool {
	_, ok := cmpOps[op]
	return ok
}

// IsArithmetic reports whether op is an arithmetic operator.
func (op Op) IsArithmetic() bool {
	_, ok := arithOps[op]
	return ok
}

// Var references a placeholder by name.
type Var struct {
	Name string
}

func (Var) termNode() {}

// Lit is a literal value.
type Lit struct {
	Value ir.Value
}

func (Lit) termNode() {}

// Cmp compares two terms.
type Cmp struct {
	Op          Op
	Left, Right Term
}

func (Cmp) termNode() {}

// Arith combines two terms arithmetically.
type Arith struct {
	Op          Op
	Left, Right Term
}

func (Arith) termNode() {}

// And is a conjunction. Empty means true.
type And struct {
	Terms []Term
}

func (And) termNode() {}

// Or is a disjunction. Empty means false.
type Or struct {
	Terms []Term
}

func (Or) termNode() {}

// Not negates a term.
type Not struct {
	Term Term
}

func (Not) termNode() {}

// V returns a variable reference.
func V(name string) Var { return Var{Name: name} }

// Int returns an integer literal.
func Int(n int64) Lit { return Lit{Value: ir.Int(n)} }

// Str returns a string literal.
func Str(s string) Lit { return Lit{Value: ir.Str(s)} }

// Bool returns a boolean literal.
func Bool(b bool) Lit { return Lit{Value: ir.Bool(b)} }

func Eq(l, r Term) Cmp { return Cmp{Op: OpEq, Left: l, Right: r} }
func Ne(l, r Term) Cmp { return Cmp{Op: OpNe, Left: l, Right: r} }
func Lt(l, r Term) Cmp { return Cmp{Op: OpLt, Left: l, Right: r} }
func Le(l, r Term) Cmp { return Cmp{Op: OpLe, Left: l, Right: r} }
func Gt(l, r Term) Cmp { return Cmp{Op: OpGt, Left: l, Right: r} }
func Ge(l, r Term) Cmp { return Cmp{Op: OpGe, Left: l, Right: r} }

func Add(l, r Term) Arith { return Arith{Op: OpAdd, Left: l, Right: r} }
func Sub(l, r Term) Arith { return Arith{Op: OpSub, Left: l, Right: r} }
func Mul(l, r Term) Arith { return Arith{Op: OpMul, Left: l, Right: r} }

// All returns the conjunction of terms.
func All(terms ...Term) And { return And{Terms: terms} }

// Any returns the disjunction of terms.
func Any(terms ...Term) Or { return Or{Terms: terms} }

// Negate returns the negation of t.
func Negate(t Term) Not { return Not{Term: t} }
