package backend

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/specbuilder/internal/ir"
	"github.com/roach88/specbuilder/internal/methodspec"
	"github.com/roach88/specbuilder/internal/term"
)

// recorder is the variable scope and pending formulas of one lineage, the
// chain of tokens descending from a single NewBuilder. root is that
// builder's token, or dead for formulas recorded before any builder
// existed. Guarded by Arena.mu.
type recorder struct {
	root    methodspec.Token
	vars    map[any]string
	names   map[string]bool
	assumes []ir.Clause
	asserts []ir.Clause
	diags   []error
}

func newRecorder() *recorder {
	return &recorder{
		vars:  make(map[any]string),
		names: make(map[string]bool),
	}
}

func isPointer(ref any) bool {
	return ref != nil && reflect.TypeOf(ref).Kind() == reflect.Pointer
}

// bind returns the name of ref, binding it to a unique variant of name if
// it has none. Only pointers are remembered.
func (r *recorder) bind(ref any, name string) string {
	if isPointer(ref) {
		if existing, ok := r.vars[ref]; ok {
			return existing
		}
	}
	unique := name
	for i := 1; r.names[unique]; i++ {
		unique = fmt.Sprintf("%s_%d", name, i)
	}
	r.names[unique] = true
	if isPointer(ref) {
		r.vars[ref] = unique
	}
	return unique
}

func (r *recorder) lookup(ref any) (string, bool) {
	if !isPointer(ref) {
		return "", false
	}
	name, ok := r.vars[ref]
	return name, ok
}

func (r *recorder) drainAssumes() []ir.Clause {
	out := r.assumes
	r.assumes = nil
	return out
}

func (r *recorder) drainAsserts() []ir.Clause {
	out := r.asserts
	r.asserts = nil
	return out
}

func argName(slot int) string {
	return fmt.Sprintf("arg%d", slot)
}

// placeholder snapshots ref into a new placeholder named in rec. Callers
// hold a.mu.
func (a *Arena) placeholder(rec *recorder, ref any, slot int, fallback string) (ir.Placeholder, error) {
	name := rec.bind(ref, fallback)
	seq := a.clock.Next()
	id, err := ir.PlaceholderID(a.session, name, seq)
	if err != nil {
		return ir.Placeholder{}, fmt.Errorf("placeholder %s: %w", name, err)
	}
	return ir.Placeholder{
		ID:    id,
		Slot:  slot,
		Name:  name,
		Type:  ir.TypeName(ref),
		Value: ir.Lower(ref),
		Seq:   seq,
	}, nil
}

func fresh(rec *recorder, name string, ptr any) term.Var {
	if name == "" {
		name = "v"
	}
	return term.V(rec.bind(ptr, name))
}

func (a *Arena) assume(rec *recorder, t term.Term, msg string) {
	if c, ok := a.clause(rec, t, msg, "assume"); ok {
		rec.assumes = append(rec.assumes, c)
	}
}

func (a *Arena) assert(rec *recorder, t term.Term, msg string) {
	if c, ok := a.clause(rec, t, msg, "assert"); ok {
		rec.asserts = append(rec.asserts, c)
	}
}

func (a *Arena) clause(rec *recorder, t term.Term, msg, kind string) (ir.Clause, bool) {
	obj, err := term.Encode(t)
	if err != nil {
		a.reportIn(rec, fmt.Errorf("%s: %w", kind, err))
		return ir.Clause{}, false
	}
	return ir.Clause{Term: obj, Text: term.Render(t), Message: msg}, true
}

// Fresh names the variable behind ptr in the current lineage and returns
// it as a term. If ptr is already named there, the existing variable is
// returned. A taken name gets a numeric suffix.
//
// The current lineage is the one whose builder took the most recent
// protocol step. Formulas and names recorded before any builder exists
// belong to the first builder created.
func (a *Arena) Fresh(name string, ptr any) term.Var {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fresh(a.current, name, ptr)
}

// VarOf returns the variable bound to ptr by Fresh, AddArg or SetReturn.
// The current lineage is searched first, then open lineages from newest
// to oldest.
func (a *Arena) VarOf(ptr any) (term.Var, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if name, ok := a.current.lookup(ptr); ok {
		return term.V(name), true
	}
	for i := len(a.lineages) - 1; i >= 0; i-- {
		if name, ok := a.lineages[i].lookup(ptr); ok {
			return term.V(name), true
		}
	}
	return term.Var{}, false
}

// Assume records a precondition for the next GatherAssumes of the current
// lineage.
func (a *Arena) Assume(t term.Term, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.assume(a.current, t, msg)
}

// Assert records a postcondition for the next GatherAsserts of the current
// lineage.
func (a *Arena) Assert(t term.Term, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.assert(a.current, t, msg)
}

// Pending returns how many formulas the current lineage has waiting to be
// gathered.
func (a *Arena) Pending() (assumes, asserts int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.current.assumes), len(a.current.asserts)
}

// Scope records formulas and names for a single lineage, whatever step
// another lineage took last. Builders run from separate goroutines record
// through their own Scope.
type Scope struct {
	a   *Arena
	rec *recorder
}

// Root returns the token NewBuilder issued for the lineage, or 0 if the
// builder could not be created.
func (s *Scope) Root() methodspec.Token {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	return s.rec.root
}

// Fresh is Arena.Fresh for this lineage.
func (s *Scope) Fresh(name string, ptr any) term.Var {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	return fresh(s.rec, name, ptr)
}

// VarOf returns the variable bound to ptr in this lineage.
func (s *Scope) VarOf(ptr any) (term.Var, bool) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	name, ok := s.rec.lookup(ptr)
	if !ok {
		return term.Var{}, false
	}
	return term.V(name), true
}

// Assume is Arena.Assume for this lineage.
func (s *Scope) Assume(t term.Term, msg string) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	s.a.assume(s.rec, t, msg)
}

// Assert is Arena.Assert for this lineage.
func (s *Scope) Assert(t term.Term, msg string) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	s.a.assert(s.rec, t, msg)
}

// Pending is Arena.Pending for this lineage.
func (s *Scope) Pending() (assumes, asserts int) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	return len(s.rec.assumes), len(s.rec.asserts)
}

// Err returns the diagnostics raised by this lineage's steps joined, or
// nil. Stale and unknown tokens cannot be traced to a lineage and are
// only reported by Arena.Err.
func (s *Scope) Err() error {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	return errors.Join(s.rec.diags...)
}
