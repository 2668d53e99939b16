// Package backend provides Arena, an in-memory methodspec.Backend.
//
// An Arena owns every builder and spec object created through it and hands
// out tokens from a logical clock. Between protocol steps the caller
// records formulas with the recorder API:
//
//	a := backend.NewArena()
//	var x, out int
//	b := a.Begin("abs")
//	vx := a.Fresh("x", &x)
//	b = methodspec.AddArg(b, &x)
//	a.Assume(term.Ge(vx, term.Int(0)), "")
//	r := methodspec.SetReturn(b.GatherAssumes(), &out)
//	ret, _ := a.VarOf(&out)
//	a.Assert(term.Eq(ret, vx), "")
//	spec := r.GatherAsserts().Finish()
//
// A pointer without a Fresh name is named after its slot (arg0, arg1,
// ret) when it is bound.
//
// Every NewBuilder opens a lineage with its own names and pending
// formulas. The arena-level Fresh, Assume, Assert and Pending act on the
// lineage whose builder took the most recent step, so builders may be
// interleaved on one goroutine. Builders on separate goroutines record
// through the Scope that Open returns:
//
//	b, sc := a.Open("abs")
//	vx := sc.Fresh("x", &x)
//	sc.Assume(term.Ge(vx, term.Int(0)), "")
//
// GatherAssumes and GatherAsserts move the lineage's pending formulas
// into the builder and clear them. Finish freezes the builder into an ir.SpecRecord
// with a content-addressed id.
//
// The protocol steps never return errors. Budget exhaustion, reuse of a
// consumed token and out-of-order raw calls are recorded as diagnostics,
// logged, and available from Err and Diagnostics. The affected step yields
// the dead token 0, which pretty-prints as methodspec.UnknownSpecText and
// passes silently through later steps.
//
// Arena is safe for concurrent use.
package backend
