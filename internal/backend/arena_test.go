package backend

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specbuilder/internal/ir"
	"github.com/roach88/specbuilder/internal/methodspec"
	"github.com/roach88/specbuilder/internal/term"
	"github.com/roach88/specbuilder/internal/testutil"
)

type point struct {
	X, Y int
}

func newTestArena(opts ...ArenaOption) *Arena {
	base := []ArenaOption{
		WithClock(testutil.NewDeterministicClock()),
		WithSession(testutil.NewFixedSessionGenerator("test-session")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewArena(append(base, opts...)...)
}

func TestArenaTwoArgumentSpec(t *testing.T) {
	a := newTestArena()
	x, y, z := 3, 4, 7

	b0 := methodspec.NewWith(a)
	b1 := methodspec.AddArg(b0, &x)
	b2 := methodspec.AddArg(b1, &y)
	b3 := b2.GatherAssumes()
	b4 := methodspec.SetReturn(b3, &z)
	b5 := b4.GatherAsserts()
	h := b5.Finish()

	require.NoError(t, a.Err())
	rec, ok := a.Record(h)
	require.True(t, ok)

	assert.Equal(t, "test-session", rec.Session)
	assert.Equal(t, DefaultFunction, rec.Function)
	require.Len(t, rec.Args, 2)
	assert.Equal(t, "arg0", rec.Args[0].Name)
	assert.Equal(t, 0, rec.Args[0].Slot)
	assert.Equal(t, int64(2), rec.Args[0].Seq)
	assert.Equal(t, ir.Int(3), rec.Args[0].Value)
	assert.Equal(t, "arg1", rec.Args[1].Name)
	assert.Equal(t, 1, rec.Args[1].Slot)
	assert.Equal(t, int64(4), rec.Args[1].Seq)

	require.NotNil(t, rec.Return)
	assert.Equal(t, "ret", rec.Return.Name)
	assert.Equal(t, ir.ReturnSlot, rec.Return.Slot)
	assert.Equal(t, "int", rec.Return.Type)
	assert.Equal(t, int64(7), rec.Return.Seq)
	assert.Equal(t, int64(10), rec.Seq)

	assert.Equal(t, ir.MustSpecID(rec), rec.ID)
	assert.Equal(t, "spec anonymous(arg0: int, arg1: int)\n  returns ret: int", methodspec.PrettyPrint(h))
}

func TestArenaNullarySpec(t *testing.T) {
	a := newTestArena()
	ret := 42
	h := methodspec.SetReturn(a.Begin("answer").GatherAssumes(), &ret).GatherAsserts().Finish()

	require.NoError(t, a.Err())
	rec, ok := a.Record(h)
	require.True(t, ok)
	assert.Empty(t, rec.Args)
	assert.NotNil(t, rec.Args)
	assert.Equal(t, "spec answer()\n  returns ret: int", methodspec.PrettyPrint(h))
}

func TestArenaRecorder(t *testing.T) {
	a := newTestArena()
	var x, out int

	b := a.Begin("abs")
	vx := a.Fresh("x", &x)
	b = methodspec.AddArg(b, &x)
	a.Assume(term.Ge(vx, term.Int(0)), "")
	assumes, asserts := a.Pending()
	assert.Equal(t, 1, assumes)
	assert.Equal(t, 0, asserts)

	r := methodspec.SetReturn(b.GatherAssumes(), &out)
	assumes, _ = a.Pending()
	assert.Equal(t, 0, assumes, "gather clears pending assumptions")

	ret, ok := a.VarOf(&out)
	require.True(t, ok)
	assert.Equal(t, term.V("ret"), ret)
	a.Assert(term.Eq(ret, vx), "identity on non-negatives")
	h := r.GatherAsserts().Finish()

	require.NoError(t, a.Err())
	assert.Equal(t,
		"spec abs(x: int)\n"+
			"  requires x >= 0\n"+
			"  returns ret: int\n"+
			"  ensures ret == x // identity on non-negatives",
		methodspec.PrettyPrint(h))

	rec, ok := a.Record(h)
	require.True(t, ok)
	require.Len(t, rec.Assumes, 1)
	assert.Equal(t, term.MustEncode(term.Ge(term.V("x"), term.Int(0))), rec.Assumes[0].Term)
	assert.Equal(t, "x >= 0", rec.Assumes[0].Text)
	require.Len(t, rec.Asserts, 1)
	assert.Equal(t, "identity on non-negatives", rec.Asserts[0].Message)
}

func TestArenaLateAssumptionStaysPending(t *testing.T) {
	a := newTestArena()
	var out int
	ab := a.Begin("f").GatherAssumes()
	a.Assume(term.Bool(true), "too late")
	h := methodspec.SetReturn(ab, &out).GatherAsserts().Finish()

	rec, ok := a.Record(h)
	require.True(t, ok)
	assert.Empty(t, rec.Assumes)
	assumes, _ := a.Pending()
	assert.Equal(t, 1, assumes)
}

func TestArenaFreshNames(t *testing.T) {
	a := newTestArena()
	var p, q int
	assert.Equal(t, term.V("n"), a.Fresh("n", &p))
	assert.Equal(t, term.V("n_1"), a.Fresh("n", &q))
	assert.Equal(t, term.V("n"), a.Fresh("other", &p), "a named pointer keeps its name")
	assert.Equal(t, term.V("v"), a.Fresh("", new(int)))

	_, ok := a.VarOf(new(int))
	assert.False(t, ok)
	_, ok = a.VarOf(42)
	assert.False(t, ok)
}

func TestArenaAssumeInvalidTerm(t *testing.T) {
	a := newTestArena()
	a.Assume(nil, "")
	err := a.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assume")
	assumes, _ := a.Pending()
	assert.Equal(t, 0, assumes)
}

func TestArenaArgumentPolymorphism(t *testing.T) {
	a := newTestArena()
	n := 5
	pt := point{X: 1, Y: 2}
	name := "gopher"
	var out []string

	b := methodspec.AddArg(a.Begin("mixed"), &n)
	b = methodspec.AddArg(b, &pt)
	b = methodspec.AddArg(b, &name)
	h := methodspec.SetReturn(b.GatherAssumes(), &out).GatherAsserts().Finish()

	rec, ok := a.Record(h)
	require.True(t, ok)
	require.Len(t, rec.Args, 3)
	assert.Equal(t, "int", rec.Args[0].Type)
	assert.Equal(t, "backend.point", rec.Args[1].Type)
	assert.Equal(t, ir.Object{"X": ir.Int(1), "Y": ir.Int(2)}, rec.Args[1].Value)
	assert.Equal(t, ir.Str("gopher"), rec.Args[2].Value)
	assert.Equal(t, "[]string", rec.Return.Type)
	assert.Equal(t, ir.Array{}, rec.Return.Value)
}

func TestArenaCopiesAreInterchangeable(t *testing.T) {
	a := newTestArena()
	var x, out int

	b := methodspec.AddArg(a.Begin("f"), &x)
	copied := b
	spec := methodspec.SetReturn(copied.GatherAssumes(), &out).GatherAsserts().Finish()
	again := spec

	require.NoError(t, a.Err())
	assert.Equal(t, methodspec.PrettyPrint(spec), methodspec.PrettyPrint(again))
	r1, _ := a.Record(spec)
	r2, _ := a.Record(again)
	assert.Equal(t, r1, r2)
}

func TestArenaStaleToken(t *testing.T) {
	a := newTestArena()
	var x, y, out int

	b0 := a.Begin("f")
	_ = methodspec.AddArg(b0, &x)
	reused := methodspec.AddArg(b0, &y)
	h := methodspec.SetReturn(reused.GatherAssumes(), &out).GatherAsserts().Finish()

	diags := a.Diagnostics()
	require.Len(t, diags, 1, "the dead chain reports once")
	assert.True(t, IsStaleTokenError(diags[0]))

	var se *StaleTokenError
	require.ErrorAs(t, diags[0], &se)
	assert.Equal(t, methodspec.OpAddArg, se.Op)
	assert.Equal(t, methodspec.OpAddArg, se.ConsumedBy)

	assert.Equal(t, methodspec.UnknownSpecText, methodspec.PrettyPrint(h))
	_, ok := a.Record(h)
	assert.False(t, ok)
	assert.Empty(t, a.Specs())
}

func TestArenaBudget(t *testing.T) {
	a := newTestArena(WithMaxObjects(1))
	var out int

	first := methodspec.SetReturn(a.Begin("one").GatherAssumes(), &out).GatherAsserts().Finish()
	second := methodspec.SetReturn(a.Begin("two").GatherAssumes(), &out).GatherAsserts().Finish()

	assert.NotEqual(t, methodspec.UnknownSpecText, methodspec.PrettyPrint(first))
	assert.Equal(t, methodspec.UnknownSpecText, methodspec.PrettyPrint(second))

	err := a.Err()
	require.Error(t, err)
	assert.True(t, IsBudgetError(err))
	assert.Contains(t, err.Error(), "1 of 1")
	assert.Len(t, a.Specs(), 1)
}

func TestArenaUnlimitedBudget(t *testing.T) {
	a := newTestArena(WithMaxObjects(0))
	var out int
	for i := 0; i < 10; i++ {
		methodspec.SetReturn(a.Begin("f").GatherAssumes(), &out).GatherAsserts().Finish()
	}
	assert.NoError(t, a.Err())
	assert.Len(t, a.Specs(), 10)
}

func TestArenaRawOrderViolation(t *testing.T) {
	a := newTestArena()
	var out int

	tok := a.NewBuilder()
	assert.Equal(t, dead, a.SetReturn(tok, &out))

	err := a.Err()
	require.Error(t, err)
	assert.True(t, methodspec.IsOrderError(err))

	// The rejected step does not consume the builder.
	next := a.GatherAssumes(tok)
	assert.NotEqual(t, dead, next)
	assert.Len(t, a.Diagnostics(), 1)
}

func TestArenaUnknownToken(t *testing.T) {
	a := newTestArena()
	assert.Equal(t, dead, a.Finish(999))

	var ue *UnknownTokenError
	require.ErrorAs(t, a.Err(), &ue)
	assert.Equal(t, methodspec.Token(999), ue.Token)
	assert.Equal(t, methodspec.OpFinish, ue.Op)
}

func TestArenaPrettyPrintUnfinished(t *testing.T) {
	a := newTestArena()
	tok := a.NewBuilder()
	assert.Equal(t, methodspec.UnknownSpecText, a.PrettyPrint(tok))
	assert.Equal(t, methodspec.UnknownSpecText, a.PrettyPrint(dead))
}

func TestArenaRecordForeignSpec(t *testing.T) {
	a := newTestArena()
	other := newTestArena()
	var out int
	h := methodspec.SetReturn(other.Begin("f").GatherAssumes(), &out).GatherAsserts().Finish()

	_, ok := a.Record(h)
	assert.False(t, ok)
	_, ok = a.Record(methodspec.MethodSpec{})
	assert.False(t, ok)
	_, ok = other.Record(h)
	assert.True(t, ok)
}

func TestArenaDeterministicIDs(t *testing.T) {
	build := func(v int) string {
		a := newTestArena()
		x, out := v, 0
		h := methodspec.SetReturn(methodspec.AddArg(a.Begin("f"), &x).GatherAssumes(), &out).GatherAsserts().Finish()
		rec, ok := a.Record(h)
		require.True(t, ok)
		return rec.ID
	}
	assert.Equal(t, build(1), build(1))
	assert.NotEqual(t, build(1), build(2))
}

func TestArenaSpecsOrder(t *testing.T) {
	a := newTestArena()
	var out int
	for _, fn := range []string{"c", "a", "b"} {
		methodspec.SetReturn(a.Begin(fn).GatherAssumes(), &out).GatherAsserts().Finish()
	}
	specs := a.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "c", specs[0].Function)
	assert.Equal(t, "a", specs[1].Function)
	assert.Equal(t, "b", specs[2].Function)
	assert.Less(t, specs[0].Seq, specs[1].Seq)
}

func TestArenaInterleavedLineages(t *testing.T) {
	a := newTestArena()
	var x, y, outF, outG int

	bf := a.Begin("f")
	vx := a.Fresh("x", &x)
	bf = methodspec.AddArg(bf, &x)
	a.Assume(term.Ge(vx, term.Int(0)), "f precondition")

	bg := a.Begin("g")
	vy := a.Fresh("y", &y)
	bg = methodspec.AddArg(bg, &y)
	rg := methodspec.SetReturn(bg.GatherAssumes(), &outG)

	got, ok := a.VarOf(&x)
	require.True(t, ok, "starting g keeps f's bindings")
	assert.Equal(t, vx, got)
	got, ok = a.VarOf(&y)
	require.True(t, ok)
	assert.Equal(t, vy, got)

	rf := methodspec.SetReturn(bf.GatherAssumes(), &outF)
	retF, ok := a.VarOf(&outF)
	require.True(t, ok)
	a.Assert(term.Eq(retF, vx), "f identity")
	f := rf.GatherAsserts().Finish()

	a.Assume(term.Bool(true), "after f")
	assumes, _ := a.Pending()
	assert.Equal(t, 1, assumes, "the late assumption stays with f")

	retG, ok := a.VarOf(&outG)
	require.True(t, ok)
	g := rg.GatherAsserts().Finish()

	require.NoError(t, a.Err())
	assert.Equal(t,
		"spec f(x: int)\n"+
			"  requires x >= 0 // f precondition\n"+
			"  returns ret: int\n"+
			"  ensures ret == x // f identity",
		methodspec.PrettyPrint(f))
	assert.Equal(t, "spec g(y: int)\n  returns ret: int", methodspec.PrettyPrint(g))
	assert.Equal(t, term.V("ret"), retG)
}

func TestArenaScopesAreIndependent(t *testing.T) {
	a := newTestArena()
	var x, y int

	bf, sf := a.Open("f")
	bg, sg := a.Open("g")
	assert.NotEqual(t, sf.Root(), sg.Root())

	vx := sf.Fresh("n", &x)
	vy := sg.Fresh("n", &y)
	assert.Equal(t, term.V("n"), vx)
	assert.Equal(t, term.V("n"), vy, "names are scoped to the lineage")
	_, ok := sf.VarOf(&y)
	assert.False(t, ok)

	sf.Assume(term.Ge(vx, term.Int(0)), "")
	sg.Assume(term.Lt(vy, term.Int(10)), "")
	sg.Assert(term.Bool(true), "")
	assumes, asserts := sf.Pending()
	assert.Equal(t, 1, assumes)
	assert.Equal(t, 0, asserts)

	var outF, outG int
	g := methodspec.SetReturn(methodspec.AddArg(bg, &y).GatherAssumes(), &outG).GatherAsserts().Finish()
	f := methodspec.SetReturn(methodspec.AddArg(bf, &x).GatherAssumes(), &outF).GatherAsserts().Finish()

	rf, ok := a.Record(f)
	require.True(t, ok)
	require.Len(t, rf.Assumes, 1)
	assert.Equal(t, "n >= 0", rf.Assumes[0].Text)
	assert.Empty(t, rf.Asserts)

	rg, ok := a.Record(g)
	require.True(t, ok)
	require.Len(t, rg.Assumes, 1)
	assert.Equal(t, "n < 10", rg.Assumes[0].Text)
	assert.Len(t, rg.Asserts, 1)
	assert.NoError(t, sf.Err())
	assert.NoError(t, sg.Err())
}

func TestArenaScopeErr(t *testing.T) {
	a := newTestArena()
	_, sf := a.Open("f")
	_, sg := a.Open("g")
	sg.Assume(nil, "")

	assert.NoError(t, sf.Err())
	require.Error(t, sg.Err())
	assert.Contains(t, sg.Err().Error(), "assume")
	assert.Len(t, a.Diagnostics(), 1)
}

func TestArenaConcurrentBuilders(t *testing.T) {
	a := NewArena(WithMaxObjects(0))
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, out := i, 0
			b, sc := a.Open(fmt.Sprintf("f%d", i))
			vx := sc.Fresh("x", &x)
			b = methodspec.AddArg(b, &x)
			sc.Assume(term.Eq(vx, term.Int(int64(i))), fmt.Sprintf("f%d", i))
			r := methodspec.SetReturn(b.GatherAssumes(), &out)
			ret, _ := sc.VarOf(&out)
			sc.Assert(term.Eq(ret, vx), "")
			r.GatherAsserts().Finish()
		}(i)
	}
	wg.Wait()

	require.NoError(t, a.Err())
	specs := a.Specs()
	require.Len(t, specs, n)
	for _, rec := range specs {
		require.Len(t, rec.Assumes, 1, rec.Function)
		assert.Equal(t, rec.Function, rec.Assumes[0].Message)
		assert.Equal(t, "x == "+strings.TrimPrefix(rec.Function, "f"), rec.Assumes[0].Text)
		assert.Len(t, rec.Asserts, 1, rec.Function)
		require.Len(t, rec.Args, 1)
		assert.Equal(t, "x", rec.Args[0].Name)
	}
}

func TestArenaConcurrentBeginKeepsLabel(t *testing.T) {
	a := NewArena(WithMaxObjects(0))
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			var out int
			methodspec.SetReturn(a.Begin(fmt.Sprintf("f%d", i)).GatherAssumes(), &out).GatherAsserts().Finish()
		}(i)
		go func() {
			defer wg.Done()
			var out int
			methodspec.SetReturn(methodspec.NewWith(a).GatherAssumes(), &out).GatherAsserts().Finish()
		}()
	}
	wg.Wait()

	require.NoError(t, a.Err())
	seen := make(map[string]int)
	for _, rec := range a.Specs() {
		seen[rec.Function]++
	}
	assert.Equal(t, n, seen[DefaultFunction])
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, seen[fmt.Sprintf("f%d", i)])
	}
}

func TestArenaDefaultSession(t *testing.T) {
	a := NewArena()
	assert.Len(t, a.Session(), 36)
	assert.NotEqual(t, a.Session(), NewArena().Session())
}

func TestArenaAsDefaultBackend(t *testing.T) {
	a := newTestArena()
	prev := methodspec.SetDefault(a)
	t.Cleanup(func() { methodspec.SetDefault(prev) })

	var out bool
	h := methodspec.SetReturn(methodspec.New().GatherAssumes(), &out).GatherAsserts().Finish()
	assert.Equal(t, "spec anonymous()\n  returns ret: bool", methodspec.PrettyPrint(h))
}
