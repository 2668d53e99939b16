package backend

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/specbuilder/internal/ir"
	"github.com/roach88/specbuilder/internal/methodspec"
)

// DefaultMaxObjects is the default builder budget per arena.
const DefaultMaxObjects = 4096

// DefaultFunction names specs started with NewBuilder rather than Begin.
const DefaultFunction = "anonymous"

// dead is the token a failed step yields.
const dead methodspec.Token = 0

// object is one builder or spec in the arena. Stage is StageFinished for
// specs.
type object struct {
	stage methodspec.Stage
	rec   ir.SpecRecord
	lin   *recorder
}

// Arena is an in-memory methodspec.Backend.
type Arena struct {
	mu sync.Mutex

	session string
	clock   Sequencer
	logger  *slog.Logger
	budget  *Budget

	objects  map[methodspec.Token]*object
	consumed map[methodspec.Token]string
	specs    []methodspec.Token
	diags    []error

	lineages []*recorder // open, oldest first
	current  *recorder
}

var _ methodspec.Backend = (*Arena)(nil)

// ArenaOption configures an Arena.
type ArenaOption func(*Arena)

// WithMaxObjects sets the builder budget. Zero or less is unlimited.
func WithMaxObjects(n int) ArenaOption {
	return func(a *Arena) {
		a.budget = NewBudget(n)
	}
}

// WithClock replaces the arena clock. Tests pass a
// testutil.DeterministicClock.
func WithClock(c Sequencer) ArenaOption {
	return func(a *Arena) {
		a.clock = c
	}
}

// WithSession draws the session id from gen instead of a UUIDv7.
func WithSession(gen SessionGenerator) ArenaOption {
	return func(a *Arena) {
		a.session = gen.Generate()
	}
}

// WithLogger sets the logger for diagnostics. The default discards.
func WithLogger(l *slog.Logger) ArenaOption {
	return func(a *Arena) {
		a.logger = l
	}
}

// NewArena creates an empty arena.
func NewArena(opts ...ArenaOption) *Arena {
	a := &Arena{
		clock:    NewClock(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		budget:   NewBudget(DefaultMaxObjects),
		objects:  make(map[methodspec.Token]*object),
		consumed: make(map[methodspec.Token]string),
		current:  newRecorder(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.session == "" {
		a.session = UUIDv7Generator{}.Generate()
	}
	a.logger = a.logger.With("session", a.session)
	return a
}

// Session returns the arena's session id.
func (a *Arena) Session() string {
	return a.session
}

// Begin starts a builder for the named function on this arena.
func (a *Arena) Begin(function string) methodspec.Builder {
	b, _ := a.Open(function)
	return b
}

// Open starts a builder for the named function and returns it with the
// Scope of its lineage.
func (a *Arena) Open(function string) (methodspec.Builder, *Scope) {
	a.mu.Lock()
	tok, lin := a.newBuilder(function)
	a.mu.Unlock()
	return methodspec.Attach(a, tok), &Scope{a: a, rec: lin}
}

// report records a diagnostic. Callers hold a.mu.
func (a *Arena) report(err error) {
	a.diags = append(a.diags, err)
	a.logger.Warn("method spec diagnostic", "error", err)
}

// reportIn records a diagnostic raised by a step of lin. Callers hold a.mu.
func (a *Arena) reportIn(lin *recorder, err error) {
	lin.diags = append(lin.diags, err)
	a.report(err)
}

// Err returns every diagnostic joined, or nil.
func (a *Arena) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return errors.Join(a.diags...)
}

// Diagnostics returns a copy of the recorded diagnostics in order.
func (a *Arena) Diagnostics() []error {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]error, len(a.diags))
	copy(out, a.diags)
	return out
}

// issue stores obj under a fresh token. Callers hold a.mu.
func (a *Arena) issue(obj *object) methodspec.Token {
	tok := methodspec.Token(a.clock.Next())
	a.objects[tok] = obj
	return tok
}

// take consumes tok for op and returns its object if it is a builder in
// one of the allowed stages. Callers hold a.mu.
func (a *Arena) take(tok methodspec.Token, op string, allowed ...methodspec.Stage) (*object, bool) {
	if tok == dead {
		return nil, false
	}
	if by, ok := a.consumed[tok]; ok {
		a.report(&StaleTokenError{Token: tok, Op: op, ConsumedBy: by})
		return nil, false
	}
	obj, ok := a.objects[tok]
	if !ok {
		a.report(&UnknownTokenError{Token: tok, Op: op})
		return nil, false
	}
	for _, s := range allowed {
		if obj.stage == s {
			delete(a.objects, tok)
			a.consumed[tok] = op
			a.current = obj.lin
			return obj, true
		}
	}
	a.reportIn(obj.lin, &methodspec.OrderError{Op: op, Stage: obj.stage})
	return nil, false
}

// NewBuilder implements methodspec.Backend. The spec is named
// DefaultFunction.
func (a *Arena) NewBuilder() methodspec.Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	tok, _ := a.newBuilder(DefaultFunction)
	return tok
}

// newBuilder issues a builder for function and opens its lineage. Until
// the first builder exists, the arena records into a rootless scope that
// this builder adopts. Callers hold a.mu.
func (a *Arena) newBuilder(function string) (methodspec.Token, *recorder) {
	lin := a.current
	if lin.root != dead {
		lin = newRecorder()
	}
	if err := a.budget.Take(a.session); err != nil {
		a.reportIn(lin, err)
		return dead, lin
	}
	tok := a.issue(&object{
		lin:   lin,
		stage: methodspec.StageInit,
		rec: ir.SpecRecord{
			Session:   a.session,
			Function:  function,
			Args:      []ir.Placeholder{},
			Assumes:   []ir.Clause{},
			Asserts:   []ir.Clause{},
			IRVersion: ir.IRVersion,
		},
	})
	lin.root = tok
	a.lineages = append(a.lineages, lin)
	a.current = lin
	a.logger.Debug("builder created", "function", function, "token", tok)
	return tok, lin
}

// AddArg implements methodspec.Backend.
func (a *Arena) AddArg(b methodspec.Token, ref any) methodspec.Token {
	a.mu.Lock()
	defer a.mu.Unlock()

	obj, ok := a.take(b, methodspec.OpAddArg, methodspec.StageInit, methodspec.StageArgsOpen)
	if !ok {
		return dead
	}
	slot := len(obj.rec.Args)
	p, err := a.placeholder(obj.lin, ref, slot, argName(slot))
	if err != nil {
		a.reportIn(obj.lin, err)
		return dead
	}
	obj.rec.Args = append(obj.rec.Args, p)
	obj.stage = methodspec.StageArgsOpen
	return a.issue(obj)
}

// GatherAssumes implements methodspec.Backend.
func (a *Arena) GatherAssumes(b methodspec.Token) methodspec.Token {
	a.mu.Lock()
	defer a.mu.Unlock()

	obj, ok := a.take(b, methodspec.OpGatherAssumes, methodspec.StageInit, methodspec.StageArgsOpen)
	if !ok {
		return dead
	}
	obj.rec.Assumes = append(obj.rec.Assumes, obj.lin.drainAssumes()...)
	obj.stage = methodspec.StageAssumesGathered
	return a.issue(obj)
}

// SetReturn implements methodspec.Backend.
func (a *Arena) SetReturn(b methodspec.Token, ref any) methodspec.Token {
	a.mu.Lock()
	defer a.mu.Unlock()

	obj, ok := a.take(b, methodspec.OpSetReturn, methodspec.StageAssumesGathered)
	if !ok {
		return dead
	}
	p, err := a.placeholder(obj.lin, ref, ir.ReturnSlot, "ret")
	if err != nil {
		a.reportIn(obj.lin, err)
		return dead
	}
	obj.rec.Return = &p
	obj.stage = methodspec.StageReturnSet
	return a.issue(obj)
}

// GatherAsserts implements methodspec.Backend.
func (a *Arena) GatherAsserts(b methodspec.Token) methodspec.Token {
	a.mu.Lock()
	defer a.mu.Unlock()

	obj, ok := a.take(b, methodspec.OpGatherAsserts, methodspec.StageReturnSet)
	if !ok {
		return dead
	}
	obj.rec.Asserts = append(obj.rec.Asserts, obj.lin.drainAsserts()...)
	obj.stage = methodspec.StageAssertsGathered
	return a.issue(obj)
}

// Finish implements methodspec.Backend.
func (a *Arena) Finish(b methodspec.Token) methodspec.Token {
	a.mu.Lock()
	defer a.mu.Unlock()

	obj, ok := a.take(b, methodspec.OpFinish, methodspec.StageAssertsGathered)
	if !ok {
		return dead
	}
	obj.rec.Seq = a.clock.Next()
	id, err := ir.SpecID(obj.rec)
	if err != nil {
		a.reportIn(obj.lin, err)
		return dead
	}
	obj.rec.ID = id
	obj.stage = methodspec.StageFinished
	tok := a.issue(obj)
	a.specs = append(a.specs, tok)
	a.lineages = slices.DeleteFunc(a.lineages, func(r *recorder) bool { return r == obj.lin })
	a.logger.Info("method spec finished",
		"function", obj.rec.Function,
		"id", id,
		"args", len(obj.rec.Args),
		"assumes", len(obj.rec.Assumes),
		"asserts", len(obj.rec.Asserts))
	return tok
}

// PrettyPrint implements methodspec.Backend. Tokens that are not finished
// specs render as methodspec.UnknownSpecText.
func (a *Arena) PrettyPrint(spec methodspec.Token) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	obj, ok := a.objects[spec]
	if !ok || obj.stage != methodspec.StageFinished {
		return methodspec.UnknownSpecText
	}
	return Render(obj.rec)
}

// Record returns the content of ms if this arena finished it.
func (a *Arena) Record(ms methodspec.MethodSpec) (ir.SpecRecord, bool) {
	tok, ok := ms.Resolve(a)
	if !ok {
		return ir.SpecRecord{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	obj, ok := a.objects[tok]
	if !ok || obj.stage != methodspec.StageFinished {
		return ir.SpecRecord{}, false
	}
	return obj.rec, true
}

// Specs returns every finished record in the order Finish produced them.
func (a *Arena) Specs() []ir.SpecRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ir.SpecRecord, 0, len(a.specs))
	for _, tok := range a.specs {
		out = append(out, a.objects[tok].rec)
	}
	return out
}
