package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/specbuilder/internal/backend"
	"github.com/roach88/specbuilder/internal/compiler"
	"github.com/roach88/specbuilder/internal/methodspec"
	"github.com/roach88/specbuilder/internal/store"
	"github.com/roach88/specbuilder/internal/term"
	"github.com/roach88/specbuilder/internal/testutil"
)

// Harness is the scenario execution engine. It holds the per-run arena
// and store.
type Harness struct {
	store  *store.Store
	arena  *backend.Arena // nil for detached scenarios
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh in-memory database and a fresh arena with a
// deterministic clock, so repeated runs produce identical records.
// The returned error covers failures to execute the scenario at all;
// failed assertions are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if scenario.Backend != BackendDetached {
		h.arena = backend.NewArena(
			backend.WithClock(testutil.NewDeterministicClock()),
			backend.WithSession(testutil.NewFixedSessionGenerator(scenario.Session)),
			backend.WithLogger(h.logger),
		)
	}

	ctx := context.Background()
	result := NewResult()

	var spec methodspec.MethodSpec
	if scenario.Contract != "" {
		spec, err = h.buildContract(scenario)
	} else {
		spec, err = h.runSteps(scenario, result)
	}
	if err != nil {
		return nil, err
	}
	result.Pretty = methodspec.PrettyPrint(spec)

	if h.arena != nil {
		for _, d := range h.arena.Diagnostics() {
			result.Diagnostics = append(result.Diagnostics, d.Error())
		}
		if err := h.persist(ctx, spec, result); err != nil {
			return nil, err
		}
	}

	for _, errMsg := range unexpectedOrderErrors(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// persist writes the finished record to the store and keeps the copy read
// back from it.
func (h *Harness) persist(ctx context.Context, spec methodspec.MethodSpec, result *Result) error {
	rec, ok := h.arena.Record(spec)
	if !ok {
		return nil
	}
	if err := h.store.WriteSpec(ctx, rec); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}
	stored, err := h.store.ReadSpec(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to read spec back: %w", err)
	}
	if got := backend.Render(stored); got != result.Pretty {
		result.AddError(fmt.Sprintf("stored record renders differently:\n%s", got))
	}
	result.Record = &stored
	h.logger.Info("spec stored", "id", stored.ID, "function", stored.Function)
	return nil
}

// buildContract compiles the scenario's specs and builds the named
// contract with the scenario's values.
func (h *Harness) buildContract(s *Scenario) (methodspec.MethodSpec, error) {
	c, err := findContract(s.Specs, s.Contract)
	if err != nil {
		return methodspec.MethodSpec{}, err
	}
	if errs := compiler.Validate(c); len(errs) > 0 {
		return methodspec.MethodSpec{}, fmt.Errorf("contract %s is invalid: %w", c.Name, joinValidation(errs))
	}

	values := make(map[string]string, len(s.Args)+1)
	for name, v := range s.Args {
		if v != nil {
			values[name] = fmt.Sprint(v)
		}
	}
	if s.Return != nil {
		if c.Return == nil {
			return methodspec.MethodSpec{}, fmt.Errorf("contract %s has no return value", c.Name)
		}
		values[c.Return.Name] = fmt.Sprint(s.Return)
	}

	spec, err := h.arena.BuildContract(c, values)
	if _, ok := spec.Resolve(h.arena); !ok && err != nil {
		return methodspec.MethodSpec{}, err
	}
	// Remaining errors are arena diagnostics, collected by Run.
	return spec, nil
}

func findContract(paths []string, name string) (*compiler.Contract, error) {
	for _, path := range paths {
		contracts, err := compiler.CompileFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", path, err)
		}
		for _, c := range contracts {
			if c.Name == name {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("contract %q not found in specs", name)
}

func joinValidation(errs []compiler.ValidationError) error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return errors.Join(out...)
}

// runSteps drives the scripted steps. Out-of-order steps are traced and
// skipped; any other step failure aborts the scenario.
func (h *Harness) runSteps(s *Scenario, result *Result) (methodspec.MethodSpec, error) {
	var (
		d  *methodspec.Dynamic
		sc *backend.Scope
	)
	if h.arena != nil {
		var b methodspec.Builder
		b, sc = h.arena.Open(s.Function)
		d = methodspec.Drive(b)
	} else {
		d = methodspec.NewDynamic(methodspec.Detached{})
	}

	for i, st := range s.Steps {
		var err error
		switch st.Op {
		case OpAssume, OpAssert:
			if err := queueClause(sc, st); err != nil {
				return methodspec.MethodSpec{}, fmt.Errorf("steps[%d]: %w", i, err)
			}
		default:
			var ref any
			if st.Op == methodspec.OpAddArg || st.Op == methodspec.OpSetReturn {
				if ref, err = bindValue(sc, st); err != nil {
					return methodspec.MethodSpec{}, fmt.Errorf("steps[%d]: %w", i, err)
				}
			}
			err = d.Apply(st.Op, ref)
		}

		tr := StepTrace{Index: i, Op: st.Op, Stage: d.Stage().String()}
		if err != nil {
			var oe *methodspec.OrderError
			if !errors.As(err, &oe) {
				return methodspec.MethodSpec{}, fmt.Errorf("steps[%d]: %w", i, err)
			}
			tr.Error = err.Error()
			tr.OrderError = oe
		}
		result.Steps = append(result.Steps, tr)
		h.logger.Debug("step applied", "index", i, "op", st.Op, "stage", tr.Stage, "error", tr.Error)
	}

	spec, _ := d.Spec()
	return spec, nil
}

// bindValue allocates the value bound by an add_arg or set_return step and
// names it in sc when sc is not nil.
func bindValue(sc *backend.Scope, st Step) (any, error) {
	var ref any = new(struct{})
	if st.Type != "" {
		var err error
		ref, err = backend.NewValue(st.Type, fmt.Sprint(st.Value), st.Value != nil)
		if err != nil {
			return nil, fmt.Errorf("%s value: %w", st.Op, err)
		}
	}
	if sc != nil && st.Name != "" {
		sc.Fresh(st.Name, ref)
	}
	return ref, nil
}

// queueClause records an assume or assert step. Detached runs have
// nowhere to record clauses and only check that the term decodes.
func queueClause(sc *backend.Scope, st Step) error {
	t, err := term.DecodeAny(st.Term)
	if err != nil {
		return err
	}
	if sc == nil {
		return nil
	}
	if st.Op == OpAssume {
		sc.Assume(t, st.Message)
	} else {
		sc.Assert(t, st.Message)
	}
	return nil
}

// unexpectedOrderErrors reports rejected steps that no order_error
// assertion accounts for.
func unexpectedOrderErrors(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, st := range result.OrderErrors() {
		expected := false
		for _, a := range assertions {
			if a.Type == AssertOrderError && matchOrderError(st, a) {
				expected = true
				break
			}
		}
		if !expected {
			errs = append(errs, fmt.Sprintf("unexpected protocol error at step %d: %s", st.Index, st.Error))
		}
	}
	return errs
}
