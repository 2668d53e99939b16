package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the deterministic parts of a result as text: the step
// trace, diagnostics and the pretty-printed spec. Ids are left out so
// snapshots survive changes to the hashing scheme.
func Snapshot(scenario *Scenario, result *Result) []byte {
	var buf strings.Builder

	backendName := scenario.Backend
	if backendName == "" {
		backendName = BackendArena
	}
	fmt.Fprintf(&buf, "scenario: %s\n", scenario.Name)
	fmt.Fprintf(&buf, "backend: %s\n", backendName)

	if len(result.Steps) > 0 {
		buf.WriteString("steps:\n")
		for _, st := range result.Steps {
			fmt.Fprintf(&buf, "  [%d] %s\n", st.Index, formatStep(st))
		}
	}
	if len(result.Diagnostics) > 0 {
		buf.WriteString("diagnostics:\n")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(&buf, "  %s\n", d)
		}
	}
	buf.WriteString("spec:\n")
	buf.WriteString(indent(result.Pretty, "  "))
	buf.WriteByte('\n')
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed. A mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario, result))
}
