package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/specbuilder/internal/compiler"
	"github.com/roach88/specbuilder/internal/methodspec"
)

// Scenario defines a conformance test scenario. It is either a contract
// scenario (Contract set, Steps empty) or a step scenario (Steps set,
// Contract empty).
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE contract files, relative to the scenario file.
	Specs []string `yaml:"specs,omitempty"`

	// Contract names the contract to build.
	Contract string `yaml:"contract,omitempty"`

	// Args holds concrete argument values keyed by parameter name.
	Args map[string]any `yaml:"args,omitempty"`

	// Return is the concrete return value.
	Return any `yaml:"return,omitempty"`

	// Function labels the spec built by a step scenario.
	Function string `yaml:"function,omitempty"`

	// Steps is the raw protocol script.
	Steps []Step `yaml:"steps,omitempty"`

	// Backend is "arena" (default) or "detached".
	Backend string `yaml:"backend,omitempty"`

	// Session is a fixed session id. Defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Assertions validate the result.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted operation. Protocol steps are add_arg,
// gather_assumes, set_return, gather_asserts and finish; assume and
// assert queue a clause for the next gather.
type Step struct {
	Op string `yaml:"op"`

	// Type and Value describe the bound value for add_arg and set_return.
	// set_return without a type binds the unit value.
	Type  string `yaml:"type,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Name names the bound variable.
	Name string `yaml:"name,omitempty"`

	// Term and Message describe the clause for assume and assert.
	Term    any    `yaml:"term,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Clause step ops.
const (
	OpAssume = "assume"
	OpAssert = "assert"
)

// Backend names.
const (
	BackendArena    = "arena"
	BackendDetached = "detached"
)

// Assertion validates a result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "pretty_contains": pretty-print contains Text
	// - "arg_count", "assume_count", "assert_count": record has Count items
	// - "order_error": some step Op was rejected, in Stage when given
	// - "placeholder": pretty-print is the unknown-spec placeholder
	Type string `yaml:"type"`

	Text  string `yaml:"text,omitempty"`
	Count *int   `yaml:"count,omitempty"`
	Op    string `yaml:"op,omitempty"`
	Stage string `yaml:"stage,omitempty"`
}

// Assertion type constants.
const (
	AssertPrettyContains = "pretty_contains"
	AssertArgCount       = "arg_count"
	AssertAssumeCount    = "assume_count"
	AssertAssertCount    = "assert_count"
	AssertOrderError     = "order_error"
	AssertPlaceholder    = "placeholder"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath. Unknown fields are rejected.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	switch s.Backend {
	case "", BackendArena, BackendDetached:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	switch {
	case s.Contract != "" && len(s.Steps) > 0:
		return fmt.Errorf("contract and steps are mutually exclusive")
	case s.Contract != "":
		if len(s.Specs) == 0 {
			return fmt.Errorf("specs list is required for a contract scenario")
		}
		if s.Backend == BackendDetached {
			return fmt.Errorf("contract scenarios need the arena backend")
		}
		for _, specPath := range s.Specs {
			if _, err := os.Stat(specPath); os.IsNotExist(err) {
				return fmt.Errorf("spec file not found: %s", specPath)
			}
		}
	case len(s.Steps) > 0:
		if len(s.Args) > 0 || s.Return != nil {
			return fmt.Errorf("args and return apply to contract scenarios only")
		}
		for i := range s.Steps {
			if err := validateStep(i, &s.Steps[i]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("either contract or steps is required")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case methodspec.OpAddArg:
		if st.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for add_arg", index)
		}
	case methodspec.OpSetReturn:
	case methodspec.OpGatherAssumes, methodspec.OpGatherAsserts, methodspec.OpFinish:
		if st.Type != "" || st.Value != nil || st.Name != "" {
			return fmt.Errorf("steps[%d]: %s takes no value", index, st.Op)
		}
		return nil
	case OpAssume, OpAssert:
		if st.Term == nil {
			return fmt.Errorf("steps[%d]: term is required for %s", index, st.Op)
		}
		return nil
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	if st.Type != "" && !compiler.IsScalarType(st.Type) {
		return fmt.Errorf("steps[%d]: unsupported type %q", index, st.Type)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPrettyContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for pretty_contains", index)
		}
	case AssertArgCount, AssertAssumeCount, AssertAssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertOrderError:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for order_error", index)
		}
	case AssertPlaceholder:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
