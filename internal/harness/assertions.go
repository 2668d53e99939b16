package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/specbuilder/internal/methodspec"
)

// AssertionError is returned when an assertion fails. It carries the
// step trace and the pretty-print for context.
type AssertionError struct {
	Type     string // assertion type
	Expected string
	Actual   string
	Steps    []StepTrace
	Pretty   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Steps) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for _, st := range e.Steps {
			fmt.Fprintf(&buf, "  [%d] %s\n", st.Index, formatStep(st))
		}
	}
	fmt.Fprintf(&buf, "\nSpec:\n%s\n", indent(e.Pretty, "  "))
	return buf.String()
}

func (r *Result) fail(a Assertion, expected, actual string) error {
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   actual,
		Steps:    r.Steps,
		Pretty:   r.Pretty,
	}
}

func assertPrettyContains(r *Result, a Assertion) error {
	if strings.Contains(r.Pretty, a.Text) {
		return nil
	}
	return r.fail(a, fmt.Sprintf("pretty-print containing %q", a.Text), "not found")
}

// assertCount checks the number of args, assumes or asserts in the
// stored record.
func assertCount(r *Result, a Assertion) error {
	if r.Record == nil {
		return r.fail(a, fmt.Sprintf("%d", *a.Count), "no finished record")
	}
	var n int
	switch a.Type {
	case AssertArgCount:
		n = len(r.Record.Args)
	case AssertAssumeCount:
		n = len(r.Record.Assumes)
	default:
		n = len(r.Record.Asserts)
	}
	if n != *a.Count {
		return r.fail(a, fmt.Sprintf("%d", *a.Count), fmt.Sprintf("%d", n))
	}
	return nil
}

func matchOrderError(st StepTrace, a Assertion) bool {
	if st.OrderError == nil || st.OrderError.Op != a.Op {
		return false
	}
	return a.Stage == "" || st.OrderError.Stage.String() == a.Stage
}

func assertOrderError(r *Result, a Assertion) error {
	for _, st := range r.OrderErrors() {
		if matchOrderError(st, a) {
			return nil
		}
	}
	expected := fmt.Sprintf("%s rejected", a.Op)
	if a.Stage != "" {
		expected += " in stage " + a.Stage
	}
	return r.fail(a, expected, fmt.Sprintf("%d order errors", len(r.OrderErrors())))
}

func assertPlaceholder(r *Result, a Assertion) error {
	if r.Pretty == methodspec.UnknownSpecText {
		return nil
	}
	return r.fail(a, methodspec.UnknownSpecText, r.Pretty)
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPrettyContains:
			err = assertPrettyContains(result, assertion)
		case AssertArgCount, AssertAssumeCount, AssertAssertCount:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: %s requires count", i, assertion.Type)
			} else {
				err = assertCount(result, assertion)
			}
		case AssertOrderError:
			err = assertOrderError(result, assertion)
		case AssertPlaceholder:
			err = assertPlaceholder(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func formatStep(st StepTrace) string {
	if st.Error != "" {
		return fmt.Sprintf("%s !! %s", st.Op, st.Error)
	}
	return fmt.Sprintf("%s -> %s", st.Op, st.Stage)
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
