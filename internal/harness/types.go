package harness

import (
	"github.com/roach88/specbuilder/internal/ir"
	"github.com/roach88/specbuilder/internal/methodspec"
)

// StepTrace is the outcome of one scripted protocol step.
type StepTrace struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
	Stage string `json:"stage"` // driver stage after the step
	Error string `json:"error,omitempty"`

	// OrderError is set when the driver rejected the step as out of order.
	OrderError *methodspec.OrderError `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held and no step failed
	// unexpectedly.
	Pass bool `json:"pass"`

	// Steps traces scripted steps in order. Contract scenarios have none.
	Steps []StepTrace `json:"steps"`

	// Pretty is the pretty-printed spec, or methodspec.UnknownSpecText.
	Pretty string `json:"pretty"`

	// Record is the stored record of the finished spec. Nil for detached
	// scenarios and for chains that never finished.
	Record *ir.SpecRecord `json:"record,omitempty"`

	// Diagnostics are the arena's reported protocol errors.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepTrace{},
		Pretty: methodspec.UnknownSpecText,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// OrderErrors returns the steps rejected as out of order.
func (r *Result) OrderErrors() []StepTrace {
	var out []StepTrace
	for _, s := range r.Steps {
		if s.OrderError != nil {
			out = append(out, s)
		}
	}
	return out
}
