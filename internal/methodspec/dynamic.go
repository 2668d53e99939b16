package methodspec

import (
	"errors"
	"fmt"
)

// Stage is the protocol position of a Dynamic driver.
type Stage int

const (
	StageInit Stage = iota
	StageArgsOpen
	StageAssumesGathered
	StageReturnSet
	StageAssertsGathered
	StageFinished
)

var stageNames = [...]string{
	StageInit:            "init",
	StageArgsOpen:        "args_open",
	StageAssumesGathered: "assumes_gathered",
	StageReturnSet:       "return_set",
	StageAssertsGathered: "asserts_gathered",
	StageFinished:        "finished",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Operation names used in OrderError.
const (
	OpAddArg        = "add_arg"
	OpGatherAssumes = "gather_assumes"
	OpSetReturn     = "set_return"
	OpGatherAsserts = "gather_asserts"
	OpFinish        = "finish"
)

// OrderError reports a protocol step attempted in the wrong stage.
type OrderError struct {
	Op    string
	Stage Stage
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s not allowed in stage %s", e.Op, e.Stage)
}

// IsOrderError reports whether err is or wraps an OrderError.
func IsOrderError(err error) bool {
	var oe *OrderError
	return errors.As(err, &oe)
}

// Dynamic drives the staged protocol with a runtime stage check instead of
// distinct types. A rejected step leaves the driver unchanged.
// A Dynamic is not safe for concurrent use.
type Dynamic struct {
	stage   Stage
	args    Builder
	assumes AssumesBuilder
	ret     ReturnBuilder
	asserts AssertsBuilder
	spec    MethodSpec
}

// NewDynamic starts a driver on b. A nil b means Detached.
func NewDynamic(b Backend) *Dynamic {
	return &Dynamic{stage: StageInit, args: NewWith(b)}
}

// Drive starts a driver on a builder obtained elsewhere, such as a
// backend helper that labels the spec before NewBuilder runs.
func Drive(b Builder) *Dynamic {
	return &Dynamic{stage: StageInit, args: b}
}

// Stage returns the current stage.
func (d *Dynamic) Stage() Stage {
	return d.stage
}

func (d *Dynamic) reject(op string) error {
	return &OrderError{Op: op, Stage: d.stage}
}

// AddArg binds the next argument to ref, which should be a pointer.
func (d *Dynamic) AddArg(ref any) error {
	if d.stage != StageInit && d.stage != StageArgsOpen {
		return d.reject(OpAddArg)
	}
	d.args = addArg(d.args, ref)
	d.stage = StageArgsOpen
	return nil
}

// GatherAssumes closes argument binding.
func (d *Dynamic) GatherAssumes() error {
	if d.stage != StageInit && d.stage != StageArgsOpen {
		return d.reject(OpGatherAssumes)
	}
	d.assumes = d.args.GatherAssumes()
	d.args = Builder{}
	d.stage = StageAssumesGathered
	return nil
}

// SetReturn binds the return value to ref, which should be a pointer.
func (d *Dynamic) SetReturn(ref any) error {
	if d.stage != StageAssumesGathered {
		return d.reject(OpSetReturn)
	}
	d.ret = setReturn(d.assumes, ref)
	d.assumes = AssumesBuilder{}
	d.stage = StageReturnSet
	return nil
}

// GatherAsserts closes return binding.
func (d *Dynamic) GatherAsserts() error {
	if d.stage != StageReturnSet {
		return d.reject(OpGatherAsserts)
	}
	d.asserts = d.ret.GatherAsserts()
	d.ret = ReturnBuilder{}
	d.stage = StageAssertsGathered
	return nil
}

// Finish freezes the spec. The result is also available from Spec.
func (d *Dynamic) Finish() (MethodSpec, error) {
	if d.stage != StageAssertsGathered {
		return MethodSpec{}, d.reject(OpFinish)
	}
	d.spec = d.asserts.Finish()
	d.asserts = AssertsBuilder{}
	d.stage = StageFinished
	return d.spec, nil
}

// Spec returns the finished spec, or false before Finish.
func (d *Dynamic) Spec() (MethodSpec, bool) {
	if d.stage != StageFinished {
		return MethodSpec{}, false
	}
	return d.spec, true
}

// Apply runs the named step. ref is used by add_arg and set_return and
// ignored otherwise. Unknown names are an error.
func (d *Dynamic) Apply(op string, ref any) error {
	switch op {
	case OpAddArg:
		return d.AddArg(ref)
	case OpGatherAssumes:
		return d.GatherAssumes()
	case OpSetReturn:
		return d.SetReturn(ref)
	case OpGatherAsserts:
		return d.GatherAsserts()
	case OpFinish:
		_, err := d.Finish()
		return err
	default:
		return fmt.Errorf("unknown protocol step %q", op)
	}
}
