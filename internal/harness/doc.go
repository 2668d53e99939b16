// Package harness runs method spec conformance scenarios.
//
// A scenario is a YAML file that either names a compiled contract and the
// concrete values to bind, or lists raw protocol steps to drive through
// methodspec.Dynamic. Steps may be out of order on purpose: a rejected
// step is recorded in the trace and can be asserted with order_error.
//
//	name: abs_non_negative
//	description: abs is the identity on non-negative inputs
//	specs: [../contracts/abs.cue]
//	contract: abs
//	args: {x: 5}
//	return: 5
//	assertions:
//	  - type: pretty_contains
//	    text: "requires x >= 0"
//
// Each run gets its own arena with a deterministic clock and a fixed
// session id, and a fresh in-memory store. Finished records are written
// to the store and read back before assertions run, so a scenario also
// checks that the record survives persistence.
//
// RunWithGolden snapshots the trace and the pretty-printed spec under
// testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
