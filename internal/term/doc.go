// Package term provides the formula model used by the in-memory backend to
// record assumptions and assertions.
//
// Term is a sealed interface using the marker method pattern: only types in
// this package implement it, so renderers and encoders switch exhaustively.
//
// Term types:
//   - Var: a symbolic placeholder by name
//   - Lit: an ir.Value literal (no floats)
//   - Cmp: eq, ne, lt, le, gt, ge
//   - Arith: add, sub, mul
//   - And, Or: n-ary connectives (empty And is true, empty Or is false)
//   - Not
//
// Encoded form (used in clause records, CUE contracts and scenario files):
//
//	{"var": "x"}
//	{"lit": 10}                       // also {"int": 10}, {"str": "a"}, {"bool": true}
//	{"op": "lt", "args": [{"var": "x"}, {"lit": 10}]}
//
// When decoding loosely typed input a bare string names a variable and a
// bare number or boolean is a literal, so `{op: lt, args: [x, 10]}` is
// accepted.
//
// Solving or evaluating terms is not this package's concern.
package term
