// Package ir provides the canonical data model shared by the backend,
// the store and the CLI: snapshot values, placeholders, clauses and
// finished spec records.
//
// ir imports nothing internal; every other package may import it.
//
// Key constraints:
//   - No float values anywhere; numbers are int64
//   - Content-addressed ids use RFC 8785 canonical JSON and SHA-256 with
//     domain separation
//   - Logical sequence numbers only, never wall-clock timestamps
package ir
