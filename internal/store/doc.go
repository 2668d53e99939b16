// Package store provides SQLite-backed storage for finished method specs.
//
// The store is an append-only catalog:
//   - Specs: one row per ir.SpecRecord, keyed by its content-addressed id
//   - Clauses: the gathered assumptions and assertions of each spec
//
// # Patterns
//
// Idempotent writes: records are content-addressed, so writing the same
// record twice is a no-op (ON CONFLICT DO NOTHING). A record whose id does
// not match its content is rejected.
//
// Deterministic reads: every list query orders by seq ASC, id ASC COLLATE
// BINARY and returns empty slices rather than nil.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Export and Import move specs between stores as msgpack bundles.
package store
