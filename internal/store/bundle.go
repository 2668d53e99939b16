package store

import (
	"context"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/specbuilder/internal/ir"
)

// bundleSchemaVersion is bumped when the Bundle layout changes.
const bundleSchemaVersion uint16 = 1

// Bundle is the msgpack export format. Records hold canonical JSON so a
// bundle round-trips byte for byte.
type Bundle struct {
	Schema    uint16
	IRVersion string
	Records   [][]byte
}

// Export writes the specs matching function (all when empty) to w and
// returns how many were written.
func (s *Store) Export(ctx context.Context, w io.Writer, function string) (int, error) {
	recs, err := s.ListSpecs(ctx, function)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	b := Bundle{
		Schema:    bundleSchemaVersion,
		IRVersion: ir.IRVersion,
		Records:   make([][]byte, len(recs)),
	}
	for i, rec := range recs {
		data, err := ir.MarshalRecord(rec)
		if err != nil {
			return 0, fmt.Errorf("export %s: %w", rec.ID, err)
		}
		b.Records[i] = data
	}
	if err := msgpack.NewEncoder(w).Encode(&b); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	return len(recs), nil
}

// Import reads a bundle from r and stores every record. It returns how
// many records were new; records already present are skipped. Nothing is
// written if any record fails verification.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	var b Bundle
	if err := msgpack.NewDecoder(r).Decode(&b); err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	if b.Schema != bundleSchemaVersion {
		return 0, fmt.Errorf("import: unsupported bundle schema %d", b.Schema)
	}
	if b.IRVersion != ir.IRVersion {
		return 0, fmt.Errorf("import: bundle IR version %q, want %q", b.IRVersion, ir.IRVersion)
	}

	recs := make([]ir.SpecRecord, len(b.Records))
	for i, data := range b.Records {
		rec, err := ir.UnmarshalRecord(data)
		if err != nil {
			return 0, fmt.Errorf("import record %d: %w", i, err)
		}
		want, err := ir.SpecID(rec)
		if err != nil {
			return 0, fmt.Errorf("import record %d: %w", i, err)
		}
		if want != rec.ID {
			return 0, fmt.Errorf("import record %d: %w", i, ErrIDMismatch)
		}
		recs[i] = rec
	}

	added := 0
	for _, rec := range recs {
		inserted, err := s.writeSpec(ctx, rec)
		if err != nil {
			return added, fmt.Errorf("import %s: %w", rec.ID, err)
		}
		if inserted {
			added++
		}
	}
	return added, nil
}
