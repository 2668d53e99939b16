package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/specbuilder/internal/ir"
)

// ErrIDMismatch is returned when a record's id is not the hash of its
// content.
var ErrIDMismatch = errors.New("spec id does not match content")

// WriteSpec inserts a finished spec and its clauses in one transaction.
// Writing a record that is already stored is a no-op.
func (s *Store) WriteSpec(ctx context.Context, rec ir.SpecRecord) error {
	if _, err := s.writeSpec(ctx, rec); err != nil {
		return fmt.Errorf("write spec: %w", err)
	}
	return nil
}

// writeSpec reports whether a new row was inserted.
func (s *Store) writeSpec(ctx context.Context, rec ir.SpecRecord) (bool, error) {
	want, err := ir.SpecID(rec)
	if err != nil {
		return false, err
	}
	if rec.ID != want {
		return false, fmt.Errorf("%w: %s (content hashes to %s)", ErrIDMismatch, rec.ID, want)
	}

	data, err := ir.MarshalRecord(rec)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO specs
		(id, session, function, seq, arg_count, record, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Session,
		rec.Function,
		rec.Seq,
		len(rec.Args),
		string(data),
		rec.IRVersion,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if err := insertClauses(ctx, tx, rec.ID, "assume", rec.Assumes); err != nil {
		return false, err
	}
	if err := insertClauses(ctx, tx, rec.ID, "assert", rec.Asserts); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func insertClauses(ctx context.Context, tx *sql.Tx, specID, kind string, cs []ir.Clause) error {
	for i, c := range cs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clauses (spec_id, kind, idx, text, message)
			VALUES (?, ?, ?, ?, ?)
		`, specID, kind, i, c.Text, c.Message)
		if err != nil {
			return fmt.Errorf("insert %s %d: %w", kind, i, err)
		}
	}
	return nil
}
