package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/specbuilder/internal/ir"
)

// ReadSpec retrieves a single spec by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSpec(ctx context.Context, id string) (ir.SpecRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM specs WHERE id = ?
	`, id).Scan(&data)
	if err != nil {
		return ir.SpecRecord{}, err
	}
	return ir.UnmarshalRecord([]byte(data))
}

// ListSpecs returns stored specs ordered by seq ASC, id ASC. An empty
// function lists every spec.
func (s *Store) ListSpecs(ctx context.Context, function string) ([]ir.SpecRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if function == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT record FROM specs
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT record FROM specs
			WHERE function = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, function)
	}
	if err != nil {
		return nil, fmt.Errorf("query specs: %w", err)
	}
	return scanRecords(rows)
}

// FindSpecsByClause returns specs with an assumption or assertion whose
// rendered text contains substr, ordered like ListSpecs.
func (s *Store) FindSpecsByClause(ctx context.Context, substr string) ([]ir.SpecRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM specs
		WHERE id IN (SELECT spec_id FROM clauses WHERE instr(text, ?) > 0)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, substr)
	if err != nil {
		return nil, fmt.Errorf("query clauses: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]ir.SpecRecord, error) {
	defer rows.Close()

	records := []ir.SpecRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan spec: %w", err)
		}
		rec, err := ir.UnmarshalRecord([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode spec: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate specs: %w", err)
	}
	return records, nil
}

// ListSessions returns the distinct sessions that produced stored specs,
// in order of their first spec.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session FROM specs
		GROUP BY session
		ORDER BY MIN(seq) ASC, session COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetLastSeq returns the highest seq of any stored spec, or 0. An arena
// resumes its clock from here so new records sort after stored ones.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM specs
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}
