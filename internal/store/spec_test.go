package store

import (
	"bytes"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specbuilder/internal/ir"
)

// sampleRecord builds a record with a valid id for function at seq.
func sampleRecord(function string, seq int64) ir.SpecRecord {
	rec := ir.SpecRecord{
		Session:  "test-session",
		Function: function,
		Seq:      seq,
		Args: []ir.Placeholder{
			{ID: "p-x", Slot: 0, Name: "x", Type: "int", Value: ir.Int(seq), Seq: seq - 1},
		},
		Assumes: []ir.Clause{
			{Term: ir.Object{"op": ir.Str("ge"), "args": ir.Array{ir.Object{"var": ir.Str("x")}, ir.Object{"lit": ir.Int(0)}}}, Text: "x >= 0"},
		},
		Return: &ir.Placeholder{ID: "p-ret", Slot: ir.ReturnSlot, Name: "ret", Type: "int", Value: ir.Int(0), Seq: seq - 1},
		Asserts: []ir.Clause{
			{Term: ir.Object{"op": ir.Str("eq"), "args": ir.Array{ir.Object{"var": ir.Str("ret")}, ir.Object{"var": ir.Str("x")}}}, Text: "ret == x", Message: "identity"},
		},
		IRVersion: ir.IRVersion,
	}
	rec.ID = ir.MustSpecID(rec)
	return rec
}

func TestWriteReadSpec(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	rec := sampleRecord("abs", 10)

	require.NoError(t, s.WriteSpec(ctx, rec))
	got, err := s.ReadSpec(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestWriteSpec_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	rec := sampleRecord("abs", 10)

	require.NoError(t, s.WriteSpec(ctx, rec))
	require.NoError(t, s.WriteSpec(ctx, rec))

	var specs, clauses int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM specs").Scan(&specs))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM clauses").Scan(&clauses))
	assert.Equal(t, 1, specs)
	assert.Equal(t, 2, clauses)
}

func TestWriteSpec_RejectsIDMismatch(t *testing.T) {
	s := createTestStore(t)
	rec := sampleRecord("abs", 10)
	rec.Function = "tampered"

	err := s.WriteSpec(t.Context(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIDMismatch)
}

func TestReadSpec_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSpec(t.Context(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListSpecs_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	for _, rec := range []ir.SpecRecord{
		sampleRecord("b", 30),
		sampleRecord("a", 10),
		sampleRecord("a", 20),
	} {
		require.NoError(t, s.WriteSpec(ctx, rec))
	}

	all, err := s.ListSpecs(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})

	onlyA, err := s.ListSpecs(ctx, "a")
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "a", onlyA[0].Function)
	assert.Equal(t, "a", onlyA[1].Function)
}

func TestListSpecs_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	recs, err := s.ListSpecs(t.Context(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestFindSpecsByClause(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	rec := sampleRecord("abs", 10)
	require.NoError(t, s.WriteSpec(ctx, rec))

	found, err := s.FindSpecsByClause(ctx, "ret ==")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rec.ID, found[0].ID)

	found, err = s.FindSpecsByClause(ctx, "y <")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestListSessionsAndLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	seq, err := s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	other := sampleRecord("f", 5)
	other.Session = "earlier"
	other.ID = ir.MustSpecID(other)
	require.NoError(t, s.WriteSpec(ctx, sampleRecord("f", 40)))
	require.NoError(t, s.WriteSpec(ctx, other))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"earlier", "test-session"}, sessions)

	seq, err = s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), seq)
}

func TestExportImport(t *testing.T) {
	src := createTestStore(t)
	ctx := t.Context()
	recs := []ir.SpecRecord{sampleRecord("a", 10), sampleRecord("b", 20), sampleRecord("a", 30)}
	for _, rec := range recs {
		require.NoError(t, src.WriteSpec(ctx, rec))
	}

	var buf bytes.Buffer
	n, err := src.Export(ctx, &buf, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := createTestStore(t)
	added, err := dst.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	got, err := dst.ListSpecs(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recs[0], got[0])
	assert.Equal(t, recs[2], got[1])

	added, err = dst.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, added, "re-import adds nothing")
}

func TestImport_RejectsTamperedRecord(t *testing.T) {
	src := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, src.WriteSpec(ctx, sampleRecord("a", 10)))

	var buf bytes.Buffer
	_, err := src.Export(ctx, &buf, "")
	require.NoError(t, err)

	tampered := bytes.Replace(buf.Bytes(), []byte(`"function":"a"`), []byte(`"function":"z"`), 1)
	require.NotEqual(t, buf.Bytes(), tampered)

	dst := createTestStore(t)
	_, err = dst.Import(ctx, bytes.NewReader(tampered))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIDMismatch)

	recs, err := dst.ListSpecs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestImport_Garbage(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Import(t.Context(), bytes.NewReader([]byte("not msgpack")))
	require.Error(t, err)
}
