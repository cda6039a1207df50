package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsleep/core/factory"
	"github.com/kilianp07/cellsleep/core/model"
)

func sampleRecord(macro model.CellID, ts time.Time) Record {
	b1, b2 := model.SmallCell(macro, 1), model.SmallCell(macro, 2)
	rec := NewRecord(macro, []model.CellID{b2, b1}, model.ConnectionState{
		Serving:  map[model.RNTI]model.CellID{7: b2, 3: b1},
		Identity: map[model.RNTI]model.IMSI{7: 208950000000007, 3: 208950000000003},
	}, model.SleepPolicy{
		SleepCells:   []model.CellID{b2},
		Reassignment: map[model.RNTI]model.CellID{7: b1},
	})
	rec.CycleID = "cycle-" + macro.String()
	rec.Timestamp = ts
	return rec
}

func TestNewRecord(t *testing.T) {
	rec := sampleRecord(0x40, time.Time{})
	assert.Equal(t, []model.CellID{0x41, 0x42}, rec.ManagedCells)
	assert.Equal(t, []Connection{
		{IMSI: 208950000000003, RNTI: 3, Macro: 0x40, OldCell: 0x41, NewCell: 0x41},
		{IMSI: 208950000000007, RNTI: 7, Macro: 0x40, OldCell: 0x42, NewCell: 0x41},
	}, rec.Connections)
}

func TestDatStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDatStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), sampleRecord(0x40, time.Now())))

	data, err := os.ReadFile(filepath.Join(dir, "macro_64.dat"))
	require.NoError(t, err)
	assert.Equal(t, "65 66 \n66 \n208950000000003 3 64 65 65\n208950000000007 7 64 66 65\n", string(data))

	recs, err := s.Query(context.Background(), Query{Macros: []model.CellID{0x40}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	want := sampleRecord(0x40, time.Time{})
	assert.Equal(t, want.ManagedCells, recs[0].ManagedCells)
	assert.Equal(t, want.SleepCells, recs[0].SleepCells)
	assert.Equal(t, want.Connections, recs[0].Connections)

	recs, err = s.Query(context.Background(), Query{Macros: []model.CellID{0x80}})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDatStoreOverwrites(t *testing.T) {
	s, err := NewDatStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, sampleRecord(0x40, time.Now())))
	rec := sampleRecord(0x40, time.Now())
	rec.SleepCells = nil
	require.NoError(t, s.Write(ctx, rec))

	recs, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].SleepCells)
}

func TestRotatingJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 1, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Write(ctx, sampleRecord(0x80, base.Add(time.Minute))))
	require.NoError(t, s.Write(ctx, sampleRecord(0x40, base)))
	require.NoError(t, s.Write(ctx, sampleRecord(0x40, base.Add(2*time.Minute))))

	recs, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.True(t, recs[0].Timestamp.Equal(base))

	recs, err = s.Query(ctx, Query{Macros: []model.CellID{0x40}, Start: base.Add(time.Second)})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "cycle-64", recs[0].CycleID)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, m := range []model.CellID{0x40, 0x80, 0x40} {
		require.NoError(t, s.Write(ctx, sampleRecord(m, base.Add(time.Duration(i)*time.Minute))))
	}

	recs, err := s.Query(ctx, Query{Macros: []model.CellID{0x40}})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[1].Timestamp.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, sampleRecord(0x40, base).Connections, recs[0].Connections)

	recs, err = s.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.CellID(0x80), recs[0].Macro)
}

func TestNewStoreFromConfig(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(factory.ModuleConfig{Type: "dat", Conf: map[string]any{"dir": dir}})
	require.NoError(t, err)
	assert.IsType(t, &DatStore{}, s)

	_, err = NewStore(factory.ModuleConfig{Type: "jsonl"})
	assert.Error(t, err)

	_, err = NewStore(factory.ModuleConfig{Type: "parquet"})
	assert.Error(t, err)

	assert.True(t, HasStore("sqlite"))
	assert.False(t, HasStore("parquet"))
}
