package snapshot

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kilianp07/cellsleep/core/model"
)

// DatStore keeps one plain text file per macro cell, overwritten each cycle.
// The first line lists the managed small cells, the second the sleeping ones,
// followed by "imsi rnti macro old new" for every user.
type DatStore struct {
	dir string
	mu  sync.Mutex
}

// NewDatStore creates dir if needed and returns a store writing into it.
func NewDatStore(dir string) (*DatStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DatStore{dir: dir}, nil
}

func (s *DatStore) path(macro model.CellID) string {
	return filepath.Join(s.dir, fmt.Sprintf("macro_%d.dat", macro))
}

// Write replaces the file of rec.Macro.
func (s *DatStore) Write(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	writeCells(&b, rec.ManagedCells)
	writeCells(&b, rec.SleepCells)
	for _, c := range rec.Connections {
		fmt.Fprintf(&b, "%d %d %d %d %d\n", c.IMSI, c.RNTI, c.Macro, c.OldCell, c.NewCell)
	}
	tmp := s.path(rec.Macro) + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(rec.Macro))
}

func writeCells(b *strings.Builder, cells []model.CellID) {
	for _, c := range cells {
		b.WriteString(c.String())
		b.WriteByte(' ')
	}
	b.WriteByte('\n')
}

// Query returns the current record of every macro matching q.
func (s *DatStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, err := filepath.Glob(filepath.Join(s.dir, "macro_*.dat"))
	if err != nil {
		return nil, err
	}
	var res []Record
	for _, f := range files {
		rec, err := readDat(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(f), err)
		}
		if q.match(rec) {
			res = append(res, rec)
		}
	}
	return res, nil
}

func readDat(path string) (Record, error) {
	var rec Record
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "macro_"), ".dat")
	macro, err := strconv.ParseUint(name, 10, 16)
	if err != nil {
		return rec, fmt.Errorf("macro id: %w", err)
	}
	rec.Macro = model.CellID(macro)
	info, err := os.Stat(path)
	if err != nil {
		return rec, err
	}
	rec.Timestamp = info.ModTime()

	f, err := os.Open(path)
	if err != nil {
		return rec, err
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch line {
		case 0:
			if rec.ManagedCells, err = parseCells(fields); err != nil {
				return rec, err
			}
		case 1:
			if rec.SleepCells, err = parseCells(fields); err != nil {
				return rec, err
			}
		default:
			c, err := parseConnection(fields)
			if err != nil {
				return rec, fmt.Errorf("line %d: %w", line+1, err)
			}
			rec.Connections = append(rec.Connections, c)
		}
		line++
	}
	return rec, scanner.Err()
}

func parseCells(fields []string) ([]model.CellID, error) {
	out := make([]model.CellID, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return nil, err
		}
		out = append(out, model.CellID(v))
	}
	return out, nil
}

func parseConnection(fields []string) (Connection, error) {
	if len(fields) != 5 {
		return Connection{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	var v [5]uint64
	for i, f := range fields {
		bits := 16
		if i == 0 {
			bits = 64
		}
		n, err := strconv.ParseUint(f, 10, bits)
		if err != nil {
			return Connection{}, err
		}
		v[i] = n
	}
	return Connection{
		IMSI:    model.IMSI(v[0]),
		RNTI:    model.RNTI(v[1]),
		Macro:   model.CellID(v[2]),
		OldCell: model.CellID(v[3]),
		NewCell: model.CellID(v[4]),
	}, nil
}

// Close is a no-op.
func (s *DatStore) Close() error { return nil }
