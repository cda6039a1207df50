// Package snapshot persists the diagnostic record written after each sleep
// cycle. Records are telemetry only and are never read back by the engine.
package snapshot

import (
	"context"
	"time"

	"github.com/kilianp07/cellsleep/core/model"
)

// Connection describes one user before and after a cycle.
type Connection struct {
	IMSI    model.IMSI   `json:"imsi"`
	RNTI    model.RNTI   `json:"rnti"`
	Macro   model.CellID `json:"macro"`
	OldCell model.CellID `json:"old_cell"`
	NewCell model.CellID `json:"new_cell"`
}

// Record is the diagnostic output of one cycle of one macro cell.
type Record struct {
	CycleID      string         `json:"cycle_id"`
	Macro        model.CellID   `json:"macro"`
	Timestamp    time.Time      `json:"timestamp"`
	ManagedCells []model.CellID `json:"managed_cells"`
	SleepCells   []model.CellID `json:"sleep_cells"`
	Connections  []Connection   `json:"connections"`
}

// NewRecord builds the record of a cycle from its inputs and policy.
func NewRecord(macro model.CellID, managed []model.CellID, conn model.ConnectionState, policy model.SleepPolicy) Record {
	cells := append([]model.CellID(nil), managed...)
	model.SortCells(cells)
	rec := Record{
		Macro:        macro,
		ManagedCells: cells,
		SleepCells:   append([]model.CellID(nil), policy.SleepCells...),
	}
	for _, u := range conn.Users() {
		c := Connection{IMSI: u.IMSI, RNTI: u.RNTI, Macro: macro, OldCell: u.Serving, NewCell: u.Serving}
		if to, ok := policy.Reassignment[u.RNTI]; ok {
			c.NewCell = to
		}
		rec.Connections = append(rec.Connections, c)
	}
	return rec
}

// Query filters stored records. Empty fields match everything.
type Query struct {
	Macros []model.CellID
	Start  time.Time
	End    time.Time
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if len(q.Macros) == 0 {
		return true
	}
	for _, m := range q.Macros {
		if m == r.Macro {
			return true
		}
	}
	return false
}

// Store persists records and supports querying.
type Store interface {
	Write(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
