package events

import (
	"time"

	"github.com/kilianp07/cellsleep/core/model"
)

// CycleEvent is published at the end of each scheduling pass.
type CycleEvent struct {
	CycleID  string
	Macro    model.CellID
	Time     time.Time
	Duration time.Duration
	// ManagedCells is the number of small cells under the macro.
	ManagedCells int
	SleepCells   []model.CellID
	ActiveCells  []model.CellID
	Users        int
	Reassigned   int
	Unserved     int
	// MeanEfficiency is the mean spectral efficiency of the known links.
	MeanEfficiency float64
	// Err is set when the pass could not query or publish.
	Err error
}
