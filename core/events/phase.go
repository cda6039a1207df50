package events

import (
	"time"

	"github.com/kilianp07/cellsleep/core/model"
)

// PhaseEvent is emitted when the controller enters a new phase.
type PhaseEvent struct {
	Macro model.CellID
	Phase string
	Time  time.Time
}
