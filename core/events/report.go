package events

import "github.com/kilianp07/cellsleep/core/model"

// Report kinds.
const (
	KindMeasurement = "measurement"
	KindQuality     = "quality"
)

// ReportEvent is emitted for every inbound report applied to the store.
// Rejected counts the entries dropped because of invalid content.
type ReportEvent struct {
	Macro    model.CellID
	Kind     string
	Rejected int
}
