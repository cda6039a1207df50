package metrics

import (
	"time"

	"github.com/kilianp07/cellsleep/core/model"
)

// CycleMetrics summarises one scheduling pass.
type CycleMetrics struct {
	Macro          model.CellID
	CycleID        string
	Time           time.Time
	Duration       time.Duration
	ManagedCells   int
	SleepingCells  int
	ActiveCells    int
	Users          int
	Reassigned     int
	Unserved       int
	MeanEfficiency float64
	Failed         bool
}

// MetricsSink records cycle outcomes for observability purposes.
type MetricsSink interface {
	RecordCycle(m CycleMetrics) error
}

// ReportMetrics describes an inbound report.
type ReportMetrics struct {
	Macro    model.CellID
	Kind     string
	Rejected int
	Time     time.Time
}

// ReportRecorder records inbound reports.
type ReportRecorder interface {
	RecordReport(m ReportMetrics) error
}

// PhaseRecorder records controller phase changes.
type PhaseRecorder interface {
	RecordPhase(macro model.CellID, phase string) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleMetrics) error         { return nil }
func (NopSink) RecordReport(ReportMetrics) error       { return nil }
func (NopSink) RecordPhase(model.CellID, string) error { return nil }
