package sleep

import (
	"context"

	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/snapshot"
)

// Network is the collaborator operating the radio cells.
type Network interface {
	// RegisterMeasurementSubscription asks users to report neighbour signal
	// levels and returns the measurement id.
	RegisterMeasurementSubscription(ctx context.Context, trigger model.TriggerConfig) (uint8, error)
	// ManagedSmallCells returns the small cells supervised by the macro.
	ManagedSmallCells(ctx context.Context) ([]model.CellID, error)
	// ConnectionState returns the live connection table.
	ConnectionState(ctx context.Context) (model.ConnectionState, error)
	// PublishSleepPolicy applies the decision of a cycle.
	PublishSleepPolicy(ctx context.Context, policy model.SleepPolicy) error
}

// ReportSink receives asynchronous reports from the network.
type ReportSink interface {
	ReportUeMeas(rnti model.RNTI, rep model.MeasurementReport)
	ReportQuality(cell model.CellID, rep model.QualityReport)
}

// SnapshotWriter persists the diagnostic record of a cycle.
type SnapshotWriter interface {
	Write(ctx context.Context, rec snapshot.Record) error
}

type cycleKey struct{}

// WithCycleID returns a context carrying the id of the running cycle.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleKey{}, id)
}

// CycleID returns the cycle id stored in ctx, if any.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}
