package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/cellsleep/core/events"
	coremetrics "github.com/kilianp07/cellsleep/core/metrics"
	"github.com/kilianp07/cellsleep/internal/eventbus"
)

// StartEventCollector subscribes to the controller events and records them
// on sink until ctx is cancelled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe(
		eventbus.Is[events.CycleEvent],
		eventbus.Is[events.ReportEvent],
		eventbus.Is[events.PhaseEvent],
	)
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.CycleEvent:
		_ = sink.RecordCycle(CycleMetricsFromEvent(e))
	case events.ReportEvent:
		if r, ok := sink.(coremetrics.ReportRecorder); ok {
			_ = r.RecordReport(coremetrics.ReportMetrics{
				Macro:    e.Macro,
				Kind:     e.Kind,
				Rejected: e.Rejected,
				Time:     time.Now(),
			})
		}
	case events.PhaseEvent:
		if r, ok := sink.(coremetrics.PhaseRecorder); ok {
			_ = r.RecordPhase(e.Macro, e.Phase)
		}
	}
}

// CycleMetricsFromEvent converts a cycle event into sink metrics.
func CycleMetricsFromEvent(e events.CycleEvent) coremetrics.CycleMetrics {
	return coremetrics.CycleMetrics{
		Macro:          e.Macro,
		CycleID:        e.CycleID,
		Time:           e.Time,
		Duration:       e.Duration,
		ManagedCells:   e.ManagedCells,
		SleepingCells:  len(e.SleepCells),
		ActiveCells:    len(e.ActiveCells),
		Users:          e.Users,
		Reassigned:     e.Reassigned,
		Unserved:       e.Unserved,
		MeanEfficiency: e.MeanEfficiency,
		Failed:         e.Err != nil,
	}
}
