// Package events defines the events emitted by the sleep controller on the
// event bus.
//
// Available event types:
//   - PhaseEvent: controller phase change
//   - ReportEvent: inbound report accepted or rejected
//   - CycleEvent: outcome of a scheduling pass
package events
