package metrics

import (
	"errors"

	"github.com/kilianp07/cellsleep/core/model"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordCycle(c CycleMetrics) error {
	for _, s := range m.Sinks {
		if err := s.RecordCycle(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordReport forwards report metrics when supported by the sink.
func (m *MultiSink) RecordReport(r ReportMetrics) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ReportRecorder); ok {
			if err := rec.RecordReport(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPhase forwards phase changes when supported by the sink.
func (m *MultiSink) RecordPhase(macro model.CellID, phase string) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PhaseRecorder); ok {
			if err := rec.RecordPhase(macro, phase); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		switch c := s.(type) {
		case interface{ Close() error }:
			errs = append(errs, c.Close())
		case interface{ Close() }:
			c.Close()
		}
	}
	return errors.Join(errs...)
}
