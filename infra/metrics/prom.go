package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cellsleep/core/metrics"
)

// PromSink records sleep cycles in Prometheus metrics.
type PromSink struct {
	cycles     *prometheus.CounterVec
	sleeping   *prometheus.GaugeVec
	active     *prometheus.GaugeVec
	unserved   *prometheus.GaugeVec
	efficiency *prometheus.GaugeVec
	reassigned *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPromSink registers cycle metrics on the default Prometheus registerer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleep_cycles_total",
			Help: "Total number of scheduling passes",
		}, []string{"macro", "failed"}),
		sleeping: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sleep_sleeping_cells",
			Help: "Small cells put to sleep by the last pass",
		}, []string{"macro"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sleep_active_cells",
			Help: "Small cells kept active by the last pass",
		}, []string{"macro"}),
		unserved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sleep_unserved_users",
			Help: "Users left without a cell by the last pass",
		}, []string{"macro"}),
		efficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sleep_mean_spectral_efficiency",
			Help: "Mean spectral efficiency of the known links in bits/s/Hz",
		}, []string{"macro"}),
		reassigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleep_reassignments_total",
			Help: "Total number of user reassignments",
		}, []string{"macro"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleep_rejected_report_entries_total",
			Help: "Report entries dropped for invalid content",
		}, []string{"macro", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sleep_cycle_duration_seconds",
			Help:    "Duration of a scheduling pass",
			Buckets: prometheus.DefBuckets,
		}, []string{"macro"}),
	}
	var err error
	if s.cycles, err = register(reg, s.cycles); err != nil {
		return nil, err
	}
	if s.sleeping, err = register(reg, s.sleeping); err != nil {
		return nil, err
	}
	if s.active, err = register(reg, s.active); err != nil {
		return nil, err
	}
	if s.unserved, err = register(reg, s.unserved); err != nil {
		return nil, err
	}
	if s.efficiency, err = register(reg, s.efficiency); err != nil {
		return nil, err
	}
	if s.reassigned, err = register(reg, s.reassigned); err != nil {
		return nil, err
	}
	if s.rejected, err = register(reg, s.rejected); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing the collector already registered under the
// same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle updates the cycle metrics of the macro.
func (s *PromSink) RecordCycle(m coremetrics.CycleMetrics) error {
	macro := m.Macro.String()
	s.cycles.WithLabelValues(macro, strconv.FormatBool(m.Failed)).Inc()
	s.duration.WithLabelValues(macro).Observe(m.Duration.Seconds())
	if m.Failed {
		return nil
	}
	s.sleeping.WithLabelValues(macro).Set(float64(m.SleepingCells))
	s.active.WithLabelValues(macro).Set(float64(m.ActiveCells))
	s.unserved.WithLabelValues(macro).Set(float64(m.Unserved))
	s.efficiency.WithLabelValues(macro).Set(m.MeanEfficiency)
	s.reassigned.WithLabelValues(macro).Add(float64(m.Reassigned))
	return nil
}

// RecordReport counts rejected report entries.
func (s *PromSink) RecordReport(r coremetrics.ReportMetrics) error {
	if r.Rejected > 0 {
		s.rejected.WithLabelValues(r.Macro.String(), r.Kind).Add(float64(r.Rejected))
	}
	return nil
}

var _ coremetrics.ReportRecorder = (*PromSink)(nil)
