package scenarios

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/kilianp07/cellsleep/core/logger"
	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/sleep"
	"github.com/kilianp07/cellsleep/infra/memnet"
)

// Result is the outcome of one scenario cycle.
type Result struct {
	Name       string            `json:"name"`
	CycleID    string            `json:"cycle_id"`
	Policy     model.SleepPolicy `json:"policy"`
	Unserved   []model.RNTI      `json:"unserved"`
	Rejected   int               `json:"rejected"`
	Selections []sleep.Selection `json:"-"`
}

// Run feeds the scenario reports to a controller backed by the in-memory
// network and executes a single pass.
func Run(ctx context.Context, sc *Scenario, log logger.Logger) (Result, error) {
	cfg, err := sc.Config()
	if err != nil {
		return Result{}, err
	}
	net := memnet.New(sc.Cells, sc.Connections())
	ctrl, err := sleep.NewController(cfg, net, log)
	if err != nil {
		return Result{}, err
	}
	if err := ctrl.Start(ctx); err != nil {
		return Result{}, err
	}
	for _, m := range sc.Measurements {
		ctrl.ReportUeMeas(m.RNTI, model.MeasurementReport{MeasID: ctrl.MeasurementID(), Neighbors: m.Neighbors})
	}
	for _, q := range sc.Quality {
		ctrl.ReportQuality(q.Cell, model.QualityReport{Entries: q.Entries})
	}
	cyc, err := ctrl.RunOnce(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return Result{
		Name:       sc.Name,
		CycleID:    cyc.ID,
		Policy:     cyc.Policy,
		Unserved:   cyc.Unserved,
		Rejected:   cyc.Rejected,
		Selections: cyc.Selections,
	}, nil
}

// Check compares the result with the expected outcome. Empty and missing
// collections are equal.
func (r Result) Check(exp Expected) error {
	var errs []error
	if !slices.Equal(r.Policy.SleepCells, exp.SleepCells) && len(r.Policy.SleepCells)+len(exp.SleepCells) > 0 {
		errs = append(errs, fmt.Errorf("sleep cells: got %v, want %v", r.Policy.SleepCells, exp.SleepCells))
	}
	if !maps.Equal(r.Policy.Reassignment, exp.Reassignment) {
		errs = append(errs, fmt.Errorf("reassignment: got %v, want %v", r.Policy.Reassignment, exp.Reassignment))
	}
	if !slices.Equal(r.Unserved, exp.Unserved) && len(r.Unserved)+len(exp.Unserved) > 0 {
		errs = append(errs, fmt.Errorf("unserved: got %v, want %v", r.Unserved, exp.Unserved))
	}
	if r.Rejected != exp.Rejected {
		errs = append(errs, fmt.Errorf("rejected: got %d, want %d", r.Rejected, exp.Rejected))
	}
	return errors.Join(errs...)
}
