package sleep

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/cellsleep/core/logger"
	"github.com/kilianp07/cellsleep/core/model"
)

// Evaluation is the full result of one engine run.
type Evaluation struct {
	Decision
	Efficiency Efficiencies
	Coverage   CoverageMap
	// Rejected counts quality entries dropped for an invalid index.
	Rejected int
}

// Engine chains the estimator, the coverage builder and the scheduler.
type Engine struct {
	cfg   Config
	est   Estimator
	sched *Scheduler
	log   logger.Logger
}

// NewEngine returns an Engine for cfg. A nil logger discards output.
func NewEngine(cfg Config, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Engine{cfg: cfg, est: NewEstimator(cfg), sched: NewScheduler(cfg), log: log}
}

// Evaluate computes the sleep decision for the given reports, managed cells
// and connection table. It never fails: invalid entries are skipped, logged
// and counted.
func (e *Engine) Evaluate(ctx context.Context, reports Reports, managed []model.CellID, conn model.ConnectionState) Evaluation {
	serving := conn.Serving
	if serving == nil {
		serving = map[model.RNTI]model.CellID{}
	}
	ev := Evaluation{Efficiency: make(Efficiencies)}
	if err := e.est.FromQuality(ev.Efficiency, reports.Quality); err != nil {
		ev.Rejected = countJoined(err)
		e.log.Warnf("macro %d: rejected %d quality entries: %v", e.cfg.Macro, ev.Rejected, err)
	}
	e.est.FromSignal(ev.Efficiency, serving, reports.Measurements)
	ev.Coverage = BuildCoverage(e.est, serving, reports.Measurements)
	ev.Decision = e.sched.Schedule(Input{
		SmallCells: managed,
		Serving:    serving,
		Coverage:   ev.Coverage,
		Efficiency: ev.Efficiency,
	})
	e.dump(ctx, managed, conn, ev)
	return ev
}

func (e *Engine) dump(ctx context.Context, managed []model.CellID, conn model.ConnectionState, ev Evaluation) {
	cells := append([]model.CellID(nil), managed...)
	model.SortCells(cells)

	users := conn.Users()
	rntis := make([]model.RNTI, 0, len(users))
	connections := make([]string, 0, len(users))
	for _, u := range users {
		rntis = append(rntis, u.RNTI)
		connections = append(connections, fmt.Sprintf("%d->%d", u.RNTI, u.Serving))
	}

	cover := make(map[string][]model.RNTI, len(ev.Coverage))
	for _, c := range ev.Coverage.Cells() {
		cover[c.String()] = ev.Coverage[c].Sorted()
	}

	se := make(map[string]float64, len(ev.Efficiency))
	for k, v := range ev.Efficiency {
		se[fmt.Sprintf("%d@%d", k.RNTI, k.Cell)] = v
	}

	e.log.Debugw("sleep cycle details", map[string]any{
		"cycle_id":    CycleID(ctx),
		"macro":       e.cfg.Macro,
		"small_cells": cells,
		"users":       rntis,
		"connections": connections,
		"cover_sets":  cover,
		"efficiency":  se,
		"selections":  ev.Selections,
		"unserved":    ev.Unserved,
	})
}

// countJoined returns the number of errors wrapped by an errors.Join result.
func countJoined(err error) int {
	var multi interface{ Unwrap() []error }
	if errors.As(err, &multi) {
		return len(multi.Unwrap())
	}
	return 1
}
