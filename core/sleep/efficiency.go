package sleep

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/cellsleep/core/model"
)

// qualityEfficiency maps a channel quality index to bits/s/Hz. Index 0 means
// the link is out of range.
var qualityEfficiency = [model.MaxCQI + 1]float64{
	0.0,
	0.15, 0.23, 0.38, 0.6, 0.88, 1.18,
	1.48, 1.91, 2.41,
	2.73, 3.32, 3.9, 4.52, 5.12, 5.55,
}

// Efficiencies stores the spectral efficiency of each link for one cycle.
type Efficiencies map[model.LinkKey]float64

// Get returns the efficiency of the link or 0 when it is unknown.
func (e Efficiencies) Get(rnti model.RNTI, cell model.CellID) float64 {
	return e[model.LinkKey{RNTI: rnti, Cell: cell}]
}

func (e Efficiencies) set(rnti model.RNTI, cell model.CellID, se float64) {
	e[model.LinkKey{RNTI: rnti, Cell: cell}] = se
}

// Estimator converts channel feedback into spectral efficiencies.
type Estimator struct {
	macro     model.CellID
	maxSe     float64
	noise     float64
	threshold float64
}

// NewEstimator returns an Estimator for the macro cell of cfg.
func NewEstimator(cfg Config) Estimator {
	return Estimator{
		macro:     cfg.Macro,
		maxSe:     cfg.MaxSpectralEfficiency,
		noise:     cfg.NoisePowerW,
		threshold: cfg.RSRPThresholdDbm,
	}
}

// QualityToEfficiency returns the spectral efficiency of a quality index. The
// highest index maps to the configured maximum and no value exceeds it.
func (e Estimator) QualityToEfficiency(cqi uint8) (float64, error) {
	if cqi > model.MaxCQI {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQualityIndex, cqi)
	}
	if cqi == model.MaxCQI {
		return e.maxSe, nil
	}
	return math.Min(qualityEfficiency[cqi], e.maxSe), nil
}

// FromQuality writes the efficiency of every (user, cell) pair found in the
// quality reports. Entries with an invalid index are skipped and reported in
// the returned error.
func (e Estimator) FromQuality(table Efficiencies, reports map[model.CellID]model.QualityReport) error {
	var errs []error
	for _, cell := range sortedCells(reports) {
		for _, entry := range reports[cell].Entries {
			se, err := e.QualityToEfficiency(entry.CQI)
			if err != nil {
				errs = append(errs, fmt.Errorf("cell %d rnti %d: %w", cell, entry.RNTI, err))
				continue
			}
			table.set(entry.RNTI, cell, se)
		}
	}
	return errors.Join(errs...)
}

// FromSignal estimates the efficiency of each covering sibling small cell from
// the received powers of a user's measurement report. It must run after
// FromQuality: its values replace quality based ones for the same link.
func (e Estimator) FromSignal(table Efficiencies, serving map[model.RNTI]model.CellID, meas map[model.RNTI]model.MeasurementReport) {
	for _, rnti := range sortedUsers(serving) {
		rep, ok := meas[rnti]
		if !ok {
			continue
		}
		total := 0.0
		for _, n := range rep.Neighbors {
			if e.sibling(n.Cell) {
				total += n.RSRP.Watts()
			}
		}
		for _, n := range rep.Neighbors {
			if !e.eligible(n) {
				continue
			}
			table.set(rnti, n.Cell, e.signalEfficiency(n.RSRP.Watts(), total))
		}
	}
}

// signalEfficiency returns the Shannon estimate for a candidate with power p
// when the sibling cells sum to total.
func (e Estimator) signalEfficiency(p, total float64) float64 {
	interference := total - p
	if interference <= 0 {
		return e.maxSe
	}
	return math.Min(e.maxSe, math.Log2(1+p/(interference+e.noise)))
}

func (e Estimator) sibling(cell model.CellID) bool {
	return cell != e.macro && cell.BelongsTo(e.macro)
}

func (e Estimator) eligible(n model.NeighborMeasurement) bool {
	return e.sibling(n.Cell) && n.RSRP.Dbm() >= e.threshold
}
