package sleep

import "github.com/kilianp07/cellsleep/core/model"

// UserSet is a set of users.
type UserSet map[model.RNTI]struct{}

// Add inserts rnti.
func (s UserSet) Add(rnti model.RNTI) { s[rnti] = struct{}{} }

// Has reports whether rnti is in the set.
func (s UserSet) Has(rnti model.RNTI) bool {
	_, ok := s[rnti]
	return ok
}

// Sorted returns the members in ascending order.
func (s UserSet) Sorted() []model.RNTI {
	out := make([]model.RNTI, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	model.SortRNTIs(out)
	return out
}

// CoverageMap lists, per small cell, the users it could serve this cycle.
type CoverageMap map[model.CellID]UserSet

// Cells returns the covering cells in ascending order.
func (m CoverageMap) Cells() []model.CellID {
	return sortedCells(m)
}

// BuildCoverage returns the users each sibling small cell can serve. A cell is
// eligible for a user with a known serving cell when it belongs to the macro
// and its reported signal is at or above the threshold. Cells without any
// eligible user are absent from the map.
func BuildCoverage(est Estimator, serving map[model.RNTI]model.CellID, meas map[model.RNTI]model.MeasurementReport) CoverageMap {
	cov := make(CoverageMap)
	for rnti := range serving {
		rep, ok := meas[rnti]
		if !ok {
			continue
		}
		for _, n := range rep.Neighbors {
			if !est.eligible(n) {
				continue
			}
			set, ok := cov[n.Cell]
			if !ok {
				set = make(UserSet)
				cov[n.Cell] = set
			}
			set.Add(rnti)
		}
	}
	return cov
}

func sortedCells[V any](m map[model.CellID]V) []model.CellID {
	out := make([]model.CellID, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	model.SortCells(out)
	return out
}

func sortedUsers[V any](m map[model.RNTI]V) []model.RNTI {
	out := make([]model.RNTI, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	model.SortRNTIs(out)
	return out
}
