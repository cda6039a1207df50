package sleep

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/cellsleep/core/model"
)

// Input is the state consumed by one scheduling pass.
type Input struct {
	// SmallCells are the small cells managed by the macro.
	SmallCells []model.CellID
	// Serving maps each connected user to its current cell.
	Serving map[model.RNTI]model.CellID
	// Coverage lists the users each cell can serve.
	Coverage CoverageMap
	// Efficiency holds the spectral efficiency of every known link.
	Efficiency Efficiencies
}

// Selection records one cell kept active by the scheduler.
type Selection struct {
	Cell model.CellID `json:"cell"`
	// Demand is the bandwidth needed to serve every covered user.
	Demand float64 `json:"demand"`
	// Covered are the pending users the cell covered when it was selected.
	Covered []model.RNTI `json:"covered"`
	// Assigned are the users placed on the cell, in assignment order.
	Assigned []model.RNTI `json:"assigned"`
	// Used is the bandwidth consumed by the assigned users.
	Used float64 `json:"used"`
}

// Decision is the outcome of a scheduling pass.
type Decision struct {
	Policy     model.SleepPolicy `json:"policy"`
	Selections []Selection       `json:"selections"`
	// Unserved are users left without a cell this cycle.
	Unserved []model.RNTI `json:"unserved"`
}

// Scheduler runs the greedy set cover selection.
type Scheduler struct {
	rho    float64
	budget float64
}

// NewScheduler returns a Scheduler configured from cfg.
func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{rho: cfg.RateRequirementBps, budget: cfg.Budget()}
}

// Cost returns the bandwidth needed to serve a user on a link with the given
// spectral efficiency. Unknown links cost +Inf and never fit.
func (s *Scheduler) Cost(se float64) float64 {
	if se <= 0 {
		return math.Inf(1)
	}
	return s.rho / se
}

// Budget returns the protected bandwidth granted to each selected cell.
func (s *Scheduler) Budget() float64 { return s.budget }

// Schedule repeatedly keeps the candidate with the highest aggregate demand
// active and walks its covered users in order, assigning them until the first
// one that does not fit the remaining budget. It stops when every user is
// placed or no candidate covers a pending user. Candidates never selected are
// returned as the sleep set.
func (s *Scheduler) Schedule(in Input) Decision {
	candidates := make(map[model.CellID]UserSet, len(in.SmallCells))
	for _, c := range in.SmallCells {
		set := make(UserSet)
		for r := range in.Coverage[c] {
			set.Add(r)
		}
		candidates[c] = set
	}
	pending := make(UserSet, len(in.Serving))
	for r := range in.Serving {
		pending.Add(r)
	}

	dec := Decision{Policy: model.SleepPolicy{Reassignment: make(map[model.RNTI]model.CellID)}}
	for len(pending) > 0 {
		bj, demand, ok := s.selectCell(candidates, pending, in.Efficiency)
		if !ok {
			break
		}
		covered := candidates[bj]
		sel := Selection{Cell: bj, Demand: demand, Covered: covered.Sorted()}

		w := s.budget
		for _, rnti := range s.order(sel.Covered, bj, in) {
			cost := s.Cost(in.Efficiency.Get(rnti, bj))
			if w <= 0 || w < cost {
				break
			}
			w -= cost
			sel.Used += cost
			sel.Assigned = append(sel.Assigned, rnti)
			delete(pending, rnti)
			delete(covered, rnti)
			if in.Serving[rnti] != bj {
				dec.Policy.Reassignment[rnti] = bj
			}
		}
		delete(candidates, bj)
		dec.Selections = append(dec.Selections, sel)
	}

	dec.Policy.SleepCells = sortedCells(candidates)
	dec.Unserved = pending.Sorted()
	return dec
}

// selectCell drops resolved users from every candidate and returns the one
// with the largest demand. Ties go to the lowest cell id.
func (s *Scheduler) selectCell(candidates map[model.CellID]UserSet, pending UserSet, se Efficiencies) (model.CellID, float64, bool) {
	var (
		best     model.CellID
		bestSum  float64
		selected bool
	)
	for _, c := range sortedCells(candidates) {
		set := candidates[c]
		for r := range set {
			if !pending.Has(r) {
				delete(set, r)
			}
		}
		if len(set) == 0 {
			continue
		}
		costs := make([]float64, 0, len(set))
		for r := range set {
			costs = append(costs, s.Cost(se.Get(r, c)))
		}
		sum := floats.Sum(costs)
		if !selected || sum > bestSum {
			best, bestSum, selected = c, sum, true
		}
	}
	return best, bestSum, selected
}

// order sorts the users covered by cell: highest cost first, then users
// already served by the cell, then ascending RNTI.
func (s *Scheduler) order(users []model.RNTI, cell model.CellID, in Input) []model.RNTI {
	out := append([]model.RNTI(nil), users...)
	cost := make(map[model.RNTI]float64, len(out))
	for _, r := range out {
		cost[r] = s.Cost(in.Efficiency.Get(r, cell))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := cost[out[i]], cost[out[j]]
		if ci != cj {
			return ci > cj
		}
		hi, hj := in.Serving[out[i]] == cell, in.Serving[out[j]] == cell
		if hi != hj {
			return hi
		}
		return out[i] < out[j]
	})
	return out
}
