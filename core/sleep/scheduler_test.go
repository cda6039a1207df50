package sleep

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsleep/core/model"
)

const testMacro = model.CellID(0x40)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Macro = testMacro
	return cfg
}

func link(e Efficiencies, rnti model.RNTI, cell model.CellID, se float64) {
	e.set(rnti, cell, se)
}

func cover(cells map[model.CellID][]model.RNTI) CoverageMap {
	m := make(CoverageMap)
	for c, users := range cells {
		set := make(UserSet)
		for _, u := range users {
			set.Add(u)
		}
		m[c] = set
	}
	return m
}

func TestScheduleTwoCellScenario(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBandwidth = 200000
	a, b := model.SmallCell(testMacro, 1), model.SmallCell(testMacro, 2)

	se := make(Efficiencies)
	link(se, 1, a, 2.0)
	link(se, 2, b, 1.0)
	link(se, 3, b, 1.0)
	in := Input{
		SmallCells: []model.CellID{a, b},
		Serving:    map[model.RNTI]model.CellID{1: a, 2: b, 3: b},
		Coverage:   cover(map[model.CellID][]model.RNTI{a: {1}, b: {2, 3}}),
		Efficiency: se,
	}

	dec := NewScheduler(cfg).Schedule(in)

	require.Len(t, dec.Selections, 2)
	assert.Equal(t, b, dec.Selections[0].Cell)
	assert.Equal(t, 200000.0, dec.Selections[0].Demand)
	// Equal costs and serving cells leave the user id as the tie break,
	// lowest first: only one of the two fits the 180000 budget.
	assert.Equal(t, []model.RNTI{2}, dec.Selections[0].Assigned)
	assert.Equal(t, a, dec.Selections[1].Cell)
	assert.Equal(t, []model.RNTI{1}, dec.Selections[1].Assigned)

	assert.Empty(t, dec.Policy.SleepCells)
	assert.Empty(t, dec.Policy.Reassignment)
	assert.Equal(t, []model.RNTI{3}, dec.Unserved)
}

func TestScheduleServedUserRanksFirstOnEqualCost(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBandwidth = 100000
	cfg.ProtectionMargin = 0
	a, b := model.SmallCell(testMacro, 1), model.SmallCell(testMacro, 2)
	se := make(Efficiencies)
	link(se, 5, a, 1.0)
	link(se, 9, a, 1.0)

	tests := []struct {
		name     string
		serving  map[model.RNTI]model.CellID
		assigned model.RNTI
		unserved model.RNTI
	}{
		{"higher id on cell", map[model.RNTI]model.CellID{5: b, 9: a}, 9, 5},
		{"lower id on cell", map[model.RNTI]model.CellID{5: a, 9: b}, 5, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				SmallCells: []model.CellID{a, b},
				Serving:    tt.serving,
				Coverage:   cover(map[model.CellID][]model.RNTI{a: {5, 9}}),
				Efficiency: se,
			}
			dec := NewScheduler(cfg).Schedule(in)
			require.Len(t, dec.Selections, 1)
			assert.Equal(t, []model.RNTI{tt.assigned}, dec.Selections[0].Assigned)
			assert.Equal(t, []model.RNTI{tt.unserved}, dec.Unserved)
			assert.Equal(t, []model.CellID{b}, dec.Policy.SleepCells)
		})
	}
}

func TestScheduleEmptyCoverageSleepsEverything(t *testing.T) {
	cells := []model.CellID{model.SmallCell(testMacro, 3), model.SmallCell(testMacro, 1), model.SmallCell(testMacro, 2)}
	in := Input{
		SmallCells: cells,
		Serving:    map[model.RNTI]model.CellID{7: testMacro},
		Coverage:   CoverageMap{},
		Efficiency: Efficiencies{},
	}
	dec := NewScheduler(testConfig()).Schedule(in)

	assert.Equal(t, []model.CellID{0x41, 0x42, 0x43}, dec.Policy.SleepCells)
	assert.Empty(t, dec.Policy.Reassignment)
	assert.Empty(t, dec.Selections)
	assert.Equal(t, []model.RNTI{7}, dec.Unserved)
}

func TestScheduleNoUsers(t *testing.T) {
	a := model.SmallCell(testMacro, 1)
	dec := NewScheduler(testConfig()).Schedule(Input{SmallCells: []model.CellID{a}})
	assert.Equal(t, []model.CellID{a}, dec.Policy.SleepCells)
	assert.Empty(t, dec.Unserved)
}

func TestScheduleReassignsToSelectedCell(t *testing.T) {
	a, b := model.SmallCell(testMacro, 1), model.SmallCell(testMacro, 2)
	se := make(Efficiencies)
	link(se, 1, a, 1.0)
	link(se, 2, a, 1.0)
	link(se, 2, b, 5.0)
	in := Input{
		SmallCells: []model.CellID{a, b},
		Serving:    map[model.RNTI]model.CellID{1: a, 2: b},
		Coverage:   cover(map[model.CellID][]model.RNTI{a: {1, 2}, b: {2}}),
		Efficiency: se,
	}
	dec := NewScheduler(testConfig()).Schedule(in)

	assert.Equal(t, []model.CellID{b}, dec.Policy.SleepCells)
	assert.Equal(t, map[model.RNTI]model.CellID{2: a}, dec.Policy.Reassignment)
	assert.Empty(t, dec.Unserved)
}

func TestScheduleTieGoesToLowestCell(t *testing.T) {
	a, b := model.SmallCell(testMacro, 1), model.SmallCell(testMacro, 2)
	se := make(Efficiencies)
	link(se, 1, a, 2.0)
	link(se, 1, b, 2.0)
	in := Input{
		SmallCells: []model.CellID{b, a},
		Serving:    map[model.RNTI]model.CellID{1: b},
		Coverage:   cover(map[model.CellID][]model.RNTI{a: {1}, b: {1}}),
		Efficiency: se,
	}
	dec := NewScheduler(testConfig()).Schedule(in)
	require.Len(t, dec.Selections, 1)
	assert.Equal(t, a, dec.Selections[0].Cell)
	assert.Equal(t, []model.CellID{b}, dec.Policy.SleepCells)
	assert.Equal(t, map[model.RNTI]model.CellID{1: a}, dec.Policy.Reassignment)
}

func TestScheduleUnknownLinkNeverFits(t *testing.T) {
	a := model.SmallCell(testMacro, 1)
	in := Input{
		SmallCells: []model.CellID{a},
		Serving:    map[model.RNTI]model.CellID{1: a},
		Coverage:   cover(map[model.CellID][]model.RNTI{a: {1}}),
		Efficiency: Efficiencies{},
	}
	dec := NewScheduler(testConfig()).Schedule(in)
	require.Len(t, dec.Selections, 1)
	assert.True(t, math.IsInf(dec.Selections[0].Demand, 1))
	assert.Empty(t, dec.Selections[0].Assigned)
	assert.Empty(t, dec.Policy.SleepCells)
	assert.Equal(t, []model.RNTI{1}, dec.Unserved)
}

func TestScheduleStopsAtFirstUserThatDoesNotFit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBandwidth = 100000
	cfg.ProtectionMargin = 0
	a := model.SmallCell(testMacro, 1)
	se := make(Efficiencies)
	link(se, 1, a, 4.0)  // 25000
	link(se, 2, a, 1.25) // 80000
	link(se, 3, a, 2.0)  // 50000
	in := Input{
		SmallCells: []model.CellID{a},
		Serving:    map[model.RNTI]model.CellID{1: a, 2: a, 3: a},
		Coverage:   cover(map[model.CellID][]model.RNTI{a: {1, 2, 3}}),
		Efficiency: se,
	}
	dec := NewScheduler(cfg).Schedule(in)
	require.Len(t, dec.Selections, 1)
	// 80000 fits, 50000 does not and the walk ends even though 25000 would fit.
	assert.Equal(t, []model.RNTI{2}, dec.Selections[0].Assigned)
	assert.Equal(t, []model.RNTI{1, 3}, dec.Unserved)
}

func TestCost(t *testing.T) {
	s := NewScheduler(testConfig())
	assert.Equal(t, 50000.0, s.Cost(2))
	assert.True(t, math.IsInf(s.Cost(0), 1))
	assert.InDelta(t, 18000000.0, s.Budget(), 1e-6)
}

// randomInput builds a macro with a random set of small cells and users.
func randomInput(r *rand.Rand) Input {
	ncells := 1 + r.Intn(6)
	in := Input{
		Serving:    make(map[model.RNTI]model.CellID),
		Coverage:   make(CoverageMap),
		Efficiency: make(Efficiencies),
	}
	for i := 1; i <= ncells; i++ {
		in.SmallCells = append(in.SmallCells, model.SmallCell(testMacro, uint8(i)))
	}
	nusers := r.Intn(40)
	for u := 1; u <= nusers; u++ {
		rnti := model.RNTI(u)
		in.Serving[rnti] = in.SmallCells[r.Intn(ncells)]
		for _, c := range in.SmallCells {
			if r.Float64() < 0.5 {
				continue
			}
			set, ok := in.Coverage[c]
			if !ok {
				set = make(UserSet)
				in.Coverage[c] = set
			}
			set.Add(rnti)
			in.Efficiency.set(rnti, c, r.Float64()*5.55)
		}
	}
	return in
}

func TestScheduleProperties(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBandwidth = 400000
	s := NewScheduler(cfg)
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		in := randomInput(r)
		dec := s.Schedule(in)

		selected := make(map[model.CellID]Selection)
		for _, sel := range dec.Selections {
			selected[sel.Cell] = sel
			assert.LessOrEqual(t, sel.Used, s.Budget())
			used := 0.0
			for _, u := range sel.Assigned {
				assert.True(t, in.Coverage[sel.Cell].Has(u))
				assert.Contains(t, sel.Covered, u)
				used += s.Cost(in.Efficiency.Get(u, sel.Cell))
			}
			assert.InDelta(t, sel.Used, used, 1e-6)
		}
		for _, c := range dec.Policy.SleepCells {
			assert.NotContains(t, selected, c)
		}
		for u, c := range dec.Policy.Reassignment {
			sel, ok := selected[c]
			require.True(t, ok)
			assert.Contains(t, sel.Covered, u)
			assert.NotEqual(t, in.Serving[u], c)
		}
		assert.Equal(t, len(in.SmallCells), len(selected)+len(dec.Policy.SleepCells))
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	s := NewScheduler(testConfig())
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		in := randomInput(r)
		assert.Equal(t, s.Schedule(in), s.Schedule(in))
	}
}
