package sleep

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/cellsleep/core/model"
)

func TestBuildCoverage(t *testing.T) {
	est := NewEstimator(testConfig())
	a, b, c := model.SmallCell(testMacro, 1), model.SmallCell(testMacro, 2), model.SmallCell(testMacro, 3)

	serving := map[model.RNTI]model.CellID{1: a, 2: testMacro}
	meas := map[model.RNTI]model.MeasurementReport{
		1: {Neighbors: []model.NeighborMeasurement{
			{Cell: a, RSRP: 20}, // exactly -120 dBm
			{Cell: b, RSRP: 19},
			{Cell: testMacro, RSRP: 80},
		}},
		2: {Neighbors: []model.NeighborMeasurement{
			{Cell: b, RSRP: 40},
			{Cell: model.SmallCell(0x80, 2), RSRP: 40},
		}},
		3: {Neighbors: []model.NeighborMeasurement{{Cell: c, RSRP: 60}}},
	}
	cov := BuildCoverage(est, serving, meas)

	assert.Equal(t, []model.CellID{a, b}, cov.Cells())
	assert.Equal(t, []model.RNTI{1}, cov[a].Sorted())
	assert.Equal(t, []model.RNTI{2}, cov[b].Sorted())
	assert.NotContains(t, cov, c)
	assert.NotContains(t, cov, testMacro)
}

func TestBuildCoverageEmpty(t *testing.T) {
	cov := BuildCoverage(NewEstimator(testConfig()), nil, nil)
	assert.Empty(t, cov)
	assert.Empty(t, cov.Cells())
}

func TestUserSet(t *testing.T) {
	s := make(UserSet)
	s.Add(5)
	s.Add(2)
	s.Add(5)
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(3))
	assert.Equal(t, []model.RNTI{2, 5}, s.Sorted())
}

func testMeas(rsrp model.RSRPRange) model.MeasurementReport {
	return model.MeasurementReport{Neighbors: []model.NeighborMeasurement{{Cell: 0x41, RSRP: rsrp}}}
}

func testQuality() model.QualityReport {
	return model.QualityReport{Entries: []model.QualityEntry{{RNTI: 1, CQI: 9}}}
}
