package sleep

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/cellsleep/core/model"
)

type captureLogger struct {
	debugs []string
	warns  []string
	fields []map[string]any
}

func (l *captureLogger) Debugf(format string, args ...any) {
	l.debugs = append(l.debugs, fmt.Sprintf(format, args...))
}
func (l *captureLogger) Debugw(msg string, f map[string]any) {
	l.fields = append(l.fields, f)
}
func (l *captureLogger) Infof(string, ...any) {}
func (l *captureLogger) Warnf(format string, args ...any) {
	l.warns = append(l.warns, format)
}
func (l *captureLogger) Errorf(string, ...any) {}

func scenarioReports() (Reports, []model.CellID, model.ConnectionState) {
	a, b, c := model.SmallCell(testMacro, 1), model.SmallCell(testMacro, 2), model.SmallCell(testMacro, 3)
	reports := Reports{
		Measurements: map[model.RNTI]model.MeasurementReport{
			1: {Neighbors: []model.NeighborMeasurement{{Cell: a, RSRP: 70}, {Cell: b, RSRP: 40}}},
			2: {Neighbors: []model.NeighborMeasurement{{Cell: b, RSRP: 65}, {Cell: a, RSRP: 45}}},
			3: {Neighbors: []model.NeighborMeasurement{{Cell: a, RSRP: 55}, {Cell: b, RSRP: 55}}},
		},
		Quality: map[model.CellID]model.QualityReport{
			c: {Entries: []model.QualityEntry{{RNTI: 1, CQI: 7}, {RNTI: 2, CQI: 42}}},
		},
	}
	conn := model.ConnectionState{
		Serving:  map[model.RNTI]model.CellID{1: a, 2: b, 3: c},
		Identity: map[model.RNTI]model.IMSI{1: 1001, 2: 1002, 3: 1003},
	}
	return reports, []model.CellID{c, a, b}, conn
}

func TestEngineEvaluate(t *testing.T) {
	log := &captureLogger{}
	eng := NewEngine(testConfig(), log)
	reports, managed, conn := scenarioReports()

	ev := eng.Evaluate(WithCycleID(context.Background(), "c-1"), reports, managed, conn)

	assert.Equal(t, 1, ev.Rejected)
	assert.Len(t, log.warns, 1)
	// b has the largest demand because of its weak link to user 1, which
	// does not fit and ends the walk. a then takes every user.
	if assert.Len(t, ev.Selections, 2) {
		assert.Equal(t, model.CellID(0x42), ev.Selections[0].Cell)
		assert.Empty(t, ev.Selections[0].Assigned)
		assert.Equal(t, model.CellID(0x41), ev.Selections[1].Cell)
		assert.Equal(t, []model.RNTI{2, 3, 1}, ev.Selections[1].Assigned)
	}
	assert.Equal(t, []model.CellID{0x43}, ev.Policy.SleepCells)
	assert.Equal(t, map[model.RNTI]model.CellID{2: 0x41, 3: 0x41}, ev.Policy.Reassignment)
	assert.Empty(t, ev.Unserved)
	assert.Equal(t, 1.48, ev.Efficiency.Get(1, 0x43))

	if assert.Len(t, log.fields, 1) {
		assert.Equal(t, "c-1", log.fields[0]["cycle_id"])
		assert.Equal(t, []model.CellID{0x41, 0x42, 0x43}, log.fields[0]["small_cells"])
	}
}

func TestEngineIdempotent(t *testing.T) {
	eng := NewEngine(testConfig(), nil)
	reports, managed, conn := scenarioReports()
	first := eng.Evaluate(context.Background(), reports, managed, conn)
	second := eng.Evaluate(context.Background(), reports, managed, conn)
	assert.Equal(t, first.Policy, second.Policy)
	assert.Equal(t, first.Decision, second.Decision)
}

func TestEngineNoReports(t *testing.T) {
	eng := NewEngine(testConfig(), nil)
	_, managed, conn := scenarioReports()
	ev := eng.Evaluate(context.Background(), Reports{}, managed, conn)
	assert.Equal(t, []model.CellID{0x41, 0x42, 0x43}, ev.Policy.SleepCells)
	assert.Empty(t, ev.Policy.Reassignment)
	assert.Equal(t, []model.RNTI{1, 2, 3}, ev.Unserved)
	assert.Zero(t, ev.Rejected)
}
