package sleep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsleep/core/events"
	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/snapshot"
	"github.com/kilianp07/cellsleep/infra/memnet"
	"github.com/kilianp07/cellsleep/internal/eventbus"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits chan fakeTimer
}

type fakeTimer struct {
	d  time.Duration
	ch chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0), waits: make(chan fakeTimer, 4)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	t := fakeTimer{d: d, ch: make(chan time.Time, 1)}
	f.waits <- t
	return t.ch
}

func (f *fakeClock) fire(t *testing.T) time.Duration {
	t.Helper()
	select {
	case tm := <-f.waits:
		f.mu.Lock()
		f.now = f.now.Add(tm.d)
		now := f.now
		f.mu.Unlock()
		tm.ch <- now
		return tm.d
	case <-time.After(time.Second):
		t.Fatal("no timer armed")
		return 0
	}
}

type memSnapshots struct {
	mu   sync.Mutex
	recs []snapshot.Record
	err  error
}

func (m *memSnapshots) Write(_ context.Context, rec snapshot.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

func newTestController(t *testing.T) (*Controller, *memnet.Network) {
	t.Helper()
	_, managed, conn := scenarioReports()
	net := memnet.New(managed, conn)
	ctrl, err := NewController(testConfig(), net, nil)
	require.NoError(t, err)
	return ctrl, net
}

func feedScenario(c *Controller) {
	reports, _, _ := scenarioReports()
	for rnti, rep := range reports.Measurements {
		c.ReportUeMeas(rnti, rep)
	}
	for cell, rep := range reports.Quality {
		c.ReportQuality(cell, rep)
	}
}

func TestNewControllerErrors(t *testing.T) {
	_, err := NewController(testConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNilNetwork)

	cfg := testConfig()
	cfg.Macro = model.SmallCell(testMacro, 1)
	_, err = NewController(cfg, memnet.New(nil, model.ConnectionState{}), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewControllerFillsCoverageThreshold(t *testing.T) {
	ctrl, err := NewController(Config{Macro: testMacro}, memnet.New(nil, model.ConnectionState{}), nil)
	require.NoError(t, err)
	assert.Equal(t, -120.0, ctrl.Config().RSRPThresholdDbm)
	assert.Equal(t, -120.0, ctrl.engine.est.threshold)
}

func TestControllerRunOnceLogsReportCounts(t *testing.T) {
	_, managed, conn := scenarioReports()
	log := &captureLogger{}
	ctrl, err := NewController(testConfig(), memnet.New(managed, conn), log)
	require.NoError(t, err)
	feedScenario(ctrl)

	cyc, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, log.debugs, fmt.Sprintf("macro %d: cycle %s uses 3 measurement and 1 quality reports", testMacro, cyc.ID))
}

func TestControllerRunOnce(t *testing.T) {
	ctrl, net := newTestController(t)
	snaps := &memSnapshots{}
	ctrl.SetSnapshotWriter(snaps)
	feedScenario(ctrl)

	cyc, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cyc.ID)
	assert.Equal(t, []model.CellID{0x43}, cyc.Policy.SleepCells)
	assert.Equal(t, PhaseCollecting, ctrl.Phase())

	policies := net.Policies()
	require.Len(t, policies, 1)
	assert.Equal(t, cyc.Policy, policies[0])

	require.Len(t, snaps.recs, 1)
	rec := snaps.recs[0]
	assert.Equal(t, cyc.ID, rec.CycleID)
	assert.Equal(t, []model.CellID{0x41, 0x42, 0x43}, rec.ManagedCells)
	assert.Equal(t, []model.CellID{0x43}, rec.SleepCells)
	require.Len(t, rec.Connections, 3)
	assert.Equal(t, snapshot.Connection{IMSI: 1002, RNTI: 2, Macro: testMacro, OldCell: 0x42, NewCell: 0x41}, rec.Connections[1])
}

func TestControllerResetsReportsBetweenCycles(t *testing.T) {
	ctrl, net := newTestController(t)
	net.KeepConnections()
	feedScenario(ctrl)

	first, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Policy, second.Policy)
	assert.Equal(t, []model.CellID{0x41, 0x42, 0x43}, second.Policy.SleepCells)

	feedScenario(ctrl)
	third, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Policy, third.Policy)
}

func TestControllerQueryFailureSkipsPublish(t *testing.T) {
	ctrl, net := newTestController(t)
	snaps := &memSnapshots{}
	ctrl.SetSnapshotWriter(snaps)
	feedScenario(ctrl)

	boom := errors.New("unreachable")
	net.SetError(boom)
	_, err := ctrl.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, net.Policies())
	assert.Empty(t, snaps.recs)
	assert.Equal(t, PhaseCollecting, ctrl.Phase())

	net.SetError(nil)
	cyc, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.CellID{0x41, 0x42, 0x43}, cyc.Policy.SleepCells)
}

func TestControllerSnapshotFailureIsNotFatal(t *testing.T) {
	ctrl, net := newTestController(t)
	ctrl.SetSnapshotWriter(&memSnapshots{err: errors.New("disk full")})
	feedScenario(ctrl)

	_, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, net.Policies(), 1)
}

func TestControllerEmitsEvents(t *testing.T) {
	ctrl, _ := newTestController(t)
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	ctrl.SetEventBus(bus)

	ctrl.ReportQuality(0x43, model.QualityReport{Entries: []model.QualityEntry{{RNTI: 1, CQI: 16}}})
	_, err := ctrl.RunOnce(context.Background())
	require.NoError(t, err)

	var (
		phases []string
		cycle  *events.CycleEvent
		report *events.ReportEvent
	)
	for len(sub) > 0 {
		switch ev := (<-sub).(type) {
		case events.PhaseEvent:
			phases = append(phases, ev.Phase)
		case events.CycleEvent:
			cycle = &ev
		case events.ReportEvent:
			report = &ev
		}
	}
	require.NotNil(t, report)
	assert.Equal(t, events.KindQuality, report.Kind)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, []string{"scheduling", "publishing", "reset", "collecting"}, phases)
	require.NotNil(t, cycle)
	assert.Equal(t, 3, cycle.ManagedCells)
	assert.Equal(t, 3, cycle.Users)
	assert.Equal(t, 3, cycle.Unserved)
	assert.NoError(t, cycle.Err)
}

func TestControllerRun(t *testing.T) {
	ctrl, net := newTestController(t)
	clk := newFakeClock()
	ctrl.SetClock(clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	assert.Equal(t, time.Second, clk.fire(t))
	assert.Eventually(t, func() bool { return len(net.Policies()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1800*time.Second, clk.fire(t))
	assert.Eventually(t, func() bool { return len(net.Policies()) == 2 }, time.Second, 5*time.Millisecond)

	require.Len(t, net.Triggers(), 1)
	assert.Equal(t, model.EventA4, net.Triggers()[0].Event)
	assert.Equal(t, uint8(1), ctrl.MeasurementID())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}
}

func TestPhaseTransitions(t *testing.T) {
	assert.True(t, PhaseCollecting.canTransition(PhaseScheduling))
	assert.True(t, PhaseScheduling.canTransition(PhaseReset))
	assert.True(t, PhaseReset.canTransition(PhaseCollecting))
	assert.False(t, PhaseCollecting.canTransition(PhasePublishing))
	assert.False(t, PhasePublishing.canTransition(PhaseScheduling))
	assert.Equal(t, "publishing", PhasePublishing.String())
}
