package sleep

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/cellsleep/core/events"
	"github.com/kilianp07/cellsleep/core/logger"
	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/monitoring"
	"github.com/kilianp07/cellsleep/core/snapshot"
	"github.com/kilianp07/cellsleep/internal/eventbus"
)

// Cycle is the outcome of one scheduling pass.
type Cycle struct {
	ID      string
	Start   time.Time
	Managed []model.CellID
	Conn    model.ConnectionState
	Evaluation
}

type inbound struct {
	rnti    model.RNTI
	cell    model.CellID
	meas    *model.MeasurementReport
	quality *model.QualityReport
}

// Controller drives the periodic sleep cycle of one macro cell. Reports are
// queued by ReportUeMeas and ReportQuality and applied by the loop goroutine,
// which is the only one touching the report store.
type Controller struct {
	cfg    Config
	net    Network
	engine *Engine
	log    logger.Logger
	clock  Clock
	bus    eventbus.EventBus
	snaps  SnapshotWriter

	store  *ReportStore
	inbox  chan inbound
	phase  atomic.Int32
	measID atomic.Uint32
}

// NewController validates cfg and returns a controller bound to net. cfg
// should be derived from DefaultConfig so that unset fields get their defaults.
func NewController(cfg Config, net Network, log logger.Logger) (*Controller, error) {
	if net == nil {
		return nil, ErrNilNetwork
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Controller{
		cfg:    cfg,
		net:    net,
		engine: NewEngine(cfg, log),
		log:    log,
		clock:  realClock{},
		store:  NewReportStore(),
		inbox:  make(chan inbound, cfg.InboxSize),
	}, nil
}

// SetClock replaces the time source. It must be called before Run.
func (c *Controller) SetClock(clk Clock) {
	if clk != nil {
		c.clock = clk
	}
}

// SetEventBus enables event publication.
func (c *Controller) SetEventBus(bus eventbus.EventBus) { c.bus = bus }

// SetSnapshotWriter enables the per cycle diagnostic record.
func (c *Controller) SetSnapshotWriter(w SnapshotWriter) { c.snaps = w }

// Config returns the effective configuration.
func (c *Controller) Config() Config { return c.cfg }

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return Phase(c.phase.Load()) }

// MeasurementID returns the id granted by the measurement subscription.
func (c *Controller) MeasurementID() uint8 { return uint8(c.measID.Load()) }

// ReportUeMeas queues the measurement report of a user.
func (c *Controller) ReportUeMeas(rnti model.RNTI, rep model.MeasurementReport) {
	c.enqueue(inbound{rnti: rnti, meas: &rep})
}

// ReportQuality queues the channel quality report of a small cell.
func (c *Controller) ReportQuality(cell model.CellID, rep model.QualityReport) {
	c.enqueue(inbound{cell: cell, quality: &rep})
}

func (c *Controller) enqueue(in inbound) {
	select {
	case c.inbox <- in:
	default:
		c.log.Warnf("macro %d: report inbox full, dropping report", c.cfg.Macro)
	}
}

// Start registers the measurement subscription with the network.
func (c *Controller) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout())
	defer cancel()
	id, err := c.net.RegisterMeasurementSubscription(ctx, model.NewA4TriggerConfig(c.cfg.TriggerThreshold))
	if err != nil {
		return fmt.Errorf("register measurement subscription: %w", err)
	}
	c.measID.Store(uint32(id))
	c.log.Infof("macro %d: measurement subscription registered with id %d", c.cfg.Macro, id)
	return nil
}

// Run registers the subscription and executes a pass after the start delay
// and then every run period until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		c.log.Errorf("macro %d: %v", c.cfg.Macro, err)
		c.capture(err)
	}
	next := c.clock.After(c.cfg.StartDelay())
	for {
		select {
		case <-ctx.Done():
			return nil
		case in := <-c.inbox:
			c.apply(in)
		case <-next:
			_, _ = c.pass(ctx)
			next = c.clock.After(c.cfg.RunPeriod())
		}
	}
}

// RunOnce applies every queued report and runs a single pass. It must not be
// called while Run is active.
func (c *Controller) RunOnce(ctx context.Context) (Cycle, error) {
	c.drain()
	return c.pass(ctx)
}

func (c *Controller) drain() {
	for {
		select {
		case in := <-c.inbox:
			c.apply(in)
		default:
			return
		}
	}
}

func (c *Controller) apply(in inbound) {
	switch {
	case in.meas != nil:
		c.store.PutMeasurement(in.rnti, *in.meas)
		c.emit(events.ReportEvent{Macro: c.cfg.Macro, Kind: events.KindMeasurement})
	case in.quality != nil:
		c.store.PutQuality(in.cell, *in.quality)
		rejected := 0
		for _, e := range in.quality.Entries {
			if e.CQI > model.MaxCQI {
				rejected++
			}
		}
		c.emit(events.ReportEvent{Macro: c.cfg.Macro, Kind: events.KindQuality, Rejected: rejected})
	}
}

func (c *Controller) pass(ctx context.Context) (cyc Cycle, err error) {
	cyc.ID = uuid.NewString()
	cyc.Start = c.clock.Now()
	ctx = WithCycleID(ctx, cyc.ID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sleep cycle %s panic: %v", cyc.ID, r)
			c.log.Errorf("macro %d: %v", c.cfg.Macro, err)
			c.capture(err)
		}
		c.setPhase(PhaseReset)
		c.setPhase(PhaseCollecting)
		c.emitCycle(cyc, err)
	}()

	nmeas, nquality := c.store.Len()
	reports := c.store.Take()
	c.setPhase(PhaseScheduling)
	c.log.Debugf("macro %d: cycle %s uses %d measurement and %d quality reports", c.cfg.Macro, cyc.ID, nmeas, nquality)

	cyc.Managed, cyc.Conn, err = c.query(ctx)
	if err != nil {
		c.log.Errorf("macro %d: skipping cycle %s: %v", c.cfg.Macro, cyc.ID, err)
		c.capture(err)
		return cyc, err
	}
	cyc.Evaluation = c.engine.Evaluate(ctx, reports, cyc.Managed, cyc.Conn)
	c.log.Infof("macro %d: sleep policy sleep=%v reassignment=%v unserved=%v",
		c.cfg.Macro, cyc.Policy.SleepCells, cyc.Policy.Reassignment, cyc.Unserved)

	c.setPhase(PhasePublishing)
	if err = c.publish(ctx, cyc.Policy); err != nil {
		c.log.Errorf("macro %d: publish sleep policy: %v", c.cfg.Macro, err)
		c.capture(err)
	}
	c.writeSnapshot(ctx, cyc)
	return cyc, err
}

func (c *Controller) query(ctx context.Context) ([]model.CellID, model.ConnectionState, error) {
	qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout())
	defer cancel()
	managed, err := c.net.ManagedSmallCells(qctx)
	if err != nil {
		return nil, model.ConnectionState{}, fmt.Errorf("managed small cells: %w", err)
	}
	conn, err := c.net.ConnectionState(qctx)
	if err != nil {
		return managed, model.ConnectionState{}, fmt.Errorf("connection state: %w", err)
	}
	return managed, conn, nil
}

func (c *Controller) publish(ctx context.Context, p model.SleepPolicy) error {
	pctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout())
	defer cancel()
	return c.net.PublishSleepPolicy(pctx, p)
}

func (c *Controller) writeSnapshot(ctx context.Context, cyc Cycle) {
	if c.snaps == nil {
		return
	}
	rec := snapshot.NewRecord(c.cfg.Macro, cyc.Managed, cyc.Conn, cyc.Policy)
	rec.CycleID = cyc.ID
	rec.Timestamp = cyc.Start
	if err := c.snaps.Write(ctx, rec); err != nil {
		c.log.Warnf("macro %d: write snapshot: %v", c.cfg.Macro, err)
	}
}

func (c *Controller) setPhase(to Phase) {
	from := c.Phase()
	if from == to {
		return
	}
	if !from.canTransition(to) {
		c.log.Warnf("macro %d: ignoring phase change %s -> %s", c.cfg.Macro, from, to)
		return
	}
	c.phase.Store(int32(to))
	c.log.Debugf("macro %d: phase %s -> %s", c.cfg.Macro, from, to)
	c.emit(events.PhaseEvent{Macro: c.cfg.Macro, Phase: to.String(), Time: c.clock.Now()})
}

func (c *Controller) emitCycle(cyc Cycle, err error) {
	ev := events.CycleEvent{
		CycleID:      cyc.ID,
		Macro:        c.cfg.Macro,
		Time:         cyc.Start,
		Duration:     c.clock.Now().Sub(cyc.Start),
		ManagedCells: len(cyc.Managed),
		SleepCells:   cyc.Policy.SleepCells,
		Users:        len(cyc.Conn.Serving),
		Reassigned:   len(cyc.Policy.Reassignment),
		Unserved:     len(cyc.Unserved),
		Err:          err,
	}
	for _, s := range cyc.Selections {
		ev.ActiveCells = append(ev.ActiveCells, s.Cell)
	}
	model.SortCells(ev.ActiveCells)
	if len(cyc.Efficiency) > 0 {
		vals := make([]float64, 0, len(cyc.Efficiency))
		for _, v := range cyc.Efficiency {
			vals = append(vals, v)
		}
		ev.MeanEfficiency = stat.Mean(vals, nil)
	}
	c.emit(ev)
}

func (c *Controller) emit(ev eventbus.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

func (c *Controller) capture(err error) {
	monitoring.CaptureException(err, map[string]string{
		"module": "sleep",
		"macro":  c.cfg.Macro.String(),
	})
}
