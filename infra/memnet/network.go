// Package memnet provides an in-memory network collaborator. It backs the
// scenario runner, dry runs and tests.
package memnet

import (
	"context"
	"sync"

	"github.com/kilianp07/cellsleep/core/model"
)

// Network keeps the cells and connections of a macro in memory and records
// every policy it receives. Published reassignments are applied to the
// connection table so that successive cycles see their effect.
type Network struct {
	mu        sync.Mutex
	cells     []model.CellID
	conn      model.ConnectionState
	policies  []model.SleepPolicy
	triggers  []model.TriggerConfig
	nextMeas  uint8
	err       error
	applyMove bool
}

// New returns a Network managing cells with the given connection table.
func New(cells []model.CellID, conn model.ConnectionState) *Network {
	n := &Network{nextMeas: 1, applyMove: true}
	n.SetCells(cells)
	n.SetConnections(conn)
	return n
}

// SetCells replaces the managed small cells.
func (n *Network) SetCells(cells []model.CellID) {
	n.mu.Lock()
	n.cells = append([]model.CellID(nil), cells...)
	n.mu.Unlock()
}

// SetConnections replaces the connection table.
func (n *Network) SetConnections(conn model.ConnectionState) {
	n.mu.Lock()
	n.conn = cloneConn(conn)
	n.mu.Unlock()
}

// SetError makes every call fail with err until it is cleared with nil.
func (n *Network) SetError(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

// KeepConnections disables applying reassignments on publish.
func (n *Network) KeepConnections() {
	n.mu.Lock()
	n.applyMove = false
	n.mu.Unlock()
}

func (n *Network) RegisterMeasurementSubscription(ctx context.Context, trigger model.TriggerConfig) (uint8, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return 0, n.err
	}
	n.triggers = append(n.triggers, trigger)
	id := n.nextMeas
	n.nextMeas++
	return id, nil
}

func (n *Network) ManagedSmallCells(ctx context.Context) ([]model.CellID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	return append([]model.CellID(nil), n.cells...), nil
}

func (n *Network) ConnectionState(ctx context.Context) (model.ConnectionState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return model.ConnectionState{}, n.err
	}
	return cloneConn(n.conn), nil
}

func (n *Network) PublishSleepPolicy(ctx context.Context, p model.SleepPolicy) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.policies = append(n.policies, p)
	if n.applyMove {
		for rnti, cell := range p.Reassignment {
			if _, ok := n.conn.Serving[rnti]; ok {
				n.conn.Serving[rnti] = cell
			}
		}
	}
	return nil
}

// Policies returns the published policies in order.
func (n *Network) Policies() []model.SleepPolicy {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.SleepPolicy(nil), n.policies...)
}

// Triggers returns the registered measurement subscriptions.
func (n *Network) Triggers() []model.TriggerConfig {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.TriggerConfig(nil), n.triggers...)
}

func cloneConn(c model.ConnectionState) model.ConnectionState {
	out := model.ConnectionState{
		Serving:  make(map[model.RNTI]model.CellID, len(c.Serving)),
		Identity: make(map[model.RNTI]model.IMSI, len(c.Identity)),
	}
	for k, v := range c.Serving {
		out.Serving[k] = v
	}
	for k, v := range c.Identity {
		out.Identity[k] = v
	}
	return out
}
