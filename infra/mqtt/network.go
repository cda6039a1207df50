package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/sleep"
	"github.com/kilianp07/cellsleep/infra/logger"
)

// Network implements sleep.Network with request/response exchanges on the
// broker. Responses are matched to requests by their request id.
type Network struct {
	client *PahoClient
	topics Topics
	macro  model.CellID
	log    logger.Logger

	mu      sync.Mutex
	pending map[string]chan []byte
}

var _ sleep.Network = (*Network)(nil)

// NewNetwork subscribes to the response topics of macro.
func NewNetwork(client *PahoClient, macro model.CellID) (*Network, error) {
	n := &Network{
		client:  client,
		topics:  NewTopics(client.cfg.TopicRoot, macro),
		macro:   macro,
		log:     logger.New("mqtt_network"),
		pending: make(map[string]chan []byte),
	}
	if err := client.Subscribe(n.topics.ResponseFilter(), client.cfg.qos("response"), n.onResponse); err != nil {
		return nil, fmt.Errorf("subscribe responses: %w", err)
	}
	return n, nil
}

func (n *Network) onResponse(_ paho.Client, msg paho.Message) {
	var r Response
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		n.log.Errorf("invalid response on %s: %v", msg.Topic(), err)
		return
	}
	id := r.RequestID
	if id == "" {
		id = msg.Topic()[strings.LastIndexByte(msg.Topic(), '/')+1:]
	}
	n.mu.Lock()
	ch, ok := n.pending[id]
	delete(n.pending, id)
	n.mu.Unlock()
	if !ok {
		n.log.Debugf("dropping response %s with no pending request", id)
		return
	}
	ch <- msg.Payload()
}

func (n *Network) request(ctx context.Context, kind string, req Request, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.client.cfg.requestTimeout())
		defer cancel()
	}
	req.RequestID = uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	ch := make(chan []byte, 1)
	n.mu.Lock()
	n.pending[req.RequestID] = ch
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		delete(n.pending, req.RequestID)
		n.mu.Unlock()
	}()

	if err := n.client.Publish(ctx, n.topics.Request(kind), n.client.cfg.qos("request"), payload); err != nil {
		return fmt.Errorf("publish %s request: %w", kind, err)
	}
	select {
	case data := <-ch:
		var env Response
		if err := json.Unmarshal(data, &env); err == nil && env.Error != "" {
			return fmt.Errorf("%w: %s: %s", ErrRemote, kind, env.Error)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", kind, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s request %s: %v", ErrRequestTimeout, kind, req.RequestID, ctx.Err())
	}
}

// RegisterMeasurementSubscription asks the network to configure the trigger
// on every user of the macro.
func (n *Network) RegisterMeasurementSubscription(ctx context.Context, trigger model.TriggerConfig) (uint8, error) {
	var resp SubscribeResponse
	if err := n.request(ctx, KindSubscribe, Request{Trigger: &trigger}, &resp); err != nil {
		return 0, err
	}
	return resp.MeasID, nil
}

// ManagedSmallCells returns the small cells of the macro.
func (n *Network) ManagedSmallCells(ctx context.Context) ([]model.CellID, error) {
	var resp CellsResponse
	if err := n.request(ctx, KindCells, Request{}, &resp); err != nil {
		return nil, err
	}
	return resp.Cells, nil
}

// ConnectionState returns the connection table of the macro.
func (n *Network) ConnectionState(ctx context.Context) (model.ConnectionState, error) {
	var resp ConnectionsResponse
	if err := n.request(ctx, KindConnections, Request{}, &resp); err != nil {
		return model.ConnectionState{}, err
	}
	return resp.ConnectionState(), nil
}

// PublishSleepPolicy publishes the policy with the cycle id found in ctx.
func (n *Network) PublishSleepPolicy(ctx context.Context, p model.SleepPolicy) error {
	msg := PolicyMessage{
		CycleID:      sleep.CycleID(ctx),
		Macro:        n.macro,
		SleepCells:   p.SleepCells,
		Reassignment: p.Reassignment,
	}
	if msg.SleepCells == nil {
		msg.SleepCells = []model.CellID{}
	}
	if msg.Reassignment == nil {
		msg.Reassignment = map[model.RNTI]model.CellID{}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.topics.Policy(), n.client.cfg.qos("policy"), payload)
}
