// Package rest implements the outbound network contract over HTTP.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/sleep"
	"github.com/kilianp07/cellsleep/infra/logger"
)

// Network implements sleep.Network against the operator REST API.
type Network struct {
	base  string
	macro model.CellID
	http  *http.Client
	log   logger.Logger
}

var _ sleep.Network = (*Network)(nil)

// StatusError is returned for non 2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// NewNetwork returns a Network for macro.
func NewNetwork(cfg Config, macro model.CellID) (*Network, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Network{
		base:  strings.TrimSuffix(cfg.BaseURL, "/"),
		macro: macro,
		http:  cfg.httpClient(context.Background()),
		log:   logger.New("rest_network"),
	}, nil
}

type subscriptionRequest struct {
	Macro   model.CellID        `json:"macro"`
	Trigger model.TriggerConfig `json:"trigger"`
}

type subscriptionResponse struct {
	MeasID uint8 `json:"meas_id"`
}

type cellsResponse struct {
	Cells []model.CellID `json:"cells"`
}

type connectionsResponse struct {
	Users []struct {
		RNTI model.RNTI   `json:"rnti"`
		IMSI model.IMSI   `json:"imsi"`
		Cell model.CellID `json:"cell"`
	} `json:"users"`
}

type policyRequest struct {
	CycleID      string                      `json:"cycle_id"`
	SleepCells   []model.CellID              `json:"sleep_cells"`
	Reassignment map[model.RNTI]model.CellID `json:"reassignment"`
}

func (n *Network) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, n.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := sleep.CycleID(ctx); id != "" {
		req.Header.Set("X-Cycle-ID", id)
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (n *Network) macroPath(suffix string) string {
	return fmt.Sprintf("/macros/%d/%s", n.macro, suffix)
}

// RegisterMeasurementSubscription creates the measurement subscription.
func (n *Network) RegisterMeasurementSubscription(ctx context.Context, trigger model.TriggerConfig) (uint8, error) {
	var out subscriptionResponse
	if err := n.do(ctx, http.MethodPost, "/subscriptions", subscriptionRequest{Macro: n.macro, Trigger: trigger}, &out); err != nil {
		return 0, err
	}
	return out.MeasID, nil
}

// ManagedSmallCells lists the small cells of the macro.
func (n *Network) ManagedSmallCells(ctx context.Context) ([]model.CellID, error) {
	var out cellsResponse
	if err := n.do(ctx, http.MethodGet, n.macroPath("small-cells"), nil, &out); err != nil {
		return nil, err
	}
	return out.Cells, nil
}

// ConnectionState returns the connection table of the macro.
func (n *Network) ConnectionState(ctx context.Context) (model.ConnectionState, error) {
	var out connectionsResponse
	if err := n.do(ctx, http.MethodGet, n.macroPath("connections"), nil, &out); err != nil {
		return model.ConnectionState{}, err
	}
	st := model.ConnectionState{
		Serving:  make(map[model.RNTI]model.CellID, len(out.Users)),
		Identity: make(map[model.RNTI]model.IMSI, len(out.Users)),
	}
	for _, u := range out.Users {
		st.Serving[u.RNTI] = u.Cell
		st.Identity[u.RNTI] = u.IMSI
	}
	return st, nil
}

// PublishSleepPolicy posts the decision of a cycle.
func (n *Network) PublishSleepPolicy(ctx context.Context, p model.SleepPolicy) error {
	req := policyRequest{CycleID: sleep.CycleID(ctx), SleepCells: p.SleepCells, Reassignment: p.Reassignment}
	if req.SleepCells == nil {
		req.SleepCells = []model.CellID{}
	}
	if req.Reassignment == nil {
		req.Reassignment = map[model.RNTI]model.CellID{}
	}
	if err := n.do(ctx, http.MethodPost, n.macroPath("sleep-policy"), req, nil); err != nil {
		return err
	}
	n.log.Debugf("sleep policy posted for macro %d", n.macro)
	return nil
}
