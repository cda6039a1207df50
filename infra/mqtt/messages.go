package mqtt

import "github.com/kilianp07/cellsleep/core/model"

// MeasurementMessage is published by the network for each user report.
type MeasurementMessage struct {
	RNTI      model.RNTI                  `json:"rnti"`
	MeasID    uint8                       `json:"meas_id"`
	Neighbors []model.NeighborMeasurement `json:"neighbors"`
}

// QualityMessage carries the channel quality feedback of a small cell.
type QualityMessage struct {
	Cell    model.CellID         `json:"cell"`
	Entries []model.QualityEntry `json:"entries"`
}

// Request is sent on a request topic.
type Request struct {
	RequestID string               `json:"request_id"`
	Trigger   *model.TriggerConfig `json:"trigger,omitempty"`
}

// Response is the common envelope of every answer. Error is set when the
// network could not serve the request.
type Response struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error,omitempty"`
}

// CellsResponse lists the small cells of the macro.
type CellsResponse struct {
	Response
	Cells []model.CellID `json:"cells"`
}

// UserEntry is one row of the connection table.
type UserEntry struct {
	RNTI model.RNTI   `json:"rnti"`
	IMSI model.IMSI   `json:"imsi"`
	Cell model.CellID `json:"cell"`
}

// ConnectionsResponse carries the connection table.
type ConnectionsResponse struct {
	Response
	Users []UserEntry `json:"users"`
}

// SubscribeResponse returns the measurement id granted to the subscription.
type SubscribeResponse struct {
	Response
	MeasID uint8 `json:"meas_id"`
}

// PolicyMessage is the sleep policy published after each cycle.
type PolicyMessage struct {
	CycleID      string                      `json:"cycle_id"`
	Macro        model.CellID                `json:"macro"`
	SleepCells   []model.CellID              `json:"sleep_cells"`
	Reassignment map[model.RNTI]model.CellID `json:"reassignment"`
}

// ConnectionState converts the response into the model table.
func (r ConnectionsResponse) ConnectionState() model.ConnectionState {
	st := model.ConnectionState{
		Serving:  make(map[model.RNTI]model.CellID, len(r.Users)),
		Identity: make(map[model.RNTI]model.IMSI, len(r.Users)),
	}
	for _, u := range r.Users {
		st.Serving[u.RNTI] = u.Cell
		st.Identity[u.RNTI] = u.IMSI
	}
	return st
}
