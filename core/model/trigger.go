package model

import "time"

// TriggerEvent is the measurement report triggering event.
type TriggerEvent string

// TriggerQuantity is the measured quantity compared with the threshold.
type TriggerQuantity string

const (
	// EventA4 fires when a neighbour becomes better than the threshold.
	EventA4 TriggerEvent = "A4"
	// QuantityRSRP triggers on reference signal received power.
	QuantityRSRP TriggerQuantity = "RSRP"
)

// DefaultReportInterval is the periodic reporting interval requested from users.
const DefaultReportInterval = 480 * time.Millisecond

// TriggerConfig asks the network to report neighbour signal levels.
type TriggerConfig struct {
	Event          TriggerEvent    `json:"event"`
	Quantity       TriggerQuantity `json:"quantity"`
	ThresholdRange RSRPRange       `json:"threshold_range"`
	ReportInterval time.Duration   `json:"report_interval"`
}

// NewA4TriggerConfig returns an A4 RSRP trigger with the given threshold.
func NewA4TriggerConfig(threshold RSRPRange) TriggerConfig {
	return TriggerConfig{
		Event:          EventA4,
		Quantity:       QuantityRSRP,
		ThresholdRange: threshold,
		ReportInterval: DefaultReportInterval,
	}
}
