package sleep

import (
	"fmt"
	"time"

	"github.com/kilianp07/cellsleep/core/model"
)

// Config holds the static parameters of the sleep engine.
type Config struct {
	// Macro is the id of the macro cell running this instance.
	Macro model.CellID `json:"macro"`
	// StartDelaySeconds delays the first scheduling pass.
	StartDelaySeconds float64 `json:"start_delay_seconds"`
	// RunPeriodSeconds separates two scheduling passes.
	RunPeriodSeconds float64 `json:"run_period_seconds"`
	// NoisePowerW is added to the interference of the SINR estimate.
	NoisePowerW float64 `json:"noise_power_w"`
	// RateRequirementBps is the rate every user must receive.
	RateRequirementBps float64 `json:"rate_requirement_bps"`
	// ProtectionMargin is the share of bandwidth kept as headroom.
	ProtectionMargin float64 `json:"protection_margin"`
	// MaxBandwidth is the bandwidth of a small cell.
	MaxBandwidth float64 `json:"max_bandwidth"`
	// MaxSpectralEfficiency caps every spectral efficiency in bits/s/Hz.
	MaxSpectralEfficiency float64 `json:"max_spectral_efficiency"`
	// RSRPThresholdDbm is the minimum signal for a small cell to cover a user.
	RSRPThresholdDbm float64 `json:"rsrp_threshold_dbm"`
	// TriggerThreshold is the RSRP range sent with the measurement subscription.
	TriggerThreshold model.RSRPRange `json:"trigger_threshold"`
	// QueryTimeoutSeconds bounds each call to the network collaborator.
	QueryTimeoutSeconds float64 `json:"query_timeout_seconds"`
	// InboxSize is the number of reports buffered between two passes.
	InboxSize int `json:"inbox_size"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		StartDelaySeconds:     1,
		RunPeriodSeconds:      1800,
		NoisePowerW:           0,
		RateRequirementBps:    100000,
		ProtectionMargin:      0.1,
		MaxBandwidth:          20000000,
		MaxSpectralEfficiency: 5.55,
		RSRPThresholdDbm:      -120,
		TriggerThreshold:      0,
		QueryTimeoutSeconds:   5,
		InboxSize:             1024,
	}
}

// SetDefaults fills the fields whose zero value is never meaningful. A zero
// RSRP threshold lies above the highest reportable level and is treated as
// unset. ProtectionMargin keeps its value since zero is a valid margin;
// callers wanting the default margin start from DefaultConfig.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.RSRPThresholdDbm == 0 {
		c.RSRPThresholdDbm = d.RSRPThresholdDbm
	}
	if c.StartDelaySeconds <= 0 {
		c.StartDelaySeconds = d.StartDelaySeconds
	}
	if c.RunPeriodSeconds <= 0 {
		c.RunPeriodSeconds = d.RunPeriodSeconds
	}
	if c.RateRequirementBps == 0 {
		c.RateRequirementBps = d.RateRequirementBps
	}
	if c.MaxBandwidth == 0 {
		c.MaxBandwidth = d.MaxBandwidth
	}
	if c.MaxSpectralEfficiency == 0 {
		c.MaxSpectralEfficiency = d.MaxSpectralEfficiency
	}
	if c.QueryTimeoutSeconds <= 0 {
		c.QueryTimeoutSeconds = d.QueryTimeoutSeconds
	}
	if c.InboxSize <= 0 {
		c.InboxSize = d.InboxSize
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Macro.IsSmall() {
		return fmt.Errorf("%w: macro %d carries a small cell index", ErrInvalidConfig, c.Macro)
	}
	if c.RateRequirementBps <= 0 {
		return fmt.Errorf("%w: rate_requirement_bps must be positive", ErrInvalidConfig)
	}
	if c.ProtectionMargin < 0 || c.ProtectionMargin >= 1 {
		return fmt.Errorf("%w: protection_margin must be in [0,1)", ErrInvalidConfig)
	}
	if c.MaxBandwidth <= 0 {
		return fmt.Errorf("%w: max_bandwidth must be positive", ErrInvalidConfig)
	}
	if c.MaxSpectralEfficiency <= 0 {
		return fmt.Errorf("%w: max_spectral_efficiency must be positive", ErrInvalidConfig)
	}
	if c.NoisePowerW < 0 {
		return fmt.Errorf("%w: noise_power_w must not be negative", ErrInvalidConfig)
	}
	if c.TriggerThreshold > model.MaxRSRPRange {
		return fmt.Errorf("%w: trigger_threshold above %d", ErrInvalidConfig, model.MaxRSRPRange)
	}
	return nil
}

// StartDelay returns the delay before the first pass.
func (c Config) StartDelay() time.Duration { return seconds(c.StartDelaySeconds) }

// RunPeriod returns the time between two passes.
func (c Config) RunPeriod() time.Duration { return seconds(c.RunPeriodSeconds) }

// QueryTimeout returns the deadline applied to collaborator calls.
func (c Config) QueryTimeout() time.Duration { return seconds(c.QueryTimeoutSeconds) }

// Budget returns the protected bandwidth available to one selected cell.
func (c Config) Budget() float64 { return (1 - c.ProtectionMargin) * c.MaxBandwidth }

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
