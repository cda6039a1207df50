package config

import (
	"fmt"

	"github.com/kilianp07/cellsleep/core/model"
)

// Network backends.
const (
	BackendMQTT   = "mqtt"
	BackendREST   = "rest"
	BackendMemory = "memory"
)

// NetworkConfig selects how the controller reaches the radio network.
type NetworkConfig struct {
	Backend string       `json:"backend"`
	Memory  MemoryConfig `json:"memory"`
}

// MemoryConfig seeds the in-memory network used for dry runs.
type MemoryConfig struct {
	Cells []model.CellID `json:"cells"`
}

func (c *NetworkConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMQTT
	}
}

func (c NetworkConfig) Validate() error {
	switch c.Backend {
	case BackendMQTT, BackendREST, BackendMemory:
		return nil
	default:
		return fmt.Errorf("network: unknown backend %q", c.Backend)
	}
}

// HTTPConfig configures the diagnostic API server. An empty Addr disables it.
type HTTPConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
	// ShutdownSeconds bounds the graceful shutdown.
	ShutdownSeconds float64 `json:"shutdown_seconds"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.ShutdownSeconds <= 0 {
		c.ShutdownSeconds = 5
	}
}

func (c HTTPConfig) Validate() error {
	if c.ShutdownSeconds < 0 {
		return fmt.Errorf("http: shutdown_seconds must not be negative")
	}
	return nil
}
