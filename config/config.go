// Package config loads the service configuration from a yaml or json file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/cellsleep/core/factory"
	"github.com/kilianp07/cellsleep/core/metrics"
	"github.com/kilianp07/cellsleep/core/sleep"
	"github.com/kilianp07/cellsleep/core/snapshot"
	"github.com/kilianp07/cellsleep/infra/mqtt"
	"github.com/kilianp07/cellsleep/infra/rest"
)

type Config struct {
	Sleep    sleep.Config         `json:"sleep"`
	Network  NetworkConfig        `json:"network"`
	MQTT     mqtt.Config          `json:"mqtt"`
	REST     rest.Config          `json:"rest"`
	Metrics  metrics.Config       `json:"metrics"`
	Snapshot factory.ModuleConfig `json:"snapshot"`
	HTTP     HTTPConfig           `json:"http"`
	Sentry   SentryConfig         `json:"sentry"`
}

// Load reads path and applies K_ prefixed environment overrides, where a
// double underscore separates nested keys (K_SLEEP__MACRO=64).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Config{Sleep: sleep.DefaultConfig()}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Sleep.SetDefaults()
	c.Network.SetDefaults()
	c.HTTP.SetDefaults()
	if c.Snapshot.Type == "" {
		c.Snapshot.Type = "dat"
	}
	switch c.Network.Backend {
	case BackendMQTT:
		c.MQTT.SetDefaults()
	case BackendREST:
		c.MQTT.SetDefaults()
		c.REST.SetDefaults()
	}
}

// Validate checks every section and reports all failures at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Sleep.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sleep: %w", err))
	}
	if err := c.Network.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Network.Backend {
	case BackendMQTT:
		if err := c.MQTT.Validate(); err != nil {
			errs = append(errs, err)
		}
	case BackendREST:
		if err := c.MQTT.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rest backend receives reports over mqtt: %w", err))
		}
		if err := c.REST.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if !snapshot.HasStore(c.Snapshot.Type) {
		errs = append(errs, fmt.Errorf("snapshot: unknown store %q", c.Snapshot.Type))
	}
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
