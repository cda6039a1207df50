package snapshot

import (
	"fmt"

	"github.com/kilianp07/cellsleep/core/factory"
)

var storeRegistry = factory.NewRegistry[Store]()

func init() {
	_ = storeRegistry.Register("dat", func(conf map[string]any) (Store, error) {
		var c struct {
			Dir string `json:"dir"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Dir == "" {
			c.Dir = "data"
		}
		return NewDatStore(c.Dir)
	})
	_ = storeRegistry.Register("jsonl", func(conf map[string]any) (Store, error) {
		var c struct {
			Path       string `json:"path"`
			MaxSizeMB  int    `json:"max_size_mb"`
			MaxBackups int    `json:"max_backups"`
			MaxAgeDays int    `json:"max_age_days"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("jsonl snapshot store: path is required")
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = storeRegistry.Register("sqlite", func(conf map[string]any) (Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("sqlite snapshot store: path is required")
		}
		return NewSQLiteStore(c.Path)
	})
}

// HasStore reports whether a store backend is registered under name.
func HasStore(name string) bool { return storeRegistry.Has(name) }

// NewStore creates the store described by cfg.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	return storeRegistry.Create(cfg)
}
