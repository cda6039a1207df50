// Package scenarios loads yaml descriptions of a macro cell and runs one
// sleep cycle over them on the in-memory network.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cellsleep/core/factory"
	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/sleep"
)

type UserDef struct {
	RNTI    model.RNTI   `yaml:"rnti"`
	IMSI    model.IMSI   `yaml:"imsi"`
	Serving model.CellID `yaml:"serving"`
}

type MeasurementDef struct {
	RNTI      model.RNTI                  `yaml:"rnti"`
	Neighbors []model.NeighborMeasurement `yaml:"neighbors"`
}

type QualityDef struct {
	Cell    model.CellID         `yaml:"cell"`
	Entries []model.QualityEntry `yaml:"entries"`
}

type Expected struct {
	SleepCells   []model.CellID              `yaml:"sleep_cells"`
	Reassignment map[model.RNTI]model.CellID `yaml:"reassignment"`
	Unserved     []model.RNTI                `yaml:"unserved"`
	Rejected     int                         `yaml:"rejected"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Macro       model.CellID `yaml:"macro"`
	// Sleep overrides engine parameters by their json name.
	Sleep        map[string]any   `yaml:"sleep,omitempty"`
	Cells        []model.CellID   `yaml:"cells"`
	Users        []UserDef        `yaml:"users"`
	Measurements []MeasurementDef `yaml:"measurements"`
	Quality      []QualityDef     `yaml:"quality"`
	Expected     Expected         `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	return &sc, nil
}

// Config returns the engine configuration of the scenario.
func (sc *Scenario) Config() (sleep.Config, error) {
	cfg := sleep.DefaultConfig()
	if len(sc.Sleep) > 0 {
		if err := factory.Decode(sc.Sleep, &cfg); err != nil {
			return cfg, fmt.Errorf("sleep overrides: %w", err)
		}
	}
	cfg.Macro = sc.Macro
	return cfg, nil
}

// Connections returns the connection table of the scenario.
func (sc *Scenario) Connections() model.ConnectionState {
	st := model.ConnectionState{
		Serving:  make(map[model.RNTI]model.CellID, len(sc.Users)),
		Identity: make(map[model.RNTI]model.IMSI, len(sc.Users)),
	}
	for _, u := range sc.Users {
		st.Serving[u.RNTI] = u.Serving
		st.Identity[u.RNTI] = u.IMSI
	}
	return st
}
