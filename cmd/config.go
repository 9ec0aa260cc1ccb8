package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/amr-sim/amr-sim/amr"
	"github.com/amr-sim/amr-sim/amr/lineout"
)

// FileConfig is the full YAML configuration file structure: the simulation
// parameters plus the lineouts written at every checkpoint.
type FileConfig struct {
	Simulation amr.SimulationConfig `yaml:"simulation"`
	Lineouts   []lineout.Spec       `yaml:"lineouts,omitempty"`
}

// LoadConfig reads and strictly parses a YAML config file; unknown fields
// are errors so typos fail fast instead of silently falling back to
// defaults. Fields left out of the file keep their DefaultConfig values.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &FileConfig{Simulation: amr.DefaultConfig()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
