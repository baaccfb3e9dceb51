package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Scenario describes a stress workload. Flags override the file values.
type Scenario struct {
	Workload WorkloadConfig `toml:"workload"`
	Churn    ChurnConfig    `toml:"churn"`
}

type WorkloadConfig struct {
	Duration       time.Duration `toml:"duration"`
	Entities       int           `toml:"entities"`
	ComponentTypes int           `toml:"component_types"`
	Systems        int           `toml:"systems"`
	TypesPerEntity int           `toml:"types_per_entity"`
}

type ChurnConfig struct {
	// MutationsPerTick components are removed or re-added each tick,
	// exercising node reconciliation under mutation.
	MutationsPerTick int `toml:"mutations_per_tick"`
	// ActionsPerTick occurrences of a synthetic action are triggered each
	// tick and drained on the next.
	ActionsPerTick int `toml:"actions_per_tick"`
}

// DefaultScenario is used when no config file is given.
func DefaultScenario() Scenario {
	return Scenario{
		Workload: WorkloadConfig{
			Duration:       10 * time.Second,
			Entities:       10000,
			ComponentTypes: 32,
			Systems:        16,
			TypesPerEntity: 5,
		},
		Churn: ChurnConfig{
			MutationsPerTick: 100,
			ActionsPerTick:   10,
		},
	}
}

// LoadScenario reads a TOML scenario file over the defaults.
func LoadScenario(path string) (Scenario, error) {
	s := DefaultScenario()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read scenario: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse scenario: %w", err)
	}
	return s, nil
}
