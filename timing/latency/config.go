// Package latency holds the Simulator's configurable timing parameters.
package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the knobs that shape the out-of-order engine's timing.
// Most of the machine's structure (two-operand reservation stations, a
// single-issue Decoder, a 1024-entry bimodal predictor) is fixed by the
// architecture being modeled, but these four are exposed so tests can, for
// instance, shrink the ROB to exercise fullness/replay paths deliberately.
type TimingConfig struct {
	// MemoryLatency is the MemoryUnit's fixed cycle count from issue to
	// CDB broadcast. Default: 4.
	MemoryLatency uint64 `json:"memory_latency"`

	// CycleBudget bounds a Run call; exceeding it is reported as an error
	// rather than looping forever on a program that never executes HALT.
	// Default: 1e9.
	CycleBudget uint64 `json:"cycle_budget"`

	// ROBSize is the reorder buffer's entry count, including the reserved
	// slot-0 sentinel. Default: 32.
	ROBSize uint64 `json:"rob_size"`

	// RSSize is the entry count of each reservation station (RS-ALU,
	// RS-BCU, and each of RS-Mem's load and store queues). Default: 16.
	RSSize uint64 `json:"rs_size"`
}

// DefaultTimingConfig returns the architecture's reference timing.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		MemoryLatency: 4,
		CycleBudget:   1_000_000_000,
		ROBSize:       32,
		RSSize:        16,
	}
}

// LoadConfig loads a TimingConfig from a JSON file, starting from the
// defaults so a partial file only overrides what it specifies.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every field holds a usable value.
func (c *TimingConfig) Validate() error {
	if c.MemoryLatency == 0 {
		return fmt.Errorf("memory_latency must be > 0")
	}
	if c.CycleBudget == 0 {
		return fmt.Errorf("cycle_budget must be > 0")
	}
	if c.ROBSize < 2 {
		return fmt.Errorf("rob_size must be >= 2 (slot 0 is reserved)")
	}
	if c.RSSize < 1 {
		return fmt.Errorf("rs_size must be >= 1")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
