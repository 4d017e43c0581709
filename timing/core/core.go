// Package core implements the out-of-order RV32I execution engine: Fetcher,
// Decoder, RegisterFile, the ALU/BCU/Mem reservation stations and their
// functional units, and the ROB, wired together into a cycle-driven
// Simulator, and Core, the facade cmd/m2sim drives.
package core

import (
	"context"
	"fmt"

	"github.com/sarchlab/m2sim/emu"
	"github.com/sarchlab/m2sim/timing/latency"
)

// Stats holds end-of-run performance counters. BranchCorrect counts
// committed branches whose outcome matched the predictor, not raw
// predictions made.
type Stats struct {
	Cycles          uint64
	BranchCorrect   uint64
	BranchCommitted uint64
}

// Core is the externally-facing wrapper around a Simulator: it owns the
// backing memory image and exposes the handful of operations cmd/m2sim
// needs (run to completion, single-step, read back results).
type Core struct {
	sim    *Simulator
	memory *emu.Memory
}

// NewCore creates a Core over memory, configured per cfg.
func NewCore(memory *emu.Memory, cfg *latency.TimingConfig) *Core {
	return &Core{
		sim:    NewSimulator(memory, cfg),
		memory: memory,
	}
}

// Tick executes one cycle.
func (c *Core) Tick() error {
	return c.sim.Tick()
}

// Halted reports whether a HALT instruction has committed.
func (c *Core) Halted() bool {
	return c.sim.Halted()
}

// ExitByte returns x10's low byte as published when HALT committed.
func (c *Core) ExitByte() byte {
	return c.sim.ExitByte()
}

// Cycle returns the number of cycles executed so far.
func (c *Core) Cycle() uint64 {
	return c.sim.Cycle()
}

// ROBOccupancy returns the number of in-flight ROB entries.
func (c *Core) ROBOccupancy() int {
	return c.sim.ROBOccupancy()
}

// CommittedCount returns the number of instructions committed so far.
func (c *Core) CommittedCount() uint64 {
	return c.sim.CommittedCount()
}

// Stats returns the run's performance counters.
func (c *Core) Stats() Stats {
	hit, total := c.sim.BranchStats()
	return Stats{
		Cycles:          c.sim.Cycle(),
		BranchCorrect:   hit,
		BranchCommitted: total,
	}
}

// Run ticks the Core until it halts, ctx is cancelled, or cycleBudget
// cycles elapse.
func (c *Core) Run(ctx context.Context, cycleBudget uint64) (byte, error) {
	exitByte, err := c.sim.Run(ctx, cycleBudget)
	if err != nil {
		return 0, fmt.Errorf("core: %w", err)
	}
	return exitByte, nil
}
