// Package main provides the entry point for M2Sim, a cycle-accurate
// out-of-order RV32I simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/m2sim/emu"
	"github.com/sarchlab/m2sim/loader"
	"github.com/sarchlab/m2sim/simerr"
	"github.com/sarchlab/m2sim/timing/core"
	"github.com/sarchlab/m2sim/timing/latency"
)

var (
	configPath = flag.String("config", "", "Path to timing configuration JSON file")
	verbose    = flag.Bool("v", false, "Print a progress heartbeat every heartbeatCycles cycles")
)

// heartbeatCycles is how often -v reports progress.
const heartbeatCycles = 100_000

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "m2sim: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if u, ok := rec.(simerr.Unreachable); ok {
				err = u
				return
			}
			panic(rec)
		}
	}()

	cfg := latency.DefaultTimingConfig()
	if *configPath != "" {
		cfg, err = latency.LoadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("loading timing config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid timing config: %w", err)
	}

	memory := emu.NewMemory()
	if err := loader.Load(os.Stdin, memory); err != nil {
		return fmt.Errorf("loading memory image: %w", err)
	}

	c := core.NewCore(memory, cfg)
	exitByte, err := runToHalt(c, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%d\n", exitByte)
	printStats(c)

	return nil
}

// runToHalt drives c one cycle at a time (rather than c.Run) so -v can print
// a heartbeat between ticks.
func runToHalt(c *core.Core, cfg *latency.TimingConfig) (byte, error) {
	ctx := context.Background()

	for {
		if c.Halted() {
			return c.ExitByte(), nil
		}
		if c.Cycle() >= cfg.CycleBudget {
			return 0, simerr.CycleBudgetExceeded{Budget: cfg.CycleBudget}
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if err := c.Tick(); err != nil {
			return 0, fmt.Errorf("cycle %d: %w", c.Cycle(), err)
		}

		if *verbose && c.Cycle()%heartbeatCycles == 0 {
			fmt.Fprintf(os.Stderr, "cycle=%d rob_occupancy=%d committed=%d\n",
				c.Cycle(), c.ROBOccupancy(), c.CommittedCount())
		}
	}
}

func printStats(c *core.Core) {
	stats := c.Stats()

	accuracy := float64(0)
	if stats.BranchCommitted > 0 {
		accuracy = float64(stats.BranchCorrect) / float64(stats.BranchCommitted)
	}

	cyclesPerBranch := float64(0)
	if stats.BranchCommitted > 0 {
		cyclesPerBranch = float64(stats.Cycles) / float64(stats.BranchCommitted)
	}

	fmt.Fprintf(os.Stderr, "branches: %d\n", stats.BranchCommitted)
	fmt.Fprintf(os.Stderr, "correct predictions: %d\n", stats.BranchCorrect)
	fmt.Fprintf(os.Stderr, "accuracy: %v\n", accuracy)
	fmt.Fprintf(os.Stderr, "cycles: %d\n", stats.Cycles)
	fmt.Fprintf(os.Stderr, "cycles per branch: %v\n", cyclesPerBranch)
}
