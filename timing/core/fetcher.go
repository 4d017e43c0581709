package core

import (
	"fmt"

	"github.com/sarchlab/m2sim/emu"
)

// predictorSize is the bimodal branch predictor's table size: PREDICTOR_SIZE
// in the reference model.
const predictorSize = 1024

// branchPredictor is a 1024-entry table of 2-bit saturating counters keyed
// by (pc>>2) mod predictorSize. It survives flushes: only in-flight
// speculative state is cancelled on a misprediction, never the learned
// history.
type branchPredictor struct {
	counters [predictorSize]uint8
}

func newBranchPredictor() *branchPredictor {
	bp := &branchPredictor{}
	for i := range bp.counters {
		bp.counters[i] = 1 // weakly not-taken
	}
	return bp
}

func (bp *branchPredictor) index(pc uint32) uint32 {
	return (pc >> 2) % predictorSize
}

func (bp *branchPredictor) predict(pc uint32) bool {
	return bp.counters[bp.index(pc)] >= 2
}

func (bp *branchPredictor) update(pc uint32, taken bool) {
	i := bp.index(pc)
	switch {
	case taken && bp.counters[i] < 3:
		bp.counters[i]++
	case !taken && bp.counters[i] > 0:
		bp.counters[i]--
	}
}

// FetcherInputs is the Fetcher's per-cycle input snapshot.
type FetcherInputs struct {
	PCFromDecoder FetcherRedirect
	PCFromROB     FetcherRedirect
	BranchRecord  BranchRecord
}

// Fetcher supplies the next instruction word, its PC, and a branch
// prediction every cycle, choosing the next PC with priority
// ROB redirect > Decoder redirect > PC+4.
type Fetcher struct {
	memory      *emu.Memory
	predictor   *branchPredictor
	pc          uint32
	initialized bool

	output FetchOutput
}

// NewFetcher creates a Fetcher reading instructions from memory.
func NewFetcher(memory *emu.Memory) *Fetcher {
	return &Fetcher{
		memory:    memory,
		predictor: newBranchPredictor(),
	}
}

// Output returns this cycle's registered fetch output.
func (f *Fetcher) Output() FetchOutput {
	return f.output
}

func (f *Fetcher) work(in FetcherInputs) error {
	var pc uint32
	switch {
	case !f.initialized:
		pc = 0
		f.initialized = true
	case in.PCFromROB.Enabled:
		pc = in.PCFromROB.PC
	case in.PCFromDecoder.Enabled:
		pc = in.PCFromDecoder.PC
	default:
		pc = f.pc + 4
	}

	if in.BranchRecord.Enabled {
		f.predictor.update(in.BranchRecord.PC, in.BranchRecord.Taken)
	}

	word, err := f.memory.ReadWord(pc)
	if err != nil {
		return fmt.Errorf("fetcher: fetch at pc=0x%x: %w", pc, err)
	}

	f.pc = pc
	f.output = FetchOutput{
		Valid:                true,
		PC:                   pc,
		Instruction:          word,
		PredictedBranchTaken: f.predictor.predict(pc),
	}
	return nil
}
