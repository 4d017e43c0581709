package core

import (
	"context"
	"fmt"

	"github.com/sarchlab/m2sim/emu"
	"github.com/sarchlab/m2sim/simerr"
	"github.com/sarchlab/m2sim/timing/latency"
)

// Simulator wires the Fetcher, Decoder, RegisterFile, reservation stations,
// functional units, and ROB into one cycle-driven machine.
//
// Every module's work() reads the previous cycle's registered outputs,
// snapshotted at the top of Tick before anything this cycle is computed.
// Three signals are the declared exceptions, read combinationally
// (same-cycle) instead: the ROB's flush boolean, fanned out to every other
// module so speculative state is cancelled the instant a misprediction is
// detected; and the RS/ROB vacancy and next-tail projection, fed fresh to
// the Decoder's fullness check since computing them needs no information
// the Decoder itself produces this cycle. The ROB runs first each Tick so
// those three signals are ready before anything else does.
type Simulator struct {
	memory *emu.Memory

	fetcher *Fetcher
	decoder *Decoder
	regFile *RegisterFile
	rsAlu   *RSALU
	alu     *ALU
	rsBcu   *RSBCU
	bcu     *BCU
	rsMem   *RSMem
	memUnit *MemoryUnit
	rob     *ROB

	cycle uint64

	halted   bool
	exitByte byte
}

// NewSimulator creates a Simulator over memory, sized and timed by cfg.
func NewSimulator(memory *emu.Memory, cfg *latency.TimingConfig) *Simulator {
	s := &Simulator{
		memory:  memory,
		fetcher: NewFetcher(memory),
		decoder: NewDecoder(),
		regFile: NewRegisterFile(),
		rsAlu:   NewRSALU(int(cfg.RSSize)),
		alu:     NewALU(),
		rsBcu:   NewRSBCU(int(cfg.RSSize)),
		bcu:     NewBCU(),
		rsMem:   NewRSMem(int(cfg.RSSize)),
		memUnit: NewMemoryUnit(memory, int(cfg.MemoryLatency)),
		rob:     NewROB(int(cfg.ROBSize)),
	}
	s.rob.SetHaltCallback(func() {
		s.halted = true
	})
	return s
}

// Cycle returns the number of Tick calls executed so far.
func (s *Simulator) Cycle() uint64 { return s.cycle }

// Halted reports whether a HALT instruction has committed.
func (s *Simulator) Halted() bool { return s.halted }

// ExitByte returns x10's low byte as of the halt commit. Valid only once
// Halted returns true.
func (s *Simulator) ExitByte() byte { return s.exitByte }

// BranchStats returns (correctly-predicted, total) committed branches.
func (s *Simulator) BranchStats() (hit, total uint64) { return s.rob.BranchStats() }

// CommittedCount returns the number of instructions committed so far.
func (s *Simulator) CommittedCount() uint64 { return s.rob.CommittedCount() }

// ROBOccupancy returns the number of in-flight ROB entries.
func (s *Simulator) ROBOccupancy() int { return s.rob.Occupancy() }

// Tick advances every module by exactly one cycle.
func (s *Simulator) Tick() error {
	// Snapshot every module's previous-cycle registered output before this
	// cycle's work() calls run.
	fetchPrev := s.fetcher.Output()
	decAluPrev := s.decoder.ToALU()
	decBcuPrev := s.decoder.ToBCU()
	decMemLoadPrev := s.decoder.ToMemLoad()
	decMemStorePrev := s.decoder.ToMemStore()
	decRobPrev := s.decoder.ToROB()
	decRenamePrev := s.decoder.ToRegFile()
	decRedirectPrev := s.decoder.ToFetcher()
	regPrev := s.regFile.Output()
	robReadbackPrev := s.rob.Readback()
	robToRegFilePrev := s.rob.ToRegFile()
	robToFetcherPrev := s.rob.ToFetcher()
	robBranchRecordPrev := s.rob.BranchRecordOut()
	robCommitInfoPrev := s.rob.CommitInfoOut()
	cdbAluPrev := s.alu.CDBOutput()
	cdbMemPrev := s.memUnit.CDBOutput()
	bcuPrev := s.bcu.Output()
	rsAluToALUPrev := s.rsAlu.ToALU()
	rsBcuToBCUPrev := s.rsBcu.ToBCU()
	rsMemToMemPrev := s.rsMem.ToMem()
	memRecvPrev := s.memUnit.Recv()

	s.rob.work(decRobPrev, cdbAluPrev, cdbMemPrev, bcuPrev)
	flush := s.rob.FlushOutput().Enabled

	s.rsAlu.work(flush, decAluPrev, cdbAluPrev, cdbMemPrev)
	s.rsBcu.work(flush, decBcuPrev, cdbAluPrev, cdbMemPrev)
	s.rsMem.work(flush, decMemLoadPrev, decMemStorePrev, memRecvPrev, cdbAluPrev, cdbMemPrev, robCommitInfoPrev)

	aluDest := rsAluToALUPrev.Dest
	if flush {
		aluDest = robIDNone
	}
	s.alu.work(aluDest, rsAluToALUPrev.Op, rsAluToALUPrev.Vj, rsAluToALUPrev.Vk)

	bcuDest := rsBcuToBCUPrev.Dest
	if flush {
		bcuDest = robIDNone
	}
	s.bcu.work(bcuDest, rsBcuToBCUPrev.Funct3, rsBcuToBCUPrev.Vj, rsBcuToBCUPrev.Vk,
		rsBcuToBCUPrev.PCFallthrough, rsBcuToBCUPrev.PCTarget)

	if err := s.memUnit.work(flush, rsMemToMemPrev); err != nil {
		return err
	}

	s.regFile.work(flush, robToRegFilePrev, decRenamePrev)
	if s.halted {
		// x10 is read only after the RegisterFile has taken the commit write
		// of the instruction retired the cycle before the halt.
		s.exitByte = byte(s.regFile.Output()[10].Value & 0xff)
	}

	s.decoder.work(DecoderInputs{
		Fetch:        fetchPrev,
		RegFile:      regPrev,
		RobReadback:  robReadbackPrev,
		CDBAlu:       cdbAluPrev,
		CDBMem:       cdbMemPrev,
		AluFull:      s.rsAlu.Vacancy() == 0,
		BcuFull:      s.rsBcu.Vacancy() == 0,
		MemLoadFull:  s.rsMem.LoadVacancy() == 0,
		MemStoreFull: s.rsMem.StoreVacancy() == 0,
		RobFull:      s.rob.Vacancy() == 0,
		NextRobID:    s.rob.NextTailOutput(),
		Commit:       robCommitInfoPrev,
		Flush:        flush,
	})

	if err := s.fetcher.work(FetcherInputs{
		PCFromDecoder: decRedirectPrev,
		PCFromROB:     robToFetcherPrev,
		BranchRecord:  robBranchRecordPrev,
	}); err != nil {
		return err
	}

	s.cycle++
	return nil
}

// Run ticks the Simulator until it halts, ctx is cancelled, or cycleBudget
// cycles elapse (0 means unlimited).
func (s *Simulator) Run(ctx context.Context, cycleBudget uint64) (byte, error) {
	for {
		if s.halted {
			return s.exitByte, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		if cycleBudget != 0 && s.cycle >= cycleBudget {
			return 0, simerr.CycleBudgetExceeded{Budget: cycleBudget}
		}
		if err := s.Tick(); err != nil {
			return 0, fmt.Errorf("cycle %d: %w", s.cycle, err)
		}
	}
}
