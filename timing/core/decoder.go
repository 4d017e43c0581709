package core

import (
	"fmt"

	"github.com/sarchlab/m2sim/emu"
	"github.com/sarchlab/m2sim/insts"
	"github.com/sarchlab/m2sim/simerr"
)

type decoderState uint8

const (
	stateSkipCycle decoderState = iota
	stateTryIssue
	stateReplayPrevious
	stateWaitJALR
	stateHalted
)

// DecoderInputs is the Decoder's per-cycle input snapshot.
type DecoderInputs struct {
	Fetch        FetchOutput
	RegFile      [32]RegFileEntry
	RobReadback  []RobReadbackEntry
	CDBAlu       CDBMessage
	CDBMem       CDBMessage
	AluFull      bool
	BcuFull      bool
	MemLoadFull  bool
	MemStoreFull bool
	RobFull      bool
	NextRobID   RobID
	Commit      CommitInfo
	Flush       bool
}

type decoderOutputs struct {
	alu      AluDispatch
	bcu      BcuDispatch
	memLoad  MemLoadDispatch
	memStore MemStoreDispatch
	rob      RobDispatch
	rename   RegRename
	redirect FetcherRedirect
}

// Decoder is the single-issue decode/dispatch stage: it decodes one fetched
// instruction per cycle (when not replaying or waiting), allocates a ROB
// entry, renames its destination register, and dispatches to the RS that
// executes its class of operation.
//
// Its FSM has five states. SKIP_CYCLE burns one cycle after any PC redirect
// so the Decoder never acts on a stale fetch. WAIT_JALR holds after
// dispatching a general JALR until the ROB commits it and delivers the
// resolved target. REPLAY_PREVIOUS re-attempts a cached instruction that
// previously failed to issue for lack of RS/ROB space. HALTED is entered
// after dispatching the halt sentinel: nothing fetched past it is decoded
// until a flush returns the Decoder to SKIP_CYCLE.
type Decoder struct {
	state        decoderState
	lastBranchID RobID

	lastInstruction uint32
	lastPC          uint32
	lastPred        bool

	out decoderOutputs
}

// NewDecoder creates a Decoder in its initial SKIP_CYCLE state.
func NewDecoder() *Decoder {
	return &Decoder{state: stateSkipCycle}
}

func (d *Decoder) ToALU() AluDispatch           { return d.out.alu }
func (d *Decoder) ToBCU() BcuDispatch           { return d.out.bcu }
func (d *Decoder) ToMemLoad() MemLoadDispatch   { return d.out.memLoad }
func (d *Decoder) ToMemStore() MemStoreDispatch { return d.out.memStore }
func (d *Decoder) ToROB() RobDispatch           { return d.out.rob }
func (d *Decoder) ToRegFile() RegRename         { return d.out.rename }
func (d *Decoder) ToFetcher() FetcherRedirect   { return d.out.redirect }

func (d *Decoder) work(in DecoderInputs) {
	prevRename, prevRob := d.out.rename, d.out.rob
	d.out = decoderOutputs{}

	if in.Flush {
		d.state = stateSkipCycle
		d.lastBranchID = robIDNone
		d.lastInstruction = 0
		return
	}

	if in.Commit.RobID != robIDNone && in.Commit.RobID == d.lastBranchID {
		d.lastBranchID = robIDNone
	}

	switch d.state {
	case stateSkipCycle:
		d.state = stateTryIssue
		return

	case stateWaitJALR:
		if d.lastBranchID == robIDNone {
			d.state = stateTryIssue
		}
		return

	case stateHalted:
		return
	}

	// in.RegFile predates the rename this Decoder issued last cycle; overlay
	// it. That producer's ROB slot is allocated only this cycle, so its
	// last-cycle readback belongs to an older occupant and is masked.
	if prevRename.Enabled {
		if prevRob.ValueReady {
			in.RegFile[prevRename.RegID] = RegFileEntry{Value: prevRob.Value}
		} else {
			in.RegFile[prevRename.RegID].Tag = prevRename.RobID
			rb := make([]RobReadbackEntry, max(len(in.RobReadback), int(prevRename.RobID)+1))
			copy(rb, in.RobReadback)
			rb[prevRename.RobID] = RobReadbackEntry{}
			in.RobReadback = rb
		}
	}

	var word, pc uint32
	var pred bool
	if d.state == stateReplayPrevious {
		word, pc, pred = d.lastInstruction, d.lastPC, d.lastPred
	} else {
		if !in.Fetch.Valid {
			return
		}
		word, pc, pred = in.Fetch.Instruction, in.Fetch.PC, in.Fetch.PredictedBranchTaken
	}

	inst := insts.Decode(word)
	if !d.issue(in, inst, pc, pred) {
		d.state = stateReplayPrevious
		d.lastInstruction, d.lastPC, d.lastPred = word, pc, pred
		d.out = decoderOutputs{redirect: FetcherRedirect{Enabled: true, PC: pc + 4}}
		return
	}

	if d.state == stateTryIssue || d.state == stateReplayPrevious {
		d.state = stateTryIssue
	}
}

// issue attempts to dispatch inst. It returns false (leaving d.out
// untouched beyond what it already wrote before discovering fullness) when
// the RS or ROB slot the instruction needs is unavailable this cycle.
func (d *Decoder) issue(in DecoderInputs, inst insts.Instruction, pc uint32, pred bool) bool {
	if in.RobFull {
		return false
	}
	robID := in.NextRobID

	switch {
	case inst.Op == insts.OpHALT:
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpHalt, ValueReady: true}
		d.state = stateHalted
		return true

	case inst.Op == insts.OpLUI:
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpOther, Value: uint32(inst.Imm) << 12, ValueReady: true, Dest: inst.Rd}
		d.rename(inst.Rd, robID)
		return true

	case inst.Op == insts.OpAUIPC:
		if in.AluFull {
			return false
		}
		d.out.alu = AluDispatch{Enabled: true, Op: uint8(emu.OpADD), Vj: pc, Vk: uint32(inst.Imm) << 12, Dest: robID}
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpOther, Dest: inst.Rd}
		d.rename(inst.Rd, robID)
		return true

	case inst.Op == insts.OpJAL:
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpOther, Value: pc + 4, ValueReady: true, Dest: inst.Rd}
		d.rename(inst.Rd, robID)
		d.out.redirect = FetcherRedirect{Enabled: true, PC: uint32(int32(pc) + inst.Imm)}
		d.state = stateSkipCycle
		return true

	case inst.Op == insts.OpJALR:
		return d.issueJALR(in, inst, pc, robID)

	case inst.Op.IsBranch():
		if in.BcuFull {
			return false
		}
		vj, qj := queryRegister(in, inst.Rs1)
		vk, qk := queryRegister(in, inst.Rs2)
		target := uint32(int32(pc) + inst.Imm)
		d.out.bcu = BcuDispatch{
			Enabled: true, Funct3: inst.Funct3, Vj: vj, Vk: vk, Qj: qj, Qk: qk, Dest: robID,
			PCFallthrough: pc + 4, PCTarget: target,
		}
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpBranch, AltValue: pc, PredBranchTaken: pred}
		d.lastBranchID = robID
		next := pc + 4
		if pred {
			next = target
		}
		d.out.redirect = FetcherRedirect{Enabled: true, PC: next}
		d.state = stateSkipCycle
		return true

	case inst.Op.IsLoad():
		if in.MemLoadFull {
			return false
		}
		vj, qj := queryRegister(in, inst.Rs1)
		d.out.memLoad = MemLoadDispatch{Enabled: true, Funct3: inst.Funct3, Vj: vj, Qj: qj, Dest: robID, Offset: inst.Imm}
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpOther, Dest: inst.Rd}
		d.rename(inst.Rd, robID)
		return true

	case inst.Op.IsStore():
		if in.MemStoreFull {
			return false
		}
		vj, qj := queryRegister(in, inst.Rs1)
		vk, qk := queryRegister(in, inst.Rs2)
		d.out.memStore = MemStoreDispatch{
			Enabled: true, Funct3: inst.Funct3, Vj: vj, Vk: vk, Qj: qj, Qk: qk,
			Qm: d.lastBranchID, Dest: robID, Offset: inst.Imm,
		}
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpOther, Dest: 0}
		return true

	case inst.Op.IsALU():
		if in.AluFull {
			return false
		}
		vj, qj := queryRegister(in, inst.Rs1)
		var vk uint32
		var qk RobID
		if emu.IsImmediateALU(inst.Op) {
			vk = uint32(inst.Imm)
		} else {
			vk, qk = queryRegister(in, inst.Rs2)
		}
		d.out.alu = AluDispatch{Enabled: true, Op: inst.AluOp, Vj: vj, Vk: vk, Qj: qj, Qk: qk, Dest: robID}
		d.out.rob = RobDispatch{Enabled: true, Op: RobOpOther, Dest: inst.Rd}
		d.rename(inst.Rd, robID)
		return true

	default:
		panic(simerr.Unreachable{Detail: fmt.Sprintf("decoder: unrecognized opcode at pc=0x%x (op=%d)", pc, inst.Op)})
	}
}

// issueJALR handles both the RET fast path (a resolved x1 target folds into
// a JAL-like redirect with no FU involvement) and the general case, which
// must wait for the ALU to compute rs1+imm and for the ROB to commit before
// the Fetcher can be redirected.
func (d *Decoder) issueJALR(in DecoderInputs, inst insts.Instruction, pc uint32, robID RobID) bool {
	if inst.Rs1 == 1 && inst.Imm == 0 && inst.Rd == 0 {
		if v, tag := queryRegister(in, 1); tag == robIDNone {
			d.out.rob = RobDispatch{Enabled: true, Op: RobOpOther, Value: pc + 4, ValueReady: true, Dest: 0}
			d.out.redirect = FetcherRedirect{Enabled: true, PC: v}
			d.state = stateSkipCycle
			return true
		}
	}

	if in.AluFull {
		return false
	}
	vj, qj := queryRegister(in, inst.Rs1)
	d.out.alu = AluDispatch{Enabled: true, Op: uint8(emu.OpADD), Vj: vj, Qj: qj, Vk: uint32(inst.Imm), Dest: robID}
	d.out.rob = RobDispatch{Enabled: true, Op: RobOpJALR, AltValue: pc + 4, Dest: inst.Rd}
	d.rename(inst.Rd, robID)
	d.lastBranchID = robID
	d.state = stateWaitJALR
	return true
}

func (d *Decoder) rename(rd uint8, robID RobID) {
	if rd == 0 {
		return
	}
	d.out.rename = RegRename{Enabled: true, RegID: rd, RobID: robID}
}

// queryRegister resolves a source operand to either a concrete value (tag
// 0) or the ROB id it must still wait on, checking the architectural
// RegFile, then this cycle's CDB broadcasts, then the ROB's direct
// readback, in that priority order.
func queryRegister(in DecoderInputs, reg uint8) (uint32, RobID) {
	entry := in.RegFile[reg]
	if entry.Tag == robIDNone {
		return entry.Value, robIDNone
	}

	t := entry.Tag
	if in.CDBAlu.RobID == t {
		return in.CDBAlu.Value, robIDNone
	}
	if in.CDBMem.RobID == t {
		return in.CDBMem.Value, robIDNone
	}
	if in.RobReadback[t].Ready {
		return in.RobReadback[t].Value, robIDNone
	}
	return 0, t
}
