// Package core implements the out-of-order RV32I execution engine: Fetcher,
// Decoder, RegisterFile, the ALU/BCU/Mem reservation stations and their
// functional units, and the ROB, wired together into a cycle-driven
// Simulator.
//
// Every module follows the same two-phase discipline: a work() method reads
// the previous cycle's registered outputs (or a combinational closure) and
// computes this cycle's outputs, which the module stores in its own output
// struct; the top-level Simulator advances every module once per cycle and
// only then are those struct values read by downstream modules, exactly
// mirroring the reference hardware model's staged registers.
package core

// RobID names a reorder-buffer slot. 0 is the reserved "none" sentinel: no
// instruction is ever allocated into slot 0, and every dependency tag
// (Qj/Qk/Ql/Qm, register tag) uses 0 to mean "no outstanding producer".
type RobID = uint8

const robIDNone RobID = 0

// CDBMessage is one broadcast slot on a Common Data Bus: a functional unit's
// result tagged with the ROB id waiting on it. RobID == 0 means nothing was
// broadcast this cycle.
type CDBMessage struct {
	RobID RobID
	Value uint32
}

// BCUMessage is the BCU's dedicated ROB-only result bus; no RS subscribes
// to it, only the ROB.
type BCUMessage struct {
	RobID RobID
	Taken bool
	Value uint32
}

// FetchOutput is what the Fetcher publishes each cycle for the Decoder.
type FetchOutput struct {
	Valid                bool
	PC                   uint32
	Instruction          uint32
	PredictedBranchTaken bool
}

// FetcherRedirect requests a PC change in the Fetcher: from the Decoder
// (JAL/branch speculative redirect, or a replay bump) or from the ROB
// (flush, JALR resolution, or a branch-misprediction redirect).
type FetcherRedirect struct {
	Enabled bool
	PC      uint32
}

// BranchRecord asks the Fetcher to train its predictor for a just-resolved
// branch. It carries no redirect of its own.
type BranchRecord struct {
	Enabled bool
	PC      uint32
	Taken   bool
}

// RegFileEntry is one architectural register's published (tag, value) pair.
type RegFileEntry struct {
	Tag   RobID
	Value uint32
}

// RobReadbackEntry is one ROB slot's published (value, ready) pair, letting
// the Decoder satisfy operands directly from the ROB without waiting on a
// CDB broadcast.
type RobReadbackEntry struct {
	Value uint32
	Ready bool
}

// AluDispatch is what the Decoder sends the RS-ALU on dispatch.
type AluDispatch struct {
	Enabled bool
	Op      uint8 // {funct7[30], funct3}
	Vj, Vk  uint32
	Qj, Qk  RobID
	Dest    RobID
}

// BcuDispatch is what the Decoder sends the RS-BCU on dispatch.
type BcuDispatch struct {
	Enabled                 bool
	Funct3                  uint8
	Vj, Vk                  uint32
	Qj, Qk                  RobID
	Dest                    RobID
	PCFallthrough, PCTarget uint32
}

// MemLoadDispatch is what the Decoder sends RS-Mem's load queue.
type MemLoadDispatch struct {
	Enabled bool
	Funct3  uint8
	Vj      uint32
	Qj      RobID
	Dest    RobID
	Offset  int32
}

// MemStoreDispatch is what the Decoder sends RS-Mem's store queue.
type MemStoreDispatch struct {
	Enabled bool
	Funct3  uint8
	Vj, Vk  uint32
	Qj, Qk  RobID
	Qm      RobID
	Dest    RobID
	Offset  int32
}

// RobOp identifies how the ROB should interpret a committed entry.
type RobOp uint8

const (
	RobOpJALR RobOp = iota
	RobOpBranch
	RobOpOther
	RobOpHalt
)

// RobDispatch is what the Decoder sends the ROB on allocation. ValueReady
// marks entries whose Value is already known at dispatch time (LUI, JAL, the
// JALR RET fast path, HALT) so the ROB need not wait on a CDB broadcast that will
// never arrive, since no functional unit is dispatched alongside them.
type RobDispatch struct {
	Enabled         bool
	Op              RobOp
	Value           uint32
	ValueReady      bool
	AltValue        uint32
	Dest            uint8
	PredBranchTaken bool
}

// RegRename is what the Decoder sends the RegisterFile to rename a
// destination register to the newly allocated ROB id.
type RegRename struct {
	Enabled bool
	RegID   uint8
	RobID   RobID
}

// RegCommitWrite is what the ROB sends the RegisterFile on commit.
type RegCommitWrite struct {
	Enabled bool
	RegID   uint8
	Data    uint32
	RobID   RobID
}

// CommitInfo names the ROB id that committed this cycle, 0 if none.
type CommitInfo struct {
	RobID RobID
}

// MemOperation is what RS-Mem sends the MemoryUnit on issue.
type MemOperation struct {
	Enabled bool
	IsStore bool
	Funct3  uint8
	Addr    uint32
	Value   uint32 // store data; unused for loads
	Dest    RobID
}

// MemRecv reports back to RS-Mem whether the MemoryUnit accepted the
// operation it was handed this cycle.
type MemRecv struct {
	Accepted bool
	IsStore  bool
	Dest     RobID
}

// FlushInfo is the ROB's centralized flush broadcast, fanned out to every
// other module.
type FlushInfo struct {
	Enabled bool
	PC      uint32
}
