package core

import "github.com/sarchlab/m2sim/simerr"

type robEntry struct {
	busy            bool
	op              RobOp
	valueReady      bool
	value           uint32
	altValue        uint32
	dest            uint8
	branchTaken     bool
	predBranchTaken bool
}

// ROB is the reorder buffer: a circular queue of size slots (32 by default;
// indices [1,size), slot 0 unused) that commits instructions strictly in program order after they
// execute out of order, and is the sole source of flush/cancellation.
type ROB struct {
	size RobID
	entries []robEntry
	head    RobID
	tail    RobID

	initialized     bool
	lastFlushOutput bool
	haltCallback    func()

	branchHit, branchTotal uint64
	committed              uint64

	toRegFile    RegCommitWrite
	toFetcher    FetcherRedirect
	branchRecord BranchRecord
	commitInfo   CommitInfo
	flushInfo    FlushInfo
	readback     []RobReadbackEntry
	nextTailOut  RobID
	vacancy      int
}

// NewROB creates a ROB with size entries (slot 0 reserved as the "none"
// sentinel). It initializes head and tail on its first work() call, without
// broadcasting a flush.
func NewROB(size int) *ROB {
	return &ROB{
		size:     RobID(size),
		entries:  make([]robEntry, size),
		readback: make([]RobReadbackEntry, size),
	}
}

// SetHaltCallback installs the function invoked when a HALT entry commits.
func (r *ROB) SetHaltCallback(cb func()) {
	r.haltCallback = cb
}

// NextTailOutput returns the ROB id the Decoder would allocate if it
// dispatches this cycle.
func (r *ROB) NextTailOutput() RobID { return r.nextTailOut }

// Vacancy reports the number of allocatable (non-busy, non-sentinel) slots.
func (r *ROB) Vacancy() int { return r.vacancy }

// ToRegFile returns this cycle's commit write to the RegisterFile.
func (r *ROB) ToRegFile() RegCommitWrite { return r.toRegFile }

// ToFetcher returns this cycle's PC redirect to the Fetcher (flush, JALR
// resolution, or a branch misprediction).
func (r *ROB) ToFetcher() FetcherRedirect { return r.toFetcher }

// BranchRecordOut returns this cycle's predictor-training signal.
func (r *ROB) BranchRecordOut() BranchRecord { return r.branchRecord }

// CommitInfoOut returns the id of the entry that committed this cycle (0 if
// none).
func (r *ROB) CommitInfoOut() CommitInfo { return r.commitInfo }

// FlushOutput reports whether this cycle raised a flush, and to what PC.
func (r *ROB) FlushOutput() FlushInfo { return r.flushInfo }

// Readback returns every slot's (value, ready) pair for the Decoder's
// direct-from-ROB operand reads.
func (r *ROB) Readback() []RobReadbackEntry { return r.readback }

// BranchStats returns (correctly-predicted, total) committed branches.
func (r *ROB) BranchStats() (hit, total uint64) { return r.branchHit, r.branchTotal }

// CommittedCount returns the number of instructions committed so far.
func (r *ROB) CommittedCount() uint64 { return r.committed }

// Occupancy returns the number of busy (in-flight) entries.
func (r *ROB) Occupancy() int { return int(r.size) - 1 - r.vacancy }

func (r *ROB) nextTail(x RobID) RobID {
	if x == r.size-1 {
		return 1
	}
	return x + 1
}

func (r *ROB) work(dispatch RobDispatch, cdbAlu, cdbMem CDBMessage, bcu BCUMessage) {
	if !r.initialized {
		// No flush is broadcast here: every other module already starts in
		// its own reset state, and the Fetcher bootstraps PC 0 on its own.
		// Fanning out a flush this cycle would redirect the Fetcher to PC 0
		// a second time one cycle later, causing the first instruction to be
		// fetched twice.
		r.initialized = true
		r.head, r.tail = 1, 0
		r.writeToDecoder()
		return
	}

	if dispatch.Enabled && !r.lastFlushOutput {
		tail := r.nextTail(r.tail)
		if r.entries[tail].busy {
			panic(simerr.Unreachable{Detail: "rob: allocate into already-busy slot"})
		}
		r.entries[tail] = robEntry{
			busy: true, op: dispatch.Op, value: dispatch.Value, valueReady: dispatch.ValueReady,
			altValue: dispatch.AltValue, dest: dispatch.Dest, predBranchTaken: dispatch.PredBranchTaken,
		}
		r.tail = tail
	}

	for _, cdb := range [2]CDBMessage{cdbAlu, cdbMem} {
		if cdb.RobID == robIDNone {
			continue
		}
		e := &r.entries[cdb.RobID]
		if e.busy && !e.valueReady {
			e.value = cdb.Value
			e.valueReady = true
		}
	}

	if bcu.RobID != robIDNone {
		e := &r.entries[bcu.RobID]
		if e.busy && e.op == RobOpBranch && !e.valueReady {
			e.value = bcu.Value
			e.valueReady = true
			e.branchTaken = bcu.Taken
		}
	}

	if r.entries[r.head].busy && r.entries[r.head].valueReady {
		r.commit()
	} else {
		r.toRegFile = RegCommitWrite{}
		r.commitInfo = CommitInfo{}
		r.toFetcher = FetcherRedirect{}
		r.branchRecord = BranchRecord{}
		r.flushInfo = FlushInfo{}
		r.writeToDecoder()
	}

	r.lastFlushOutput = r.flushInfo.Enabled
}

func (r *ROB) commit() {
	e := &r.entries[r.head]

	switch e.op {
	case RobOpOther:
		r.toRegFile = RegCommitWrite{Enabled: true, RegID: e.dest, Data: e.value, RobID: r.head}
		r.commitInfo = CommitInfo{RobID: r.head}
		r.toFetcher = FetcherRedirect{}
		r.branchRecord = BranchRecord{}
		r.flushInfo = FlushInfo{}
		r.retireHead()

	case RobOpJALR:
		// The destination gets PC+4; fetch must additionally be redirected
		// to the resolved target here, since the decoder's WAIT_JALR state
		// never issues its own redirect for a general JALR.
		r.toRegFile = RegCommitWrite{Enabled: true, RegID: e.dest, Data: e.altValue, RobID: r.head}
		r.commitInfo = CommitInfo{RobID: r.head}
		r.toFetcher = FetcherRedirect{Enabled: true, PC: e.value}
		r.branchRecord = BranchRecord{}
		r.flushInfo = FlushInfo{}
		r.retireHead()

	case RobOpBranch:
		r.branchTotal++
		if e.branchTaken != e.predBranchTaken {
			r.flush(e.value, e.altValue, e.branchTaken, true)
			return
		}
		r.branchHit++
		r.toRegFile = RegCommitWrite{}
		r.commitInfo = CommitInfo{RobID: r.head}
		r.toFetcher = FetcherRedirect{}
		r.branchRecord = BranchRecord{Enabled: true, PC: e.altValue, Taken: e.branchTaken}
		r.flushInfo = FlushInfo{}
		r.retireHead()

	case RobOpHalt:
		r.committed++
		if r.haltCallback != nil {
			r.haltCallback()
		}
		r.toRegFile = RegCommitWrite{}
		r.commitInfo = CommitInfo{}
		r.toFetcher = FetcherRedirect{}
		r.branchRecord = BranchRecord{}
		r.flushInfo = FlushInfo{}
		// Head intentionally not advanced: simulation ends with this commit.

	default:
		panic(simerr.Unreachable{Detail: "rob: unknown op at commit"})
	}
}

func (r *ROB) retireHead() {
	r.entries[r.head].busy = false
	r.head = r.nextTail(r.head)
	r.committed++
	r.writeToDecoder()
}

// flush cancels every in-flight entry and redirects the Fetcher to newPC.
// recordBranch/branchPC/branchTaken optionally train the predictor in the
// same cycle (used when the flush originates from a branch misprediction).
func (r *ROB) flush(newPC, branchPC uint32, branchTaken, recordBranch bool) {
	r.entries = make([]robEntry, r.size)
	r.head = 1
	r.tail = 0
	r.toRegFile = RegCommitWrite{}
	r.commitInfo = CommitInfo{}
	r.toFetcher = FetcherRedirect{Enabled: true, PC: newPC}
	r.branchRecord = BranchRecord{Enabled: recordBranch, PC: branchPC, Taken: branchTaken}
	r.flushInfo = FlushInfo{Enabled: true, PC: newPC}
	r.writeToDecoder()
}

func (r *ROB) writeToDecoder() {
	busy := 0
	for i := range r.entries {
		if r.entries[i].busy {
			busy++
		}
		r.readback[i] = RobReadbackEntry{Value: r.entries[i].value, Ready: r.entries[i].valueReady}
	}
	r.vacancy = int(r.size) - busy - 1 // slot 0 is never a usable allocation
	r.nextTailOut = r.nextTail(r.tail)
}
