package core

import (
	"fmt"

	"github.com/sarchlab/m2sim/emu"
	"github.com/sarchlab/m2sim/simerr"
)

type rsMemLoadEntry struct {
	busy   bool
	funct3 uint8
	vj     uint32
	qj     RobID
	ql     RobID // last-store dependency
	dest   RobID
	offset int32
}

type rsMemStoreEntry struct {
	busy   bool
	funct3 uint8
	vj, vk uint32
	qj, qk RobID
	ql     RobID // prior-store dependency
	qm     RobID // prior-branch dependency
	dest   RobID
	offset int32
}

// RSMem holds separate load and store queues sharing one memory port, and
// enforces memory ordering: loads wait on the most recent not-yet-accepted
// store (Ql); stores additionally wait for the most recent outstanding
// branch to commit (Qm), since a speculative store must never become
// visible before it is known to be on the correct path.
type RSMem struct {
	loads  []rsMemLoadEntry
	stores []rsMemStoreEntry

	lastStoreID RobID

	lastIssueStatus  bool
	lastIssueIsStore bool
	lastIssueIndex   int

	toMem                     MemOperation
	loadVacancy, storeVacancy int
}

// NewRSMem creates an empty RS-Mem with size entries in each of its load
// and store queues.
func NewRSMem(size int) *RSMem {
	rs := &RSMem{
		loads:  make([]rsMemLoadEntry, size),
		stores: make([]rsMemStoreEntry, size),
	}
	rs.loadVacancy = size
	rs.storeVacancy = size
	return rs
}

// LoadVacancy reports free load-queue entries.
func (rs *RSMem) LoadVacancy() int { return rs.loadVacancy }

// StoreVacancy reports free store-queue entries.
func (rs *RSMem) StoreVacancy() int { return rs.storeVacancy }

// ToMem returns the operation issued to the MemoryUnit this cycle.
func (rs *RSMem) ToMem() MemOperation { return rs.toMem }

func (rs *RSMem) work(
	flush bool,
	loadDispatch MemLoadDispatch,
	storeDispatch MemStoreDispatch,
	recv MemRecv,
	cdbAlu, cdbMem CDBMessage,
	commit CommitInfo,
) {
	if flush {
		rs.loads = make([]rsMemLoadEntry, len(rs.loads))
		rs.stores = make([]rsMemStoreEntry, len(rs.stores))
		rs.lastStoreID = robIDNone
		rs.lastIssueStatus = false
		rs.toMem = MemOperation{}
		rs.loadVacancy = len(rs.loads)
		rs.storeVacancy = len(rs.stores)
		return
	}

	// At most one of the two dispatch inputs is enabled in a given cycle.
	switch {
	case loadDispatch.Enabled:
		for i := range rs.loads {
			if !rs.loads[i].busy {
				rs.loads[i] = rsMemLoadEntry{
					busy: true, funct3: loadDispatch.Funct3, vj: loadDispatch.Vj,
					qj: loadDispatch.Qj, ql: rs.lastStoreID,
					dest: loadDispatch.Dest, offset: loadDispatch.Offset,
				}
				break
			}
		}
	case storeDispatch.Enabled:
		for i := range rs.stores {
			if !rs.stores[i].busy {
				rs.stores[i] = rsMemStoreEntry{
					busy: true, funct3: storeDispatch.Funct3,
					vj: storeDispatch.Vj, vk: storeDispatch.Vk,
					qj: storeDispatch.Qj, qk: storeDispatch.Qk,
					ql: rs.lastStoreID, qm: storeDispatch.Qm,
					dest: storeDispatch.Dest, offset: storeDispatch.Offset,
				}
				rs.lastStoreID = storeDispatch.Dest
				break
			}
		}
	}

	if recv.Accepted {
		// The MemoryUnit has taken the operation: its entry leaves the queue.
		if recv.IsStore {
			for i := range rs.stores {
				if rs.stores[i].busy && rs.stores[i].dest == recv.Dest {
					rs.stores[i].busy = false
				}
			}
			if rs.lastStoreID == recv.Dest {
				rs.lastStoreID = robIDNone
			}
			for i := range rs.loads {
				if rs.loads[i].ql == recv.Dest {
					rs.loads[i].ql = robIDNone
				}
			}
			for i := range rs.stores {
				if rs.stores[i].ql == recv.Dest {
					rs.stores[i].ql = robIDNone
				}
			}
		} else {
			for i := range rs.loads {
				if rs.loads[i].busy && rs.loads[i].dest == recv.Dest {
					rs.loads[i].busy = false
				}
			}
		}
		rs.lastIssueStatus = false
	}

	for _, cdb := range [2]CDBMessage{cdbAlu, cdbMem} {
		if cdb.RobID == robIDNone {
			continue
		}
		for i := range rs.loads {
			if rs.loads[i].busy && rs.loads[i].qj == cdb.RobID {
				rs.loads[i].vj, rs.loads[i].qj = cdb.Value, robIDNone
			}
		}
		for i := range rs.stores {
			e := &rs.stores[i]
			if !e.busy {
				continue
			}
			if e.qj == cdb.RobID {
				e.vj, e.qj = cdb.Value, robIDNone
			}
			if e.qk == cdb.RobID {
				e.vk, e.qk = cdb.Value, robIDNone
			}
		}
	}

	if commit.RobID != robIDNone {
		for i := range rs.stores {
			if rs.stores[i].qm == commit.RobID {
				rs.stores[i].qm = robIDNone
			}
		}
	}

	rs.issue()

	rs.loadVacancy = 0
	for i := range rs.loads {
		if !rs.loads[i].busy {
			rs.loadVacancy++
		}
	}
	rs.storeVacancy = 0
	for i := range rs.stores {
		if !rs.stores[i].busy {
			rs.storeVacancy++
		}
	}
}

func (rs *RSMem) issue() {
	if rs.lastIssueStatus {
		// The MemoryUnit did not accept last cycle's issue; resend the
		// exact same entry rather than picking a new candidate.
		if rs.lastIssueIsStore {
			e := &rs.stores[rs.lastIssueIndex]
			rs.toMem = MemOperation{
				Enabled: true, IsStore: true, Funct3: e.funct3,
				Addr: uint32(int32(e.vj) + e.offset), Value: e.vk, Dest: e.dest,
			}
		} else {
			e := &rs.loads[rs.lastIssueIndex]
			rs.toMem = MemOperation{
				Enabled: true, IsStore: false, Funct3: e.funct3,
				Addr: uint32(int32(e.vj) + e.offset), Dest: e.dest,
			}
		}
		return
	}

	for i := range rs.loads {
		e := &rs.loads[i]
		if e.busy && e.qj == robIDNone && e.ql == robIDNone {
			rs.toMem = MemOperation{
				Enabled: true, IsStore: false, Funct3: e.funct3,
				Addr: uint32(int32(e.vj) + e.offset), Dest: e.dest,
			}
			rs.lastIssueStatus, rs.lastIssueIsStore, rs.lastIssueIndex = true, false, i
			return
		}
	}

	if rs.canIssueStore() {
		for i := range rs.stores {
			e := &rs.stores[i]
			if e.busy && e.qj == robIDNone && e.qk == robIDNone && e.ql == robIDNone && e.qm == robIDNone {
				rs.toMem = MemOperation{
					Enabled: true, IsStore: true, Funct3: e.funct3,
					Addr: uint32(int32(e.vj) + e.offset), Value: e.vk, Dest: e.dest,
				}
				rs.lastIssueStatus, rs.lastIssueIsStore, rs.lastIssueIndex = true, true, i
				return
			}
		}
	}

	rs.toMem = MemOperation{}
}

// canIssueStore implements the "prefer loads" rule: if any busy load has its
// store dependency cleared (Ql == 0), no store may issue this cycle,
// regardless of whether that load's own operands are ready.
func (rs *RSMem) canIssueStore() bool {
	for i := range rs.loads {
		if rs.loads[i].busy && rs.loads[i].ql == robIDNone {
			return false
		}
	}
	return true
}

// MemoryUnit is the fixed-latency load/store functional unit: one cycle to
// accept and perform the access, then MemoryLatency-1 further idle cycles
// before the result (or store's completion) broadcasts on CDB-Mem. Stores
// take effect on memory immediately upon acceptance, not at ROB commit —
// safe because RS-Mem never issues a store until every prior branch has
// committed (Qm).
type MemoryUnit struct {
	memory  *emu.Memory
	latency int

	state          int
	pendingDest    RobID
	pendingIsStore bool
	cachedValue    uint32

	cdbOutput CDBMessage
	recv      MemRecv
}

// NewMemoryUnit creates a MemoryUnit with the given fixed latency.
func NewMemoryUnit(memory *emu.Memory, latency int) *MemoryUnit {
	return &MemoryUnit{memory: memory, latency: latency}
}

// CDBOutput returns this cycle's CDB-Mem broadcast.
func (mu *MemoryUnit) CDBOutput() CDBMessage { return mu.cdbOutput }

// Recv reports whether the operation handed to the unit this cycle was
// accepted.
func (mu *MemoryUnit) Recv() MemRecv { return mu.recv }

func (mu *MemoryUnit) work(flush bool, op MemOperation) error {
	if flush {
		mu.state = 0
		mu.pendingDest = robIDNone
		mu.cachedValue = 0
		mu.recv = MemRecv{}
		mu.cdbOutput = CDBMessage{}
		return nil
	}

	switch {
	case mu.state == 0:
		if op.Enabled && op.Dest != robIDNone {
			v, err := mu.execute(op)
			if err != nil {
				return fmt.Errorf("memory unit: addr=0x%x: %w", op.Addr, err)
			}
			mu.pendingDest = op.Dest
			mu.pendingIsStore = op.IsStore
			mu.cachedValue = v
			mu.recv = MemRecv{Accepted: true, IsStore: op.IsStore, Dest: op.Dest}
			mu.state = 1
		} else {
			mu.recv = MemRecv{}
		}
		mu.cdbOutput = CDBMessage{}

	case mu.state == mu.latency:
		value := mu.cachedValue
		if mu.pendingIsStore {
			value = 0
		}
		mu.cdbOutput = CDBMessage{RobID: mu.pendingDest, Value: value}
		mu.recv = MemRecv{}
		mu.state = 0

	default:
		mu.recv = MemRecv{}
		mu.cdbOutput = CDBMessage{}
		mu.state++
	}

	return nil
}

func (mu *MemoryUnit) execute(op MemOperation) (uint32, error) {
	if op.IsStore {
		switch op.Funct3 {
		case 0b000:
			return 0, mu.memory.WriteByte(op.Addr, byte(op.Value))
		case 0b001:
			return 0, mu.memory.WriteHalf(op.Addr, uint16(op.Value))
		case 0b010:
			return 0, mu.memory.WriteWord(op.Addr, op.Value)
		default:
			return 0, simerr.Unreachable{Detail: "memory unit: unknown store funct3"}
		}
	}

	switch op.Funct3 {
	case 0b000: // LB
		b, err := mu.memory.ReadByte(op.Addr)
		return uint32(int32(int8(b))), err
	case 0b001: // LH
		h, err := mu.memory.ReadHalf(op.Addr)
		return uint32(int32(int16(h))), err
	case 0b010: // LW
		return mu.memory.ReadWord(op.Addr)
	case 0b100: // LBU
		b, err := mu.memory.ReadByte(op.Addr)
		return uint32(b), err
	case 0b101: // LHU
		h, err := mu.memory.ReadHalf(op.Addr)
		return uint32(h), err
	default:
		return 0, simerr.Unreachable{Detail: "memory unit: unknown load funct3"}
	}
}
