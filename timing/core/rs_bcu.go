package core

import "github.com/sarchlab/m2sim/simerr"

type rsBCUEntry struct {
	busy                    bool
	funct3                  uint8
	vj, vk                  uint32
	qj, qk                  RobID
	dest                    RobID
	pcFallthrough, pcTarget uint32
}

func (e *rsBCUEntry) ready() bool {
	return e.busy && e.qj == robIDNone && e.qk == robIDNone
}

// RSBCU is the reservation station feeding the BCU.
type RSBCU struct {
	entries []rsBCUEntry

	toBCU   BcuDispatch
	vacancy int
}

// NewRSBCU creates an empty RS-BCU with size entries.
func NewRSBCU(size int) *RSBCU {
	rs := &RSBCU{entries: make([]rsBCUEntry, size)}
	rs.vacancy = size
	return rs
}

// Vacancy reports the number of free entries.
func (rs *RSBCU) Vacancy() int {
	return rs.vacancy
}

// ToBCU returns the entry issued to the BCU this cycle.
func (rs *RSBCU) ToBCU() BcuDispatch {
	return rs.toBCU
}

func (rs *RSBCU) work(flush bool, dispatch BcuDispatch, cdbAlu, cdbMem CDBMessage) {
	if flush {
		rs.entries = make([]rsBCUEntry, len(rs.entries))
		rs.toBCU = BcuDispatch{}
		rs.vacancy = len(rs.entries)
		return
	}

	if dispatch.Enabled {
		for i := range rs.entries {
			if !rs.entries[i].busy {
				rs.entries[i] = rsBCUEntry{
					busy: true, funct3: dispatch.Funct3,
					vj: dispatch.Vj, vk: dispatch.Vk,
					qj: dispatch.Qj, qk: dispatch.Qk,
					dest:          dispatch.Dest,
					pcFallthrough: dispatch.PCFallthrough,
					pcTarget:      dispatch.PCTarget,
				}
				break
			}
		}
	}

	for _, cdb := range [2]CDBMessage{cdbAlu, cdbMem} {
		if cdb.RobID == robIDNone {
			continue
		}
		for i := range rs.entries {
			e := &rs.entries[i]
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

	rs.toBCU = BcuDispatch{}
	for i := range rs.entries {
		e := &rs.entries[i]
		if e.ready() {
			rs.toBCU = BcuDispatch{
				Enabled: true, Funct3: e.funct3, Vj: e.vj, Vk: e.vk, Dest: e.dest,
				PCFallthrough: e.pcFallthrough, PCTarget: e.pcTarget,
			}
			e.busy = false
			break
		}
	}

	rs.vacancy = 0
	for i := range rs.entries {
		if !rs.entries[i].busy {
			rs.vacancy++
		}
	}
}

// BCU is the branch-resolution functional unit. It writes its result to a
// dedicated ROB-only bus, not a CDB: no reservation station snoops a branch
// outcome.
type BCU struct {
	output BCUMessage
}

// NewBCU creates a BCU.
func NewBCU() *BCU {
	return &BCU{}
}

// Output returns this cycle's ROB-directed branch result.
func (b *BCU) Output() BCUMessage {
	return b.output
}

func (b *BCU) work(dest RobID, funct3 uint8, vj, vk uint32, pcFallthrough, pcTarget uint32) {
	if dest == robIDNone {
		b.output = BCUMessage{}
		return
	}

	taken := evalBranch(funct3, vj, vk)
	value := pcFallthrough
	if taken {
		value = pcTarget
	}
	b.output = BCUMessage{RobID: dest, Taken: taken, Value: value}
}

func evalBranch(funct3 uint8, vj, vk uint32) bool {
	switch funct3 {
	case 0b000: // BEQ
		return vj == vk
	case 0b001: // BNE
		return vj != vk
	case 0b100: // BLT
		return int32(vj) < int32(vk)
	case 0b101: // BGE
		return int32(vj) >= int32(vk)
	case 0b110: // BLTU
		return vj < vk
	case 0b111: // BGEU
		return vj >= vk
	default:
		panic(simerr.Unreachable{Detail: "bcu: unknown funct3"})
	}
}
