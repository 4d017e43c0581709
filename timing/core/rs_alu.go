package core

import "github.com/sarchlab/m2sim/simerr"

type rsALUEntry struct {
	busy   bool
	op     uint8
	vj, vk uint32
	qj, qk RobID
	dest   RobID
}

func (e *rsALUEntry) ready() bool {
	return e.busy && e.qj == robIDNone && e.qk == robIDNone
}

// RSALU is the reservation station feeding the ALU: size entries (16 by
// default), each
// waiting on up to two CDB-resolved operands before it can issue.
type RSALU struct {
	entries []rsALUEntry

	toALU   AluDispatch
	vacancy int
}

// NewRSALU creates an empty RS-ALU with size entries.
func NewRSALU(size int) *RSALU {
	rs := &RSALU{entries: make([]rsALUEntry, size)}
	rs.vacancy = size
	return rs
}

// Vacancy reports the number of free entries, combinationally available to
// the Decoder's fullness check.
func (rs *RSALU) Vacancy() int {
	return rs.vacancy
}

// ToALU returns the entry issued to the ALU this cycle (Dest==0 if none).
func (rs *RSALU) ToALU() AluDispatch {
	return rs.toALU
}

func (rs *RSALU) work(flush bool, dispatch AluDispatch, cdbAlu, cdbMem CDBMessage) {
	if flush {
		rs.entries = make([]rsALUEntry, len(rs.entries))
		rs.toALU = AluDispatch{}
		rs.vacancy = len(rs.entries)
		return
	}

	if dispatch.Enabled {
		for i := range rs.entries {
			if !rs.entries[i].busy {
				rs.entries[i] = rsALUEntry{
					busy: true, op: dispatch.Op,
					vj: dispatch.Vj, vk: dispatch.Vk,
					qj: dispatch.Qj, qk: dispatch.Qk,
					dest: dispatch.Dest,
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

	rs.toALU = AluDispatch{}
	for i := range rs.entries {
		e := &rs.entries[i]
		if e.ready() {
			rs.toALU = AluDispatch{Enabled: true, Op: e.op, Vj: e.vj, Vk: e.vk, Dest: e.dest}
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

// ALU is the combinational integer functional unit. Op encoding is 4 bits
// {funct7[30], funct3}.
type ALU struct {
	cdbOutput CDBMessage
}

// NewALU creates an ALU.
func NewALU() *ALU {
	return &ALU{}
}

// CDBOutput returns this cycle's CDB-ALU broadcast.
func (a *ALU) CDBOutput() CDBMessage {
	return a.cdbOutput
}

func (a *ALU) work(dest RobID, op uint8, vj, vk uint32) {
	if dest == robIDNone {
		a.cdbOutput = CDBMessage{}
		return
	}
	a.cdbOutput = CDBMessage{RobID: dest, Value: execALU(op, vj, vk)}
}

func execALU(op uint8, vj, vk uint32) uint32 {
	switch op {
	case 0b0000: // ADD
		return vj + vk
	case 0b1000: // SUB
		return vj - vk
	case 0b0001: // SLL
		return vj << (vk & 0x1F)
	case 0b0010: // SLT
		if int32(vj) < int32(vk) {
			return 1
		}
		return 0
	case 0b0011: // SLTU
		if vj < vk {
			return 1
		}
		return 0
	case 0b0100: // XOR
		return vj ^ vk
	case 0b0101: // SRL
		return vj >> (vk & 0x1F)
	case 0b1101: // SRA
		return uint32(int32(vj) >> (vk & 0x1F))
	case 0b0110: // OR
		return vj | vk
	case 0b0111: // AND
		return vj & vk
	default:
		panic(simerr.Unreachable{Detail: "alu: unknown op encoding"})
	}
}
