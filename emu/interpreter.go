package emu

import (
	"fmt"

	"github.com/sarchlab/m2sim/insts"
	"github.com/sarchlab/m2sim/simerr"
)

// Interpreter is a purely functional, single-step RV32I reference
// implementation: no speculation, no timing, one instruction fully
// retired per Step call. It is the conformance oracle the out-of-order
// timing core (package timing/core) is checked against; it is never on
// the path of the production CLI's default run.
type Interpreter struct {
	Memory *Memory
	Regs   *RegFile

	alu    *ALU
	branch *BranchUnit
}

// NewInterpreter creates an Interpreter over the given memory and register
// file. Regs.PC should be set by the caller before the first Step.
func NewInterpreter(memory *Memory, regs *RegFile) *Interpreter {
	return &Interpreter{
		Memory: memory,
		Regs:   regs,
		alu:    NewALU(),
		branch: NewBranchUnit(),
	}
}

// Step fetches, decodes, and fully executes one instruction. halted
// reports whether the fetched word was the halt sentinel, in which case no
// register or memory state changes and the caller should read x10.
func (ip *Interpreter) Step() (halted bool, err error) {
	pc := ip.Regs.PC
	word, err := ip.Memory.ReadWord(pc)
	if err != nil {
		return false, fmt.Errorf("interpreter: fetch at pc=0x%x: %w", pc, err)
	}
	if word == insts.HaltWord {
		return true, nil
	}

	inst := insts.Decode(word)

	switch {
	case inst.Op == insts.OpLUI:
		ip.Regs.WriteReg(inst.Rd, uint32(inst.Imm)<<12)
		ip.Regs.PC = pc + 4

	case inst.Op == insts.OpAUIPC:
		ip.Regs.WriteReg(inst.Rd, pc+uint32(inst.Imm)<<12)
		ip.Regs.PC = pc + 4

	case inst.Op == insts.OpJAL:
		ip.Regs.WriteReg(inst.Rd, pc+4)
		ip.Regs.PC = uint32(int32(pc) + inst.Imm)

	case inst.Op == insts.OpJALR:
		target := uint32(int32(ip.Regs.ReadReg(inst.Rs1))+inst.Imm) &^ 1
		ip.Regs.WriteReg(inst.Rd, pc+4)
		ip.Regs.PC = target

	case inst.Op.IsBranch():
		taken := ip.branch.Taken(BranchCond(inst.Funct3), ip.Regs.ReadReg(inst.Rs1), ip.Regs.ReadReg(inst.Rs2))
		if taken {
			ip.Regs.PC = uint32(int32(pc) + inst.Imm)
		} else {
			ip.Regs.PC = pc + 4
		}

	case inst.Op.IsLoad():
		addr := uint32(int32(ip.Regs.ReadReg(inst.Rs1)) + inst.Imm)
		v, err := ip.loadValue(inst.Op, addr)
		if err != nil {
			return false, err
		}
		ip.Regs.WriteReg(inst.Rd, v)
		ip.Regs.PC = pc + 4

	case inst.Op.IsStore():
		addr := uint32(int32(ip.Regs.ReadReg(inst.Rs1)) + inst.Imm)
		if err := ip.storeValue(inst.Op, addr, ip.Regs.ReadReg(inst.Rs2)); err != nil {
			return false, err
		}
		ip.Regs.PC = pc + 4

	case inst.Op.IsALU():
		vj := ip.Regs.ReadReg(inst.Rs1)
		vk := ip.Regs.ReadReg(inst.Rs2)
		if IsImmediateALU(inst.Op) {
			vk = uint32(inst.Imm)
		}
		ip.Regs.WriteReg(inst.Rd, ip.alu.Exec(Op(inst.AluOp), vj, vk))
		ip.Regs.PC = pc + 4

	default:
		return false, simerr.Unreachable{
			Detail: fmt.Sprintf("interpreter: unknown opcode at pc=0x%x word=0x%08x", pc, word),
		}
	}

	return false, nil
}

// Run steps the interpreter until the halt sentinel is hit or maxCycles
// instructions have retired without halting.
func (ip *Interpreter) Run(maxCycles uint64) (exitByte byte, err error) {
	for i := uint64(0); i < maxCycles; i++ {
		halted, err := ip.Step()
		if err != nil {
			return 0, err
		}
		if halted {
			return byte(ip.Regs.ReadReg(10) & 0xff), nil
		}
	}
	return 0, simerr.CycleBudgetExceeded{Budget: maxCycles}
}

func (ip *Interpreter) loadValue(op insts.Op, addr uint32) (uint32, error) {
	switch op {
	case insts.OpLB:
		b, err := ip.Memory.ReadByte(addr)
		if err != nil {
			return 0, fmt.Errorf("interpreter: lb: %w", err)
		}
		return uint32(int32(int8(b))), nil
	case insts.OpLH:
		h, err := ip.Memory.ReadHalf(addr)
		if err != nil {
			return 0, fmt.Errorf("interpreter: lh: %w", err)
		}
		return uint32(int32(int16(h))), nil
	case insts.OpLW:
		w, err := ip.Memory.ReadWord(addr)
		if err != nil {
			return 0, fmt.Errorf("interpreter: lw: %w", err)
		}
		return w, nil
	case insts.OpLBU:
		b, err := ip.Memory.ReadByte(addr)
		if err != nil {
			return 0, fmt.Errorf("interpreter: lbu: %w", err)
		}
		return uint32(b), nil
	case insts.OpLHU:
		h, err := ip.Memory.ReadHalf(addr)
		if err != nil {
			return 0, fmt.Errorf("interpreter: lhu: %w", err)
		}
		return uint32(h), nil
	default:
		return 0, simerr.Unreachable{Detail: "interpreter: unknown load op"}
	}
}

func (ip *Interpreter) storeValue(op insts.Op, addr, value uint32) error {
	switch op {
	case insts.OpSB:
		return ip.Memory.WriteByte(addr, byte(value))
	case insts.OpSH:
		return ip.Memory.WriteHalf(addr, uint16(value))
	case insts.OpSW:
		return ip.Memory.WriteWord(addr, value)
	default:
		return simerr.Unreachable{Detail: "interpreter: unknown store op"}
	}
}

// IsImmediateALU reports whether op is the immediate-operand form of an ALU
// mnemonic (ADDI..SRAI), i.e. its second operand comes from Imm rather than
// Rs2. Shared by the interpreter and the timing core's Decoder, which both
// need to distinguish the two operand forms of insts.Op.IsALU().
func IsImmediateALU(op insts.Op) bool {
	switch op {
	case insts.OpADDI, insts.OpSLTI, insts.OpSLTIU, insts.OpXORI, insts.OpORI, insts.OpANDI,
		insts.OpSLLI, insts.OpSRLI, insts.OpSRAI:
		return true
	default:
		return false
	}
}
