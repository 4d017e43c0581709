package emu

import "github.com/sarchlab/m2sim/simerr"

// ALU implements the RV32I integer arithmetic and logic operations. It
// mirrors the timing core's RS-ALU/ALU functional unit encoding (4-bit
// {funct7[30], funct3}) so the two can be cross-checked op-for-op.
type ALU struct{}

// NewALU creates a new ALU. It carries no state of its own and, like the
// timing core's ALU, is not wired to a register file: the interpreter
// reads/writes registers itself around each call.
func NewALU() *ALU {
	return &ALU{}
}

// Op identifies one of the ALU's RV32I functions, encoded the same way the
// timing core's RS-ALU entries encode it: funct7 bit 30 in bit 3, funct3 in
// bits [2:0].
type Op uint8

// ALU operation encodings, matching timing/core's RS-ALU op field exactly.
const (
	OpADD  Op = 0b0000
	OpSUB  Op = 0b1000
	OpSLL  Op = 0b0001
	OpSLT  Op = 0b0010
	OpSLTU Op = 0b0011
	OpXOR  Op = 0b0100
	OpSRL  Op = 0b0101
	OpSRA  Op = 0b1101
	OpOR   Op = 0b0110
	OpAND  Op = 0b0111
)

// Exec evaluates op on (vj, vk) and returns the 32-bit result.
func (*ALU) Exec(op Op, vj, vk uint32) uint32 {
	switch op {
	case OpADD:
		return vj + vk
	case OpSUB:
		return vj - vk
	case OpSLL:
		return vj << (vk & 0x1F)
	case OpSLT:
		if int32(vj) < int32(vk) {
			return 1
		}
		return 0
	case OpSLTU:
		if vj < vk {
			return 1
		}
		return 0
	case OpXOR:
		return vj ^ vk
	case OpSRL:
		return vj >> (vk & 0x1F)
	case OpSRA:
		return uint32(int32(vj) >> (vk & 0x1F))
	case OpOR:
		return vj | vk
	case OpAND:
		return vj & vk
	default:
		panic(simerr.Unreachable{Detail: "alu: unknown op encoding"})
	}
}
