package insts

// bitRange extracts the inclusive [hi:lo] bit field of word.
func bitRange(word uint32, hi, lo uint) uint32 {
	width := hi - lo + 1
	return (word >> lo) & ((1 << width) - 1)
}

// signExtend sign-extends the low `bits` bits of v to a full int32.
func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func immI(word uint32) int32 {
	return signExtend(bitRange(word, 31, 20), 12)
}

func immS(word uint32) int32 {
	v := bitRange(word, 31, 25)<<5 | bitRange(word, 11, 7)
	return signExtend(v, 12)
}

func immB(word uint32) int32 {
	v := bitRange(word, 31, 31)<<12 | bitRange(word, 7, 7)<<11 |
		bitRange(word, 30, 25)<<5 | bitRange(word, 11, 8)<<1
	return signExtend(v, 13)
}

func immU(word uint32) uint32 {
	return bitRange(word, 31, 12)
}

func immJ(word uint32) int32 {
	v := bitRange(word, 31, 31)<<20 | bitRange(word, 19, 12)<<12 |
		bitRange(word, 20, 20)<<11 | bitRange(word, 30, 21)<<1
	return signExtend(v, 21)
}

// RV32I base opcodes (instruction bits [6:0]).
const (
	opcodeLUI    = 0b0110111
	opcodeAUIPC  = 0b0010111
	opcodeJAL    = 0b1101111
	opcodeJALR   = 0b1100111
	opcodeBranch = 0b1100011
	opcodeLoad   = 0b0000011
	opcodeStore  = 0b0100011
	opcodeOpImm  = 0b0010011
	opcodeOp     = 0b0110011
)

var branchOps = [8]Op{
	0b000: OpBEQ,
	0b001: OpBNE,
	0b100: OpBLT,
	0b101: OpBGE,
	0b110: OpBLTU,
	0b111: OpBGEU,
}

var loadOps = [8]Op{
	0b000: OpLB,
	0b001: OpLH,
	0b010: OpLW,
	0b100: OpLBU,
	0b101: OpLHU,
}

var storeOps = [8]Op{
	0b000: OpSB,
	0b001: OpSH,
	0b010: OpSW,
}

// opImmOps maps funct3 to the OP-IMM mnemonic for funct3 values that do not
// depend on funct7 (everything but SLLI/SRLI/SRAI, which need bit 30).
var opImmOps = [8]Op{
	0b000: OpADDI,
	0b010: OpSLTI,
	0b011: OpSLTIU,
	0b100: OpXORI,
	0b110: OpORI,
	0b111: OpANDI,
}

var regOps = [2][8]Op{
	0: { // funct7[5] == 0
		0b000: OpADD,
		0b001: OpSLL,
		0b010: OpSLT,
		0b011: OpSLTU,
		0b100: OpXOR,
		0b101: OpSRL,
		0b110: OpOR,
		0b111: OpAND,
	},
	1: { // funct7[5] == 1
		0b000: OpSUB,
		0b101: OpSRA,
	},
}

// Decode decodes a 32-bit RV32I instruction word. The halt sentinel is
// recognized as a standalone literal comparison ahead of the opcode switch,
// since its low 7 bits alias OP-IMM, not LUI (see the design notes on the
// halt sentinel's placement).
func Decode(word uint32) Instruction {
	if word == HaltWord {
		return Instruction{Op: OpHALT}
	}

	opcode := bitRange(word, 6, 0)
	funct3 := uint8(bitRange(word, 14, 12))
	funct7bit5 := uint8(bitRange(word, 30, 30))
	rs1 := uint8(bitRange(word, 19, 15))
	rs2 := uint8(bitRange(word, 24, 20))
	rd := uint8(bitRange(word, 11, 7))

	switch opcode {
	case opcodeLUI:
		return Instruction{Op: OpLUI, Rd: rd, Imm: int32(immU(word))}

	case opcodeAUIPC:
		return Instruction{Op: OpAUIPC, Rd: rd, Imm: int32(immU(word))}

	case opcodeJAL:
		return Instruction{Op: OpJAL, Rd: rd, Imm: immJ(word)}

	case opcodeJALR:
		return Instruction{Op: OpJALR, Rd: rd, Rs1: rs1, Imm: immI(word), Funct3: funct3}

	case opcodeBranch:
		return Instruction{
			Op: branchOps[funct3], Rs1: rs1, Rs2: rs2, Imm: immB(word), Funct3: funct3,
		}

	case opcodeLoad:
		return Instruction{Op: loadOps[funct3], Rd: rd, Rs1: rs1, Imm: immI(word), Funct3: funct3}

	case opcodeStore:
		return Instruction{Op: storeOps[funct3], Rs1: rs1, Rs2: rs2, Imm: immS(word), Funct3: funct3}

	case opcodeOpImm:
		if funct3 == 0b001 || funct3 == 0b101 {
			// SLLI/SRLI/SRAI: the "immediate" is a 5-bit shamt, and
			// funct7 bit 30 distinguishes SRLI from SRAI exactly like
			// the register-register SRL/SRA pair.
			shamt := int32(bitRange(word, 24, 20))
			op := OpSLLI
			if funct3 == 0b101 {
				if funct7bit5 == 1 {
					op = OpSRAI
				} else {
					op = OpSRLI
				}
			}
			return Instruction{
				Op: op, Rd: rd, Rs1: rs1, Imm: shamt, Funct3: funct3,
				AluOp: uint8(funct7bit5)<<3 | funct3,
			}
		}
		return Instruction{
			Op: opImmOps[funct3], Rd: rd, Rs1: rs1, Imm: immI(word), Funct3: funct3,
			AluOp: funct3,
		}

	case opcodeOp:
		return Instruction{
			Op: regOps[funct7bit5][funct3], Rd: rd, Rs1: rs1, Rs2: rs2, Funct3: funct3,
			AluOp: uint8(funct7bit5)<<3 | funct3,
		}

	default:
		return Instruction{Op: OpUnknown}
	}
}
