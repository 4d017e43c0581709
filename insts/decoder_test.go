package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2sim/insts"
)

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(imm int32, rs1, funct3, rd, opcode uint32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(imm int32, rs2, rs1, funct3, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>5)&0x7f<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (u&0x1f)<<7 | opcode
}

func encodeB(imm int32, rs2, rs1, funct3, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>12)&1<<31 | (u>>5)&0x3f<<25 | rs2<<20 | rs1<<15 | funct3<<12 |
		(u>>1)&0xf<<8 | (u>>11)&1<<7 | opcode
}

func encodeU(imm uint32, rd, opcode uint32) uint32 {
	return imm<<12 | rd<<7 | opcode
}

func encodeJ(imm int32, rd, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>20)&1<<31 | (u>>1)&0x3ff<<21 | (u>>11)&1<<20 | (u>>12)&0xff<<12 | rd<<7 | opcode
}

var _ = Describe("Decode", func() {
	It("decodes the halt sentinel independent of its OP-IMM-aliasing opcode field", func() {
		inst := insts.Decode(insts.HaltWord)
		Expect(inst.Op).To(Equal(insts.OpHALT))
	})

	It("decodes LUI with the raw unshifted U-immediate", func() {
		inst := insts.Decode(encodeU(0xABCDE, 10, 0b0110111))
		Expect(inst.Op).To(Equal(insts.OpLUI))
		Expect(inst.Rd).To(Equal(uint8(10)))
		Expect(inst.Imm).To(Equal(int32(0xABCDE)))
	})

	It("decodes AUIPC", func() {
		inst := insts.Decode(encodeU(1, 5, 0b0010111))
		Expect(inst.Op).To(Equal(insts.OpAUIPC))
		Expect(inst.Rd).To(Equal(uint8(5)))
		Expect(inst.Imm).To(Equal(int32(1)))
	})

	It("decodes JAL with a sign-extended J-immediate", func() {
		inst := insts.Decode(encodeJ(-8, 1, 0b1101111))
		Expect(inst.Op).To(Equal(insts.OpJAL))
		Expect(inst.Rd).To(Equal(uint8(1)))
		Expect(inst.Imm).To(Equal(int32(-8)))
	})

	It("decodes JALR's rs1 and I-immediate", func() {
		inst := insts.Decode(encodeI(4, 1, 0b000, 0, 0b1100111))
		Expect(inst.Op).To(Equal(insts.OpJALR))
		Expect(inst.Rs1).To(Equal(uint8(1)))
		Expect(inst.Imm).To(Equal(int32(4)))
	})

	DescribeTable("branch funct3 dispatch",
		func(funct3 uint32, want insts.Op) {
			inst := insts.Decode(encodeB(4, 2, 1, funct3, 0b1100011))
			Expect(inst.Op).To(Equal(want))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(4)))
		},
		Entry("BEQ", uint32(0b000), insts.OpBEQ),
		Entry("BNE", uint32(0b001), insts.OpBNE),
		Entry("BLT", uint32(0b100), insts.OpBLT),
		Entry("BGE", uint32(0b101), insts.OpBGE),
		Entry("BLTU", uint32(0b110), insts.OpBLTU),
		Entry("BGEU", uint32(0b111), insts.OpBGEU),
	)

	It("decodes a negative B-immediate (backward branch)", func() {
		inst := insts.Decode(encodeB(-4, 0, 0, 0b000, 0b1100011))
		Expect(inst.Imm).To(Equal(int32(-4)))
	})

	DescribeTable("load funct3 dispatch",
		func(funct3 uint32, want insts.Op) {
			inst := insts.Decode(encodeI(8, 2, funct3, 10, 0b0000011))
			Expect(inst.Op).To(Equal(want))
			Expect(inst.Rd).To(Equal(uint8(10)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(8)))
		},
		Entry("LB", uint32(0b000), insts.OpLB),
		Entry("LH", uint32(0b001), insts.OpLH),
		Entry("LW", uint32(0b010), insts.OpLW),
		Entry("LBU", uint32(0b100), insts.OpLBU),
		Entry("LHU", uint32(0b101), insts.OpLHU),
	)

	DescribeTable("store funct3 dispatch",
		func(funct3 uint32, want insts.Op) {
			inst := insts.Decode(encodeS(12, 3, 1, funct3, 0b0100011))
			Expect(inst.Op).To(Equal(want))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
			Expect(inst.Imm).To(Equal(int32(12)))
		},
		Entry("SB", uint32(0b000), insts.OpSB),
		Entry("SH", uint32(0b001), insts.OpSH),
		Entry("SW", uint32(0b010), insts.OpSW),
	)

	It("decodes a negative S-immediate", func() {
		inst := insts.Decode(encodeS(-4, 0, 2, 0b010, 0b0100011))
		Expect(inst.Imm).To(Equal(int32(-4)))
	})

	DescribeTable("OP-IMM dispatch (ADDI family)",
		func(funct3 uint32, want insts.Op) {
			inst := insts.Decode(encodeI(7, 1, funct3, 2, 0b0010011))
			Expect(inst.Op).To(Equal(want))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
		},
		Entry("ADDI", uint32(0b000), insts.OpADDI),
		Entry("SLTI", uint32(0b010), insts.OpSLTI),
		Entry("SLTIU", uint32(0b011), insts.OpSLTIU),
		Entry("XORI", uint32(0b100), insts.OpXORI),
		Entry("ORI", uint32(0b110), insts.OpORI),
		Entry("ANDI", uint32(0b111), insts.OpANDI),
	)

	It("decodes SLLI/SRLI/SRAI from the shamt field, not a sign-extended immediate", func() {
		slli := insts.Decode(encodeR(0b0000000, 5, 1, 0b001, 2, 0b0010011))
		Expect(slli.Op).To(Equal(insts.OpSLLI))
		Expect(slli.Imm).To(Equal(int32(5)))

		srli := insts.Decode(encodeR(0b0000000, 5, 1, 0b101, 2, 0b0010011))
		Expect(srli.Op).To(Equal(insts.OpSRLI))

		srai := insts.Decode(encodeR(0b0100000, 5, 1, 0b101, 2, 0b0010011))
		Expect(srai.Op).To(Equal(insts.OpSRAI))
	})

	DescribeTable("OP (register-register) dispatch",
		func(funct7bit5 uint32, funct3 uint32, want insts.Op) {
			inst := insts.Decode(encodeR(funct7bit5<<5, 3, 1, funct3, 2, 0b0110011))
			Expect(inst.Op).To(Equal(want))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
		},
		Entry("ADD", uint32(0), uint32(0b000), insts.OpADD),
		Entry("SUB", uint32(1), uint32(0b000), insts.OpSUB),
		Entry("SLL", uint32(0), uint32(0b001), insts.OpSLL),
		Entry("SLT", uint32(0), uint32(0b010), insts.OpSLT),
		Entry("SLTU", uint32(0), uint32(0b011), insts.OpSLTU),
		Entry("XOR", uint32(0), uint32(0b100), insts.OpXOR),
		Entry("SRL", uint32(0), uint32(0b101), insts.OpSRL),
		Entry("SRA", uint32(1), uint32(0b101), insts.OpSRA),
		Entry("OR", uint32(0), uint32(0b110), insts.OpOR),
		Entry("AND", uint32(0), uint32(0b111), insts.OpAND),
	)

	It("decodes an unrecognized opcode as OpUnknown", func() {
		inst := insts.Decode(0b1111111) // opcode bits [6:0] = 0x7F, not in the subset
		Expect(inst.Op).To(Equal(insts.OpUnknown))
	})

	DescribeTable("Op classification predicates",
		func(op insts.Op, isALU, isBranch, isLoad, isStore bool) {
			Expect(op.IsALU()).To(Equal(isALU))
			Expect(op.IsBranch()).To(Equal(isBranch))
			Expect(op.IsLoad()).To(Equal(isLoad))
			Expect(op.IsStore()).To(Equal(isStore))
		},
		Entry("ADDI", insts.OpADDI, true, false, false, false),
		Entry("ADD", insts.OpADD, true, false, false, false),
		Entry("BEQ", insts.OpBEQ, false, true, false, false),
		Entry("LW", insts.OpLW, false, false, true, false),
		Entry("SW", insts.OpSW, false, false, false, true),
		Entry("JAL", insts.OpJAL, false, false, false, false),
	)
})
