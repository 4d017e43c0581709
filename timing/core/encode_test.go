package core

// Local RV32I encoders for this package's internal (whitebox) unit tests.
// Duplicated from the external core_test package's asm_test.go, since the
// two are separate compilation units and share no identifiers.

func encodeI(imm int32, rs1, funct3, rd, opcode uint32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeB(imm int32, rs2, rs1, funct3, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>12)&1<<31 | (u>>5)&0x3f<<25 | rs2<<20 | rs1<<15 | funct3<<12 |
		(u>>1)&0xf<<8 | (u>>11)&1<<7 | opcode
}

func addi(rd, rs1 uint8, imm int32) uint32 { return encodeI(imm, uint32(rs1), 0b000, uint32(rd), 0b0010011) }
func jalr(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(imm, uint32(rs1), 0b000, uint32(rd), 0b1100111)
}
func beq(rs1, rs2 uint8, imm int32) uint32 {
	return encodeB(imm, uint32(rs2), uint32(rs1), 0b000, 0b1100011)
}
