package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RSALU", func() {
	var rs *RSALU

	BeforeEach(func() {
		rs = NewRSALU(2)
	})

	It("reports full vacancy when empty", func() {
		rs.work(false, AluDispatch{}, CDBMessage{}, CDBMessage{})
		Expect(rs.Vacancy()).To(Equal(2))
	})

	It("issues a fully-resolved entry the same cycle it is dispatched", func() {
		rs.work(false, AluDispatch{Enabled: true, Op: 0, Vj: 3, Vk: 4, Dest: 5}, CDBMessage{}, CDBMessage{})
		Expect(rs.ToALU()).To(Equal(AluDispatch{Enabled: true, Op: 0, Vj: 3, Vk: 4, Dest: 5}))
	})

	It("holds an entry with an unresolved operand until its producer broadcasts", func() {
		rs.work(false, AluDispatch{Enabled: true, Op: 0, Vj: 3, Qk: 9, Dest: 5}, CDBMessage{}, CDBMessage{})
		Expect(rs.ToALU().Enabled).To(BeFalse())
		Expect(rs.Vacancy()).To(Equal(1))

		rs.work(false, AluDispatch{}, CDBMessage{RobID: 9, Value: 7}, CDBMessage{})
		Expect(rs.ToALU()).To(Equal(AluDispatch{Enabled: true, Op: 0, Vj: 3, Vk: 7, Dest: 5}))
	})

	It("wakes a waiting operand from the memory CDB too", func() {
		rs.work(false, AluDispatch{Enabled: true, Op: 0, Qj: 2, Vk: 1, Dest: 5}, CDBMessage{}, CDBMessage{})
		rs.work(false, AluDispatch{}, CDBMessage{}, CDBMessage{RobID: 2, Value: 9})
		Expect(rs.ToALU()).To(Equal(AluDispatch{Enabled: true, Op: 0, Vj: 9, Vk: 1, Dest: 5}))
	})

	It("clears all entries and restores full vacancy on flush", func() {
		rs.work(false, AluDispatch{Enabled: true, Op: 0, Vj: 1, Qk: 9, Dest: 5}, CDBMessage{}, CDBMessage{})
		rs.work(true, AluDispatch{}, CDBMessage{}, CDBMessage{})
		Expect(rs.Vacancy()).To(Equal(2))
		Expect(rs.ToALU().Enabled).To(BeFalse())
	})
})

var _ = Describe("ALU", func() {
	It("computes ADD and broadcasts tagged with dest", func() {
		a := NewALU()
		a.work(7, 0b0000, 3, 4)
		Expect(a.CDBOutput()).To(Equal(CDBMessage{RobID: 7, Value: 7}))
	})

	It("stays silent when dest is the none sentinel", func() {
		a := NewALU()
		a.work(robIDNone, 0b0000, 3, 4)
		Expect(a.CDBOutput()).To(Equal(CDBMessage{}))
	})

	DescribeTable("integer ops",
		func(op uint8, vj, vk, want uint32) {
			Expect(execALU(op, vj, vk)).To(Equal(want))
		},
		Entry("ADD", uint8(0b0000), uint32(5), uint32(3), uint32(8)),
		Entry("SUB", uint8(0b1000), uint32(5), uint32(3), uint32(2)),
		Entry("SLL", uint8(0b0001), uint32(1), uint32(4), uint32(16)),
		Entry("SLT true", uint8(0b0010), uint32(0xFFFFFFFF), uint32(1), uint32(1)),
		Entry("SLT false", uint8(0b0010), uint32(1), uint32(0xFFFFFFFF), uint32(0)),
		Entry("SLTU", uint8(0b0011), uint32(1), uint32(2), uint32(1)),
		Entry("XOR", uint8(0b0100), uint32(0xF0), uint32(0x0F), uint32(0xFF)),
		Entry("SRL", uint8(0b0101), uint32(0x80000000), uint32(4), uint32(0x08000000)),
		Entry("SRA", uint8(0b1101), uint32(0x80000000), uint32(4), uint32(0xF8000000)),
		Entry("OR", uint8(0b0110), uint32(0xF0), uint32(0x0F), uint32(0xFF)),
		Entry("AND", uint8(0b0111), uint32(0xFF), uint32(0x0F), uint32(0x0F)),
	)
})
