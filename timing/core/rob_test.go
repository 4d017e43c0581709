package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ROB", func() {
	var r *ROB

	BeforeEach(func() {
		r = NewROB(4)
		r.work(RobDispatch{}, CDBMessage{}, CDBMessage{}, BCUMessage{}) // cold-start bootstrap
	})

	It("does not broadcast a flush on its cold-start cycle", func() {
		Expect(r.FlushOutput().Enabled).To(BeFalse())
		Expect(r.ToFetcher().Enabled).To(BeFalse())
	})

	It("allocates into tail+1 and reports reduced vacancy", func() {
		r.work(RobDispatch{Enabled: true, Op: RobOpOther, Dest: 5}, CDBMessage{}, CDBMessage{}, BCUMessage{})
		Expect(r.Vacancy()).To(Equal(2)) // size 4, slot 0 reserved, one allocated
		Expect(r.Occupancy()).To(Equal(1))
	})

	It("commits an entry with ValueReady set at dispatch without waiting on a CDB", func() {
		r.work(RobDispatch{Enabled: true, Op: RobOpOther, Value: 99, ValueReady: true, Dest: 5},
			CDBMessage{}, CDBMessage{}, BCUMessage{})
		Expect(r.ToRegFile()).To(Equal(RegCommitWrite{Enabled: true, RegID: 5, Data: 99, RobID: 1}))
		Expect(r.CommittedCount()).To(Equal(uint64(1)))
	})

	It("waits for a CDB broadcast before committing an entry with no immediate value", func() {
		r.work(RobDispatch{Enabled: true, Op: RobOpOther, Dest: 5}, CDBMessage{}, CDBMessage{}, BCUMessage{})
		r.work(RobDispatch{}, CDBMessage{}, CDBMessage{}, BCUMessage{})
		Expect(r.ToRegFile().Enabled).To(BeFalse())
		Expect(r.CommittedCount()).To(Equal(uint64(0)))

		r.work(RobDispatch{}, CDBMessage{RobID: 1, Value: 55}, CDBMessage{}, BCUMessage{})
		Expect(r.ToRegFile()).To(Equal(RegCommitWrite{Enabled: true, RegID: 5, Data: 55, RobID: 1}))
		Expect(r.CommittedCount()).To(Equal(uint64(1)))
	})

	It("records a correctly-predicted branch without flushing", func() {
		r.work(RobDispatch{Enabled: true, Op: RobOpBranch, AltValue: 100, PredBranchTaken: true},
			CDBMessage{}, CDBMessage{}, BCUMessage{})
		r.work(RobDispatch{}, CDBMessage{}, CDBMessage{}, BCUMessage{RobID: 1, Taken: true})
		Expect(r.FlushOutput().Enabled).To(BeFalse())
		hit, total := r.BranchStats()
		Expect(hit).To(Equal(uint64(1)))
		Expect(total).To(Equal(uint64(1)))
	})

	It("flushes on a branch misprediction and redirects the Fetcher", func() {
		r.work(RobDispatch{Enabled: true, Op: RobOpBranch, AltValue: 100, PredBranchTaken: true},
			CDBMessage{}, CDBMessage{}, BCUMessage{})
		r.work(RobDispatch{}, CDBMessage{}, CDBMessage{}, BCUMessage{RobID: 1, Value: 200, Taken: false})
		Expect(r.FlushOutput()).To(Equal(FlushInfo{Enabled: true, PC: 200}))
		Expect(r.ToFetcher()).To(Equal(FetcherRedirect{Enabled: true, PC: 200}))
		hit, total := r.BranchStats()
		Expect(hit).To(Equal(uint64(0)))
		Expect(total).To(Equal(uint64(1)))
	})

	It("invokes the halt callback on commit without advancing head", func() {
		var gotHalt bool
		r.SetHaltCallback(func() { gotHalt = true })
		r.work(RobDispatch{Enabled: true, Op: RobOpHalt, ValueReady: true}, CDBMessage{}, CDBMessage{}, BCUMessage{})
		Expect(gotHalt).To(BeTrue())
		Expect(r.CommittedCount()).To(Equal(uint64(1)))
		Expect(r.head).To(Equal(RobID(1)))
	})
})
