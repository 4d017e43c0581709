package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2sim/emu"
)

var _ = Describe("Fetcher", func() {
	var (
		mem *emu.Memory
		f   *Fetcher
	)

	BeforeEach(func() {
		mem = emu.NewMemory()
		for i := uint32(0); i < 64; i += 4 {
			Expect(mem.WriteWord(i, 0x10101010+i)).To(Succeed())
		}
		f = NewFetcher(mem)
	})

	It("bootstraps to PC 0 on its first cycle, ignoring any redirect", func() {
		Expect(f.work(FetcherInputs{
			PCFromDecoder: FetcherRedirect{Enabled: true, PC: 40},
		})).To(Succeed())
		Expect(f.Output().PC).To(Equal(uint32(0)))
		Expect(f.Output().Instruction).To(Equal(uint32(0x10101010)))
	})

	It("advances PC by 4 absent any redirect", func() {
		Expect(f.work(FetcherInputs{})).To(Succeed())
		Expect(f.work(FetcherInputs{})).To(Succeed())
		Expect(f.Output().PC).To(Equal(uint32(4)))
	})

	It("prioritizes a ROB redirect over a Decoder redirect", func() {
		Expect(f.work(FetcherInputs{})).To(Succeed())
		Expect(f.work(FetcherInputs{
			PCFromDecoder: FetcherRedirect{Enabled: true, PC: 8},
			PCFromROB:     FetcherRedirect{Enabled: true, PC: 20},
		})).To(Succeed())
		Expect(f.Output().PC).To(Equal(uint32(20)))
	})

	It("falls back to a Decoder redirect when the ROB has none", func() {
		Expect(f.work(FetcherInputs{})).To(Succeed())
		Expect(f.work(FetcherInputs{
			PCFromDecoder: FetcherRedirect{Enabled: true, PC: 8},
		})).To(Succeed())
		Expect(f.Output().PC).To(Equal(uint32(8)))
	})

	It("predicts weakly-not-taken for any PC before any training", func() {
		Expect(f.work(FetcherInputs{})).To(Succeed())
		Expect(f.Output().PredictedBranchTaken).To(BeFalse())
	})

	It("predicts taken after enough BranchRecord training at that PC", func() {
		Expect(f.work(FetcherInputs{})).To(Succeed())
		for i := 0; i < 3; i++ {
			Expect(f.work(FetcherInputs{
				BranchRecord: BranchRecord{Enabled: true, PC: 0, Taken: true},
			})).To(Succeed())
		}
		Expect(f.work(FetcherInputs{
			PCFromROB: FetcherRedirect{Enabled: true, PC: 0},
		})).To(Succeed())
		Expect(f.Output().PredictedBranchTaken).To(BeTrue())
	})

	It("returns an error fetching out-of-range memory", func() {
		Expect(f.work(FetcherInputs{})).To(Succeed()) // bootstrap fetch of PC 0
		Expect(f.work(FetcherInputs{
			PCFromROB: FetcherRedirect{Enabled: true, PC: emu.MemorySize},
		})).NotTo(Succeed())
	})
})
