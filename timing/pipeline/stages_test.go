package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"sixstage/insts"
	"sixstage/timing/pipeline"
)

var _ = Describe("Stage dispatch", func() {
	Describe("ID", func() {
		It("reads and forwards operands for an R-type instruction", func() {
			p := pipeline.NewTestPipeline()
			pipeline.WriteReg(p, 1, 7)
			pipeline.WriteReg(p, 2, 9)
			inst := must(insts.New(insts.Add, 1, 2, 3, 0, 0, "add r3, r1, r2"))

			ev, err := pipeline.StageID(p, inst)

			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsContinue()).To(BeTrue())
			Expect(inst.Op1).To(Equal(int32(7)))
			Expect(inst.Op2).To(Equal(int32(9)))
		})

		It("stalls at ID when a hazard is pending", func() {
			p := pipeline.NewTestPipeline()
			pipeline.SetSlot(p, pipeline.SlotEX1, must(insts.New(insts.Add, 4, 5, 1, 0, 0, "add r1, r4, r5")))
			inst := must(insts.New(insts.Sub, 1, 6, 2, 0, 0, "sub r2, r1, r6"))

			ev, err := pipeline.StageID(p, inst)

			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsStallAt(pipeline.StallPosID)).To(BeTrue())
		})

		It("flushes and rewrites pc on a taken branch", func() {
			p := pipeline.NewTestPipeline()
			pipeline.WriteReg(p, 1, 3)
			pipeline.WriteReg(p, 2, 3)
			inst := must(insts.New(insts.Beq, 1, 2, 0, 5, 0, "beq r1, r2, 5"))

			ev, err := pipeline.StageID(p, inst)

			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsFlush()).To(BeTrue())
			Expect(pipeline.PC(p)).To(Equal(5*4 - 4))
		})

		It("does not flush a not-taken branch", func() {
			p := pipeline.NewTestPipeline()
			pipeline.WriteReg(p, 1, 3)
			pipeline.WriteReg(p, 2, 4)
			inst := must(insts.New(insts.Beq, 1, 2, 0, 5, 0, "beq r1, r2, 5"))

			ev, err := pipeline.StageID(p, inst)

			Expect(err).NotTo(HaveOccurred())
			Expect(ev.IsContinue()).To(BeTrue())
		})
	})

	Describe("EX1 through WB for an add", func() {
		It("carries a computed sum to writeback", func() {
			p := pipeline.NewTestPipeline()
			pipeline.WriteReg(p, 1, 7)
			pipeline.WriteReg(p, 2, 9)
			inst := must(insts.New(insts.Add, 1, 2, 3, 0, 0, "add r3, r1, r2"))

			_, err := pipeline.StageID(p, inst)
			Expect(err).NotTo(HaveOccurred())
			_, err = pipeline.StageEX1(p, inst)
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Result).To(Equal(int32(16)))

			_, err = pipeline.StageWB(p, inst)
			Expect(err).NotTo(HaveOccurred())
			Expect(pipeline.ReadReg(p, 3)).To(Equal(int32(16)))
		})
	})

	Describe("lw/sw effective address", func() {
		It("computes reg[rt]+imm at EX1 and rejects misalignment", func() {
			p := pipeline.NewTestPipeline()
			pipeline.WriteReg(p, 5, 100)
			inst := must(insts.New(insts.Lw, 4, 5, 0, 6, 0, "lw r4, 6(r5)"))
			_, err := pipeline.StageID(p, inst)
			Expect(err).NotTo(HaveOccurred())

			_, err = pipeline.StageEX1(p, inst)

			var alignErr *pipeline.AlignmentError
			Expect(errorsAs(err, &alignErr)).To(BeTrue())
		})

		It("accepts a word-aligned address", func() {
			p := pipeline.NewTestPipeline()
			pipeline.WriteReg(p, 5, 100)
			inst := must(insts.New(insts.Lw, 4, 5, 0, 8, 0, "lw r4, 8(r5)"))
			_, err := pipeline.StageID(p, inst)
			Expect(err).NotTo(HaveOccurred())

			_, err = pipeline.StageEX1(p, inst)

			Expect(err).NotTo(HaveOccurred())
			Expect(pipeline.EffAddr(inst)).To(Equal(108))
		})
	})

	Describe("li publishes forwarding a stage earlier", func() {
		It("fills the ID row at EX1, not EX2", func() {
			p := pipeline.NewTestPipeline()
			inst := must(insts.New(insts.Li, 0, 9, 0, 42, 0, "li r9, 42"))

			_, err := pipeline.StageEX1(p, inst)
			Expect(err).NotTo(HaveOccurred())

			v, ok := pipeline.ForwardID(p, 9)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(int32(42)))
		})
	})
})

func errorsAs(err error, target **pipeline.AlignmentError) bool {
	ae, ok := err.(*pipeline.AlignmentError)
	if !ok {
		return false
	}
	*target = ae
	return true
}
