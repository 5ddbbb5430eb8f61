package pipeline_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"sixstage/insts"
	"sixstage/timing/cache"
	"sixstage/timing/pipeline"
)

func buildPipeline(program []*insts.Instruction) (*pipeline.Pipeline, *bytes.Buffer) {
	mem := cache.NewMemory()
	mem.LoadProgram(program)
	ms := cache.NewMemorySystem(mem)
	out := &bytes.Buffer{}
	return pipeline.New(ms, out, nil), out
}

func inst(kind insts.Kind, rs, rt, rd int, imm int32, target int, original string) *insts.Instruction {
	i, err := insts.New(kind, rs, rt, rd, imm, target, original)
	if err != nil {
		panic(err)
	}
	return i
}

var _ = Describe("Pipeline end-to-end", func() {
	It("runs a straight-line add program to completion", func() {
		program := []*insts.Instruction{
			inst(insts.Li, 0, 1, 0, 10, 0, "li r1, 10"),
			inst(insts.Li, 0, 2, 0, 5, 0, "li r2, 5"),
			inst(insts.Add, 1, 2, 3, 0, 0, "add r3, r1, r2"),
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, out := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Regs().Read(3)).To(Equal(int32(15)))
		Expect(out.String()).To(ContainSubstring("add r3, r1, r2"))
	})

	It("forwards a RAW dependency through an immediately-following consumer", func() {
		program := []*insts.Instruction{
			inst(insts.Li, 0, 1, 0, 10, 0, "li r1, 10"),
			inst(insts.Add, 1, 1, 2, 0, 0, "add r2, r1, r1"),
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, _ := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Regs().Read(2)).To(Equal(int32(20)))
	})

	It("stalls on a load-use hazard and still computes the right answer", func() {
		program := []*insts.Instruction{
			inst(insts.Li, 0, 1, 0, 256, 0, "li r1, 256"),
			inst(insts.Li, 0, 5, 0, 77, 0, "li r5, 77"),
			inst(insts.Sw, 5, 1, 0, 0, 0, "sw r5, 0(r1)"),
			inst(insts.Lw, 6, 1, 0, 0, 0, "lw r6, 0(r1)"),
			inst(insts.Add, 6, 6, 7, 0, 0, "add r7, r6, r6"),
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, _ := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Regs().Read(6)).To(Equal(int32(77)))
		Expect(p.Regs().Read(7)).To(Equal(int32(154)))
		Expect(p.Stalls()).To(BeNumerically(">", 0))
	})

	It("flushes a misfetched instruction on a taken branch, recording its text on the bubble", func() {
		program := []*insts.Instruction{
			inst(insts.Li, 0, 1, 0, 5, 0, "li r1, 5"),
			inst(insts.Li, 0, 2, 0, 5, 0, "li r2, 5"),
			inst(insts.Beq, 1, 2, 0, 4, 0, "beq r1, r2, 4"),
			inst(insts.Li, 0, 9, 0, 111, 0, "li r9, 111"),
			inst(insts.Li, 0, 9, 0, 222, 0, "li r9, 222"),
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, out := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Regs().Read(9)).To(Equal(int32(222)))
		lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		Expect(lines).To(ContainElement("li r9, 111"))
	})

	It("does not take a branch whose operands differ", func() {
		program := []*insts.Instruction{
			inst(insts.Li, 0, 1, 0, 5, 0, "li r1, 5"),
			inst(insts.Li, 0, 2, 0, 6, 0, "li r2, 6"),
			inst(insts.Beq, 1, 2, 0, 5, 0, "beq r1, r2, 5"),
			inst(insts.Li, 0, 9, 0, 111, 0, "li r9, 111"),
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, _ := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Regs().Read(9)).To(Equal(int32(111)))
	})

	It("jumps unconditionally, never retiring the displaced instruction as a timestamped line", func() {
		program := []*insts.Instruction{
			inst(insts.J, 0, 0, 0, 0, 2, "j 2"),
			inst(insts.Li, 0, 9, 0, 111, 0, "li r9, 111"),
			inst(insts.Li, 0, 9, 0, 222, 0, "li r9, 222"),
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, out := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Regs().Read(9)).To(Equal(int32(222)))
		lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		Expect(lines).To(ContainElement("li r9, 111"))
	})

	It("does not emit a retirement line for stop", func() {
		program := []*insts.Instruction{
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, out := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		for _, l := range lines {
			Expect(l).NotTo(ContainSubstring("stop"))
		}
	})

	It("reports cache request/hit counters in the trailer", func() {
		program := []*insts.Instruction{
			inst(insts.Hlt, 0, 0, 0, 0, 0, "hlt"),
		}
		p, out := buildPipeline(program)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Total number of access requests for instruction cache"))
		Expect(out.String()).To(ContainSubstring("Number of data cache hits"))
	})
})
