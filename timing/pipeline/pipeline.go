// Package pipeline provides the six-stage pipeline engine: the tick
// loop, the per-kind stage behaviors, hazard detection, forwarding, and
// stall/flush handling (spec.md §4.1-§4.4).
//
// The pipeline holds exactly six in-flight instruction records, most
// recently fetched to oldest: IF, EX1, EX2, EX3, MEM, WB. The ID
// stage's work happens on the IF slot the tick after it arrives — there
// is no separate array position for it — so every tick, in order, the
// engine retires WB, attempts a write-buffer drain, runs MEM/EX3/EX2/EX1
// on their slots, runs ID on slot IF, and then fetches (or stalls/
// flushes) a new head.
package pipeline

import (
	"fmt"
	"io"
	"strings"

	"sixstage/emu"
	"sixstage/insts"
	"sixstage/timing/cache"
)

// Pipeline is the six-stage engine (spec.md §2, §4.1).
type Pipeline struct {
	slots [NumSlots]*insts.Instruction
	fwd   Forwarding

	clock int64
	pc    int

	regs *emu.RegFile
	alu  *emu.ALU
	mem  *cache.MemorySystem

	out  io.Writer
	dump io.Writer // nil disables pipeline dumping

	stalls int64
}

// New builds a pipeline seeded with six nop bubbles and PC at -4, so
// that the first tick's advance brings it to zero (spec.md §3).
func New(mem *cache.MemorySystem, out io.Writer, dump io.Writer) *Pipeline {
	p := &Pipeline{
		regs: &emu.RegFile{},
		alu:  emu.NewALU(),
		mem:  mem,
		out:  out,
		dump: dump,
		pc:   -4, // tick 1's step-1 advance-by-4 brings this to 0 (spec.md §4.1).
	}
	for i := range p.slots {
		p.slots[i] = insts.NewNop("")
	}
	return p
}

// Clock returns the current tick count.
func (p *Pipeline) Clock() int64 { return p.clock }

// Regs exposes the architectural register file for inspection (e.g. by
// a driver reporting final register state).
func (p *Pipeline) Regs() *emu.RegFile { return p.regs }

// Stalls returns the number of ticks on which a Stall event fired.
func (p *Pipeline) Stalls() int64 { return p.stalls }

// Run steps the pipeline until termination, writing per-instruction
// output lines and, on completion, the cache-statistics trailer
// (spec.md §4.1, §6). It returns the number of ticks executed.
func (p *Pipeline) Run() (int64, error) {
	for {
		done, err := p.Tick()
		if err != nil {
			return p.clock, err
		}
		if done {
			p.writeStats()
			return p.clock, nil
		}
	}
}

// Tick advances the pipeline by exactly one clock tick (spec.md §4.1).
// It returns true once the simulation has reached termination.
func (p *Pipeline) Tick() (bool, error) {
	p.clock++

	if p.pc != terminalPC {
		p.pc += 4
	}

	retiring := p.slots[SlotWB]
	if _, err := p.stageWB(retiring); err != nil {
		return false, err
	}
	if p.dump != nil {
		p.dumpSnapshot()
	}
	p.emitRetire(retiring)

	p.mem.TryEmptyWriteBuffer()

	ev, err := p.runMiddleStages()
	if err != nil {
		return false, err
	}

	if retiring.Kind == insts.Stop && p.mem.WriteBufferEmpty() {
		return true, nil
	}

	return false, p.advance(ev)
}

// runMiddleStages invokes MEM, EX3, EX2, EX1, ID in that strict order
// (spec.md §4.1 step 4), stopping at the first Stall or Flush: the
// calls after it are skipped by virtue of control leaving the sequence.
func (p *Pipeline) runMiddleStages() (ctrlEvent, error) {
	type step struct {
		slot int
		fn   func(*insts.Instruction) (ctrlEvent, error)
	}
	steps := []step{
		{SlotMEM, p.stageMEM},
		{SlotEX3, p.stageEX3},
		{SlotEX2, p.stageEX2},
		{SlotEX1, p.stageEX1},
	}

	for _, s := range steps {
		ev, err := s.fn(p.slots[s.slot])
		if err != nil {
			return continueEvent, err
		}
		if ev.kind != ctrlContinue {
			return ev, nil
		}
	}

	prevPC := p.pc
	ev, err := p.stageID(p.slots[SlotIF])
	if err != nil {
		return continueEvent, err
	}
	if ev.kind == ctrlFlush {
		ev.flushAddr = prevPC
	}
	return ev, nil
}

const terminalPC = -1

// advance performs step 6 (determine the new IF occupant) and step 7
// (record its IF timestamp), then reassembles the six-slot array
// according to ev: a Stall freezes everything behind the stall position
// and inserts a bubble there; a Flush discards whatever step 6 would
// have fetched; otherwise a normal fetch-and-shift occurs (spec.md
// §4.1).
func (p *Pipeline) advance(ev ctrlEvent) error {
	switch ev.kind {
	case ctrlStall:
		if p.pc != terminalPC {
			p.pc -= 4
		}
		p.stalls++
		p.reassembleStall(ev.stage)
		return nil

	case ctrlFlush:
		p.reassembleFlush(ev.flushAddr)
		return nil

	default:
		newHead, stallPos, err := p.fetchNewHead()
		if err != nil {
			return err
		}
		if newHead == nil {
			// The fetch itself did not complete: treat exactly like any
			// other Stall, at the position the arbiter's outcome names.
			if p.pc != terminalPC {
				p.pc -= 4
			}
			p.stalls++
			p.reassembleStall(stallPos)
			return nil
		}
		newHead.Timestamps[insts.StageIF] = p.clock
		p.reassembleNormal(newHead)
		return nil
	}
}

// fetchNewHead implements tick step 6. A nil instruction means the
// I-cache fetch did not complete and the caller must stall at the
// returned position: IF for a StallIF outcome, MEM for a StallMEM one.
func (p *Pipeline) fetchNewHead() (*insts.Instruction, int, error) {
	if p.pc < 0 {
		return insts.NewStop(), 0, nil
	}

	word, outcome := p.mem.FetchI(p.pc)
	switch outcome {
	case cache.StallIF:
		return nil, StallPosIF, nil
	case cache.StallMEM:
		return nil, StallPosMEM, nil
	}

	inst := word.Instr
	if inst.Kind == insts.Hlt {
		p.pc = terminalPC
	}
	return inst, 0, nil
}

// reassembleStall freezes slots [0, stage-1], drops a bubble at stage,
// and shifts the tail [stage, NumSlots-2] down by one.
func (p *Pipeline) reassembleStall(stage int) {
	var next [NumSlots]*insts.Instruction
	for i := 0; i < stage; i++ {
		next[i] = p.slots[i]
	}
	next[stage] = insts.NewNop("")
	for i := stage + 1; i < NumSlots; i++ {
		next[i] = p.slots[i-1]
	}
	p.slots = next
}

// reassembleFlush discards the speculatively fetched instruction,
// replacing it with a bubble, while the rest of the pipeline shifts
// forward normally (spec.md §4.1). The branch/jump that raised Flush
// overwrote the PC before the normal step-6 fetch ever ran, so the
// wrong-path instruction at flushAddr was never actually fetched; the
// bubble carries its source text anyway (spec.md §4.2, §6), recording
// "the instruction that would have come next" without counting as a
// real cache access.
func (p *Pipeline) reassembleFlush(flushAddr int) {
	p.reassembleNormal(insts.NewNop(p.mem.PeekOriginal(flushAddr)))
}

// reassembleNormal is the ordinary full shift: newHead enters IF and
// every other occupant advances one slot toward WB.
func (p *Pipeline) reassembleNormal(newHead *insts.Instruction) {
	var next [NumSlots]*insts.Instruction
	next[0] = newHead
	for i := 1; i < NumSlots; i++ {
		next[i] = p.slots[i-1]
	}
	p.slots = next
}

// emitRetire writes the output line for a retiring instruction
// (spec.md §6). Branches and j get an abbreviated two-timestamp line;
// hlt and ordinary instructions get the full five; nop emits nothing
// unless it carries a flushed instruction's captured source text; stop
// emits nothing at all.
func (p *Pipeline) emitRetire(inst *insts.Instruction) {
	switch inst.Kind {
	case insts.Stop:
		return

	case insts.Nop:
		if inst.Original != "" {
			fmt.Fprintf(p.out, "%s\n", inst.Original)
		}
		return

	case insts.Beq, insts.Bne, insts.J:
		fmt.Fprintf(p.out, "%s %d %d\n", inst.Original,
			inst.Timestamps[insts.StageIF], inst.Timestamps[insts.StageID])
		return

	default:
		fmt.Fprintf(p.out, "%s %d %d %d %d %d\n", inst.Original,
			inst.Timestamps[insts.StageIF], inst.Timestamps[insts.StageID],
			inst.Timestamps[insts.StageEX], inst.Timestamps[insts.StageMEM],
			inst.Timestamps[insts.StageWB])
	}
}

// dumpSnapshot writes one pipeline-dump line: the six slot names,
// IF-to-WB, joined by "  =>  ", with NOP standing in for a bubble
// (spec.md §6).
func (p *Pipeline) dumpSnapshot() {
	names := make([]string, NumSlots)
	for i, occ := range p.slots {
		name := strings.TrimSpace(occ.Original)
		if name == "" {
			name = "NOP"
		}
		names[i] = name
	}
	fmt.Fprintf(p.dump, "%s\n", strings.Join(names, "  =>  "))
}

// writeStats appends the final cache-statistics trailer (spec.md §6).
func (p *Pipeline) writeStats() {
	fmt.Fprintf(p.out, "\nTotal number of access requests for instruction cache: %d\n", p.mem.IRequests)
	fmt.Fprintf(p.out, "Number of instruction cache hits: %d\n\n", p.mem.IHits)
	fmt.Fprintf(p.out, "Total number of access requests for data cache: %d\n", p.mem.DRequests)
	fmt.Fprintf(p.out, "Number of data cache hits: %d\n", p.mem.DHits)
}
