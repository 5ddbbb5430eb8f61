package pipeline

import (
	"sixstage/emu"
	"sixstage/insts"
)

// Test-only exports: the black-box suite in pipeline_test needs to poke
// at unexported slot/forwarding state to exercise hazard detection and
// the tick loop without going through a real memory subsystem.

// NewTestPipeline builds a Pipeline with nop-filled slots and a fresh
// register file, bypassing New's cache-backed memory requirement.
func NewTestPipeline() *Pipeline {
	p := &Pipeline{regs: &emu.RegFile{}, alu: emu.NewALU()}
	for i := range p.slots {
		p.slots[i] = insts.NewNop("")
	}
	return p
}

// SetSlot overwrites slot index i with inst.
func SetSlot(p *Pipeline, i int, inst *insts.Instruction) {
	p.slots[i] = inst
}

// HasHazard runs every hazard predicate against regs, mirroring anyHazard.
func HasHazard(p *Pipeline, extended bool, regs ...int) bool {
	return p.anyHazard(extended, regs...)
}

// ForwardID exposes the ID-row forwarding lookup.
func ForwardID(p *Pipeline, reg int) (int32, bool) {
	return p.fwd.forwardID(reg)
}

// WriteReg and ReadReg expose the architectural register file.
func WriteReg(p *Pipeline, reg int, v int32) { p.regs.Write(reg, v) }
func ReadReg(p *Pipeline, reg int) int32     { return p.regs.Read(reg) }

// PC exposes the program counter.
func PC(p *Pipeline) int { return p.pc }

// EffAddr exposes the lw/sw effective-address scratch field.
func EffAddr(inst *insts.Instruction) int { return inst.EffAddr }

// Event is the test-visible form of ctrlEvent.
type Event struct{ ev ctrlEvent }

func (e Event) IsContinue() bool         { return e.ev.kind == ctrlContinue }
func (e Event) IsFlush() bool            { return e.ev.kind == ctrlFlush }
func (e Event) IsStallAt(stage int) bool { return e.ev.kind == ctrlStall && e.ev.stage == stage }
func (e Event) IsStall() bool            { return e.ev.kind == ctrlStall }

// StageID, StageEX1, StageEX2, StageEX3, StageMEM, StageWB expose the
// per-kind stage dispatch methods for direct testing.
func StageID(p *Pipeline, inst *insts.Instruction) (Event, error) {
	ev, err := p.stageID(inst)
	return Event{ev}, err
}
func StageEX1(p *Pipeline, inst *insts.Instruction) (Event, error) {
	ev, err := p.stageEX1(inst)
	return Event{ev}, err
}
func StageEX2(p *Pipeline, inst *insts.Instruction) (Event, error) {
	ev, err := p.stageEX2(inst)
	return Event{ev}, err
}
func StageEX3(p *Pipeline, inst *insts.Instruction) (Event, error) {
	ev, err := p.stageEX3(inst)
	return Event{ev}, err
}
func StageMEM(p *Pipeline, inst *insts.Instruction) (Event, error) {
	ev, err := p.stageMEM(inst)
	return Event{ev}, err
}
func StageWB(p *Pipeline, inst *insts.Instruction) (Event, error) {
	ev, err := p.stageWB(inst)
	return Event{ev}, err
}
