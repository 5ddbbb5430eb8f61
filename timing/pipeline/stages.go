package pipeline

import (
	"fmt"

	"sixstage/insts"
	"sixstage/timing/cache"
)

// AlignmentError is raised when an lw/sw effective address is not
// word-aligned (spec.md §7: fatal during EX1).
type AlignmentError struct {
	Addr int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("pipeline: unaligned effective address %#x", e.Addr)
}

func alu2(p *Pipeline, kind insts.Kind, op1, op2 int32) int32 {
	switch kind {
	case insts.Add, insts.AddI:
		return p.alu.Add(op1, op2)
	case insts.Sub, insts.SubI:
		return p.alu.Sub(op1, op2)
	case insts.And, insts.AndI:
		return p.alu.And(op1, op2)
	case insts.Or, insts.OrI:
		return p.alu.Or(op1, op2)
	case insts.Mult, insts.MultI:
		return p.alu.Mult(op1, op2)
	default:
		return 0
	}
}

// stageID dispatches the ID-stage behavior for inst (spec.md §4.2).
func (p *Pipeline) stageID(inst *insts.Instruction) (ctrlEvent, error) {
	switch {
	case inst.Kind.IsRType() || inst.Kind == insts.Mult:
		return p.idRegisterRegister(inst), nil
	case inst.Kind.IsITypeArithmetic():
		return p.idRegisterImmediate(inst), nil
	case inst.Kind == insts.Li:
		inst.Timestamps[insts.StageID] = p.clock
		return continueEvent, nil
	case inst.Kind == insts.Lw || inst.Kind == insts.Sw:
		return p.idMemAccess(inst), nil
	case inst.Kind == insts.Beq || inst.Kind == insts.Bne:
		return p.idBranch(inst), nil
	case inst.Kind == insts.J:
		p.pc = inst.Target*4 - 4
		inst.Timestamps[insts.StageID] = p.clock
		return flushEvent, nil
	default:
		inst.Timestamps[insts.StageID] = p.clock
		return continueEvent, nil
	}
}

// idRegisterRegister is the common ID pattern for R-type instructions
// (add/sub/and/or/mult): snapshot, forward, hazard-check, stamp.
func (p *Pipeline) idRegisterRegister(inst *insts.Instruction) ctrlEvent {
	inst.Op1 = p.regs.Read(inst.Rs)
	inst.Op2 = p.regs.Read(inst.Rt)
	applyIfMatch(p.fwd.forwardID, inst.Rs, &inst.Op1)
	applyIfMatch(p.fwd.forwardID, inst.Rt, &inst.Op2)

	if p.anyHazard(false, inst.Rs, inst.Rt) {
		return stallAt(StallPosID)
	}

	inst.Timestamps[insts.StageID] = p.clock
	return continueEvent
}

// idRegisterImmediate is the common ID pattern for I-type arithmetic
// instructions (addi/subi/andi/ori/multi).
func (p *Pipeline) idRegisterImmediate(inst *insts.Instruction) ctrlEvent {
	inst.Op1 = p.regs.Read(inst.Rs)
	inst.Op2 = inst.Imm
	applyIfMatch(p.fwd.forwardID, inst.Rs, &inst.Op1)

	if p.anyHazard(false, inst.Rs) {
		return stallAt(StallPosID)
	}

	inst.Timestamps[insts.StageID] = p.clock
	return continueEvent
}

// idMemAccess is the ID stage for lw/sw (spec.md §4.2): snapshots
// reg[rs] and reg[rt], forwards, and stalls on a hazard against rt
// only.
func (p *Pipeline) idMemAccess(inst *insts.Instruction) ctrlEvent {
	inst.Op1 = p.regs.Read(inst.Rs)
	inst.Op2 = p.regs.Read(inst.Rt)
	applyIfMatch(p.fwd.forwardID, inst.Rs, &inst.Op1)
	applyIfMatch(p.fwd.forwardID, inst.Rt, &inst.Op2)

	if p.anyHazard(false, inst.Rt) {
		return stallAt(StallPosID)
	}

	inst.Timestamps[insts.StageID] = p.clock
	return continueEvent
}

// idBranch is the ID stage for beq/bne: an augmented hazard check that
// also scans EX2, since the branch decision happens at ID — one cycle
// earlier than where R-type results normally become available
// (spec.md §4.2).
func (p *Pipeline) idBranch(inst *insts.Instruction) ctrlEvent {
	inst.Op1 = p.regs.Read(inst.Rs)
	inst.Op2 = p.regs.Read(inst.Rt)
	applyIfMatch(p.fwd.forwardID, inst.Rs, &inst.Op1)
	applyIfMatch(p.fwd.forwardID, inst.Rt, &inst.Op2)

	if p.anyHazard(true, inst.Rs, inst.Rt) {
		return stallAt(StallPosID)
	}

	inst.Timestamps[insts.StageID] = p.clock

	taken := (inst.Kind == insts.Beq && inst.Op1 == inst.Op2) ||
		(inst.Kind == insts.Bne && inst.Op1 != inst.Op2)
	if taken {
		p.pc = int(inst.Imm)*4 - 4
		return flushEvent
	}
	return continueEvent
}

// stageEX1 dispatches EX1 (spec.md §4.2).
func (p *Pipeline) stageEX1(inst *insts.Instruction) (ctrlEvent, error) {
	switch {
	case inst.Kind.IsRType() || inst.Kind == insts.Mult:
		applyIfMatch(p.fwd.forwardEX1, inst.Rs, &inst.Op1)
		applyIfMatch(p.fwd.forwardEX1, inst.Rt, &inst.Op2)
		inst.Result = alu2(p, inst.Kind, inst.Op1, inst.Op2)

	case inst.Kind.IsITypeArithmetic():
		applyIfMatch(p.fwd.forwardEX1, inst.Rs, &inst.Op1)
		inst.Result = alu2(p, inst.Kind, inst.Op1, inst.Op2)

	case inst.Kind == insts.Li:
		p.fwd.fillID(0, inst.Rt, inst.Imm)

	case inst.Kind == insts.Lw || inst.Kind == insts.Sw:
		applyIfMatch(p.fwd.forwardEX1, inst.Rt, &inst.Op2)
		addr := int(inst.Op2 + inst.Imm)
		if addr%4 != 0 {
			return continueEvent, &AlignmentError{Addr: addr}
		}
		inst.EffAddr = addr

	case inst.Kind == insts.Nop:
		p.fwd.clearID(0)
	}
	return continueEvent, nil
}

// stageEX2 dispatches EX2 (spec.md §4.2).
func (p *Pipeline) stageEX2(inst *insts.Instruction) (ctrlEvent, error) {
	switch {
	case inst.Kind.IsRType():
		p.fwd.fillID(1, inst.Rd, inst.Result)
		p.fwd.fillEX(0, inst.Rd, inst.Result)

	case inst.Kind.IsITypeArithNonMult():
		p.fwd.fillID(1, inst.Rt, inst.Result)
		p.fwd.fillEX(0, inst.Rt, inst.Result)

	case inst.Kind == insts.Li:
		p.fwd.fillID(1, inst.Rt, inst.Imm)
		p.fwd.fillEX(0, inst.Rt, inst.Imm)

	case inst.Kind == insts.Nop:
		p.fwd.clearID(1)
		p.fwd.clearEX(0)

		// mult/multi deliberately have no EX2 publication (spec.md §4.2):
		// their result is not available a cycle earlier like the other
		// arithmetic ops.
	}
	return continueEvent, nil
}

// stageEX3 dispatches EX3 (spec.md §4.2).
func (p *Pipeline) stageEX3(inst *insts.Instruction) (ctrlEvent, error) {
	switch {
	case inst.Kind.IsRType() || inst.Kind == insts.Mult:
		p.fwd.fillID(2, inst.Rd, inst.Result)
		p.fwd.fillEX(1, inst.Rd, inst.Result)
		inst.Timestamps[insts.StageEX] = p.clock

	case inst.Kind.IsITypeArithmetic():
		p.fwd.fillID(2, inst.Rt, inst.Result)
		p.fwd.fillEX(1, inst.Rt, inst.Result)
		inst.Timestamps[insts.StageEX] = p.clock

	case inst.Kind == insts.Li:
		p.fwd.fillID(2, inst.Rt, inst.Imm)
		p.fwd.fillEX(1, inst.Rt, inst.Imm)
		inst.Timestamps[insts.StageEX] = p.clock

	case inst.Kind == insts.Nop:
		p.fwd.clearID(2)
		p.fwd.clearEX(1)

	default:
		inst.Timestamps[insts.StageEX] = p.clock
	}
	return continueEvent, nil
}

// stageMEM dispatches MEM (spec.md §4.2, §4.6).
func (p *Pipeline) stageMEM(inst *insts.Instruction) (ctrlEvent, error) {
	switch {
	case inst.Kind.IsRType() || inst.Kind == insts.Mult:
		p.fwd.fillID(3, inst.Rd, inst.Result)
		p.fwd.fillEX(2, inst.Rd, inst.Result)
		p.fwd.fillDA(0, inst.Rd, inst.Result)
		inst.Timestamps[insts.StageMEM] = p.clock

	case inst.Kind.IsITypeArithmetic():
		p.fwd.fillID(3, inst.Rt, inst.Result)
		p.fwd.fillEX(2, inst.Rt, inst.Result)
		p.fwd.fillDA(0, inst.Rt, inst.Result)
		inst.Timestamps[insts.StageMEM] = p.clock

	case inst.Kind == insts.Li:
		p.fwd.fillID(3, inst.Rt, inst.Imm)
		p.fwd.fillEX(2, inst.Rt, inst.Imm)
		p.fwd.fillDA(0, inst.Rt, inst.Imm)
		inst.Timestamps[insts.StageMEM] = p.clock

	case inst.Kind == insts.Lw:
		applyIfMatch(p.fwd.forwardMEM, inst.Rs, &inst.Op1)
		word, outcome := p.mem.FetchData(inst.EffAddr)
		if outcome != cache.Ready {
			return stallAt(StallPosMEM), nil
		}
		inst.Result = word.Data
		p.fwd.fillID(3, inst.Rs, inst.Result)
		p.fwd.fillEX(2, inst.Rs, inst.Result)
		p.fwd.fillDA(0, inst.Rs, inst.Result)
		inst.Timestamps[insts.StageMEM] = p.clock

	case inst.Kind == insts.Sw:
		applyIfMatch(p.fwd.forwardMEM, inst.Rs, &inst.Op1)
		outcome := p.mem.WriteWord(insts.DataWord(inst.Op1), inst.EffAddr)
		if outcome != cache.Ready {
			return stallAt(StallPosMEM), nil
		}
		inst.Timestamps[insts.StageMEM] = p.clock

	case inst.Kind == insts.Nop:
		p.fwd.clearID(3)
		p.fwd.clearEX(2)
		p.fwd.clearDA(0)

	default:
		inst.Timestamps[insts.StageMEM] = p.clock
	}
	return continueEvent, nil
}

// stageWB dispatches WB (spec.md §4.2).
func (p *Pipeline) stageWB(inst *insts.Instruction) (ctrlEvent, error) {
	switch {
	case inst.Kind.IsRType() || inst.Kind == insts.Mult:
		p.regs.Write(inst.Rd, inst.Result)

	case inst.Kind.IsITypeArithmetic():
		p.regs.Write(inst.Rt, inst.Result)

	case inst.Kind == insts.Li:
		p.regs.Write(inst.Rt, inst.Imm)

	case inst.Kind == insts.Lw:
		p.regs.Write(inst.Rs, inst.Result)
	}
	inst.Timestamps[insts.StageWB] = p.clock
	return continueEvent, nil
}
