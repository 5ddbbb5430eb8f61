// Package pipeline provides the six-stage pipeline engine: the tick
// loop, the per-kind stage behaviors, hazard detection, forwarding, and
// stall/flush handling (spec.md §4.1-§4.4).
package pipeline

import "sixstage/insts"

// Pipeline slot positions, most recently fetched to oldest (spec.md §3).
const (
	SlotIF = iota
	SlotEX1
	SlotEX2
	SlotEX3
	SlotMEM
	SlotWB
)

// NumSlots is the pipeline's fixed occupancy.
const NumSlots = 6

// producerInfo reports the destination register an instruction will
// eventually publish, if any (Design Note, spec.md §9: replaces
// instance-of tests with a single match on Kind).
func producerInfo(i *insts.Instruction) (destReg int, ok bool) {
	switch i.Kind {
	case insts.Add, insts.Sub, insts.And, insts.Or, insts.Mult:
		return i.Rd, true
	case insts.AddI, insts.SubI, insts.AndI, insts.OrI, insts.MultI:
		return i.Rt, true
	case insts.Li:
		return i.Rt, true
	case insts.Lw:
		// lw's destination is rs, not rt; see spec.md §9.
		return i.Rs, true
	default:
		return 0, false
	}
}

// matchesAny reports whether destReg equals one of the queried regs.
func matchesAny(destReg int, regs []int) bool {
	for _, r := range regs {
		if destReg == r {
			return true
		}
	}
	return false
}

// loadWordHazard scans EX1, EX2, EX3 — plus MEM when extended is set,
// the augmented check branches use — for an in-flight lw whose
// destination is one of regs (spec.md §4.3).
func (p *Pipeline) loadWordHazard(extended bool, regs ...int) bool {
	slots := []int{SlotEX1, SlotEX2, SlotEX3}
	if extended {
		slots = append(slots, SlotMEM)
	}
	for _, s := range slots {
		occ := p.slots[s]
		if occ == nil || occ.Kind != insts.Lw {
			continue
		}
		if dest, ok := producerInfo(occ); ok && matchesAny(dest, regs) {
			return true
		}
	}
	return false
}

// multiplyHazard scans EX1 — plus EX2 when extended — for an in-flight
// mult/multi writing to one of regs (spec.md §4.3).
func (p *Pipeline) multiplyHazard(extended bool, regs ...int) bool {
	slots := []int{SlotEX1}
	if extended {
		slots = append(slots, SlotEX2)
	}
	for _, s := range slots {
		occ := p.slots[s]
		if occ == nil || (occ.Kind != insts.Mult && occ.Kind != insts.MultI) {
			continue
		}
		if dest, ok := producerInfo(occ); ok && matchesAny(dest, regs) {
			return true
		}
	}
	return false
}

// addSubHazard scans EX1 — plus EX2 when extended — for an in-flight
// add/sub/addi/subi writing to one of regs (spec.md §4.3).
func (p *Pipeline) addSubHazard(extended bool, regs ...int) bool {
	slots := []int{SlotEX1}
	if extended {
		slots = append(slots, SlotEX2)
	}
	isAddSub := func(k insts.Kind) bool {
		switch k {
		case insts.Add, insts.Sub, insts.AddI, insts.SubI:
			return true
		default:
			return false
		}
	}
	for _, s := range slots {
		occ := p.slots[s]
		if occ == nil || !isAddSub(occ.Kind) {
			continue
		}
		if dest, ok := producerInfo(occ); ok && matchesAny(dest, regs) {
			return true
		}
	}
	return false
}

// anyHazard runs all three predicates with the given extension, for
// instructions whose ID stage needs to check every hazard kind on the
// same register set (lw/sw, and the common register-reading pattern).
func (p *Pipeline) anyHazard(extended bool, regs ...int) bool {
	return p.loadWordHazard(extended, regs...) ||
		p.multiplyHazard(extended, regs...) ||
		p.addSubHazard(extended, regs...)
}
