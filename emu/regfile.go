// Package emu provides the register file for the six-stage pipeline
// simulator.
package emu

// NumRegs is the register file width (spec.md §3).
const NumRegs = 32

// RegFile is the architectural register file: 32 signed 32-bit cells.
//
// Register 0 is deliberately NOT hardwired to zero here. The ISA this
// simulator is modeled on differs from the inspiration that convention
// usually comes from: writers may target any of the 32 registers,
// including 0, and a read of register 0 returns whatever was last
// written to it (spec.md §3, §9). Callers that need the zero-register
// convention of a different ISA must not assume this file.
type RegFile struct {
	R [NumRegs]int32
}

// Read returns the current value of reg.
func (rf *RegFile) Read(reg int) int32 {
	return rf.R[reg]
}

// Write commits value into reg.
func (rf *RegFile) Write(reg int, value int32) {
	rf.R[reg] = value
}
