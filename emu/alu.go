// Package emu provides the register file for the six-stage pipeline
// simulator.
package emu

// ALU implements the arithmetic and logic operations the EX stages
// compute. It is stateless and operand-driven: unlike the register file,
// which stays with the architectural state, the ALU is called with
// already-forwarded operand values and returns a result — the pipeline
// decides when to publish that result into the forwarding buffers and
// when to commit it to the register file.
type ALU struct{}

// NewALU creates a new stateless ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Add computes op1 + op2.
func (a *ALU) Add(op1, op2 int32) int32 {
	return op1 + op2
}

// Sub computes op1 - op2.
func (a *ALU) Sub(op1, op2 int32) int32 {
	return op1 - op2
}

// And computes op1 & op2.
func (a *ALU) And(op1, op2 int32) int32 {
	return op1 & op2
}

// Or computes op1 | op2.
func (a *ALU) Or(op1, op2 int32) int32 {
	return op1 | op2
}

// Mult computes op1 * op2.
func (a *ALU) Mult(op1, op2 int32) int32 {
	return op1 * op2
}
