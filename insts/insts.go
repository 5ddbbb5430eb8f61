// Package insts provides the closed set of opcode kinds for the
// six-stage pipeline simulator and the Instruction record that carries
// both the immutable decode of one and the mutable per-execution scratch
// a pipeline slot accumulates as it moves through the stages.
//
// The source this simulator is modeled on used a deep class hierarchy
// (an abstract instruction base, R-type/I-type/Mem-access/Branch
// subclasses). Here that collapses into a single tagged Kind plus a flat
// struct; the stage behavior that used to live in virtual methods is
// dispatched by the pipeline package, matching on Kind.
package insts

import "fmt"

// Kind is the closed set of opcodes the pipeline understands.
type Kind uint8

const (
	Add Kind = iota
	Sub
	And
	Or
	Mult
	AddI
	SubI
	AndI
	OrI
	MultI
	Lw
	Sw
	Li
	Beq
	Bne
	J
	Hlt
	Nop
	Stop
)

// String renders the kind the way assembly mnemonics are written.
func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case And:
		return "and"
	case Or:
		return "or"
	case Mult:
		return "mult"
	case AddI:
		return "addi"
	case SubI:
		return "subi"
	case AndI:
		return "andi"
	case OrI:
		return "ori"
	case MultI:
		return "multi"
	case Lw:
		return "lw"
	case Sw:
		return "sw"
	case Li:
		return "li"
	case Beq:
		return "beq"
	case Bne:
		return "bne"
	case J:
		return "j"
	case Hlt:
		return "hlt"
	case Nop:
		return "nop"
	case Stop:
		return "stop"
	default:
		return "???"
	}
}

// IsITypeArithmetic reports whether k is one of the immediate
// arithmetic/logic opcodes, whose immediate must fit a signed 16-bit
// range at construction time.
func (k Kind) IsITypeArithmetic() bool {
	switch k {
	case AddI, SubI, AndI, OrI, MultI:
		return true
	default:
		return false
	}
}

// IsBranch reports whether k is beq or bne.
func (k Kind) IsBranch() bool {
	return k == Beq || k == Bne
}

// Stage indices into Instruction.Timestamps, per spec.md §3.
const (
	StageIF = iota
	StageID
	StageEX
	StageMEM
	StageWB
)

// Minimum and maximum signed 16-bit immediate, per spec.md §3.
const (
	MinImm16 = -32768
	MaxImm16 = 32767
)

// Instruction is the pipeline's record of one program location: an
// immutable descriptor (decoded once by the loader) plus the mutable
// scratch a single execution accumulates while it occupies a pipeline
// slot. Two in-flight copies of the same program location are always
// independent records — see CopyOf.
type Instruction struct {
	Kind Kind

	// Register operands. Meaning depends on Kind:
	//   R-type:        Rs, Rt, Rd    (arithmetic result -> Rd)
	//   I-type arith:  Rs, Rt        (result -> Rt)
	//   lw/sw:         Rs, Rt        (effective address = reg[Rt]+Imm;
	//                                 lw's loaded value -> Rs, see §9)
	//   li:            Rt            (immediate -> Rt)
	//   beq/bne:       Rs, Rt
	Rs, Rt, Rd int

	// Imm is the sign-extended immediate operand (I-type arith/mem, li,
	// and — per spec.md §4.2 — the resolved branch target instruction
	// index for beq/bne).
	Imm int32

	// Target is the resolved instruction index for j, already looked up
	// from the symbol table by the loader. Unused by every other kind.
	Target int

	// Original is the raw source text, padded with trailing spaces to a
	// fixed width by the loader, emitted verbatim in the output file
	// (spec.md §6).
	Original string

	// --- mutable per-execution scratch ---

	// Op1, Op2 are the operand snapshots taken at ID and possibly
	// refreshed by forwarding in ID/EX1.
	Op1, Op2 int32

	// Result is the computed arithmetic/loaded value, published into the
	// forwarding buffers and committed at WB.
	Result int32

	// EffAddr is the lw/sw effective address computed at EX1
	// (reg[rt]+imm), consumed at MEM. Unused by every other kind.
	EffAddr int

	// Timestamps[stage] is the clock tick at which this instruction
	// exited that stage; see the Stage* constants.
	Timestamps [5]int64
}

// New constructs an Instruction, validating the immediate range for
// I-type arithmetic opcodes (spec.md §3, §7). Construction of any other
// kind never fails.
func New(kind Kind, rs, rt, rd int, imm int32, target int, original string) (*Instruction, error) {
	if kind.IsITypeArithmetic() && (imm < MinImm16 || imm > MaxImm16) {
		return nil, fmt.Errorf("insts: immediate %d out of signed 16-bit range [%d,%d] for %s",
			imm, MinImm16, MaxImm16, kind)
	}

	return &Instruction{
		Kind:     kind,
		Rs:       rs,
		Rt:       rt,
		Rd:       rd,
		Imm:      imm,
		Target:   target,
		Original: original,
	}, nil
}

// NewNop returns a fresh bubble. name, when non-empty, is the original
// source text of the instruction this bubble displaced — a flushed
// speculative fetch still emits that text on retirement (spec.md §4.2).
func NewNop(name string) *Instruction {
	return &Instruction{Kind: Nop, Original: name}
}

// NewStop returns the synthetic terminator enqueued once the program
// counter latches to the terminal sentinel.
func NewStop() *Instruction {
	return &Instruction{Kind: Stop}
}

// CopyOf yields an independent execution record for the same program
// location: same immutable descriptor, empty scratch. The memory
// subsystem calls this on every instruction-cache fetch so that two
// in-flight occupants of the same address never share mutable state.
func (i *Instruction) CopyOf() *Instruction {
	return &Instruction{
		Kind:     i.Kind,
		Rs:       i.Rs,
		Rt:       i.Rt,
		Rd:       i.Rd,
		Imm:      i.Imm,
		Target:   i.Target,
		Original: i.Original,
	}
}

// IsRType reports whether k is one of add/sub/and/or (mult excluded: it
// publishes forwarding rows on a different schedule, see spec.md §4.2).
func (k Kind) IsRType() bool {
	switch k {
	case Add, Sub, And, Or:
		return true
	default:
		return false
	}
}

// IsITypeArithNonMult reports whether k is one of addi/subi/andi/ori.
func (k Kind) IsITypeArithNonMult() bool {
	switch k {
	case AddI, SubI, AndI, OrI:
		return true
	default:
		return false
	}
}

// WordKind distinguishes a raw data word from an instruction-typed word
// in main memory. Whether a slot is read as one or the other is
// determined by the access path, not by the word itself (spec.md §3).
type WordKind uint8

const (
	WordData WordKind = iota
	WordInstr
)

// Word is the tagged value stored in every main-memory slot.
type Word struct {
	Kind  WordKind
	Data  int32
	Instr *Instruction
}

// DataWord wraps a plain data value.
func DataWord(v int32) Word {
	return Word{Kind: WordData, Data: v}
}

// InstrWord wraps an instruction record.
func InstrWord(inst *Instruction) Word {
	return Word{Kind: WordInstr, Instr: inst}
}
