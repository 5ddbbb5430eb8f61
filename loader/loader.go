// Package loader is the assembler collaborator spec.md treats as external
// to the core: it tokenizes assembly source, enforces per-opcode syntax,
// resolves labels to instruction indices, and parses the data file into
// word integers, handing the pipeline engine a ready-to-run
// []*insts.Instruction (each carrying its source line, padded on the
// right to OriginalWidth, in its Original field), the parsed data words,
// and the symbol table (spec.md §6).
package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sixstage/insts"
)

// OriginalWidth is the column width source lines are padded to before
// being carried into the output file (spec.md §6).
const OriginalWidth = 35

// MaxProgramWords is the largest instruction count the assembler accepts
// (spec.md §6).
const MaxProgramWords = 256

// Program is everything the pipeline engine needs to run: the decoded
// instructions, the parsed data words, and the label table, mirroring
// the assembler-collaborator interface of spec.md §6.
type Program struct {
	Instructions []*insts.Instruction
	Data         []int32
	Symbols      map[string]int
}

// Load reads instPath and dataPath and assembles a Program. Every error
// returned here is the "assembler syntax/label error" class of spec.md
// §7: fatal before the engine starts.
func Load(instPath, dataPath string) (*Program, error) {
	instText, err := os.ReadFile(instPath)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", instPath, err)
	}
	dataText, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", dataPath, err)
	}

	data, err := parseData(string(dataText))
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", dataPath, err)
	}

	prog, err := assemble(string(instText))
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", instPath, err)
	}
	prog.Data = data
	return prog, nil
}

// line is one non-blank source line paired with the label (if any) that
// prefixed it; its position in splitLines' result is its 0-based
// instruction index.
type line struct {
	label string
	text  string // the instruction portion, label prefix stripped
	raw   string // the full original line, unpadded
}

// assemble runs the two-pass resolve-then-decode over src.
func assemble(src string) (*Program, error) {
	lines, err := splitLines(src)
	if err != nil {
		return nil, err
	}
	if len(lines) > MaxProgramWords {
		return nil, fmt.Errorf("program has %d instructions, exceeds the %d-word limit", len(lines), MaxProgramWords)
	}

	symbols := make(map[string]int, len(lines))
	for i, l := range lines {
		if l.label != "" {
			if _, dup := symbols[l.label]; dup {
				return nil, fmt.Errorf("line %d: label %q redefined", i+1, l.label)
			}
			symbols[l.label] = i
		}
	}

	program := make([]*insts.Instruction, 0, len(lines))
	sawHlt := false
	for i, l := range lines {
		inst, err := decode(l.text, symbols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		inst.Original = padOriginal(l.raw)
		if inst.Kind == insts.Hlt {
			sawHlt = true
		}
		program = append(program, inst)
	}
	if !sawHlt {
		return nil, fmt.Errorf("program never executes hlt")
	}

	return &Program{Instructions: program, Symbols: symbols}, nil
}

// splitLines strips blank lines and comments (a `#` to end of line) and
// separates an optional `label:` prefix from the instruction text.
func splitLines(src string) ([]line, error) {
	var out []line
	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		text := raw
		if idx := strings.IndexByte(text, '#'); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		label := ""
		if idx := strings.IndexByte(text, ':'); idx >= 0 {
			label = strings.TrimSpace(text[:idx])
			if label == "" {
				return nil, fmt.Errorf("line %d: empty label", lineNo)
			}
			text = strings.TrimSpace(text[idx+1:])
		}

		out = append(out, line{label: label, text: text, raw: strings.TrimSpace(raw)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// padOriginal pads s on the right with spaces to OriginalWidth, the
// fixed column the output file's per-instruction lines are built from
// (spec.md §6). A source line already at or past the width is left
// untouched.
func padOriginal(s string) string {
	if len(s) >= OriginalWidth {
		return s
	}
	return s + strings.Repeat(" ", OriginalWidth-len(s))
}

// tokenize splits an instruction's operand text on whitespace, commas
// and the parens of the `imm(reg)` memory-operand form.
func tokenize(text string) []string {
	replacer := strings.NewReplacer(",", " ", "(", " ", ")", " ")
	return strings.Fields(replacer.Replace(text))
}

// decode parses one instruction's tokens per spec.md §3's opcode
// kinds, resolving branch/jump labels against symbols.
func decode(text string, symbols map[string]int) (*insts.Instruction, error) {
	if text == "" {
		return nil, fmt.Errorf("empty instruction")
	}
	toks := tokenize(text)
	op := strings.ToLower(toks[0])
	args := toks[1:]

	switch op {
	case "add", "sub", "and", "or", "mult":
		rd, rs, rt, err := threeRegs(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return insts.New(rTypeKind(op), rs, rt, rd, 0, 0, "")

	case "addi", "subi", "andi", "ori", "multi":
		rt, rs, imm, err := twoRegsImm(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return insts.New(iTypeKind(op), rs, rt, 0, imm, 0, "")

	case "lw", "sw":
		rs, imm, rt, err := memOperand(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		kind := insts.Lw
		if op == "sw" {
			kind = insts.Sw
		}
		return insts.New(kind, rs, rt, 0, imm, 0, "")

	case "li":
		if len(args) != 2 {
			return nil, fmt.Errorf("li: expected 2 operands, got %d", len(args))
		}
		rt, err := parseReg(args[0])
		if err != nil {
			return nil, fmt.Errorf("li: %w", err)
		}
		imm, err := parseImm(args[1])
		if err != nil {
			return nil, fmt.Errorf("li: %w", err)
		}
		return insts.New(insts.Li, 0, rt, 0, imm, 0, "")

	case "beq", "bne":
		if len(args) != 3 {
			return nil, fmt.Errorf("%s: expected 3 operands, got %d", op, len(args))
		}
		rs, err := parseReg(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rt, err := parseReg(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		target, err := resolveLabel(args[2], symbols)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		kind := insts.Beq
		if op == "bne" {
			kind = insts.Bne
		}
		return insts.New(kind, rs, rt, 0, int32(target), target, "")

	case "j":
		if len(args) != 1 {
			return nil, fmt.Errorf("j: expected 1 operand, got %d", len(args))
		}
		target, err := resolveLabel(args[0], symbols)
		if err != nil {
			return nil, fmt.Errorf("j: %w", err)
		}
		return insts.New(insts.J, 0, 0, 0, 0, target, "")

	case "hlt":
		return insts.New(insts.Hlt, 0, 0, 0, 0, 0, "")

	case "nop":
		return insts.New(insts.Nop, 0, 0, 0, 0, 0, "")

	default:
		return nil, fmt.Errorf("unrecognized opcode %q", op)
	}
}

func rTypeKind(op string) insts.Kind {
	switch op {
	case "add":
		return insts.Add
	case "sub":
		return insts.Sub
	case "and":
		return insts.And
	case "or":
		return insts.Or
	default:
		return insts.Mult
	}
}

func iTypeKind(op string) insts.Kind {
	switch op {
	case "addi":
		return insts.AddI
	case "subi":
		return insts.SubI
	case "andi":
		return insts.AndI
	case "ori":
		return insts.OrI
	default:
		return insts.MultI
	}
}

// threeRegs parses an R-type's `rd, rs, rt` operand list.
func threeRegs(args []string) (rd, rs, rt int, err error) {
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 operands, got %d", len(args))
	}
	if rd, err = parseReg(args[0]); err != nil {
		return 0, 0, 0, err
	}
	if rs, err = parseReg(args[1]); err != nil {
		return 0, 0, 0, err
	}
	if rt, err = parseReg(args[2]); err != nil {
		return 0, 0, 0, err
	}
	return rd, rs, rt, nil
}

// twoRegsImm parses an I-type arithmetic's `rt, rs, imm` operand list.
func twoRegsImm(args []string) (rt, rs int, imm int32, err error) {
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 operands, got %d", len(args))
	}
	if rt, err = parseReg(args[0]); err != nil {
		return 0, 0, 0, err
	}
	if rs, err = parseReg(args[1]); err != nil {
		return 0, 0, 0, err
	}
	if imm, err = parseImm(args[2]); err != nil {
		return 0, 0, 0, err
	}
	return rt, rs, imm, nil
}

// memOperand parses `rs, imm(rt)` — written as three tokens once the
// parens are stripped by tokenize.
func memOperand(args []string) (rs int, imm int32, rt int, err error) {
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("expected `reg, imm(reg)`, got %d operands", len(args))
	}
	if rs, err = parseReg(args[0]); err != nil {
		return 0, 0, 0, err
	}
	if imm, err = parseImm(args[1]); err != nil {
		return 0, 0, 0, err
	}
	if rt, err = parseReg(args[2]); err != nil {
		return 0, 0, 0, err
	}
	return rs, imm, rt, nil
}

// parseReg parses a register token of the form `rN`, 0 <= N <= 31.
func parseReg(tok string) (int, error) {
	if len(tok) < 2 || (tok[0] != 'r' && tok[0] != 'R') {
		return 0, fmt.Errorf("malformed register operand %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, fmt.Errorf("malformed register operand %q", tok)
	}
	if n < 0 || n >= 32 {
		return 0, fmt.Errorf("register operand %q out of range [0,31]", tok)
	}
	return n, nil
}

// parseImm parses a decimal immediate, signed 32-bit.
func parseImm(tok string) (int32, error) {
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed immediate %q", tok)
	}
	return int32(n), nil
}

// resolveLabel looks up name in symbols.
func resolveLabel(name string, symbols map[string]int) (int, error) {
	idx, ok := symbols[name]
	if !ok {
		return 0, fmt.Errorf("undefined label %q", name)
	}
	return idx, nil
}

// parseData parses whitespace-separated signed decimal integers, one per
// RAM word, placed starting at the data base address (spec.md §3, §6).
func parseData(src string) ([]int32, error) {
	fields := strings.Fields(src)
	out := make([]int32, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed data word %q: %w", f, err)
		}
		out = append(out, int32(n))
	}
	return out, nil
}
