package pipeline

// Row is one forwarding-buffer entry (spec.md §3, §4.4).
type Row struct {
	DestReg int
	Value   int32
	Valid   bool
}

// Forwarding holds the three fixed-shape tables that carry recently
// produced register values between pipeline slots (spec.md §3):
//
//	idFwd[4] feeds ID: row 0=EX1, 1=EX2, 2=EX3, 3=MEM.
//	exFwd[3] feeds EX1: row 0=EX2, 1=EX3, 2=MEM.
//	daFwd[1] feeds MEM: row 0=MEM (the instruction one ahead in MEM).
type Forwarding struct {
	idFwd [4]Row
	exFwd [3]Row
	daFwd [1]Row
}

// fillRow publishes a producer's result into a table slot.
func fillRow(table []Row, index, destReg int, value int32) {
	table[index] = Row{DestReg: destReg, Value: value, Valid: true}
}

// clearRow is what a nop calls as it advances through a position a real
// producer would have published from.
func clearRow(table []Row, index int) {
	table[index] = Row{}
}

// forward scans table for the first valid row matching reg and reports
// its value (spec.md §4.4). The zero value and false mean "no match";
// the caller must leave its snapshot untouched in that case.
func forward(table []Row, reg int) (int32, bool) {
	for _, row := range table {
		if row.Valid && row.DestReg == reg {
			return row.Value, true
		}
	}
	return 0, false
}

func (f *Forwarding) forwardID(reg int) (int32, bool)  { return forward(f.idFwd[:], reg) }
func (f *Forwarding) forwardEX1(reg int) (int32, bool) { return forward(f.exFwd[:], reg) }
func (f *Forwarding) forwardMEM(reg int) (int32, bool) { return forward(f.daFwd[:], reg) }

func (f *Forwarding) fillID(index, destReg int, value int32) { fillRow(f.idFwd[:], index, destReg, value) }
func (f *Forwarding) fillEX(index, destReg int, value int32) { fillRow(f.exFwd[:], index, destReg, value) }
func (f *Forwarding) fillDA(index, destReg int, value int32) { fillRow(f.daFwd[:], index, destReg, value) }

func (f *Forwarding) clearID(index int) { clearRow(f.idFwd[:], index) }
func (f *Forwarding) clearEX(index int) { clearRow(f.exFwd[:], index) }
func (f *Forwarding) clearDA(index int) { clearRow(f.daFwd[:], index) }

// applyIfMatch overwrites value in place when lookup finds a valid row
// for reg. Every stage consults exactly one of the three forward*
// lookups, named for the row it feeds (spec.md §4.4).
func applyIfMatch(lookup func(int) (int32, bool), reg int, value *int32) {
	if v, ok := lookup(reg); ok {
		*value = v
	}
}
