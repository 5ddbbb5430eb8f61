package pipeline

// ctrlKind is the outcome a stage method hands back to the engine
// (spec.md §9, Design Note "Exceptions for control flow"): Stall and
// Flush are signals, never errors, and are consumed synchronously by
// the tick loop.
type ctrlKind uint8

const (
	ctrlContinue ctrlKind = iota
	ctrlStall
	ctrlFlush
)

// ctrlEvent is the enum stage methods return: Continue | Stall(stage) |
// Flush.
type ctrlEvent struct {
	kind  ctrlKind
	stage int // valid only when kind == ctrlStall

	// flushAddr is the address the speculative fetch would have used
	// this tick had no branch/jump been resolved. runMiddleStages fills
	// it in after stageID returns Flush; stageID itself never sets it.
	flushAddr int
}

var continueEvent = ctrlEvent{kind: ctrlContinue}

func stallAt(stage int) ctrlEvent { return ctrlEvent{kind: ctrlStall, stage: stage} }

var flushEvent = ctrlEvent{kind: ctrlFlush}

// Stall-insertion positions (spec.md §4.1): "these are the only values
// used". They index the reassembled six-slot array directly via the
// freeze/bubble/shift rule in (*Pipeline).reassembleStall — NOT the slot
// position constants in hazard.go, which name where an occupant
// currently sits mid-tick. StallPosID==SlotEX1 and StallPosMEM==NumSlots-1
// is intentional: see DESIGN.md for the reconciliation of the two
// numbering schemes.
const (
	StallPosIF  = 0
	StallPosID  = 1
	StallPosMEM = 5
)
