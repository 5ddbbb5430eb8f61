package cache

import "sixstage/insts"

// pendingWrite is one FIFO entry awaiting drain into main memory.
type pendingWrite struct {
	word insts.Word
	addr int
}

// writeBuffer is a FIFO of pending (word, address) pairs drained into
// main memory between other accesses (spec.md §3, §4.6).
type writeBuffer struct {
	queue []pendingWrite
}

func (w *writeBuffer) push(word insts.Word, addr int) {
	w.queue = append(w.queue, pendingWrite{word: word, addr: addr})
}

func (w *writeBuffer) empty() bool {
	return len(w.queue) == 0
}

// popFront removes and returns the oldest pending entry.
func (w *writeBuffer) popFront() pendingWrite {
	front := w.queue[0]
	w.queue = w.queue[1:]
	return front
}
