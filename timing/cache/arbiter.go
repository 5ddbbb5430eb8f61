package cache

import "sixstage/insts"

// Outcome tells the pipeline what, if anything, it must stall for after
// an arbiter call. It deliberately does not name a pipeline stage
// position — the pipeline engine owns that translation (spec.md §4.1,
// §4.6): a StallIF outcome becomes a stall at IF=0, a StallMEM outcome
// becomes a stall at MEM=5.
type Outcome int

const (
	// Ready means the access completed this call; the returned Word is
	// valid.
	Ready Outcome = iota
	// StallIF means the caller must raise a Stall event at the IF stage.
	StallIF
	// StallMEM means the caller must raise a Stall event at the MEM
	// stage.
	StallMEM
)

// Fill latencies, spec.md §4.6. The instruction cache fill is one cycle
// shorter than 8 words × 3 cycles because the miss-detecting cycle
// itself already consumed one of them; same reasoning shaves the data
// fill from 4 words × 3 cycles to 11.
const (
	iFillCycles    = 23
	dFillCycles    = 11
	bufDrainCycles = 2
)

// MemorySystem is the single-ported main-memory arbiter (spec.md §4.6):
// it serializes the three concurrent consumers — instruction fetch, data
// access, and write-buffer drain — over one shared RAM port, tracking
// per-port miss timers and busy flags plus the cache request/hit
// counters the output file reports.
type MemorySystem struct {
	ram     *Memory
	iCache  *Cache
	dCache  *Cache
	wbuf    writeBuffer

	iTimer, dTimer, bufTimer int
	ifBusy, memBusy, bufBusy bool

	IRequests, IHits int
	DRequests, DHits int
}

// NewMemorySystem wires a fresh instruction cache, data cache and RAM
// behind one arbiter.
func NewMemorySystem(ram *Memory) *MemorySystem {
	return &MemorySystem{
		ram:    ram,
		iCache: NewInstructionCache(),
		dCache: NewDataCache(),
	}
}

// FetchI fetches an instruction word through the I-cache (spec.md §4.6).
func (m *MemorySystem) FetchI(addr int) (insts.Word, Outcome) {
	if m.iCache.Hit(addr) {
		m.IRequests++
		m.IHits++
		w := m.iCache.Fetch(addr)
		return insts.InstrWord(w.Instr.CopyOf()), Ready
	}

	switch {
	case m.bufBusy:
		return insts.Word{}, StallMEM

	case !m.ifBusy:
		m.ifBusy = true
		m.iTimer = iFillCycles
		m.IRequests++
		return insts.Word{}, StallIF

	case m.iTimer == 0:
		m.ifBusy = false
		m.iCache.Populate(addr, m.ram)
		w := m.iCache.Fetch(addr)
		return insts.InstrWord(w.Instr.CopyOf()), Ready

	default:
		m.iTimer--
		return insts.Word{}, StallIF
	}
}

// FetchData fetches a data word through the D-cache (spec.md §4.6).
func (m *MemorySystem) FetchData(addr int) (insts.Word, Outcome) {
	if m.dCache.Hit(addr) {
		m.DRequests++
		m.DHits++
		return m.dCache.Fetch(addr), Ready
	}

	switch {
	case m.iTimer > 0:
		// I-cache fill has priority on the shared port.
		m.iTimer--
		return insts.Word{}, StallMEM

	case m.bufBusy:
		return insts.Word{}, StallMEM

	case !m.memBusy:
		m.memBusy = true
		m.dTimer = dFillCycles
		m.DRequests++
		return insts.Word{}, StallMEM

	case m.dTimer == 0:
		m.memBusy = false
		m.dCache.Populate(addr, m.ram)
		return m.dCache.Fetch(addr), Ready

	default:
		m.dTimer--
		return insts.Word{}, StallMEM
	}
}

// WriteWord stores word at addr through the D-cache, mirroring the
// fetch-miss timing, and enqueues the write into the write buffer once
// the cache line is ready (spec.md §4.6).
func (m *MemorySystem) WriteWord(word insts.Word, addr int) Outcome {
	if m.dCache.Hit(addr) {
		m.DRequests++
		m.DHits++
		m.dCache.Write(word, addr)
		m.wbuf.push(word, addr)
		return Ready
	}

	switch {
	case m.iTimer > 0:
		m.iTimer--
		return StallMEM

	case m.bufBusy:
		return StallMEM

	case !m.memBusy:
		m.memBusy = true
		m.dTimer = dFillCycles
		m.DRequests++
		return StallMEM

	case m.dTimer == 0:
		m.memBusy = false
		m.dCache.Populate(addr, m.ram)
		m.dCache.Write(word, addr)
		m.wbuf.push(word, addr)
		return Ready

	default:
		m.dTimer--
		return StallMEM
	}
}

// TryEmptyWriteBuffer attempts to drain one entry and reports true only
// when the buffer was already empty on entry; a call that starts, continues
// or completes a drain reports false (spec.md §4.6). The
// buffer only drains when no cache miss is in flight, and the 2-cycle
// drain cost is reproduced by pre-decrementing buf Timer before testing
// it against zero.
func (m *MemorySystem) TryEmptyWriteBuffer() bool {
	if m.wbuf.empty() {
		return true
	}

	if !m.bufBusy && m.iTimer == 0 && m.dTimer == 0 {
		m.bufTimer = bufDrainCycles
		m.bufBusy = true
		return false
	}

	if m.bufBusy {
		m.bufTimer--
		if m.bufTimer == 0 {
			entry := m.wbuf.popFront()
			m.ram.Write(entry.addr, entry.word)
			m.bufBusy = false
		}
	}

	return false
}

// WriteBufferEmpty reports whether the write buffer currently holds no
// pending entries, without attempting a drain.
func (m *MemorySystem) WriteBufferEmpty() bool {
	return m.wbuf.empty()
}

// PeekOriginal returns the source text of the instruction word stored at
// addr, reading straight through to RAM without touching the I-cache or
// the request/hit counters. It exists for the one case where the
// pipeline needs an instruction's text but must not record a fetch: a
// flushed branch/jump discards the speculative fetch before it happens,
// but spec.md §4.2/§6 still want that wrong-path instruction's original
// line recorded on the bubble that replaces it. Returns "" for an
// out-of-range address or a data word.
func (m *MemorySystem) PeekOriginal(addr int) string {
	if addr < 0 || addr/WordBytes >= NumWords {
		return ""
	}
	w := m.ram.Read(addr)
	if w.Kind != insts.WordInstr || w.Instr == nil {
		return ""
	}
	return w.Instr.Original
}
