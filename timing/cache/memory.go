// Package cache provides the main-memory array, the direct-mapped
// instruction/data caches built on Akita's cache directory, the write
// buffer, and the single-ported memory arbiter described in spec.md §3,
// §4.5 and §4.6.
package cache

import "sixstage/insts"

// NumWords is the size of main memory in word-addressable slots
// (spec.md §3: "a flat array of 512 byte-addressed word slots").
const NumWords = 512

// WordBytes is the number of bytes in one word; also the byte-offset
// field width (2 bits) of every address decode in §4.5.
const WordBytes = 4

// DataBase is the RAM offset at which the loader places the parsed data
// words (spec.md §6).
const DataBase = 0x100

// Memory is the flat main store: 512 word slots, each holding a tagged
// Word (either a raw data value or an instruction record). Whether a
// slot is fetched as an instruction or read as data is determined by
// the access path, never by the word itself.
type Memory struct {
	words [NumWords]insts.Word
}

// NewMemory returns a zero-initialized main memory.
func NewMemory() *Memory {
	return &Memory{}
}

// index converts a byte address to a word-slot index.
func index(addr int) int {
	return addr / WordBytes
}

// Read returns the word stored at the given byte address.
func (m *Memory) Read(addr int) insts.Word {
	return m.words[index(addr)]
}

// Write stores word at the given byte address.
func (m *Memory) Write(addr int, word insts.Word) {
	m.words[index(addr)] = word
}

// LoadProgram installs the instruction list starting at address 0, one
// instruction per word, and returns the byte address one past the last
// instruction loaded.
func (m *Memory) LoadProgram(program []*insts.Instruction) int {
	addr := 0
	for _, inst := range program {
		m.Write(addr, insts.InstrWord(inst))
		addr += WordBytes
	}
	return addr
}

// LoadData installs the data words starting at DataBase.
func (m *Memory) LoadData(data []int32) {
	addr := DataBase
	for _, v := range data {
		m.Write(addr, insts.DataWord(v))
		addr += WordBytes
	}
}
