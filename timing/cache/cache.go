package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"sixstage/insts"
)

// Cache is a direct-mapped, write-through cache of Words. Tag and valid
// bookkeeping is delegated to an Akita cache directory (associativity
// fixed at 1, i.e. one way per set, which is exactly what "direct
// mapped" means); the word storage and the populate-on-fetch behavior
// that is specific to this simulator live here.
//
// Timing — miss latency, busy flags, the shared single port — is not
// this type's concern; see MemorySystem.
type Cache struct {
	blocks        int
	wordsPerBlock int
	directory     *akitacache.DirectoryImpl
	storage       [][]insts.Word
}

// blockSizeBytes is the byte span of one cache block.
func (c *Cache) blockSizeBytes() int {
	return c.wordsPerBlock * WordBytes
}

// newCache builds a direct-mapped cache with the given block count and
// words-per-block, per spec.md §3 (I-cache: 2×8, D-cache: 4×4).
func newCache(blocks, wordsPerBlock int) *Cache {
	storage := make([][]insts.Word, blocks)
	for i := range storage {
		storage[i] = make([]insts.Word, wordsPerBlock)
	}

	return &Cache{
		blocks:        blocks,
		wordsPerBlock: wordsPerBlock,
		directory: akitacache.NewDirectory(
			blocks, 1, wordsPerBlock*WordBytes,
			akitacache.NewLRUVictimFinder(),
		),
		storage: storage,
	}
}

// NewInstructionCache returns the 2-block × 8-word I-cache.
func NewInstructionCache() *Cache {
	return newCache(2, 8)
}

// NewDataCache returns the 4-block × 4-word D-cache.
func NewDataCache() *Cache {
	return newCache(4, 4)
}

// blockBase scans downward from addr, in word steps, to the first
// address whose byte offset within the block is zero — i.e. the base
// address of the block containing addr (spec.md §4.5).
func (c *Cache) blockBase(addr int) int {
	size := c.blockSizeBytes()
	for addr%size != 0 {
		addr -= WordBytes
	}
	return addr
}

// wordIndex returns the word-index bits of addr within its block.
func (c *Cache) wordIndex(addr int) int {
	return (addr % c.blockSizeBytes()) / WordBytes
}

// lookup returns the directory block backing addr's cache line, or nil
// on a cold/evicted line.
func (c *Cache) lookup(addr int) *akitacache.Block {
	return c.directory.Lookup(0, uint64(c.blockBase(addr)))
}

// Hit reports whether addr is currently resident and valid.
func (c *Cache) Hit(addr int) bool {
	b := c.lookup(addr)
	return b != nil && b.IsValid
}

// Fetch returns the Word at addr from a hit block. Behavior is undefined
// if addr does not currently hit; callers must check Hit first.
func (c *Cache) Fetch(addr int) insts.Word {
	b := c.lookup(addr)
	return c.storage[b.SetID][c.wordIndex(addr)]
}

// Write stores word into the cache line backing addr (write-through: the
// caller is responsible for also enqueuing the write into the write
// buffer). Behavior is undefined if addr does not currently hit.
func (c *Cache) Write(word insts.Word, addr int) {
	b := c.lookup(addr)
	c.storage[b.SetID][c.wordIndex(addr)] = word
	b.IsDirty = true
}

// Populate installs the whole block containing addr from ram, marking it
// valid and recording its tag (spec.md §4.5).
func (c *Cache) Populate(addr int, ram *Memory) {
	base := c.blockBase(addr)

	victim := c.directory.FindVictim(uint64(base))
	victim.Tag = uint64(base)
	victim.IsValid = true
	victim.IsDirty = false

	for i := 0; i < c.wordsPerBlock; i++ {
		c.storage[victim.SetID][i] = ram.Read(base + i*WordBytes)
	}

	c.directory.Visit(victim)
}
