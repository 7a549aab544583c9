// Package disasm implements the per-byte disassembly cache described in
// spec.md §4.3: one DisassemblyInfo slot per byte of each tracked
// region, populated lazily on first visit and invalidated on write.
//
// Per spec.md §5's shared-resource table, the cache is written only from
// the emulation thread, and reads racing with an in-flight populate are
// accepted rather than guarded - the populated value is idempotent (the
// same address always decodes to the same bytes until a write
// invalidates it), so the worst outcome of a race is a wasted re-decode,
// never corrupt state.
package disasm

import (
	"sync"

	"github.com/jetsetilly/retrodbg/cpukind"
	"github.com/jetsetilly/retrodbg/memmap"
)

// maxBytecode bounds the longest instruction encoding any supported
// family can produce (the widest practical case is a handful of
// prefix/opcode/operand bytes on CISC-ish encodings like the 65816's
// long addressing modes or a GBA Thumb/ARM mix).
const maxBytecode = 8

// Info is one decoded instruction, cached at the address of its first
// byte. Per spec.md §3, Initialized implies Length > 0.
type Info struct {
	Initialized bool
	ByteCode    [maxBytecode]byte
	Length      uint8
	CPUFlags    uint8 // mode bits relevant to mode-sensitive ISAs (eg. 65816 M/X)
	Cpu         cpukind.Kind
}

// Decoder decodes the instruction starting at addr. Supplied by the
// console-specific CPU core; this package only owns the caching policy
// around it, not instruction semantics.
type Decoder func(addr uint32) Info

// Cache holds one Info slot per byte of every region it has been sized
// for. Regions are allocated on demand via Resize and torn down by
// InvalidateRegion or a fresh Resize to a different size (eg. on a ROM
// hot-swap, per spec.md §7's "region size change mid-session" policy).
type Cache struct {
	// guards structural changes only (allocating/reallocating a
	// region's slice); per-slot reads and writes during normal
	// operation take no lock, by design (see package doc).
	mu sync.Mutex

	regions map[memmap.Region][]Info

	// MaxInstructionLength bounds the invalidation radius: a write to
	// byte N may also invalidate an instruction that started up to
	// MaxInstructionLength-1 bytes earlier and ran over N.
	MaxInstructionLength int
}

// New returns an empty cache. maxInstructionLength should be the widest
// instruction encoding the attached CpuKind can produce.
func New(maxInstructionLength int) *Cache {
	return &Cache{
		regions:              make(map[memmap.Region][]Info),
		MaxInstructionLength: maxInstructionLength,
	}
}

// Resize (re)allocates the slot array for region to the given size,
// discarding any previously cached entries for it.
func (c *Cache) Resize(region memmap.Region, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions[region] = make([]Info, size)
}

// Get returns the cached Info for (region, offset), decoding and
// populating the slot via decode if it is not already initialised. This
// is the hot path described in spec.md §4.3: bounds-check, load one
// slot, branch on the initialised flag.
func (c *Cache) Get(region memmap.Region, offset int32, decode Decoder, addr uint32) (Info, bool) {
	slots := c.regions[region]
	if offset < 0 || int(offset) >= len(slots) {
		return Info{}, false
	}

	if slots[offset].Initialized {
		return slots[offset], true
	}

	info := decode(addr)
	slots[offset] = info
	return info, true
}

// Peek returns the cached Info without decoding, and whether it was
// present. Used by UI-side disassembly listing, which must not trigger
// a decode as a side effect of merely drawing the screen.
func (c *Cache) Peek(region memmap.Region, offset int32) (Info, bool) {
	slots := c.regions[region]
	if offset < 0 || int(offset) >= len(slots) {
		return Info{}, false
	}
	if !slots[offset].Initialized {
		return Info{}, false
	}
	return slots[offset], true
}

// InvalidateByte clears the slot at (region, offset) plus every slot in
// the MaxInstructionLength-1 bytes before it, per spec.md §4.3's
// conservative invalidation policy: any of those could be the first
// byte of an instruction that overlapped the written byte.
func (c *Cache) InvalidateByte(region memmap.Region, offset int32) {
	slots := c.regions[region]
	if len(slots) == 0 {
		return
	}

	radius := c.MaxInstructionLength - 1
	if radius < 0 {
		radius = 0
	}

	start := int(offset) - radius
	if start < 0 {
		start = 0
	}
	end := int(offset)
	if end >= len(slots) {
		end = len(slots) - 1
	}

	for i := start; i <= end; i++ {
		slots[i] = Info{}
	}
}

// InvalidateRegion clears every slot in region - the simpler, always-
// correct fallback spec.md §4.3 explicitly allows in place of precise
// per-byte invalidation.
func (c *Cache) InvalidateRegion(region memmap.Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slots, ok := c.regions[region]; ok {
		for i := range slots {
			slots[i] = Info{}
		}
	}
}
