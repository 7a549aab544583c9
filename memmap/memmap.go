// Package memmap defines the address-space vocabulary shared by every
// other debugger-core package: memory regions, resolved addresses, and
// the classification of a single memory access.
package memmap

import "fmt"

// Region enumerates every addressable memory region across the
// supported console families. A concrete debugger instance only ever
// touches the regions relevant to the CpuKind it is attached to; the
// full enumeration lives in one place so the breakpoint engine, the CDL
// recorder and the disassembly cache can all key off the same values.
type Region int

// The set of regions. Each has a byte size fixed after ROM load (held
// externally, in RegionInfo below), not baked into the enum.
const (
	RegionUnknown Region = iota
	RegionPrgROM
	RegionWorkRAM
	RegionSaveRAM
	RegionVRAM
	RegionOAM
	RegionPaletteRAM
	RegionRegisters
	RegionCartRAM
	RegionBIOS
)

func (r Region) String() string {
	switch r {
	case RegionPrgROM:
		return "PRG-ROM"
	case RegionWorkRAM:
		return "WRAM"
	case RegionSaveRAM:
		return "SRAM"
	case RegionVRAM:
		return "VRAM"
	case RegionOAM:
		return "OAM"
	case RegionPaletteRAM:
		return "Palette"
	case RegionRegisters:
		return "Registers"
	case RegionCartRAM:
		return "CartRAM"
	case RegionBIOS:
		return "BIOS"
	}
	return "unknown"
}

// RegionInfo describes one region's static properties. Size is fixed
// once a ROM is loaded; the debugger core reallocates per-region arrays
// (the disassembly cache, the CDL flag array) whenever it changes.
type RegionInfo struct {
	Region    Region
	Size      int
	Volatile  bool // RAM-like: can change without CPU involvement (DMA, PPU)
	IsROM     bool
	IsPPUMem  bool
}

// AddressInfo is the resolved location of a CPU-visible address: which
// region it lives in, and the byte offset within that region. Offset is
// -1 when the address does not map to anything the debugger tracks.
type AddressInfo struct {
	Region Region
	Offset int32
}

// Mapped reports whether the address resolved to a real location.
func (ai AddressInfo) Mapped() bool {
	return ai.Offset >= 0
}

// Valid reports whether ai.Offset is in range for a region of the given
// size (the invariant from spec.md §3: 0 ≤ offset < size when offset ≥ 0).
func (ai AddressInfo) Valid(size int) bool {
	if !ai.Mapped() {
		return true
	}
	return ai.Offset < int32(size)
}

func (ai AddressInfo) String() string {
	if !ai.Mapped() {
		return fmt.Sprintf("%s:unmapped", ai.Region)
	}
	return fmt.Sprintf("%s+%#x", ai.Region, ai.Offset)
}

// OpKind classifies a single memory access. The breakpoint engine and
// the CDL recorder both branch on this: dummy/DMA accesses are treated
// differently from "real" CPU-driven reads and writes.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpExecOpcode
	OpExecOperand
	OpDummyRead
	OpDummyWrite
	OpDmaRead
	OpDmaWrite
	OpPpuRenderingRead
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpExecOpcode:
		return "exec-opcode"
	case OpExecOperand:
		return "exec-operand"
	case OpDummyRead:
		return "dummy-read"
	case OpDummyWrite:
		return "dummy-write"
	case OpDmaRead:
		return "dma-read"
	case OpDmaWrite:
		return "dma-write"
	case OpPpuRenderingRead:
		return "ppu-rendering-read"
	}
	return "unknown"
}

// IsDummy reports whether the operation is a dummy (non-architecturally
// visible) access - used by breakpoint ignore_dummy and by the CDL
// recorder to avoid marking phantom accesses as real code/data.
func (k OpKind) IsDummy() bool {
	return k == OpDummyRead || k == OpDummyWrite
}

// IsDMA reports whether the operation originated from a DMA engine
// rather than the CPU's own fetch/execute cycle.
func (k OpKind) IsDMA() bool {
	return k == OpDmaRead || k == OpDmaWrite
}

// IsExec reports whether the operation is an opcode or operand fetch.
func (k OpKind) IsExec() bool {
	return k == OpExecOpcode || k == OpExecOperand
}

// IsWrite reports whether the operation writes to memory, including
// dummy and DMA writes.
func (k OpKind) IsWrite() bool {
	return k == OpWrite || k == OpDummyWrite || k == OpDmaWrite
}

// Operation is a single memory access as observed by the debugger core.
type Operation struct {
	Addr   uint32
	Value  int32
	Kind   OpKind
	Region Region

	// RawAddr is the literal CPU-visible address before mirror
	// resolution; Addr is the region-resolved ("mapped") offset produced
	// by MemoryBus.Resolve. For any region without address mirroring the
	// two are the same value. A caller that does not distinguish mirrors
	// can leave RawAddr at Addr's value; strict-addressing breakpoints
	// and frozen addresses (spec.md §12) are the only consumers that ever
	// look at RawAddr instead of Addr.
	RawAddr uint32
}
