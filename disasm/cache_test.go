package disasm_test

import (
	"testing"

	"github.com/jetsetilly/retrodbg/disasm"
	"github.com/jetsetilly/retrodbg/memmap"
)

func TestLazyPopulateAndStability(t *testing.T) {
	c := disasm.New(3)
	c.Resize(memmap.RegionPrgROM, 64)

	calls := 0
	decode := func(addr uint32) disasm.Info {
		calls++
		return disasm.Info{Initialized: true, Length: 2}
	}

	info, ok := c.Get(memmap.RegionPrgROM, 10, decode, 0x8000+10)
	if !ok || info.Length != 2 {
		t.Fatalf("got %+v, %v", info, ok)
	}
	if calls != 1 {
		t.Fatalf("expected one decode, got %d", calls)
	}

	// second visit must not decode again and must return the same info
	info2, ok := c.Get(memmap.RegionPrgROM, 10, decode, 0x8000+10)
	if !ok || info2 != info {
		t.Fatalf("cache slot should be stable across visits")
	}
	if calls != 1 {
		t.Fatalf("second Get should not re-decode, calls=%d", calls)
	}
}

func TestOutOfBounds(t *testing.T) {
	c := disasm.New(3)
	c.Resize(memmap.RegionPrgROM, 4)

	if _, ok := c.Get(memmap.RegionPrgROM, 10, func(uint32) disasm.Info { return disasm.Info{} }, 0); ok {
		t.Fatalf("expected out-of-bounds offset to fail")
	}
	if _, ok := c.Get(memmap.RegionPrgROM, -1, func(uint32) disasm.Info { return disasm.Info{} }, 0); ok {
		t.Fatalf("expected negative offset to fail")
	}
}

func TestInvalidateByteRadius(t *testing.T) {
	c := disasm.New(3) // radius = 2
	c.Resize(memmap.RegionPrgROM, 16)

	decode := func(addr uint32) disasm.Info { return disasm.Info{Initialized: true, Length: 1} }
	for _, off := range []int32{5, 6, 7, 8} {
		c.Get(memmap.RegionPrgROM, off, decode, uint32(off))
	}

	c.InvalidateByte(memmap.RegionPrgROM, 8)

	for _, off := range []int32{6, 7, 8} {
		if _, ok := c.Peek(memmap.RegionPrgROM, off); ok {
			t.Fatalf("offset %d should have been invalidated", off)
		}
	}
	if _, ok := c.Peek(memmap.RegionPrgROM, 5); !ok {
		t.Fatalf("offset 5 is outside the invalidation radius and should survive")
	}
}

func TestInvalidateRegion(t *testing.T) {
	c := disasm.New(3)
	c.Resize(memmap.RegionPrgROM, 16)
	decode := func(addr uint32) disasm.Info { return disasm.Info{Initialized: true, Length: 1} }
	c.Get(memmap.RegionPrgROM, 0, decode, 0)
	c.Get(memmap.RegionPrgROM, 15, decode, 15)

	c.InvalidateRegion(memmap.RegionPrgROM)

	if _, ok := c.Peek(memmap.RegionPrgROM, 0); ok {
		t.Fatalf("expected region to be fully cleared")
	}
	if _, ok := c.Peek(memmap.RegionPrgROM, 15); ok {
		t.Fatalf("expected region to be fully cleared")
	}
}
