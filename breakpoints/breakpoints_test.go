package breakpoints_test

import (
	"testing"

	"github.com/jetsetilly/retrodbg/breakpoints"
	"github.com/jetsetilly/retrodbg/events"
	"github.com/jetsetilly/retrodbg/expr"
	"github.com/jetsetilly/retrodbg/memmap"
)

func TestShortCircuitOnNoBreakpointsForOpType(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	if e.AnyBreakpoint() {
		t.Fatalf("expected no breakpoints in a fresh engine")
	}

	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpRead, Region: memmap.RegionWorkRAM}
	if id := e.Check(op, 1, nil, expr.Context{}); id != -1 {
		t.Fatalf("expected no match, got %d", id)
	}
}

func TestSimpleAddressMatch(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	id := e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x10, AddrHi: 0x10,
		Ops: []memmap.OpKind{memmap.OpWrite},
	})

	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpWrite, Region: memmap.RegionWorkRAM}
	got := e.Check(op, 1, nil, expr.Context{})
	if got != id {
		t.Fatalf("expected match %d, got %d", id, got)
	}

	// wrong op type for this breakpoint's partition
	op.Kind = memmap.OpRead
	if got := e.Check(op, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("expected no match for an op type with nothing defined, got %d", got)
	}
}

func TestWidthExtendsMatchedRange(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x12, AddrHi: 0x12,
		Ops: []memmap.OpKind{memmap.OpRead},
	})

	// a 4-byte read starting at 0x10 overlaps byte 0x12
	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpRead, Region: memmap.RegionWorkRAM}
	if got := e.Check(op, 4, nil, expr.Context{}); got == -1 {
		t.Fatalf("expected the wide access to overlap the breakpoint")
	}
	if got := e.Check(op, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("a single-byte access at 0x10 should not match a breakpoint at 0x12")
	}
}

func TestDummyAccessRequiresAllowDummy(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x10, AddrHi: 0x10,
		Ops: []memmap.OpKind{memmap.OpDummyRead},
	})

	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpDummyRead, Region: memmap.RegionWorkRAM}
	if got := e.Check(op, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("expected dummy access to be rejected without AllowDummy")
	}
}

func TestMarkOnlyRecordsEventAndDoesNotMatch(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x10, AddrHi: 0x10,
		Ops:      []memmap.OpKind{memmap.OpWrite},
		MarkOnly: true,
	})

	rec := events.New()
	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpWrite, Region: memmap.RegionWorkRAM}
	if got := e.Check(op, 1, rec, expr.Context{}); got != -1 {
		t.Fatalf("mark-only breakpoints should never be returned as a pausing match")
	}
	rec.EndFrame()
	if len(rec.Previous()) != 1 {
		t.Fatalf("expected the mark-only match to have recorded one event")
	}
}

func TestInvalidConditionNeverMatches(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	id := e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x10, AddrHi: 0x10,
		Ops:       []memmap.OpKind{memmap.OpWrite},
		Condition: "VALUE ==", // malformed
	})
	_ = id

	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpWrite, Region: memmap.RegionWorkRAM}
	if got := e.Check(op, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("expected a malformed condition to never match")
	}
}

func TestAnyAddressMatch(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	id := e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: -1, AddrHi: -1,
		Ops: []memmap.OpKind{memmap.OpWrite},
	})

	for _, addr := range []uint32{0x0, 0x10, 0x7fff} {
		op := memmap.Operation{Addr: addr, Kind: memmap.OpWrite, Region: memmap.RegionWorkRAM}
		if got := e.Check(op, 1, nil, expr.Context{}); got != id {
			t.Fatalf("addr %#x: expected any-address breakpoint %d to match, got %d", addr, id, got)
		}
	}
}

func TestAccessWidthExtendsMatch(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	id := e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x11, AddrHi: 0x11,
		Ops: []memmap.OpKind{memmap.OpRead},
	})

	// a 2-byte access at 0x10 covers 0x10-0x11 and must catch the
	// breakpoint on 0x11, per spec.md §4.5's width-aware match.
	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpRead, Region: memmap.RegionWorkRAM}
	if got := e.Check(op, 2, nil, expr.Context{}); got != id {
		t.Fatalf("expected width-2 access at 0x10 to match breakpoint on 0x11, got %d", got)
	}
}

func TestStrictMatchesRawAddrNotMappedAddr(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	id := e.Add(breakpoints.Definition{
		Region: memmap.RegionRegisters,
		AddrLo: 0x2000, AddrHi: 0x2000,
		Ops:    []memmap.OpKind{memmap.OpWrite},
		Strict: true,
	})

	// a mirror of 0x2000 resolves to the same mapped Addr (0x2000) but a
	// different literal RawAddr (0x2008); strict addressing must not
	// match the mirror.
	mirror := memmap.Operation{Addr: 0x2000, RawAddr: 0x2008, Kind: memmap.OpWrite, Region: memmap.RegionRegisters}
	if got := e.Check(mirror, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("expected strict breakpoint not to match a mirrored RawAddr, got %d", got)
	}

	literal := memmap.Operation{Addr: 0x2000, RawAddr: 0x2000, Kind: memmap.OpWrite, Region: memmap.RegionRegisters}
	if got := e.Check(literal, 1, nil, expr.Context{}); got != id {
		t.Fatalf("expected strict breakpoint to match its literal RawAddr, got %d", got)
	}
}

func TestIgnoreRepeatValueLatch(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	id := e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x10, AddrHi: 0x10,
		Ops:               []memmap.OpKind{memmap.OpWrite},
		IgnoreRepeatValue: true,
	})

	op := memmap.Operation{Addr: 0x10, Value: 5, Kind: memmap.OpWrite, Region: memmap.RegionWorkRAM}
	if got := e.Check(op, 1, nil, expr.Context{}); got != id {
		t.Fatalf("expected first match to fire, got %d", got)
	}
	if got := e.Check(op, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("expected a repeat of the same value to be latched out, got %d", got)
	}

	op.Value = 6
	if got := e.Check(op, 1, nil, expr.Context{}); got != id {
		t.Fatalf("expected a changed value to fire again, got %d", got)
	}
	if got := e.Check(op, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("expected the new value's repeat to be latched out too, got %d", got)
	}
}

func TestRemove(t *testing.T) {
	e := breakpoints.New(expr.NewCache())
	id := e.Add(breakpoints.Definition{
		Region: memmap.RegionWorkRAM,
		AddrLo: 0x10, AddrHi: 0x10,
		Ops: []memmap.OpKind{memmap.OpWrite},
	})
	e.Remove(id)

	if e.AnyBreakpoint() {
		t.Fatalf("expected no breakpoints after removing the only one")
	}
	op := memmap.Operation{Addr: 0x10, Kind: memmap.OpWrite, Region: memmap.RegionWorkRAM}
	if got := e.Check(op, 1, nil, expr.Context{}); got != -1 {
		t.Fatalf("expected no match after removal, got %d", got)
	}
}
