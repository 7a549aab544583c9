// Package freeze implements the frozen-address filter from spec.md
// §4.10: a typically-empty address set that blocks emulation writes
// while still allowing the debugger UI to poke values directly.
package freeze

import "github.com/jetsetilly/retrodbg/memmap"

// key identifies a frozen location; a region/offset pair rather than a
// bare CPU address, since the same literal address can map to
// different regions depending on bank state. strict distinguishes a pin
// on the literal CPU-visible address from one on the region-resolved
// ("mapped") address, per spec.md §12's mirrored-address supplement -
// the two live in the same map but never collide, since a strict pin's
// addr is a RawAddr and a mapped pin's addr is an offset.
type key struct {
	region memmap.Region
	addr   int32
	strict bool
}

// Set is a frozen-address filter. The zero value is ready to use.
type Set struct {
	frozen map[key]uint8
}

// Freeze adds an address to the frozen set, pinned at value: every
// future emulation write to it is blocked, and IsFrozen reports value.
// Reads of the address are not redirected to value by this package or
// by the debugger façade.
// When strict is true the pin is keyed on rawAddr, the literal
// CPU-visible address, rather than offset, the region-resolved
// ("mapped") address - so a mirrored region (eg. an NES PPU register
// repeating every 8 bytes) can have each mirror frozen independently
// instead of every mirror resolving to one shared frozen cell.
func (s *Set) Freeze(region memmap.Region, offset, rawAddr int32, strict bool, value uint8) {
	addr := offset
	if strict {
		addr = rawAddr
	}
	if s.frozen == nil {
		s.frozen = map[key]uint8{}
	}
	s.frozen[key{region, addr, strict}] = value
}

// Unfreeze removes a previously-frozen address from the set. strict
// must match the value Freeze was called with for this address.
func (s *Set) Unfreeze(region memmap.Region, offset, rawAddr int32, strict bool) {
	addr := offset
	if strict {
		addr = rawAddr
	}
	delete(s.frozen, key{region, addr, strict})
}

// Clear empties the frozen set.
func (s *Set) Clear() {
	s.frozen = nil
}

// Len reports how many addresses are currently frozen.
func (s *Set) Len() int {
	return len(s.frozen)
}

// IsFrozen reports whether (region, offset) is frozen - checking both a
// mapped pin keyed on offset and a strict pin keyed on rawAddr - and its
// pinned value. Per spec.md §4.10 this is a size-0 fast path (an empty
// set, the overwhelmingly common case, costs one length check) followed
// by up to two hash lookups.
func (s *Set) IsFrozen(region memmap.Region, offset, rawAddr int32) (uint8, bool) {
	if len(s.frozen) == 0 {
		return 0, false
	}
	if v, ok := s.frozen[key{region, rawAddr, true}]; ok {
		return v, true
	}
	v, ok := s.frozen[key{region, offset, false}]
	return v, ok
}

// AllowWrite reports whether an emulation-originated write to
// (region, offset, rawAddr) should proceed. UI-originated writes must
// call Freeze again (or bypass this package entirely) rather than going
// through AllowWrite, per spec.md §4.10's "writes via the debugger UI
// bypass the freeze".
func (s *Set) AllowWrite(region memmap.Region, offset, rawAddr int32) bool {
	_, frozen := s.IsFrozen(region, offset, rawAddr)
	return !frozen
}
