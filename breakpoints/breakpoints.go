// Package breakpoints implements the partitioned breakpoint engine
// described in spec.md §4.5. Breakpoints are grouped by operation type
// so the hot per-access check can short-circuit on "nothing to do for
// this op" before touching any breakpoint data at all.
package breakpoints

import (
	"fmt"
	"strings"

	"github.com/jetsetilly/retrodbg/events"
	"github.com/jetsetilly/retrodbg/expr"
	"github.com/jetsetilly/retrodbg/memmap"
)

// ID identifies a single breakpoint definition.
type ID int

// numOpKinds bounds the op-type-indexed arrays below. memmap.OpKind's
// largest defined value is OpPpuRenderingRead; kept in lockstep with it
// rather than imported as a constant, since OpKind is a closed, stable
// enumeration.
const numOpKinds = int(memmap.OpPpuRenderingRead) + 1

// Definition is a single user-facing breakpoint, before compilation.
type Definition struct {
	Region     memmap.Region
	AddrLo     int32
	AddrHi     int32 // inclusive; equal to AddrLo for a single-address breakpoint
	Ops        []memmap.OpKind
	AllowDummy bool
	Forbid     bool // reported by AnyForbid; Check matches it like any other breakpoint and nothing in this module suppresses exception breaks on a forbid match
	MarkOnly   bool // match emits an event but never pauses
	Condition  string

	// Strict, per spec.md §12's mirrored-address supplement, matches
	// against the access's literal CPU-visible address (Operation.RawAddr)
	// instead of its region-resolved ("mapped") address (Operation.Addr).
	// Needed when a console's memory map mirrors a region (eg. NES PPU
	// registers repeating every 8 bytes): a mapped breakpoint fires on
	// every mirror, a strict one only on the exact address it names.
	Strict bool

	// IgnoreRepeatValue, per spec.md §12's "ignore repeat value" latch,
	// suppresses a match when the access's Value is identical to the
	// Value that caused this breakpoint's previous match - so a
	// breakpoint on a register that holds steady for many cycles fires
	// once, not on every instruction, the same way the teacher's breaker
	// latches on its ignoreValue field.
	IgnoreRepeatValue bool
}

func (d Definition) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %#x", d.Region, d.AddrLo)
	if d.AddrHi != d.AddrLo {
		fmt.Fprintf(&b, "-%#x", d.AddrHi)
	}
	if d.Condition != "" {
		fmt.Fprintf(&b, " if %s", d.Condition)
	}
	if d.Forbid {
		b.WriteString(" (forbid)")
	}
	if d.MarkOnly {
		b.WriteString(" (mark only)")
	}
	return b.String()
}

type compiled struct {
	id   ID
	def  Definition
	ops  [numOpKinds]bool
	cond expr.Data

	// latch state for Definition.IgnoreRepeatValue; mutated from Check,
	// which is only ever called from the emulation thread.
	hasLastValue bool
	lastValue    int32
}

func opMask(ops []memmap.OpKind) (mask [numOpKinds]bool) {
	for _, o := range ops {
		if int(o) >= 0 && int(o) < numOpKinds {
			mask[o] = true
		}
	}
	return mask
}

// Engine holds every defined breakpoint, partitioned by operation type
// per spec.md §4.5, plus the cheap existence flags the per-access check
// short-circuits on.
type Engine struct {
	cache *expr.Cache
	next  ID

	partitions [numOpKinds][]*compiled
	byID       map[ID]*compiled

	anyBreakpoint bool
	anyForOp      [numOpKinds]bool
	anyForbid     bool
}

// New returns an empty engine. cache is shared with the rest of the
// debugger so a condition compiled once here is reused everywhere else
// the same text appears.
func New(cache *expr.Cache) *Engine {
	return &Engine{cache: cache, byID: map[ID]*compiled{}}
}

// Add compiles and installs a breakpoint, returning its id. A
// Condition that fails to compile is stored anyway: per spec.md §4.1 a
// condition evaluating to Invalid is simply treated as non-matching, so
// a bad expression disables the breakpoint rather than rejecting it
// outright. The condition text of an installed breakpoint cannot be
// changed; Remove it and Add a corrected Definition instead.
func (e *Engine) Add(def Definition) ID {
	c := &compiled{def: def, ops: opMask(def.Ops)}
	if def.Condition != "" && e.cache != nil {
		c.cond, _ = e.cache.Get(def.Condition)
	}

	e.next++
	c.id = e.next
	e.byID[c.id] = c

	for op, on := range c.ops {
		if !on {
			continue
		}
		e.partitions[op] = append(e.partitions[op], c)
		e.anyForOp[op] = true
	}
	e.anyBreakpoint = true
	if def.Forbid {
		e.anyForbid = true
	}
	return c.id
}

// Remove deletes a breakpoint by id.
func (e *Engine) Remove(id ID) {
	c, ok := e.byID[id]
	if !ok {
		return
	}
	delete(e.byID, id)

	e.anyBreakpoint = false
	e.anyForbid = false
	for op := range e.partitions {
		e.partitions[op] = removeFrom(e.partitions[op], c)
		e.anyForOp[op] = len(e.partitions[op]) > 0
	}
	for _, rem := range e.byID {
		e.anyBreakpoint = true
		if rem.def.Forbid {
			e.anyForbid = true
		}
	}
}

func removeFrom(list []*compiled, c *compiled) []*compiled {
	out := list[:0]
	for _, x := range list {
		if x != c {
			out = append(out, x)
		}
	}
	return out
}

// Clear removes every breakpoint.
func (e *Engine) Clear() {
	e.byID = map[ID]*compiled{}
	e.partitions = [numOpKinds][]*compiled{}
	e.anyForOp = [numOpKinds]bool{}
	e.anyBreakpoint = false
	e.anyForbid = false
}

// AnyBreakpoint reports whether any breakpoint is defined at all - the
// cheapest possible short-circuit, checked before indexing into a
// partition.
func (e *Engine) AnyBreakpoint() bool { return e.anyBreakpoint }

// AnyForbid reports whether any forbid-breakpoint is defined.
func (e *Engine) AnyForbid() bool { return e.anyForbid }

// AnyForOp reports whether any breakpoint applies to the given op type.
func (e *Engine) AnyForOp(op memmap.OpKind) bool {
	if int(op) < 0 || int(op) >= numOpKinds {
		return false
	}
	return e.anyForOp[op]
}

// Check runs the per-access check from spec.md §4.5 against op, whose
// address range is extended by width-1 bytes per the "access width"
// rule so a multi-byte access overlapping a single-address breakpoint
// still matches. It returns the id of the first non-mark-only match, or
// -1 if nothing matched. Every mark-only match along the way is
// recorded via rec before the scan continues.
func (e *Engine) Check(op memmap.Operation, width int, rec *events.Recorder, evalCtx expr.Context) ID {
	if !e.anyBreakpoint || !e.AnyForOp(op.Kind) {
		return -1
	}
	if width < 1 {
		width = 1
	}

	for _, c := range e.partitions[op.Kind] {
		if c.def.Region != op.Region {
			continue
		}
		if op.Kind.IsDummy() && !c.def.AllowDummy {
			continue
		}

		matchAddr := op.Addr
		if c.def.Strict {
			matchAddr = op.RawAddr
		}
		if c.def.AddrLo != -1 {
			lo, hi := uint32(c.def.AddrLo), uint32(c.def.AddrHi)
			accessHi := matchAddr + uint32(width) - 1
			if !(lo <= accessHi && matchAddr <= hi) {
				continue
			}
		}

		if c.def.Condition != "" {
			if c.cond.Invalid() {
				continue
			}
			evalCtx.Op = op
			evalCtx.HasOp = true
			if !expr.Eval(c.cond, evalCtx).Matched() {
				continue
			}
		}

		if c.def.IgnoreRepeatValue {
			if c.hasLastValue && op.Value == c.lastValue {
				continue
			}
			c.hasLastValue = true
			c.lastValue = op.Value
		}

		if c.def.MarkOnly {
			if rec != nil {
				rec.Record(events.DebugEvent{Category: events.CategoryBreakpoint, Detail: c.def.String()})
			}
			continue
		}

		return c.id
	}

	return -1
}
