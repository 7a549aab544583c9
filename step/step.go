// Package step implements the step coordinator described in spec.md
// §4.8: the StepRequest accumulator that arms halts, classifies why
// emulation stopped, and blocks the emulation thread between runs.
package step

import "sync"

// Type is the user-facing step variant requested through run()/step_*().
type Type int

const (
	TypeRun Type = iota
	TypeInstruction
	TypeScanline
	TypeFrame
	TypeOver  // step-over: arms break_stack_pointer
	TypeOut   // step-out: arms break_stack_pointer at the caller's depth
	TypeCycle
)

// BreakSource enumerates every cause a halt can be attributed to. Per
// spec.md §4.8, values greater than InternalOperation are exceptions;
// SetBreakSource latches them separately from user-requested breaks.
type BreakSource int

const (
	SourceNone BreakSource = iota
	Breakpoint
	Pause
	CpuStep
	PpuStep
	Irq
	Nmi

	// InternalOperation is the sentinel: every source above this line is
	// a CPU-internal exception, not a user-requested break.
	InternalOperation

	BreakOnBrk
	BreakOnCop
	BreakOnWdm
	BreakOnStp
	BreakOnUninitMemoryRead
	NesBreakOnDecayedOamRead
	GbInvalidOamAccess
	GbaUnalignedMemoryAccess
)

// IsException reports whether src is a CPU-internal exception source
// rather than a user-requested one.
func (src BreakSource) IsException() bool {
	return src > InternalOperation
}

// needed accumulates which axis (user, exception, or both) requested a
// break, per spec.md §4.8's break_needed field.
type needed int

const (
	needNone needed = 0
	needUser needed = 1 << iota
	needException
)

// Request holds every field of the step coordinator's StepRequest.
// BreakAddress and BreakStackPointer use -1 as their "disarmed"
// sentinel, since every real address is non-negative; BreakScanline
// uses INT32_MIN (disarmedScanline).
type Request struct {
	BreakAddress      int64
	BreakStackPointer int64
	StepCount         int32
	PpuStepCount      int32
	CpuCycleStepCount int32
	BreakScanline     int32
	Type              Type

	source   BreakSource
	exSource BreakSource
	need     needed
}

const disarmedScanline = int32(-1 << 31)

// NewRequest returns a fully-disarmed request.
func NewRequest() Request {
	return Request{BreakAddress: -1, BreakStackPointer: -1, BreakScanline: disarmedScanline}
}

// HasRequest reports whether any axis of the request is armed.
func (r Request) HasRequest() bool {
	return r.BreakAddress >= 0 ||
		r.BreakStackPointer >= 0 ||
		r.StepCount > 0 ||
		r.PpuStepCount > 0 ||
		r.CpuCycleStepCount > 0 ||
		r.BreakScanline != disarmedScanline
}

// SetBreakSource classifies a break per spec.md §4.8: exceptions latch
// into exSource (unless already set), anything else latches into
// source. wanted, if true, also records which axis asked for a pause.
func (r *Request) SetBreakSource(src BreakSource, wanted bool) {
	if src.IsException() {
		if r.exSource == SourceNone {
			r.exSource = src
		}
		if wanted {
			r.need |= needException
		}
		return
	}
	if r.source == SourceNone {
		r.source = src
	}
	if wanted {
		r.need |= needUser
	}
}

// EffectiveSource resolves which source should be reported as the
// reason for a halt: exception wins if set, then user source, else a
// plausible default derived from which axis is armed.
func (r Request) EffectiveSource() BreakSource {
	if r.exSource != SourceNone {
		return r.exSource
	}
	if r.source != SourceNone {
		return r.source
	}
	switch {
	case r.PpuStepCount > 0:
		return PpuStep
	case r.CpuCycleStepCount > 0, r.StepCount > 0:
		return CpuStep
	}
	return SourceNone
}

// ResetClassification clears source/exSource/need ahead of the next
// run, without disturbing the armed step-count/address fields
// themselves (those are cleared explicitly by the caller once consumed).
func (r *Request) ResetClassification() {
	r.source = SourceNone
	r.exSource = SourceNone
	r.need = needNone
}

// Clear fully disarms the request.
func (r *Request) Clear() {
	*r = NewRequest()
}

// TickInstruction is called after every CPU instruction. If StepCount
// is armed it is decremented; reaching zero requests a CpuStep break.
func (r *Request) TickInstruction() bool {
	if r.StepCount <= 0 {
		return false
	}
	r.StepCount--
	if r.StepCount == 0 {
		r.SetBreakSource(CpuStep, true)
		return true
	}
	return false
}

// TickCycle is called on every CPU cycle; same decrement-to-zero
// pattern as TickInstruction but for CpuCycleStepCount.
func (r *Request) TickCycle() bool {
	if r.CpuCycleStepCount <= 0 {
		return false
	}
	r.CpuCycleStepCount--
	if r.CpuCycleStepCount == 0 {
		r.SetBreakSource(CpuStep, true)
		return true
	}
	return false
}

// TickPpu is the PPU-cycle counterpart of TickCycle.
func (r *Request) TickPpu() bool {
	if r.PpuStepCount <= 0 {
		return false
	}
	r.PpuStepCount--
	if r.PpuStepCount == 0 {
		r.SetBreakSource(PpuStep, true)
		return true
	}
	return false
}

// PCReached reports whether pc matches an armed break_address, per
// spec.md §4.8's explicit PC-reach predicate checked where the CPU
// cores advance PC.
func (r *Request) PCReached(pc uint32) bool {
	if r.BreakAddress < 0 || int64(pc) != r.BreakAddress {
		return false
	}
	r.SetBreakSource(Breakpoint, true)
	return true
}

// SPReached reports whether sp matches an armed break_stack_pointer
// (used for step-over/step-out).
func (r *Request) SPReached(sp uint32) bool {
	if r.BreakStackPointer < 0 || int64(sp) != r.BreakStackPointer {
		return false
	}
	r.SetBreakSource(CpuStep, true)
	return true
}

// ScanlineReached reports whether scanline matches an armed
// break_scanline.
func (r *Request) ScanlineReached(scanline int32) bool {
	if r.BreakScanline == disarmedScanline || scanline != r.BreakScanline {
		return false
	}
	r.SetBreakSource(PpuStep, true)
	return true
}

// Coordinator owns the Request plus the suspend/resume condition
// variable described in spec.md §5: the emulation thread blocks on Wait
// until the UI thread calls Resume. Compound updates to the request
// take the mutex; HasRequest-style single-field reads from the
// emulation thread can race harmlessly per spec.md §5's atomic-fields
// note, but this implementation keeps it simple and always takes the
// lock, since the step coordinator is not a per-cycle hot path in the
// way the CDL or disassembly cache are.
type Coordinator struct {
	mu      sync.Mutex
	cond    *sync.Cond
	req     Request
	running bool
}

// NewCoordinator returns a coordinator with a disarmed request, halted.
func NewCoordinator() *Coordinator {
	c := &Coordinator{req: NewRequest()}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Run arms a free-running request and releases the emulation thread.
func (c *Coordinator) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = NewRequest()
	c.req.Type = TypeRun
	c.running = true
	c.cond.Broadcast()
}

// Pause halts emulation at the next suspension point.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req.SetBreakSource(Pause, true)
	c.running = false
}

// Step arms req and releases the emulation thread for exactly the
// requested extent.
func (c *Coordinator) Step(req Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = req
	c.running = true
	c.cond.Broadcast()
}

// Wait blocks the emulation thread until running is set, then returns
// the current request for the caller to consume and tick against.
func (c *Coordinator) Wait() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.running {
		c.cond.Wait()
	}
	return c.req
}

// Halt is called by the emulation thread once a request's ticking
// determines a break is due. It stops the run and stores the updated
// (ticked/classified) request back into the coordinator.
func (c *Coordinator) Halt(req Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = req
	c.running = false
}

// Request returns a copy of the current request, for UI inspection.
func (c *Coordinator) Request() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

// Running reports whether the emulation thread is currently released.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
