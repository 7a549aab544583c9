// Package callstack implements the fixed-capacity call-stack ring
// buffer and cycle profiler described in spec.md §4.7.
package callstack

import "github.com/jetsetilly/retrodbg/logger"

// defaultCapacity is large enough to survive pathological non-JSR/RTS
// code without overflowing in practice, per spec.md §4.7.
const defaultCapacity = 512

// StackFrame is one entry pushed on subroutine entry or interrupt.
type StackFrame struct {
	ReturnAddr  uint32
	EntryAddr   uint32
	IsInterrupt bool // set for IRQ/NMI frames; profiler inclusive-time propagation stops here

	fn *ProfiledFunction // cached on push, per spec.md §4.7's mandatory optimisation

	pushCycle   int64 // cycle count at push, kept per-frame so recursive calls into the same function don't alias
	childCycles int64 // cycles already attributed to children popped while this frame was on top
	recursive   bool  // true if this function is already somewhere below on the stack

	interruptCycles int64 // cycles spent in interrupt frames (and their callees) while this frame was on the stack
}

// Stack is a fixed-capacity ring buffer of StackFrame. Push/Pop are
// called from the emulation thread only and take no lock - the UI
// thread only ever reads a Snapshot.
type Stack struct {
	frames   []StackFrame
	top      int // index one past the newest frame
	overflow int // count of pushes that wrapped and discarded the oldest frame

	prof *Profiler
}

// New returns a stack with the default capacity, wired to prof for the
// cached-pointer optimisation on push/pop.
func New(prof *Profiler) *Stack {
	return NewSize(defaultCapacity, prof)
}

// NewSize returns a stack with an explicit capacity, mainly for tests.
func NewSize(capacity int, prof *Profiler) *Stack {
	return &Stack{frames: make([]StackFrame, capacity), prof: prof}
}

// Len returns the number of frames currently on the stack (capped at
// capacity; older frames are silently dropped past that point).
func (s *Stack) Len() int {
	if s.top > len(s.frames) {
		return len(s.frames)
	}
	return s.top
}

// Push records a subroutine or interrupt entry. entryAddr is the
// address the profiler should key on (the called routine's first
// instruction); returnAddr is what a matching RET/RTS targets.
func (s *Stack) Push(entryAddr, returnAddr uint32, isInterrupt bool, cycle int64) {
	var fn *ProfiledFunction
	recursive := false
	if s.prof != nil {
		fn = s.prof.onPush(entryAddr)
		for i := 0; i < s.Len(); i++ {
			if s.frames[i].EntryAddr == entryAddr {
				recursive = true
				break
			}
		}
	}

	frame := StackFrame{
		ReturnAddr:  returnAddr,
		EntryAddr:   entryAddr,
		IsInterrupt: isInterrupt,
		fn:          fn,
		pushCycle:   cycle,
		recursive:   recursive,
	}

	if s.top >= len(s.frames) {
		// ring buffer wrap: oldest frame (index 0 conceptually) is
		// discarded to make room, per spec.md §4.7's "survive
		// pathological non-JSR/RTS code" requirement.
		copy(s.frames, s.frames[1:])
		s.frames[len(s.frames)-1] = frame
		s.overflow++
		return
	}
	s.frames[s.top] = frame
	s.top++
}

// Pop removes and returns the newest frame. The bool is false on
// underflow (RET with an empty stack), which spec.md §4.7 says must
// warn rather than crash.
func (s *Stack) Pop(cycle int64) (StackFrame, bool) {
	if s.top == 0 {
		logger.Log("callstack", "stack underflow on return")
		return StackFrame{}, false
	}
	s.top--
	frame := s.frames[s.top]
	if s.prof != nil && frame.fn != nil {
		span := cycle - frame.pushCycle
		if span < 0 {
			span = 0
		}
		elapsed := span - frame.interruptCycles
		if elapsed < 0 {
			elapsed = 0
		}
		s.prof.onPop(frame, elapsed)

		// a non-interrupt child's time counts against its parent's
		// exclusive total via childCycles. An interrupt frame's whole
		// span is instead added to the parent's interruptCycles, which
		// is taken out of the parent's elapsed time when it pops, so an
		// ISR's cycles stay attributed to the ISR, never folded into
		// the routine it interrupted (neither its exclusive nor its
		// inclusive total).
		if s.top > 0 {
			parent := &s.frames[s.top-1]
			if frame.IsInterrupt {
				parent.interruptCycles += span
			} else {
				parent.childCycles += elapsed
				parent.interruptCycles += frame.interruptCycles
			}
		}
	}
	return frame, true
}

// IsReturnAddrMatch scans newest-to-oldest for a frame whose
// ReturnAddr equals addr. Called from the CPU core on every return
// instruction; must stay cheap - a linear scan over a small, hot,
// cache-resident array, never an allocation.
func (s *Stack) IsReturnAddrMatch(addr uint32) bool {
	n := s.Len()
	for i := n - 1; i >= 0; i-- {
		if s.frames[i].ReturnAddr == addr {
			return true
		}
	}
	return false
}

// Frames returns a copy of the current stack, oldest first, for UI
// display.
func (s *Stack) Frames() []StackFrame {
	n := s.Len()
	out := make([]StackFrame, n)
	copy(out, s.frames[:n])
	return out
}

