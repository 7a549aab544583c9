// Package script implements the memory-callback bridge described in
// spec.md §4.9: scripts register read/write/exec callbacks and the
// bridge dispatches per-access, grouped by the teacher's access-kind
// categories rather than exposing every memmap.OpKind to script
// authors individually.
package script

import "github.com/jetsetilly/retrodbg/memmap"

// Callback is invoked for a matching memory access. value is the byte
// transferred (read result, or the value about to be written).
type Callback func(op memmap.Operation, value uint8)

// Bridge dispatches memory accesses to registered script callbacks.
// The host (whatever runs the script's own language/VM) owns callback
// lifetime; this package only routes.
type Bridge struct {
	reads  []Callback
	writes []Callback
	execs  []Callback

	// processExec is set by the CPU core for opcode fetches only -
	// operand fetches never trigger Exec callbacks even though both are
	// OpKind.IsExec(), per spec.md §4.9.
	processExec bool
}

// New returns an empty bridge.
func New() *Bridge {
	return &Bridge{}
}

// OnRead registers a callback for read-class accesses (Read, DmaRead,
// PpuRenderingRead, DummyRead).
func (b *Bridge) OnRead(cb Callback) { b.reads = append(b.reads, cb) }

// OnWrite registers a callback for write-class accesses (Write,
// DmaWrite, DummyWrite).
func (b *Bridge) OnWrite(cb Callback) { b.writes = append(b.writes, cb) }

// OnExec registers a callback for opcode-fetch accesses.
func (b *Bridge) OnExec(cb Callback) { b.execs = append(b.execs, cb) }

// SetProcessExec arms or disarms Exec dispatch; the CPU core sets this
// true only while fetching the opcode byte itself, not its operands.
func (b *Bridge) SetProcessExec(on bool) { b.processExec = on }

// HasScript is the single-byte fast path from spec.md §4.9: callers
// that hold a *Bridge test this before doing any further work on an
// access that might otherwise dispatch to a script.
func (b *Bridge) HasScript() bool {
	return len(b.reads) > 0 || len(b.writes) > 0 || len(b.execs) > 0
}

// Dispatch routes op to the appropriate callback group, per the
// grouping table in spec.md §4.9.
func (b *Bridge) Dispatch(op memmap.Operation, value uint8) {
	if !b.HasScript() {
		return
	}

	switch {
	case op.Kind == memmap.OpRead, op.Kind == memmap.OpDmaRead,
		op.Kind == memmap.OpPpuRenderingRead, op.Kind == memmap.OpDummyRead:
		for _, cb := range b.reads {
			cb(op, value)
		}

	case op.Kind == memmap.OpWrite, op.Kind == memmap.OpDmaWrite, op.Kind == memmap.OpDummyWrite:
		for _, cb := range b.writes {
			cb(op, value)
		}

	case op.Kind == memmap.OpExecOpcode:
		if b.processExec {
			for _, cb := range b.execs {
				cb(op, value)
			}
		}

	case op.Kind == memmap.OpExecOperand:
		// operand fetches are never dispatched to Exec callbacks, per
		// spec.md §4.9 - process_exec gates opcode fetches only.
	}
}
