package script_test

import (
	"testing"

	"github.com/jetsetilly/retrodbg/memmap"
	"github.com/jetsetilly/retrodbg/script"
)

func TestHasScriptFastPath(t *testing.T) {
	b := script.New()
	if b.HasScript() {
		t.Fatalf("expected a fresh bridge to report no script")
	}
	b.OnRead(func(memmap.Operation, uint8) {})
	if !b.HasScript() {
		t.Fatalf("expected HasScript to report true once a callback is registered")
	}
}

func TestReadGroupDispatch(t *testing.T) {
	b := script.New()
	var got []memmap.OpKind
	b.OnRead(func(op memmap.Operation, v uint8) { got = append(got, op.Kind) })

	for _, k := range []memmap.OpKind{memmap.OpRead, memmap.OpDmaRead, memmap.OpPpuRenderingRead, memmap.OpDummyRead} {
		b.Dispatch(memmap.Operation{Kind: k}, 0)
	}
	if len(got) != 4 {
		t.Fatalf("expected all 4 read-class kinds to dispatch, got %d", len(got))
	}
}

func TestWriteGroupDispatch(t *testing.T) {
	b := script.New()
	count := 0
	b.OnWrite(func(memmap.Operation, uint8) { count++ })

	for _, k := range []memmap.OpKind{memmap.OpWrite, memmap.OpDmaWrite, memmap.OpDummyWrite} {
		b.Dispatch(memmap.Operation{Kind: k}, 0)
	}
	if count != 3 {
		t.Fatalf("expected 3 write-class dispatches, got %d", count)
	}
}

func TestExecGatedByProcessExec(t *testing.T) {
	b := script.New()
	count := 0
	b.OnExec(func(memmap.Operation, uint8) { count++ })

	b.Dispatch(memmap.Operation{Kind: memmap.OpExecOpcode}, 0)
	if count != 0 {
		t.Fatalf("expected exec dispatch to be gated off by default")
	}

	b.SetProcessExec(true)
	b.Dispatch(memmap.Operation{Kind: memmap.OpExecOpcode}, 0)
	if count != 1 {
		t.Fatalf("expected exactly one exec dispatch once gated on")
	}

	b.Dispatch(memmap.Operation{Kind: memmap.OpExecOperand}, 0)
	if count != 1 {
		t.Fatalf("operand fetches must never trigger exec callbacks, got count=%d", count)
	}
}
