package memmap_test

import (
	"testing"

	"github.com/jetsetilly/retrodbg/memmap"
)

func TestAddressInfoMapped(t *testing.T) {
	unmapped := memmap.AddressInfo{Region: memmap.RegionWorkRAM, Offset: -1}
	if unmapped.Mapped() {
		t.Fatalf("offset -1 should mean unmapped")
	}

	mapped := memmap.AddressInfo{Region: memmap.RegionWorkRAM, Offset: 10}
	if !mapped.Mapped() {
		t.Fatalf("non-negative offset should mean mapped")
	}
	if !mapped.Valid(128) {
		t.Fatalf("offset 10 should be valid for a 128 byte region")
	}
	if mapped.Valid(5) {
		t.Fatalf("offset 10 should not be valid for a 5 byte region")
	}
}

func TestOpKindClassification(t *testing.T) {
	if !memmap.OpDummyRead.IsDummy() {
		t.Fatalf("dummy read should be dummy")
	}
	if memmap.OpRead.IsDummy() {
		t.Fatalf("ordinary read should not be dummy")
	}
	if !memmap.OpDmaWrite.IsDMA() || !memmap.OpDmaWrite.IsWrite() {
		t.Fatalf("DMA write should be both DMA and a write")
	}
	if !memmap.OpExecOperand.IsExec() {
		t.Fatalf("exec operand should be exec")
	}
}
