package events_test

import (
	"testing"

	"github.com/jetsetilly/retrodbg/events"
)

func TestRecordAndEndFrame(t *testing.T) {
	r := events.New()
	r.Record(events.DebugEvent{Scanline: 10, Cycle: 3, Category: events.CategoryInterrupt})
	r.Record(events.DebugEvent{Scanline: 11, Cycle: 4, Category: events.CategoryWatch})

	if len(r.Previous()) != 0 {
		t.Fatalf("expected no previous-frame events before the first EndFrame")
	}

	r.EndFrame()
	prev := r.Previous()
	if len(prev) != 2 {
		t.Fatalf("expected 2 events carried into previous, got %d", len(prev))
	}

	// current frame must be empty again after the swap
	r.EndFrame()
	if len(r.Previous()) != 0 {
		t.Fatalf("expected previous to be empty after swapping in an empty current frame")
	}
}

func TestSnapshot(t *testing.T) {
	r := events.New()
	r.Record(events.DebugEvent{Scanline: 5, Cycle: 9, Category: events.CategoryBreakpoint, Detail: "A"})
	r.Record(events.DebugEvent{Scanline: 5, Cycle: 9, Category: events.CategoryWatch, Detail: "B"})
	r.Record(events.DebugEvent{Scanline: 6, Cycle: 9, Category: events.CategoryWatch, Detail: "C"})
	r.EndFrame()

	got := r.Snapshot(5, 9)
	if len(got) != 2 {
		t.Fatalf("expected 2 events at (5,9), got %d", len(got))
	}
}
