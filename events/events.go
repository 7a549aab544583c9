// Package events implements the frame-scoped debug event recorder
// described in spec.md §4.6: events accumulate on the emulation thread
// during a frame, then are handed off to a "previous frame" vector the
// UI thread can inspect while the next frame is being recorded.
package events

import "sync"

// Category classifies an event for the scanline x cycle viewer's colour
// coding.
type Category int

const (
	CategoryRegisterWrite Category = iota
	CategoryInterrupt
	CategoryBreakpoint
	CategoryWatch
	CategoryScriptNote
)

// DebugEvent is one recorded occurrence within a frame.
type DebugEvent struct {
	Scanline int
	Cycle    int
	Category Category
	Detail   string
}

// Recorder holds the current frame's events plus the previous frame's,
// for cross-frame inspection by the UI.
//
// Per spec.md §5, Record is called only from the emulation thread and
// is lock-free; EndFrame (on frame end) and Snapshot (from the UI thread)
// take a single lightweight lock, per the "lock discipline" note in
// spec.md §4.6.
type Recorder struct {
	mu sync.Mutex

	current  []DebugEvent
	previous []DebugEvent
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		current:  make([]DebugEvent, 0, 2048),
		previous: make([]DebugEvent, 0, 2048),
	}
}

// Record appends an event to the current frame. Called only from the
// emulation thread; takes no lock.
func (r *Recorder) Record(ev DebugEvent) {
	r.current = append(r.current, ev)
}

// EndFrame swaps current into previous and clears current, retaining
// its capacity so the next frame does not need to reallocate. This is
// the single O(1) operation that needs the lock: the UI thread may be
// mid-Snapshot of the previous vector when a frame boundary hits.
func (r *Recorder) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current, r.previous = r.previous, r.current
	r.current = r.current[:0]
}

// Previous returns a copy of the previous frame's events, safe for the
// UI thread to retain and render independently of ongoing recording.
func (r *Recorder) Previous() []DebugEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DebugEvent, len(r.previous))
	copy(out, r.previous)
	return out
}

// Snapshot returns every event in the previous frame at the given
// scanline and cycle, for mid-frame debugging (spec.md §4.6: "take an
// instantaneous snapshot at a given scanline/cycle").
func (r *Recorder) Snapshot(scanline, cycle int) []DebugEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []DebugEvent
	for _, ev := range r.previous {
		if ev.Scanline == scanline && ev.Cycle == cycle {
			out = append(out, ev)
		}
	}
	return out
}
