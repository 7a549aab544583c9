// Package cdl implements the Code/Data Logger described in spec.md §4.4
// and §6: a per-ROM-byte flag accumulator, monotonic within a session,
// persisted in the "CDLv2" file format.
package cdl

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/jetsetilly/retrodbg/curated"
)

// Flags is the per-byte bit set. Bit layout matches spec.md §6 exactly
// so the persisted file format does not need a translation step.
type Flags uint8

const (
	Code          Flags = 0x01
	Data          Flags = 0x02
	JumpTarget    Flags = 0x04
	SubEntryPoint Flags = 0x08
	IndirectCode  Flags = 0x10
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Recorder is one tracked region's flag array. There is no locking:
// every mark_* call is a handful of byte-OR operations issued from the
// emulation thread on every fetch/access, and per spec.md §4.4 a
// doubled-up OR from a race is an acceptable, harmless outcome - never
// guarded with a mutex.
type Recorder struct {
	flags []Flags

	// phase is the current execution-phase label, set by SetPhase. An
	// empty phase means marks aren't attributed to any phase breakdown -
	// marking still behaves exactly as before.
	phase      string
	phaseStats map[string]*Stats
}

// New allocates a recorder for a region of the given byte size.
func New(size int) *Recorder {
	return &Recorder{flags: make([]Flags, size)}
}

// Reset clears every flag. This is the only operation in the component
// that clears bits - spec.md §8's CDL monotonicity invariant.
func (r *Recorder) Reset() {
	for i := range r.flags {
		r.flags[i] = 0
	}
	r.phaseStats = nil
}

// SetPhase records which execution-phase label (eg. a console's
// VBLANK/visible-screen/overscan kernel phase) subsequent mark_* calls
// belong to, per spec.md §12's phase-keyed CDL breakdown. The emulation
// core calls this on every phase transition; passing "" stops
// attributing marks to any phase without otherwise changing mark_*'s
// behaviour.
func (r *Recorder) SetPhase(phase string) {
	r.phase = phase
}

// Len returns the number of tracked bytes.
func (r *Recorder) Len() int { return len(r.flags) }

// Get returns the accumulated flags for offset, or 0 if out of range.
func (r *Recorder) Get(offset int) Flags {
	if offset < 0 || offset >= len(r.flags) {
		return 0
	}
	return r.flags[offset]
}

// MarkCode sets Code (plus extra on the first byte only) for width
// consecutive bytes starting at offset, per spec.md §4.4. Out-of-range
// bytes are silently skipped rather than erroring, since this is called
// from the hottest of hot paths and must never branch on anything but
// the array bound.
func (r *Recorder) MarkCode(offset int, width int, extra Flags) {
	r.mark(offset, width, Code, extra)
}

// MarkData is MarkCode's counterpart for data accesses.
func (r *Recorder) MarkData(offset int, width int, extra Flags) {
	r.mark(offset, width, Data, extra)
}

func (r *Recorder) mark(offset, width int, base, extra Flags) {
	if width <= 0 {
		width = 1
	}
	for i := 0; i < width; i++ {
		o := offset + i
		if o < 0 || o >= len(r.flags) {
			continue
		}
		bits := base
		if i == 0 {
			bits |= extra
		}
		before := r.flags[o]
		r.flags[o] |= bits
		if r.phase != "" {
			r.accumulatePhase(bits &^ before)
		}
	}
}

// accumulatePhase folds newly-set bits (bits that weren't already set
// before this call) into the current phase's running Stats. A bit
// already set by an earlier call - in this phase or another - is never
// counted twice, so per-phase totals partition the same flag bits
// Stats() counts globally rather than double-counting shared bytes.
func (r *Recorder) accumulatePhase(newlySet Flags) {
	if newlySet == 0 {
		return
	}
	if r.phaseStats == nil {
		r.phaseStats = map[string]*Stats{}
	}
	s, ok := r.phaseStats[r.phase]
	if !ok {
		s = &Stats{}
		r.phaseStats[r.phase] = s
	}
	if newlySet.Has(Code) {
		s.CodeBytes++
	}
	if newlySet.Has(Data) {
		s.DataBytes++
	}
	if newlySet.Has(JumpTarget) {
		s.JumpTargets++
	}
	if newlySet.Has(SubEntryPoint) {
		s.SubEntryPoints++
	}
}

// PhaseStats returns the CDL breakdown accumulated per phase label seen
// so far via SetPhase, per spec.md §12. TotalBytes in every entry is the
// recorder's full tracked size, for context, not a per-phase count.
func (r *Recorder) PhaseStats() map[string]Stats {
	out := make(map[string]Stats, len(r.phaseStats))
	for phase, s := range r.phaseStats {
		cp := *s
		cp.TotalBytes = len(r.flags)
		out[phase] = cp
	}
	return out
}

// Stats summarises the recorded flags on demand.
type Stats struct {
	TotalBytes     int
	CodeBytes      int
	DataBytes      int
	JumpTargets    int
	SubEntryPoints int
}

// Stats counts set bits of each kind, per spec.md §4.4.
func (r *Recorder) Stats() Stats {
	s := Stats{TotalBytes: len(r.flags)}
	for _, f := range r.flags {
		if f.Has(Code) {
			s.CodeBytes++
		}
		if f.Has(Data) {
			s.DataBytes++
		}
		if f.Has(JumpTarget) {
			s.JumpTargets++
		}
		if f.Has(SubEntryPoint) {
			s.SubEntryPoints++
		}
	}
	return s
}

const headerMagic = "CDLv2"

// Save writes the recorder's flags to path, preceded by the fixed
// "CDLv2" header and the ROM's CRC-32, per spec.md §6. The write is
// atomic: data lands in a temp file in the same directory and is then
// renamed over the destination, so a crash mid-write cannot corrupt an
// existing, valid coverage file.
func (r *Recorder) Save(path string, romCRC uint32) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cdl-*")
	if err != nil {
		return curated.Errorf("cdl: save failed: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := r.write(tmp, romCRC); err != nil {
		tmp.Close()
		return curated.Errorf("cdl: save failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return curated.Errorf("cdl: save failed: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return curated.Errorf("cdl: save failed: %w", err)
	}
	return nil
}

func (r *Recorder) write(w io.Writer, romCRC uint32) error {
	if _, err := io.WriteString(w, headerMagic); err != nil {
		return err
	}
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], romCRC)
	if _, err := w.Write(crcBuf[:]); err != nil {
		return err
	}
	raw := make([]byte, len(r.flags))
	for i, f := range r.flags {
		raw[i] = byte(f)
	}
	_, err := w.Write(raw)
	return err
}

// LoadResult reports the outcome of Load. FileCRC is the ROM CRC-32
// stored in the file's header. Load has no ROM CRC to compare it with,
// so it never sets CRCMismatch.
type LoadResult struct {
	CRCMismatch bool
	FileCRC     uint32
}

// Load reads a CDLv2 file into the recorder, replacing its current
// flags only on success. A truncated file (size mismatch against the
// recorder's current length) fails the load and leaves prior state
// untouched, per spec.md §7. The header's CRC is returned in
// LoadResult.FileCRC without being checked against anything.
func (r *Recorder) Load(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, curated.Errorf("cdl: load failed: %w", err)
	}

	const headerLen = 5 + 4
	if len(data) < headerLen {
		return LoadResult{}, curated.Errorf("cdl: truncated file (no header)")
	}
	if string(data[:5]) != headerMagic {
		return LoadResult{}, curated.Errorf("cdl: not a CDLv2 file")
	}

	fileCRC := binary.LittleEndian.Uint32(data[5:9])
	payload := data[headerLen:]

	if len(payload) != len(r.flags) {
		return LoadResult{}, curated.Errorf("cdl: truncated file (expected %d bytes, got %d)", len(r.flags), len(payload))
	}

	next := make([]Flags, len(payload))
	for i, b := range payload {
		next[i] = Flags(b)
	}
	r.flags = next

	return LoadResult{FileCRC: fileCRC}, nil
}

// ROMCRC32 computes the CRC-32 Save/Load compare against, over the raw
// ROM image bytes.
func ROMCRC32(rom []byte) uint32 {
	return crc32.ChecksumIEEE(rom)
}
