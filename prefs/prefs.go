// Package prefs holds the small set of persistent, user-tunable
// settings the debugger core consults: step-back clock limits, CDL
// auto-save-on-unload, and disassembly display flags. Adapted from the
// teacher's disassembly/preferences.go and prefs/ packages, which roll
// their own load/save rather than reaching for a config-file library.
package prefs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jetsetilly/retrodbg/curated"
)

// Values holds every tunable the debugger core reads at runtime.
type Values struct {
	// StepBackClockLimit bounds step-back-by-instruction's forward
	// replay, per spec.md §4.8 ("~600 cycles default").
	StepBackClockLimit int

	// CDLAutoSaveOnUnload is the stored auto-save-on-unload setting for
	// CDL data. No code in this module reads it or saves CDL data on its
	// own; the debugger façade has no teardown step.
	CDLAutoSaveOnUnload bool

	// DisassemblyShowBytes and DisassemblyShowCycles toggle optional
	// columns in the disassembly listing.
	DisassemblyShowBytes  bool
	DisassemblyShowCycles bool
}

// Default returns the preference values a fresh installation starts
// with.
func Default() Values {
	return Values{
		StepBackClockLimit:    600,
		CDLAutoSaveOnUnload:   true,
		DisassemblyShowBytes:  true,
		DisassemblyShowCycles: false,
	}
}

// field describes one persisted preference for Save/Load, mirroring
// the teacher's prefs.Values field-tagging approach rather than using
// reflection or struct tags.
type field struct {
	key string
	get func(Values) string
	set func(*Values, string) error
}

func fields() []field {
	return []field{
		{"stepback.clocklimit",
			func(v Values) string { return strconv.Itoa(v.StepBackClockLimit) },
			func(v *Values, s string) error {
				n, err := strconv.Atoi(s)
				if err != nil {
					return curated.Errorf("prefs: stepback.clocklimit: %w", err)
				}
				v.StepBackClockLimit = n
				return nil
			}},
		{"cdl.autosave",
			func(v Values) string { return strconv.FormatBool(v.CDLAutoSaveOnUnload) },
			func(v *Values, s string) error {
				b, err := strconv.ParseBool(s)
				if err != nil {
					return curated.Errorf("prefs: cdl.autosave: %w", err)
				}
				v.CDLAutoSaveOnUnload = b
				return nil
			}},
		{"disassembly.showbytes",
			func(v Values) string { return strconv.FormatBool(v.DisassemblyShowBytes) },
			func(v *Values, s string) error {
				b, err := strconv.ParseBool(s)
				if err != nil {
					return curated.Errorf("prefs: disassembly.showbytes: %w", err)
				}
				v.DisassemblyShowBytes = b
				return nil
			}},
		{"disassembly.showcycles",
			func(v Values) string { return strconv.FormatBool(v.DisassemblyShowCycles) },
			func(v *Values, s string) error {
				b, err := strconv.ParseBool(s)
				if err != nil {
					return curated.Errorf("prefs: disassembly.showcycles: %w", err)
				}
				v.DisassemblyShowCycles = b
				return nil
			}},
	}
}

// Save writes every field as "key = value" lines, one per line.
func Save(w io.Writer, v Values) error {
	for _, f := range fields() {
		if _, err := fmt.Fprintf(w, "%s = %s\n", f.key, f.get(v)); err != nil {
			return curated.Errorf("prefs: save failed: %w", err)
		}
	}
	return nil
}

// Load reads "key = value" lines written by Save, applying them onto
// Default(). An unrecognised key is skipped rather than failing the
// whole load, so a preferences file from a newer version with extra
// keys still loads the keys this version understands.
func Load(r io.Reader) (Values, error) {
	v := Default()
	byKey := map[string]field{}
	for _, f := range fields() {
		byKey[f.key] = f
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		f, ok := byKey[key]
		if !ok {
			continue
		}
		if err := f.set(&v, val); err != nil {
			return v, err
		}
	}
	if err := sc.Err(); err != nil {
		return v, curated.Errorf("prefs: load failed: %w", err)
	}
	return v, nil
}
