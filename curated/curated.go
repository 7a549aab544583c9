// Package curated implements a small error type that preserves the
// formatting pattern used to build an error, separately from the values
// used to fill it in. Callers that want to know "was this the CDL-load
// error" can match on the pattern with Is()/Has() rather than requiring a
// exported sentinel error for every failure mode in the debugger core.
package curated

import (
	"fmt"
	"strings"
)

// curated is the concrete error type returned by Errorf. The pattern is
// kept alongside the formatted values so Is/Has can compare against it
// without re-parsing the rendered message.
type curated struct {
	pattern string
	values  []interface{}
}

// Errorf builds a curated error. pattern is an fmt.Errorf-style format
// string; values are interpolated lazily, only when Error() is called.
func Errorf(pattern string, values ...interface{}) error {
	return curated{pattern: pattern, values: values}
}

// Error renders the message, collapsing an immediately-repeated prefix
// that results from wrapping one curated error inside another with the
// same leading clause (eg. "breakpoint: breakpoint: condition invalid").
func (e curated) Error() string {
	s := fmt.Errorf(e.pattern, e.values...).Error()

	parts := strings.SplitN(s, ": ", 3)
	if len(parts) > 1 && parts[0] == parts[1] {
		return strings.Join(parts[1:], ": ")
	}
	return strings.Join(parts, ": ")
}

// IsAny reports whether err was created by Errorf.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err is a curated error built from the given pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	e, ok := err.(curated)
	return ok && e.pattern == pattern
}

// Has reports whether pattern appears anywhere in err's chain of wrapped
// curated values.
func Has(err error, pattern string) bool {
	if !IsAny(err) {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	for _, v := range err.(curated).values {
		if wrapped, ok := v.(curated); ok && Has(wrapped, pattern) {
			return true
		}
	}
	return false
}
