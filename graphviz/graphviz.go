// Package graphviz dumps debugger-core structures to Graphviz .dot
// files via github.com/bradleyjkemp/memviz, the same library the
// teacher's command template tests use to visualise a parsed command
// tree (debugger/terminal/commandline/parser_test.go).
package graphviz

import (
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"

	"github.com/jetsetilly/retrodbg/callstack"
	"github.com/jetsetilly/retrodbg/labels"
)

// WriteCallStack dumps the current call-stack frames and their cached
// ProfiledFunction pointers as a .dot graph, useful for visualising
// recursion depth and cross-references a flat listing hides.
func WriteCallStack(w io.Writer, s *callstack.Stack) {
	memviz.Map(w, s.Frames())
}

// WriteLabels dumps the label store's entries as a .dot graph.
func WriteLabels(w io.Writer, store *labels.Store) {
	type snapshot struct {
		Entries []labels.Entry
	}
	memviz.Map(w, snapshot{Entries: store.Entries()})
}

// DumpCallStackToFile is the common case: write path as a fresh .dot
// file describing s.
func DumpCallStackToFile(path string, s *callstack.Stack) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	WriteCallStack(f, s)
	return nil
}
