package graphviz_test

import (
	"path/filepath"
	"testing"

	"github.com/jetsetilly/retrodbg/callstack"
	"github.com/jetsetilly/retrodbg/graphviz"
	"github.com/jetsetilly/retrodbg/labels"
	"github.com/jetsetilly/retrodbg/memmap"
)

func TestDumpCallStackToFile(t *testing.T) {
	s := callstack.NewSize(4, nil)
	s.Push(0x1000, 0x2000, false, 0)

	path := filepath.Join(t.TempDir(), "stack.dot")
	if err := graphviz.DumpCallStackToFile(path, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteLabels(t *testing.T) {
	store := labels.New()
	store.Add("Reset", memmap.AddressInfo{Region: memmap.RegionPrgROM, Offset: 0x100}, "")

	var buf writerBuf
	graphviz.WriteLabels(&buf, store)
	if buf.Len() == 0 {
		t.Fatalf("expected memviz to write a non-empty graph")
	}
}

type writerBuf struct{ data []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *writerBuf) Len() int { return len(w.data) }
