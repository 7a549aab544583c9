// Package labels implements the bidirectional name<->address store
// described in spec.md §4.2: the disassembler asks it for a symbolic
// name to print next to an address, and the expression evaluator asks
// it for the address a symbolic name refers to.
//
// Mutation is copy-on-set, mirroring the teacher's discipline for data
// the UI thread writes and the emulation thread only reads (spec.md §5):
// Add, Remove, Clear and Read build a new map and swap an atomic pointer to it, so a
// concurrent Lookup/Resolve never observes a partially-updated store.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/jetsetilly/retrodbg/curated"
	"github.com/jetsetilly/retrodbg/memmap"
)

// Entry is one label, optionally with a comment.
type Entry struct {
	Name    string
	Address memmap.AddressInfo
	Comment string
}

type table struct {
	byName map[string]Entry
	byAddr map[memmap.AddressInfo]Entry
}

func newTable() *table {
	return &table{byName: map[string]Entry{}, byAddr: map[memmap.AddressInfo]Entry{}}
}

// Store is the label store. The zero value is not usable; use New.
type Store struct {
	cur atomic.Pointer[table]
}

// New returns an empty, ready-to-use label store.
func New() *Store {
	s := &Store{}
	s.cur.Store(newTable())
	return s
}

// Lookup returns the label at (region, offset), if any.
func (s *Store) Lookup(addr memmap.AddressInfo) (Entry, bool) {
	e, ok := s.cur.Load().byAddr[addr]
	return e, ok
}

// Resolve returns the address a label name refers to. Lookups are
// case-insensitive; names are folded to upper-case on Add.
func (s *Store) Resolve(name string) (memmap.AddressInfo, bool) {
	e, ok := s.cur.Load().byName[strings.ToUpper(name)]
	return e.Address, ok
}

// Add inserts or replaces a label. Per spec.md §4.2, a name maps to at
// most one address globally (not merely within a region) - adding a
// name that already exists at a different address replaces the old
// association entirely, rather than creating a second entry.
func (s *Store) Add(name string, addr memmap.AddressInfo, comment string) error {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return curated.Errorf("labels: name must not be empty")
	}

	old := s.cur.Load()
	next := newTable()
	for k, v := range old.byName {
		if k == name {
			continue
		}
		next.byName[k] = v
		next.byAddr[v.Address] = v
	}

	e := Entry{Name: name, Address: addr, Comment: comment}
	next.byName[name] = e
	next.byAddr[addr] = e

	s.cur.Store(next)
	return nil
}

// Remove deletes a label by name. A no-op if the name is not present.
func (s *Store) Remove(name string) {
	name = strings.ToUpper(strings.TrimSpace(name))
	old := s.cur.Load()
	if _, ok := old.byName[name]; !ok {
		return
	}

	next := newTable()
	for k, v := range old.byName {
		if k == name {
			continue
		}
		next.byName[k] = v
		next.byAddr[v.Address] = v
	}
	s.cur.Store(next)
}

// Clear removes every label in one atomic step - either all labels are
// cleared or none are observed to be, per spec.md §4.2.
func (s *Store) Clear() {
	s.cur.Store(newTable())
}

// Len returns the number of defined labels.
func (s *Store) Len() int {
	return len(s.cur.Load().byName)
}

// Entries returns a snapshot of every defined label, in no particular
// order.
func (s *Store) Entries() []Entry {
	t := s.cur.Load()
	out := make([]Entry, 0, len(t.byName))
	for _, e := range t.byName {
		out = append(out, e)
	}
	return out
}

// Write serialises the store as two-column text, one label per line:
// "region+offset<TAB>name[<TAB>comment]", per the persisted-workspace
// layout in spec.md §6.
func (s *Store) Write(w io.Writer) error {
	t := s.cur.Load()
	for _, e := range t.byName {
		line := fmt.Sprintf("%d+%d\t%s", e.Address.Region, e.Address.Offset, e.Name)
		if e.Comment != "" {
			line += "\t" + e.Comment
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Read loads labels from the two-column text format written by Write,
// replacing the current store contents atomically on success. A
// malformed line is skipped rather than aborting the whole load, since a
// hand-edited labels file is allowed to have stray junk in it.
func (s *Store) Read(r io.Reader) error {
	next := newTable()

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cols := strings.SplitN(line, "\t", 3)
		if len(cols) < 2 {
			continue
		}

		var region, offset int
		if _, err := fmt.Sscanf(cols[0], "%d+%d", &region, &offset); err != nil {
			continue
		}

		name := strings.ToUpper(strings.TrimSpace(cols[1]))
		if name == "" {
			continue
		}
		comment := ""
		if len(cols) == 3 {
			comment = cols[2]
		}

		ai := memmap.AddressInfo{Region: memmap.Region(region), Offset: int32(offset)}
		e := Entry{Name: name, Address: ai, Comment: comment}
		next.byName[name] = e
		next.byAddr[ai] = e
	}
	if err := sc.Err(); err != nil {
		return curated.Errorf("labels: read failed: %w", err)
	}

	s.cur.Store(next)
	return nil
}
