// Copyright 2024 The lua-analysis Authors
// This file is part of lua-analysis.
//
// lua-analysis is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// lua-analysis is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with lua-analysis. If not, see <http://www.gnu.org/licenses/>.

package strtab

import (
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// maxSize bounds the intern table's bucket array, mirroring the
// practical ceiling lstring.c enforces via MAX_INT-based overflow
// checks before doubling again.
const maxSize = 1 << 24

// minSize is the table's starting bucket count (lstate.c's
// MINSTRTABSIZE).
const minSize = 32

// Heap is the allocator/GC collaborator the string table needs:
// accounting for bytes allocated (which may trigger a GC step or
// raise a memory error) and linking newly created strings into the
// "all objects" list so the collector can find and eventually sweep
// them. Implemented by the gc package; kept as a narrow interface
// here so strtab has no import-time dependency on gc.
type Heap interface {
	AccountBytes(n int64) error
	Register(o value.Object)
}

// Table is the process-wide-per-state intern table for short strings,
// per spec §4.2.
type Table struct {
	heap    Heap
	seed    uint32
	buckets []*Str
	nuse    int
}

func New(heap Heap, seed uint32) *Table {
	t := &Table{heap: heap, seed: seed}
	t.resize(minSize)
	return t
}

func (t *Table) Seed() uint32 { return t.seed }
func (t *Table) Len() int     { return t.nuse }

// resize grows (never shrinks, matching luaS_resize's only caller
// pattern — SPEC_FULL.md §1) the bucket array to newSize and rehashes
// every entry into its new bucket.
func (t *Table) resize(newSize int) {
	old := t.buckets
	t.buckets = make([]*Str, newSize)
	for _, head := range old {
		for p := head; p != nil; {
			next := p.hnext
			idx := int(p.hash) % newSize
			p.hnext = t.buckets[idx]
			t.buckets[idx] = p
			p = next
		}
	}
}

// Intern locates or creates the short string with the given bytes.
// Spec §4.2 "intern(bytes)".
func (t *Table) Intern(b []byte) (*Str, error) {
	if len(b) > MaxShortLen {
		panic("strtab: Intern called with a long string")
	}
	h := hashBytes(b, t.seed)
	idx := int(h) % len(t.buckets)
	for p := t.buckets[idx]; p != nil; p = p.hnext {
		if p.hash == h && bytesEqual(p.data, b) {
			return p, nil
		}
	}
	if err := t.heap.AccountBytes(int64(len(b)) + 32); err != nil {
		return nil, err
	}
	if t.nuse >= len(t.buckets) && len(t.buckets) < maxSize {
		t.resize(len(t.buckets) * 2)
		idx = int(h) % len(t.buckets)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	s := &Str{data: cp, hash: h, long: false, hashed: true}
	s.hdr = value.NewHeader(value.KindShortString, 0)
	s.hnext = t.buckets[idx]
	t.buckets[idx] = s
	t.nuse++
	t.heap.Register(s)
	return s, nil
}

// InternString is a convenience wrapper over Intern for Go string
// inputs; the caller is responsible for ensuring len(s) <= MaxShortLen.
func (t *Table) InternString(s string) (*Str, error) {
	return t.Intern([]byte(s))
}

// NewLong creates a long string without interning it, per spec §4.2
// "new_long(bytes)". Long strings are still collectable: they are
// registered with the heap like any other object, just not linked
// into the bucket chains.
func (t *Table) NewLong(b []byte) (*Str, error) {
	if err := t.heap.AccountBytes(int64(len(b)) + 32); err != nil {
		return nil, err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	s := &Str{data: cp, long: true}
	s.hdr = value.NewHeader(value.KindLongString, 0)
	t.heap.Register(s)
	return s, nil
}

// New creates either a short (interned) or long string depending on
// length, which is the usual entry point a compiler or VM uses when
// materializing a string constant or concatenation result.
func (t *Table) New(b []byte) (*Str, error) {
	if len(b) <= MaxShortLen {
		return t.Intern(b)
	}
	return t.NewLong(b)
}

// Remove unlinks a short string from its bucket chain during sweep,
// per spec §4.2 "remove(obj)". Long strings need no table removal;
// the collector simply frees them.
func (t *Table) Remove(s *Str) {
	if s.long {
		return
	}
	idx := int(s.hash) % len(t.buckets)
	var prev *Str
	for p := t.buckets[idx]; p != nil; p = p.hnext {
		if p == s {
			if prev == nil {
				t.buckets[idx] = p.hnext
			} else {
				prev.hnext = p.hnext
			}
			t.nuse--
			return
		}
		prev = p
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
