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

package table

import (
	"math/bits"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/bianyuan1986/lua-analysis/internal/value"
)

const (
	maxABits = 30
	maxASize = 1 << maxABits
	maxHBits = maxABits - 1
)

// ErrNilKey and ErrNaNKey report the two key values spec §4.3 forbids.
var (
	ErrNilKey = errors.New("table index is nil")
	ErrNaNKey = errors.New("table index is NaN")
)

// Table is the hybrid array+hash container of spec §3/§4.3.
type Table struct {
	hdr      value.Header
	array    []value.Value
	node     []Node
	dummy    bool
	lastFree int // cursor into node, scanned downward for a free slot
	meta     *Table
	flags    uint8 // bit i set => metamethod i is known absent
	seed     uint32
}

func New(seed uint32) *Table {
	t := &Table{seed: seed, flags: ^uint8(0)}
	t.hdr = value.NewHeader(value.KindTable, 0)
	t.setNodeVector(0)
	return t
}

func NewSized(seed uint32, narray, nhash int) *Table {
	t := New(seed)
	if narray > 0 {
		t.setArrayVector(narray)
	}
	if nhash > 0 {
		t.setNodeVector(nhash)
	}
	return t
}

func (t *Table) Header() *value.Header { return &t.hdr }
func (t *Table) Identity() uintptr     { return uintptr(unsafe.Pointer(t)) }
func (t *Table) Size() uintptr {
	return unsafe.Sizeof(*t) + uintptr(len(t.array))*unsafe.Sizeof(value.Value{}) + uintptr(len(t.node))*unsafe.Sizeof(Node{})
}

func (t *Table) Traverse(mark func(value.Value), barrier func(value.Object)) {
	for _, v := range t.array {
		mark(v)
	}
	for _, n := range t.node {
		if !n.val.IsNil() {
			mark(n.key)
			mark(n.val)
		}
	}
	if t.meta != nil {
		barrier(t.meta)
	}
}

func (t *Table) Metatable() *Table     { return t.meta }
func (t *Table) SetMetatable(m *Table) { t.meta = m; t.InvalidateTMCache() }

// TMCached reports whether metamethod bit i is cached absent.
func (t *Table) TMCached(bit uint8) bool { return t.flags&(1<<bit) != 0 }
func (t *Table) SetTMCached(bit uint8)   { t.flags |= 1 << bit }

// InvalidateTMCache clears the cached-absent-metamethod flags, per
// spec §3 ("cleared on any mutation").
func (t *Table) InvalidateTMCache() { t.flags = 0 }

func ceilLog2(x int) int {
	if x <= 1 {
		return 0
	}
	return bits.Len(uint(x - 1))
}

// arrayIndex returns (k, true) if key is an integer in (0, maxASize],
// i.e. a key that could live in the array part, per ltable.c's
// arrayindex.
func arrayIndex(key value.Value) (int, bool) {
	if k, ok := key.AsInt(); ok {
		if k > 0 && k <= maxASize {
			return int(k), true
		}
	}
	return 0, false
}

// Get returns the value for key, or the nil Value when absent. Get
// never allocates and never inserts, per spec §4.3.
func (t *Table) Get(key value.Value) value.Value {
	key = value.Canonicalize(key)
	if i, ok := arrayIndex(key); ok && i <= len(t.array) {
		return t.array[i-1]
	}
	if key.IsNil() {
		return value.Nil
	}
	idx := t.mainPosition(key)
	for {
		n := &t.node[idx]
		if !n.key.IsNil() && value.RawEqual(n.key, key) {
			return n.val
		}
		if n.next == 0 {
			return value.Nil
		}
		idx += int(n.next)
	}
}

// GetInt is the integer-key fast path (ltable.c's luaH_getint),
// avoiding the Value boxing/canonicalization Get needs for a
// polymorphic key.
func (t *Table) GetInt(key int64) value.Value {
	if key > 0 && key <= int64(len(t.array)) {
		return t.array[key-1]
	}
	return t.Get(value.Int(key))
}

// Set finds or creates the slot for key and stores val into it.
// val == nil-Value deletes nothing explicitly; storing the nil Value
// simply makes the slot read back as absent, matching the source
// (there is no separate delete operation).
func (t *Table) Set(key value.Value, val value.Value) error {
	key = value.Canonicalize(key)
	if key.IsNil() {
		return ErrNilKey
	}
	if key.IsNaN() {
		return ErrNaNKey
	}
	t.InvalidateTMCache()
	if i, ok := arrayIndex(key); ok && i <= len(t.array) {
		t.array[i-1] = val
		return nil
	}
	idx := t.mainPosition(key)
	for {
		n := &t.node[idx]
		if !n.key.IsNil() && value.RawEqual(n.key, key) {
			n.val = val
			return nil
		}
		if n.next == 0 {
			break
		}
		idx += int(n.next)
	}
	slot, err := t.newKey(key)
	if err != nil {
		return err
	}
	if slot < 0 {
		// a rehash moved key's slot into the array part
		return t.Set(key, val)
	}
	t.node[slot].val = val
	return nil
}

func (t *Table) SetInt(key int64, val value.Value) error {
	if key > 0 && key <= int64(len(t.array)) {
		t.array[key-1] = val
		t.InvalidateTMCache()
		return nil
	}
	return t.Set(value.Int(key), val)
}

// newKey inserts key (assumed not already present) using the
// Brent-variant collision discipline of spec §4.3, returning the node
// index now holding key (with a nil value for the caller to fill in),
// or -1 when a rehash has made key an array-part index instead.
func (t *Table) newKey(key value.Value) (int, error) {
	mp := t.mainPosition(key)
	if !t.node[mp].key.IsNil() || t.dummy {
		free := t.getFreePos()
		if free < 0 {
			if err := t.rehash(key); err != nil {
				return 0, err
			}
			if i, ok := arrayIndex(key); ok && i <= len(t.array) {
				return -1, nil
			}
			return t.newKey(key)
		}
		othern := t.mainPosition(t.node[mp].key)
		if othern != mp {
			// the occupant of mp is not at its own main position:
			// relocate it to the free slot and claim mp for key.
			prev := othern
			for prev+int(t.node[prev].next) != mp {
				prev += int(t.node[prev].next)
			}
			t.node[prev].next = int32(free - prev)
			t.node[free] = t.node[mp]
			if t.node[mp].next != 0 {
				t.node[free].next += int32(mp - free)
				t.node[mp].next = 0
			}
			t.node[mp].key = value.Nil
			t.node[mp].val = value.Nil
			mp = free
		} else {
			// occupant is in its own main position: new key goes to
			// the free slot, chained after the occupant.
			if t.node[mp].next != 0 {
				t.node[free].next = int32((mp + int(t.node[mp].next)) - free)
			}
			t.node[mp].next = int32(free - mp)
			mp = free
		}
	}
	t.node[mp].key = key
	t.node[mp].val = value.Nil
	return mp, nil
}

// getFreePos scans backward from the cursor for a node whose key is
// nil, per ltable.c's getfreepos.
func (t *Table) getFreePos() int {
	if t.dummy {
		return -1
	}
	for t.lastFree > 0 {
		t.lastFree--
		if t.node[t.lastFree].key.IsNil() {
			return t.lastFree
		}
	}
	return -1
}
