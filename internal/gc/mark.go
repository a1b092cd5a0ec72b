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

package gc

import "github.com/bianyuan1986/lua-analysis/internal/value"

// SetRoots installs the function the collector calls at the start of
// every cycle to mark the state's roots (registry, running threads'
// stacks, open upvalues, fixed objects — spec §8's "GC liveness"
// property). mark may be called any number of times with any Value.
func (c *Collector) SetRoots(f func(mark func(value.Value))) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rootFunc = f
}

func otherWhite(w uint8) uint8 {
	if w == bitWhite0 {
		return bitWhite1
	}
	return bitWhite0
}

// These must match the bit values internal/value assigns bitWhite0 and
// bitWhite1; Header.IsDead/MakeWhite treat currentWhite as an opaque
// bit the caller supplies rather than validating it.
const (
	bitWhite0 uint8 = 1
	bitWhite1 uint8 = 2
)

// markValue marks the object a Value points at, if any, gray and
// enqueues it for traversal. Called both for root marking and while
// traversing an already-gray object's referents.
func (c *Collector) markValue(v value.Value) {
	o, ok := v.Object()
	if !ok {
		return
	}
	c.markObject(o)
}

func (c *Collector) markObject(o value.Object) {
	h := o.Header()
	if h.IsFixed() {
		return
	}
	if !h.IsWhite() {
		return
	}
	h.MakeGray()
	c.gray = append(c.gray, o)
}

// propagateOne pops one gray object, blackens it, and traverses its
// referents, mirroring spec §4.4's propagate phase. Returns false when
// the gray worklist was empty.
func (c *Collector) propagateOne() bool {
	n := len(c.gray)
	if n == 0 {
		return false
	}
	o := c.gray[n-1]
	c.gray = c.gray[:n-1]
	h := o.Header()
	h.MakeBlack()
	o.Traverse(c.markValue, func(child value.Object) {
		c.markObject(child)
	})
	return true
}

// propagateAll drains the gray worklist completely; used by FullGC
// and by the atomic phase's remarking passes.
func (c *Collector) propagateAll() {
	for c.propagateOne() {
	}
}

// markRootsLocked invokes the installed root provider, if any.
func (c *Collector) markRootsLocked() {
	if c.rootFunc != nil {
		c.rootFunc(c.markValue)
	}
	for o := c.allgc; o != nil; o = o.Header().Next() {
		if o.Header().IsFixed() {
			c.markObject(o)
		}
	}
}
