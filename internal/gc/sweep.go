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

import (
	"go.uber.org/zap"

	"github.com/bianyuan1986/lua-analysis/internal/strtab"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// Finalizer is implemented by heap objects that run user code when
// collected (spec §4.4 "Finalizers"). An object only needs to
// implement this if it was registered with MarkFinalizable.
type Finalizer interface {
	Finalize()
}

// MarkFinalizable attaches o to the finalizer list: it survives one
// extra cycle after becoming unreachable so its Finalize method can
// run, per spec §4.4.
func (c *Collector) MarkFinalizable(o value.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o.Header().SetFinalizable(true)
}

// separateToBeFinalizedLocked walks allgc during the atomic phase,
// moving dead-but-finalizable objects onto the to-be-finalized list
// and resurrecting them (marking them live) for one more cycle, per
// spec §4.4.
func (c *Collector) separateToBeFinalizedLocked() {
	var prev value.Object
	var survivors value.Object
	var survivorsTail value.Object
	for o := c.allgc; o != nil; {
		next := o.Header().Next()
		h := o.Header()
		if h.HasFinalizer() && !h.WasFinalized() && h.IsDead(c.currentWhite) {
			h.SetSeparated()
			h.SetNext(c.tobefinalized)
			c.tobefinalized = o
			c.markObject(o) // resurrect for one more cycle
			if prev != nil {
				prev.Header().SetNext(next)
			}
		} else {
			if survivors == nil {
				survivors = o
			} else {
				survivorsTail.Header().SetNext(o)
			}
			survivorsTail = o
			prev = o
		}
		o = next
	}
	if survivorsTail != nil {
		survivorsTail.Header().SetNext(nil)
	}
	c.allgc = survivors
	c.propagateAll()
}

// runFinalizerSafely invokes fin.Finalize, recovering a panic rather
// than letting it escape: spec §7's GC error kind is "raised inside a
// finalizer; handled by the collector, logged, and discarded so
// collection can continue."
func (c *Collector) runFinalizerSafely(fin Finalizer) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("gc: finalizer panicked, discarding", zap.Any("recovered", r))
		}
	}()
	fin.Finalize()
}

// RunFinalizers invokes Finalize on every object currently on the
// to-be-finalized list, at most once each (spec §8 "Finalizer
// exactly-once"), and drops them from that list. Call this between
// GC cycles; it is not run automatically by Step so that the host can
// control when user __gc code executes.
func (c *Collector) RunFinalizers() int {
	c.mu.Lock()
	list := c.tobefinalized
	c.tobefinalized = nil
	c.mu.Unlock()

	ran := 0
	var freed int64
	for o := list; o != nil; {
		next := o.Header().Next()
		h := o.Header()
		h.ClearSeparated()
		h.MarkFinalized()
		if fin, ok := o.(Finalizer); ok {
			c.runFinalizerSafely(fin)
		}
		freed += int64(o.Size())
		ran++
		o = next
	}
	c.mu.Lock()
	c.finalizerRuns += ran
	c.totalBytes -= freed
	if c.totalBytes < 0 {
		c.totalBytes = 0
	}
	c.mu.Unlock()
	return ran
}

// sweepLocked walks allgc, reclaiming dead (other-white) objects and
// resetting survivors to the current white for the next cycle, per
// spec §4.4's sweep phase.
func (c *Collector) sweepLocked() {
	var head, tail value.Object
	reclaimed := int64(0)
	for o := c.allgc; o != nil; {
		next := o.Header().Next()
		h := o.Header()
		if h.IsFixed() {
			appendList(&head, &tail, o)
			o = next
			continue
		}
		if h.IsDead(c.currentWhite) {
			if s, ok := o.(*strtab.Str); ok {
				c.strs.Remove(s)
			}
			reclaimed += int64(o.Size())
		} else {
			h.MakeWhite(c.currentWhite)
			appendList(&head, &tail, o)
		}
		o = next
	}
	c.allgc = head
	c.totalBytes -= reclaimed
	if c.totalBytes < 0 {
		c.totalBytes = 0
	}
}

func appendList(head, tail *value.Object, o value.Object) {
	o.Header().SetNext(nil)
	if *head == nil {
		*head = o
	} else {
		(*tail).Header().SetNext(o)
	}
	*tail = o
}
