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
	"bytes"

	"github.com/bianyuan1986/lua-analysis/internal/table"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// classifyWeakTablesLocked walks the all-objects list once per cycle
// looking for tables whose metatable carries a __mode field, and
// buckets them by weakness per spec §4.4. Recomputing this every
// cycle (rather than maintaining the grouping incrementally as
// metatables are attached) trades a little atomic-step work for not
// needing a hook into table.SetMetatable; see DESIGN.md.
func (c *Collector) classifyWeakTablesLocked() {
	c.weak = c.weak[:0]
	c.allWeak = c.allWeak[:0]
	c.ephemeron = c.ephemeron[:0]
	for o := c.allgc; o != nil; o = o.Header().Next() {
		t, ok := o.(*table.Table)
		if !ok {
			continue
		}
		meta := t.Metatable()
		if meta == nil {
			continue
		}
		mode := meta.Get(c.modeKey)
		obj, ok := mode.Object()
		if !ok {
			continue
		}
		content, ok := obj.(value.LongStringContent)
		if !ok {
			continue
		}
		weakKey := bytes.Contains(content.Bytes(), []byte("k"))
		weakValue := bytes.Contains(content.Bytes(), []byte("v"))
		switch {
		case weakKey && weakValue:
			c.allWeak = append(c.allWeak, t)
		case weakKey:
			c.ephemeron = append(c.ephemeron, t)
		case weakValue:
			c.weak = append(c.weak, t)
		}
	}
}

// resolveEphemeronsLocked implements the fixed-point traversal spec
// §4.4 requires for ephemeron (weak-key) tables: an entry whose key is
// already reachable keeps its value alive (which may in turn make
// other keys reachable), so passes repeat until a pass marks nothing
// new.
func (c *Collector) resolveEphemeronsLocked() {
	for {
		changed := false
		for _, t := range c.ephemeron {
			k, v, ok, _ := t.Next(value.Nil)
			for ok {
				if keyIsLive(k) && valueIsWhite(v) {
					c.markValue(v)
					changed = true
				}
				k, v, ok, _ = t.Next(k)
			}
		}
		c.propagateAll()
		if !changed {
			return
		}
	}
}

// clearDeadWeakEntriesLocked removes entries from weak-value,
// weak-key and all-weak tables whose key or value (as applicable) did
// not survive marking, per spec §4.4's atomic-phase weak table pass.
func (c *Collector) clearDeadWeakEntriesLocked() {
	for _, t := range c.weak {
		clearWhere(t, func(_, v value.Value) bool { return valueIsWhite(v) })
	}
	for _, t := range c.ephemeron {
		clearWhere(t, func(k, _ value.Value) bool { return valueIsWhite(k) })
	}
	for _, t := range c.allWeak {
		clearWhere(t, func(k, v value.Value) bool { return valueIsWhite(k) || valueIsWhite(v) })
	}
}

func clearWhere(t *table.Table, dead func(k, v value.Value) bool) {
	var toClear []value.Value
	k, v, ok, _ := t.Next(value.Nil)
	for ok {
		if dead(k, v) {
			toClear = append(toClear, k)
		}
		k, v, ok, _ = t.Next(k)
	}
	for _, key := range toClear {
		_ = t.Set(key, value.Nil)
	}
}

func keyIsLive(v value.Value) bool {
	o, ok := v.Object()
	if !ok {
		return true // non-collectable keys are always "live"
	}
	return !o.Header().IsWhite()
}

func valueIsWhite(v value.Value) bool {
	o, ok := v.Object()
	if !ok {
		return false
	}
	return o.Header().IsWhite()
}
