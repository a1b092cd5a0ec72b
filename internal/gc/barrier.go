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

// BarrierBack implements the backward write barrier spec §4.4
// describes for tables: call it after writing any value into
// container. If container is black and the write could have
// introduced a white referent, container is demoted back to gray and
// queued on grayAgain for retraversal in the atomic step, restoring
// the tri-color invariant without marking the referent immediately.
func (c *Collector) BarrierBack(container value.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := container.Header()
	if h.Color() != value.ColorBlack {
		return
	}
	h.MakeGray()
	c.grayAgain = append(c.grayAgain, container)
}

// BarrierForward implements the forward write barrier spec §4.4
// describes for closures and upvalues: call it after storing child
// into a field of container. If container is black and child is
// white, child is marked immediately (rather than graying the
// container), which is cheaper for object kinds that mutate rarely.
func (c *Collector) BarrierForward(container value.Object, child value.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if container.Header().Color() != value.ColorBlack {
		return
	}
	c.markValue(child)
}
