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

package lua

import "github.com/bianyuan1986/lua-analysis/internal/value"

// resolve implements index2addr's precedence order (SPEC_FULL.md
// supplemented feature 8, from lapi.c): positive indices count from
// the bottom of the thread's stack (slot 0, with no call-frame base
// applied) and are bounds-checked against the stack top; negative
// non-pseudo indices are stack-top-relative; RegistryIndex
// names the registry; anything below it names an upvalue of the
// running host closure, yielding "no value" (ok=false) for a light
// host function, which has none.
func (s *State) resolve(idx int) (v value.Value, ok bool) {
	switch {
	case idx > 0:
		abs := idx - 1
		if abs >= s.th.Top() {
			return value.Nil, false
		}
		return s.th.Get(abs), true
	case idx > RegistryIndex:
		abs := s.th.Top() + idx
		if abs < 0 {
			return value.Nil, false
		}
		return s.th.Get(abs), true
	case idx == RegistryIndex:
		return value.FromObject(s.shared.registry), true
	default:
		if s.runningClosure == nil {
			return value.Nil, false
		}
		return s.runningClosure.Upvalue(RegistryIndex - idx - 1)
	}
}

// AbsIndex converts a negative non-pseudo idx to its 1-based positive
// form, counted from the bottom of the thread's stack as resolve
// counts it; positive indices and pseudo-indices are returned as is.
func (s *State) AbsIndex(idx int) int {
	if idx > 0 || idx <= RegistryIndex {
		return idx
	}
	return s.th.Top() + idx + 1
}

func (s *State) setAt(idx int, v value.Value) bool {
	switch {
	case idx > 0:
		abs := idx - 1
		if abs >= s.th.Top() {
			return false
		}
		s.th.Set(abs, v)
		return true
	case idx > RegistryIndex:
		abs := s.th.Top() + idx
		if abs < 0 {
			return false
		}
		s.th.Set(abs, v)
		return true
	case idx == RegistryIndex:
		return false // the registry Value itself is not assignable in place
	default:
		if s.runningClosure == nil {
			return false
		}
		return s.runningClosure.SetUpvalue(RegistryIndex-idx-1, v)
	}
}
