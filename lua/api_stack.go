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

import (
	"github.com/bianyuan1986/lua-analysis/internal/value"
	"github.com/bianyuan1986/lua-analysis/thread"
)

// GetTop returns the index of the top of the stack, i.e. the number of
// values it currently holds.
func (s *State) GetTop() int { return s.th.Top() }

// SetTop sets the stack top, per spec §4.6 "Stack": shrinking discards
// values, growing fills new slots with nil.
func (s *State) SetTop(idx int) { s.th.SetTop(s.AbsIndex(idx)) }

// PushValue pushes a copy of the value at idx.
func (s *State) PushValue(idx int) error {
	v, ok := s.resolve(idx)
	if !ok {
		v = value.Nil
	}
	return s.th.Push(v)
}

// Rotate implements rotate(idx,n): [A|B] -> [B|A] where A has length n
// from position idx, via three reversals (spec §4.6).
func (s *State) Rotate(idx, n int) { s.th.Rotate(s.AbsIndex(idx)-1, n) }

// Copy overwrites the cell at to with the value at from, without
// changing top.
func (s *State) Copy(from, to int) {
	v, ok := s.resolve(from)
	if !ok {
		return
	}
	s.setAt(to, v)
}

// CheckStack grows the stack within the configured maximum or returns
// false without raising, per spec §4.6: "the only operation that may
// grow the stack without explicit permission".
func (s *State) CheckStack(n int) bool { return s.th.TryGrowStack(n) }

// XMove moves the top n values from from onto to, both sharing the
// same global state.
func XMove(from, to *State, n int) error {
	return thread.XMove(from.th, to.th, n)
}
