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

package thread

import "github.com/bianyuan1986/lua-analysis/internal/value"

// EnsureStack grows the stack so that n more slots are usable past
// top, raising ErrStackOverflow instead of growing past maxStack
// (when maxStack is positive). This is the "every operation assumes
// the caller has reserved space" contract of spec §4.6.
func (t *Thread) EnsureStack(n int) error {
	if t.top+n <= t.stackLast {
		return nil
	}
	want := t.top + n + ExtraStack
	if t.maxStack > 0 && want > t.maxStack+ExtraStack {
		return ErrStackOverflow
	}
	t.grow(want)
	return nil
}

// TryGrowStack is the non-raising variant check_stack(n) needs: it
// reports whether the stack could be grown to fit n more slots,
// without raising on failure.
func (t *Thread) TryGrowStack(n int) bool {
	return t.EnsureStack(n) == nil
}

// growAbsolute ensures the stack has at least want usable cells
// (0-based), used by Set/SetTop which index past the current top
// directly rather than pushing incrementally.
func (t *Thread) growAbsolute(want int) {
	if want <= t.stackLast {
		return
	}
	t.grow(want + ExtraStack)
}

func (t *Thread) grow(want int) {
	size := len(t.stack)
	if size == 0 {
		size = 40
	}
	for size < want {
		size *= 2
	}
	ns := make([]value.Value, size)
	copy(ns, t.stack)
	t.stack = ns
	t.stackLast = len(t.stack) - ExtraStack
}

// Rotate implements rotate(idx, n) of spec §4.6: the segment
// [idx, top) is split n elements from the top (for n>=0) or from idx
// (for n<0) and the two halves swap places via three reversals, e.g.
// rotate([a b c d e], idx=0, n=2) produces [d e a b c]. n may be
// negative, rotating the other way. The split point mirrors
// lapi.c's lua_rotate exactly: m = t-n for n>=0, m = p-n-1 for n<0,
// followed by reverse(p,m), reverse(m+1,t), reverse(p,t).
func (t *Thread) Rotate(idx, n int) {
	lo, hi := idx, t.top-1
	if lo > hi {
		return
	}
	var m int
	if n >= 0 {
		m = hi - n
	} else {
		m = lo - n - 1
	}
	reverse(t.stack, lo, m)
	reverse(t.stack, m+1, hi)
	reverse(t.stack, lo, hi)
}

func reverse(s []value.Value, lo, hi int) {
	for lo < hi {
		s[lo], s[hi] = s[hi], s[lo]
		lo++
		hi--
	}
}

// Copy implements copy(from, to): overwrite the cell at to with the
// value at from, without changing top.
func (t *Thread) Copy(from, to int) {
	t.growAbsolute(to + 1)
	t.stack[to] = t.Get(from)
}

// PushValue implements push_value(idx): push a copy of the cell at
// idx onto the top of the stack.
func (t *Thread) PushValue(idx int) error {
	return t.Push(t.Get(idx))
}

// XMove implements xmove(from, to, n): move the top n values of from
// onto to, removing them from from. Both threads must share the same
// global state (the caller is responsible for that invariant; spec
// §4.7 scopes a state to one logical interpreter instance).
func XMove(from, to *Thread, n int) error {
	if n == 0 {
		return nil
	}
	if err := to.EnsureStack(n); err != nil {
		return err
	}
	start := from.top - n
	for i := 0; i < n; i++ {
		to.stack[to.top+i] = from.stack[start+i]
		from.stack[start+i] = value.Nil
	}
	to.top += n
	from.top = start
	return nil
}
