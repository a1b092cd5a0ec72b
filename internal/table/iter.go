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
	"github.com/pkg/errors"

	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// ErrInvalidIterKey is returned by Next when the key passed in is not
// a key currently present in the table, matching the source's
// "invalid key to 'next'" runtime error.
var ErrInvalidIterKey = errors.New("invalid key to next")

// Length implements the "a" border operator of spec §4.3 (luaH_getn):
// any n such that t[n] is non-nil and t[n+1] is nil, or 0 if t[1] is
// nil, or len(t) if every integer key up to it is present. When the
// table has holes, any valid border may be returned, matching the
// source's explicit non-determinism.
func (t *Table) Length() int64 {
	j := len(t.array)
	if j > 0 && t.array[j-1].IsNil() {
		i := 0
		for j-i > 1 {
			m := (i + j) / 2
			if t.array[m-1].IsNil() {
				j = m
			} else {
				i = m
			}
		}
		return int64(i)
	}
	if t.dummy {
		return int64(j)
	}
	return t.unboundSearch(j)
}

// unboundSearch extends the border search into the hash part,
// mirroring ltable.c's unbound_search: double j until t[j] is nil,
// then binary-search the gap.
func (t *Table) unboundSearch(j int) int64 {
	i := j
	j++
	for !t.GetInt(int64(j)).IsNil() {
		i = j
		if j > (1<<31)/2 {
			// overflow guard: fall back to a linear scan from 1, as
			// the source does when doubling would overflow.
			i = 1
			for !t.GetInt(int64(i)).IsNil() {
				i++
			}
			return int64(i - 1)
		}
		j *= 2
	}
	for j-i > 1 {
		m := (i + j) / 2
		if t.GetInt(int64(m)).IsNil() {
			j = m
		} else {
			i = m
		}
	}
	return int64(i)
}

// findIndex locates key's position in the table's unified iteration
// order (array part first, then hash part), returning -1 for the nil
// key that starts iteration. Mirrors ltable.c's findindex.
func (t *Table) findIndex(key value.Value) (int, error) {
	if key.IsNil() {
		return -1, nil
	}
	key = value.Canonicalize(key)
	if i, ok := arrayIndex(key); ok && i <= len(t.array) {
		return i - 1, nil
	}
	idx := t.mainPosition(key)
	for {
		n := &t.node[idx]
		if !n.key.IsNil() && value.RawEqual(n.key, key) {
			return idx + len(t.array), nil
		}
		if n.next == 0 {
			return 0, ErrInvalidIterKey
		}
		idx += int(n.next)
	}
}

// Next returns the pair that follows key in iteration order, per
// spec §4.3 and ltable.c's luaH_next. Passing the nil Value starts
// iteration; ok is false once iteration is exhausted.
func (t *Table) Next(key value.Value) (k, v value.Value, ok bool, err error) {
	i, err := t.findIndex(key)
	if err != nil {
		return value.Nil, value.Nil, false, err
	}
	i++
	for ; i < len(t.array); i++ {
		if !t.array[i].IsNil() {
			return value.Int(int64(i + 1)), t.array[i], true, nil
		}
	}
	for hi := i - len(t.array); hi < len(t.node); hi++ {
		n := &t.node[hi]
		if !n.val.IsNil() {
			return n.key, n.val, true, nil
		}
	}
	return value.Nil, value.Nil, false, nil
}
