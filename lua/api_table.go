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
	"github.com/pkg/errors"

	"github.com/bianyuan1986/lua-analysis/internal/table"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// ErrNotATable is raised by the raw table operations, which bypass
// metamethods entirely and so cannot fall back to __index/__newindex
// for a non-table operand (spec §4.6: "raw forms bypass them and do
// not fail [by invoking a metamethod]" — they still fail outright on
// the wrong type).
var ErrNotATable = errors.New("attempt to index a non-table value")

var errNoExecutorForLen = errors.New("lua: no Executor installed for __len dispatch")

func asTable(v value.Value) (*table.Table, bool) {
	o, ok := v.Object()
	if !ok {
		return nil, false
	}
	t, ok := o.(*table.Table)
	return t, ok
}

func (s *State) metatableOf(v value.Value) *table.Table {
	if t, ok := asTable(v); ok {
		return t.Metatable()
	}
	if u, ok := v.Object(); ok {
		if ud, ok := u.(*UserData); ok {
			if m, ok := ud.Metatable(); ok {
				mt, _ := asTable(m)
				return mt
			}
		}
	}
	return s.shared.typeMetatables[v.Type()]
}

func (s *State) metamethod(v value.Value, name string) (value.Value, bool) {
	mt := s.metatableOf(v)
	if mt == nil {
		return value.Nil, false
	}
	key, err := s.shared.strings.InternString(name)
	if err != nil {
		return value.Nil, false
	}
	mv := mt.Get(value.FromObject(key))
	return mv, !mv.IsNil()
}

// RawGet implements raw_get(idx): t[key] with key already on top of
// the stack, replacing it with the result; bypasses __index.
func (s *State) RawGet(idx int) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	t, ok := asTable(tv)
	if !ok {
		return ErrNotATable
	}
	key := s.th.Pop()
	return s.th.Push(t.Get(value.Canonicalize(key)))
}

// RawGetI implements raw_geti(idx, n): t[n], a raw integer-keyed get.
func (s *State) RawGetI(idx int, n int64) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	t, ok := asTable(tv)
	if !ok {
		return ErrNotATable
	}
	return s.th.Push(t.GetInt(n))
}

// RawSet implements raw_set(idx): t[key] = value, popping both key and
// value from the top of the stack (key pushed first, then value).
func (s *State) RawSet(idx int) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	t, ok := asTable(tv)
	if !ok {
		return ErrNotATable
	}
	v := s.th.Pop()
	k := s.th.Pop()
	return t.Set(value.Canonicalize(k), v)
}

func (s *State) RawSetI(idx int, n int64) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	t, ok := asTable(tv)
	if !ok {
		return ErrNotATable
	}
	v := s.th.Pop()
	return t.SetInt(n, v)
}

// GetField implements get_field(idx, name): the non-raw form, which
// invokes __index through the Executor when the key is absent and a
// metatable supplies one, per spec §4.6.
func (s *State) GetField(idx int, name string) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	key, err := s.shared.strings.InternString(name)
	if err != nil {
		return err
	}
	return s.index(tv, value.FromObject(key))
}

func (s *State) GetI(idx int, n int64) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	return s.index(tv, value.Canonicalize(value.Int(n)))
}

// GetTable implements get_table(idx): t[key] with key on top of
// stack, non-raw.
func (s *State) GetTable(idx int) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	key := s.th.Pop()
	return s.index(tv, value.Canonicalize(key))
}

func (s *State) index(tv, key value.Value) error {
	if t, ok := asTable(tv); ok {
		v := t.Get(key)
		if !v.IsNil() {
			return s.th.Push(v)
		}
	}
	if mm, ok := s.metamethod(tv, "__index"); ok {
		if mt, ok := asTable(mm); ok {
			return s.th.Push(mt.Get(key))
		}
		return s.callMetamethod(mm, tv, key)
	}
	if _, ok := asTable(tv); !ok {
		return ErrNotATable
	}
	return s.th.Push(value.Nil)
}

func (s *State) SetField(idx int, name string) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	key, err := s.shared.strings.InternString(name)
	if err != nil {
		return err
	}
	v := s.th.Pop()
	return s.newindex(tv, value.FromObject(key), v)
}

func (s *State) SetI(idx int, n int64) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	v := s.th.Pop()
	return s.newindex(tv, value.Canonicalize(value.Int(n)), v)
}

func (s *State) SetTable(idx int) error {
	tv, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	v := s.th.Pop()
	k := s.th.Pop()
	return s.newindex(tv, value.Canonicalize(k), v)
}

func (s *State) newindex(tv, key, v value.Value) error {
	if t, ok := asTable(tv); ok {
		if !t.Get(key).IsNil() || s.metatableOf(tv) == nil {
			return t.Set(key, v)
		}
	}
	if mm, ok := s.metamethod(tv, "__newindex"); ok {
		if mt, ok := asTable(mm); ok {
			return mt.Set(key, v)
		}
		return s.callMetamethod3(mm, tv, key, v)
	}
	if t, ok := asTable(tv); ok {
		return t.Set(key, v)
	}
	return ErrNotATable
}

// callMetamethod invokes a 2-argument __index-style metamethod via the
// Executor and leaves its single result on top of the stack.
func (s *State) callMetamethod(fn, a, b value.Value) error {
	if s.shared.executor == nil {
		return errors.New("lua: no Executor installed for metamethod dispatch")
	}
	base := s.th.Top()
	if err := s.th.Push(fn); err != nil {
		return err
	}
	if err := s.th.Push(a); err != nil {
		return err
	}
	if err := s.th.Push(b); err != nil {
		return err
	}
	return s.shared.executor.Call(s.th, base, 2, 1)
}

func (s *State) callMetamethod3(fn, a, b, c value.Value) error {
	if s.shared.executor == nil {
		return errors.New("lua: no Executor installed for metamethod dispatch")
	}
	base := s.th.Top()
	if err := s.th.Push(fn); err != nil {
		return err
	}
	if err := s.th.Push(a); err != nil {
		return err
	}
	if err := s.th.Push(b); err != nil {
		return err
	}
	if err := s.th.Push(c); err != nil {
		return err
	}
	if err := s.shared.executor.Call(s.th, base, 3, 0); err != nil {
		return err
	}
	return nil
}

// CreateTable implements create_table(na, nh): a pre-sized new table,
// pushed onto the stack.
func (s *State) CreateTable(narr, nhash int) error {
	t := table.NewSized(s.shared.cfg.StringTableSeed, narr, nhash)
	s.shared.collector.Register(t)
	return s.th.Push(value.FromObject(t))
}

// GetMetatable pushes the metatable of the value at idx, or pushes
// nothing and returns false if it has none.
func (s *State) GetMetatable(idx int) bool {
	v, ok := s.resolve(idx)
	if !ok {
		return false
	}
	mt := s.metatableOf(v)
	if mt == nil {
		return false
	}
	_ = s.th.Push(value.FromObject(mt))
	return true
}

// SetMetatable pops a table (or nil) and installs it as the metatable
// of the value at idx. Tables and full userdata carry a metatable
// pointer of their own; every other type shares one metatable per type
// in the global state (spec §4.7 "primitive-type metatables").
func (s *State) SetMetatable(idx int) error {
	mv := s.th.Pop()
	v, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	var mt *table.Table
	if !mv.IsNil() {
		var ok bool
		mt, ok = asTable(mv)
		if !ok {
			return ErrNotATable
		}
	}
	if t, ok := asTable(v); ok {
		t.SetMetatable(mt)
		return nil
	}
	if u, ok := v.Object(); ok {
		if ud, ok := u.(*UserData); ok {
			if mt == nil {
				ud.meta = nil
			} else {
				ud.SetMetatable(value.FromObject(mt))
			}
			return nil
		}
	}
	if mt == nil {
		delete(s.shared.typeMetatables, v.Type())
	} else {
		s.shared.typeMetatables[v.Type()] = mt
	}
	return nil
}

// Next implements next(idx): pop a key, push the following key/value
// pair (or nothing if iteration is complete), used by generic for-in
// style iteration over the table at idx.
func (s *State) Next(idx int) (bool, error) {
	tv, ok := s.resolve(idx)
	if !ok {
		return false, ErrNotATable
	}
	t, ok := asTable(tv)
	if !ok {
		return false, ErrNotATable
	}
	key := s.th.Pop()
	k, v, ok, err := t.Next(value.Canonicalize(key))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.th.Push(k); err != nil {
		return false, err
	}
	if err := s.th.Push(v); err != nil {
		return false, err
	}
	return true, nil
}

// Len implements len(idx): the byte length for strings; otherwise the
// value's __len metamethod if it has one; otherwise the raw border
// length for tables.
func (s *State) Len(idx int) error {
	v, ok := s.resolve(idx)
	if !ok {
		return ErrNotATable
	}
	if b, ok := stringBytes(v); ok {
		return s.th.Push(value.Int(int64(len(b))))
	}
	if mm, ok := s.metamethod(v, "__len"); ok {
		if s.shared.executor == nil {
			return errNoExecutorForLen
		}
		base := s.th.Top()
		if err := s.th.Push(mm); err != nil {
			return err
		}
		if err := s.th.Push(v); err != nil {
			return err
		}
		return s.shared.executor.Call(s.th, base, 1, 1)
	}
	if t, ok := asTable(v); ok {
		return s.th.Push(value.Int(t.Length()))
	}
	return ErrNotATable
}
