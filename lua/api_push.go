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
	"unsafe"

	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// PushNil, PushBoolean, PushInteger, PushNumber push the corresponding
// primitive, per spec §4.6's Push group: each consumes no stack slots
// and produces exactly one.
func (s *State) PushNil() error           { return s.th.Push(value.Nil) }
func (s *State) PushBoolean(b bool) error { return s.th.Push(value.Bool(b)) }
func (s *State) PushInteger(i int64) error { return s.th.Push(value.Int(i)) }
func (s *State) PushNumber(f float64) error { return s.th.Push(value.Float(f)) }

// PushLString pushes a string Value, interning it through the shared
// short/long string table.
func (s *State) PushLString(b []byte) error {
	str, err := s.shared.strings.New(b)
	if err != nil {
		return err
	}
	return s.th.Push(value.FromObject(str))
}

func (s *State) PushString(str string) error {
	return s.PushLString([]byte(str))
}

// PushLiteral is the API string-literal cache entry point (spec §4.2,
// DOMAIN STACK): repeated calls against the same backing array (a Go
// string literal's data pointer is stable across calls at the same
// call site) skip re-interning by checking the lru cache keyed on that
// pointer first.
func (s *State) PushLiteral(str string) error {
	b := []byte(str)
	if len(b) == 0 {
		return s.PushLString(b)
	}
	key := unsafe.Pointer(unsafe.StringData(str))
	if cached, ok := s.shared.cache.Lookup(unsafe.Slice((*byte)(key), len(b))); ok {
		return s.th.Push(value.FromObject(cached))
	}
	interned, err := s.shared.strings.New(b)
	if err != nil {
		return err
	}
	s.shared.cache.Store(unsafe.Slice((*byte)(key), len(b)), interned)
	return s.th.Push(value.FromObject(interned))
}

func (s *State) PushTable(t value.Value) error { return s.th.Push(t) }

// PushLightUserData pushes a bare pointer value with no GC
// participation and no metatable.
func (s *State) PushLightUserData(p unsafe.Pointer) error {
	return s.th.Push(value.LightUserData(p))
}

func (s *State) PushThread() error {
	return s.th.Push(value.FromObject(s.th))
}

// PushCClosure implements push_cclosure(fn, n): pop n values from the
// top of the stack and bind them as upvalues to fn; n = 0 pushes a
// light host-function instead, which allocates nothing (spec §4.6
// "Closures").
func (s *State) PushCClosure(fn GoFunc, n int) error {
	if n == 0 {
		return s.th.Push(value.LightGoFunc(fn))
	}
	upvalues := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		upvalues[i] = s.th.Pop()
	}
	closure := newGoClosure(fn, upvalues)
	s.shared.collector.Register(closure)
	return s.th.Push(value.FromObject(closure))
}
