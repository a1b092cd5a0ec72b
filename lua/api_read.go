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
	"strconv"

	"github.com/bianyuan1986/lua-analysis/internal/strtab"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// ToNumberX implements to_number_x: returns the numeric value at idx
// and whether idx actually held (or coerced cleanly from) a number.
func (s *State) ToNumberX(idx int) (float64, bool) {
	v, ok := s.resolve(idx)
	if !ok {
		return 0, false
	}
	if f, ok := v.AsNumber(); ok {
		return f, true
	}
	if str, ok := stringBytes(v); ok {
		f, err := strconv.ParseFloat(string(str), 64)
		return f, err == nil
	}
	return 0, false
}

// ToIntegerX implements to_integer_x: the value must already be an
// integer, or a float/string that converts without loss.
func (s *State) ToIntegerX(idx int) (int64, bool) {
	v, ok := s.resolve(idx)
	if !ok {
		return 0, false
	}
	c := value.Canonicalize(v)
	if i, ok := c.AsInt(); ok {
		return i, true
	}
	if str, ok := stringBytes(v); ok {
		i, err := strconv.ParseInt(string(str), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func (s *State) ToBoolean(idx int) bool {
	v, ok := s.resolve(idx)
	if !ok {
		return false
	}
	return !v.IsFalsy()
}

// ToLString implements to_lstring: non-destructive for strings, but
// coerces a number in place (writing the coerced string back into the
// slot, per spec §4.6) since the reference behavior mutates the stack
// cell so later reads see the same coerced string.
func (s *State) ToLString(idx int) ([]byte, bool) {
	v, ok := s.resolve(idx)
	if !ok {
		return nil, false
	}
	if b, ok := stringBytes(v); ok {
		return b, true
	}
	if f, ok := v.AsNumber(); ok {
		var text string
		if i, ok := v.AsInt(); ok {
			text = strconv.FormatInt(i, 10)
		} else {
			text = strconv.FormatFloat(f, 'g', -1, 64)
		}
		str, err := s.shared.strings.New([]byte(text))
		if err != nil {
			return nil, false
		}
		s.setAt(idx, value.FromObject(str))
		return str.Bytes(), true
	}
	return nil, false
}

func (s *State) ToUserData(idx int) (*UserData, bool) {
	v, ok := s.resolve(idx)
	if !ok {
		return nil, false
	}
	o, ok := v.Object()
	if !ok {
		return nil, false
	}
	u, ok := o.(*UserData)
	return u, ok
}

// ToCFunction returns the underlying GoFunc of a light host-function
// or a GoClosure at idx.
func (s *State) ToCFunction(idx int) (GoFunc, bool) {
	v, ok := s.resolve(idx)
	if !ok {
		return nil, false
	}
	if fn, ok := v.LightGoFunc(); ok {
		gf, ok := fn.(GoFunc)
		return gf, ok
	}
	if o, ok := v.Object(); ok {
		if gc, ok := o.(*GoClosure); ok {
			return gc.fn, true
		}
	}
	return nil, false
}

// ToPointer returns an address-stable handle for any collectable or
// light-pointer value, for identity comparisons and diagnostics.
func (s *State) ToPointer(idx int) (uintptr, bool) {
	v, ok := s.resolve(idx)
	if !ok {
		return 0, false
	}
	if o, ok := v.Object(); ok {
		return o.Identity(), true
	}
	if p, ok := v.LightPointer(); ok {
		return uintptr(p), true
	}
	return 0, false
}

func stringBytes(v value.Value) ([]byte, bool) {
	o, ok := v.Object()
	if !ok {
		return nil, false
	}
	str, ok := o.(*strtab.Str)
	if !ok {
		return nil, false
	}
	return str.Bytes(), true
}
