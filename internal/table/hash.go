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
	"math"
	"reflect"

	"github.com/bianyuan1986/lua-analysis/internal/strtab"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// hashMod reduces an already-computed hash to a node-slice index. The
// hash part's length is always a power of two (setNodeVector
// enforces it), so a mask replaces the source's lmod division.
func (t *Table) hashMod(h uint32) int {
	return int(h) & (len(t.node) - 1)
}

// hashFloat mirrors ltable.c's l_hashfloat: fold the float's mantissa
// and exponent (via frexp) into one integer, matching values that
// differ only in how they reached the same mathematical float.
func hashFloat(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	frac, exp := math.Frexp(f)
	n := frac * -float64(math.MinInt32)
	if n < math.MinInt32 || n >= math.MaxInt32+1 {
		return 0
	}
	ni := int32(n)
	u := uint32(exp) + uint32(ni)
	if u <= uint32(math.MaxInt32) {
		return u
	}
	return ^u
}

func pointerHash(p uintptr) uint32 {
	return uint32(p) ^ uint32(p>>32)
}

// mainPosition computes the node a key hashes to, per spec §4.3 and
// the type-dispatch table in ltable.c's mainposition. Divergence: the
// reference reduces int/bool/string hashes with hashpow2 (a bitmask,
// same as hashMod here) but routes float and every pointer-derived key
// through a separate hashmod that uses an odd modulus, specifically to
// avoid clustering from pointers whose low bits are always zero due to
// allocator alignment. This port reduces every key type through the
// same power-of-two hashMod; see DESIGN.md for the tradeoff.
func (t *Table) mainPosition(key value.Value) int {
	switch key.Tag() {
	case value.TagInt:
		i, _ := key.AsInt()
		return t.hashMod(uint32(i))
	case value.TagFloat:
		f, _ := key.AsFloat()
		return t.hashMod(hashFloat(f))
	case value.TagShortString:
		s := shortStr(key)
		return t.hashMod(s.Hash(t.seed))
	case value.TagLongString:
		s := shortStr(key)
		return t.hashMod(s.Hash(t.seed))
	case value.TagBoolean:
		b, _ := key.AsBool()
		if b {
			return t.hashMod(1)
		}
		return t.hashMod(0)
	case value.TagLightUserData:
		p, _ := key.LightPointer()
		return t.hashMod(pointerHash(uintptr(p)))
	case value.TagLightGoFunc:
		fn, _ := key.LightGoFunc()
		return t.hashMod(pointerHash(reflect.ValueOf(fn).Pointer()))
	default:
		obj, _ := key.Object()
		return t.hashMod(pointerHash(obj.Identity()))
	}
}

func shortStr(v value.Value) *strtab.Str {
	obj, _ := v.Object()
	return obj.(*strtab.Str)
}
