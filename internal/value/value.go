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

package value

import (
	"math"
	"reflect"
	"unsafe"
)

// Value is the tagged cell described in spec §3. Go has no native
// union, so the payload is spread across three fields instead of one;
// which field is live is determined entirely by tag. n holds a
// boolean, an integer, or the bit pattern of a float; obj holds a
// heap Object pointer for every collectable tag; light holds the two
// non-collectable pointer-like payloads (light userdata, light
// host-function) that do not carry a GC header.
type Value struct {
	tag   Tag
	n     uint64
	obj   Object
	light any
}

var Nil = Value{tag: TagNil}

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{tag: TagBoolean, n: n}
}

func Int(i int64) Value { return Value{tag: TagInt, n: uint64(i)} }

func Float(f float64) Value { return Value{tag: TagFloat, n: math.Float64bits(f)} }

// FromObject wraps a heap object (string, table, closure, userdata,
// thread, proto) in a Value using the Tag implied by its Kind.
func FromObject(o Object) Value {
	var t Tag
	switch o.Header().Kind() {
	case KindShortString:
		t = TagShortString
	case KindLongString:
		t = TagLongString
	case KindTable:
		t = TagTable
	case KindLuaClosure:
		t = TagLuaClosure
	case KindGoClosure:
		t = TagGoClosure
	case KindUserData:
		t = TagFullUserData
	case KindThread:
		t = TagThread
	case KindProto:
		t = TagProto
	}
	return Value{tag: t, obj: o}
}

func LightUserData(p unsafe.Pointer) Value {
	return Value{tag: TagLightUserData, light: p}
}

// LightGoFunc wraps a host function value that captures no upvalues,
// so it needs no closure allocation at all (spec §4.6: "with n = 0
// the value pushed is a light host-function (no allocation)"). fn is
// stored opaquely; the lua package is responsible for the concrete
// function type and for type-asserting it back out.
func LightGoFunc(fn any) Value {
	return Value{tag: TagLightGoFunc, light: fn}
}

func (v Value) Tag() Tag   { return v.tag }
func (v Value) Type() Type { return v.tag.Type() }

func (v Value) IsNil() bool  { return v.tag == TagNil }
func (v Value) IsFalsy() bool {
	// only nil and false are falsy; every other value, including 0 and "", is truthy
	return v.tag == TagNil || (v.tag == TagBoolean && v.n == 0)
}

func (v Value) AsBool() (bool, bool) {
	if v.tag != TagBoolean {
		return false, false
	}
	return v.n != 0, true
}

func (v Value) AsInt() (int64, bool) {
	if v.tag != TagInt {
		return 0, false
	}
	return int64(v.n), true
}

func (v Value) AsFloat() (float64, bool) {
	if v.tag != TagFloat {
		return 0, false
	}
	return math.Float64frombits(v.n), true
}

// AsNumber returns v's numeric value regardless of integer/float
// variant, for contexts (arithmetic, formatting) that do not care
// about the representation.
func (v Value) AsNumber() (float64, bool) {
	switch v.tag {
	case TagInt:
		return float64(int64(v.n)), true
	case TagFloat:
		return math.Float64frombits(v.n), true
	default:
		return 0, false
	}
}

func (v Value) Object() (Object, bool) {
	if !v.tag.IsCollectable() || v.obj == nil {
		return nil, false
	}
	return v.obj, true
}

func (v Value) LightPointer() (unsafe.Pointer, bool) {
	if v.tag != TagLightUserData {
		return nil, false
	}
	p, _ := v.light.(unsafe.Pointer)
	return p, true
}

func (v Value) LightGoFunc() (any, bool) {
	if v.tag != TagLightGoFunc {
		return nil, false
	}
	return v.light, true
}

// Canonicalize applies the numeric-canonicalization rule of spec §3 /
// §8 ("Numeric canonicalization"): a float that is exactly
// representable as an integer is converted to that integer before it
// is used as a table key, so that get(t, 1) and get(t, 1.0) observe
// the same slot. Non-float values, and floats with a fractional part
// or out of int64 range, pass through unchanged.
func Canonicalize(v Value) Value {
	f, ok := v.AsFloat()
	if !ok {
		return v
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	i := int64(f)
	if float64(i) == f {
		return Int(i)
	}
	return v
}

// IsNaN reports whether v is the float NaN, which spec §4.3 forbids
// as a table key.
func (v Value) IsNaN() bool {
	f, ok := v.AsFloat()
	return ok && math.IsNaN(f)
}

// RawEqual implements language equality for two Values without
// invoking any __eq metamethod (that is the external VM's job): nil
// equals nil, booleans compare by value, integer and float compare by
// mathematical value (so Int(1) == Float(1.0)), short strings compare
// by interned identity, long strings compare by content, and every
// other collectable or light type compares by identity.
func RawEqual(a, b Value) bool {
	if a.tag == b.tag {
		switch a.tag {
		case TagNil:
			return true
		case TagBoolean, TagInt:
			return a.n == b.n
		case TagFloat:
			return math.Float64frombits(a.n) == math.Float64frombits(b.n)
		case TagShortString:
			return a.obj == b.obj
		case TagLongString:
			return a.obj == b.obj || longStringEqual(a.obj, b.obj)
		case TagLightUserData:
			return a.light == b.light
		case TagLightGoFunc:
			return sameGoFunc(a.light, b.light)
		default:
			return a.obj == b.obj
		}
	}
	// cross-representation numeric equality: integer 1 == float 1.0
	if na, ok := a.AsNumber(); ok {
		if nb, ok := b.AsNumber(); ok {
			return na == nb
		}
	}
	return false
}

// LongStringContent is implemented by the heap string type so this
// package can compare long strings by content without importing
// strtab (which would create a cycle: strtab depends on value).
type LongStringContent interface {
	Bytes() []byte
}

func longStringEqual(a, b Object) bool {
	sa, ok := a.(LongStringContent)
	if !ok {
		return false
	}
	sb, ok := b.(LongStringContent)
	if !ok {
		return false
	}
	ba, bb := sa.Bytes(), sb.Bytes()
	if len(ba) != len(bb) {
		return false
	}
	for i := range ba {
		if ba[i] != bb[i] {
			return false
		}
	}
	return true
}

func sameGoFunc(a, b any) bool {
	// Go function values are not comparable with ==, and the lua
	// package stores light host-functions as plain func values, so two
	// funcs compare by code pointer (as hashing does); any other
	// payload falls back to ==.
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Func && vb.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer()
	}
	return a == b
}
