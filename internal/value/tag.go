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

// Tag is the 1-byte type-and-variant discriminator of a Value, per
// spec §3 "Value" and §6 "Value type tags". Each type-and-variant
// combination (integer/float, short/long string, the three function
// variants, full/light userdata) is its own sequentially numbered
// constant, so one byte identifies it and Value stays compact.
type Tag uint8

const (
	TagNil Tag = iota
	TagBoolean
	TagInt
	TagFloat
	TagShortString
	TagLongString
	TagTable
	TagLuaClosure
	TagGoClosure
	TagLightGoFunc
	TagFullUserData
	TagLightUserData
	TagThread
	TagProto
	// TagNone is the pseudo-type returned for an out-of-range index;
	// it never appears on a live Value, only as a TypeName result.
	TagNone
)

// Type is the eight primary language types plus the "none" pseudo-type,
// per spec §6. Several Tags share one Type (e.g. TagShortString and
// TagLongString are both TypeString).
type Type uint8

const (
	TypeNil Type = iota
	TypeBoolean
	TypeNumber
	TypeString
	TypeTable
	TypeFunction
	TypeUserData
	TypeThread
	TypeNone
)

func (t Tag) Type() Type {
	switch t {
	case TagNil:
		return TypeNil
	case TagBoolean:
		return TypeBoolean
	case TagInt, TagFloat:
		return TypeNumber
	case TagShortString, TagLongString:
		return TypeString
	case TagTable:
		return TypeTable
	case TagLuaClosure, TagGoClosure, TagLightGoFunc:
		return TypeFunction
	case TagFullUserData, TagLightUserData:
		return TypeUserData
	case TagThread:
		return TypeThread
	default:
		return TypeNone
	}
}

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeTable:
		return "table"
	case TypeFunction:
		return "function"
	case TypeUserData:
		return "userdata"
	case TypeThread:
		return "thread"
	default:
		return "no value"
	}
}

// IsCollectable reports whether a Tag's payload is a heap Object
// pointer, i.e. whether it participates in the GC's object graph.
func (t Tag) IsCollectable() bool {
	switch t {
	case TagShortString, TagLongString, TagTable, TagLuaClosure,
		TagGoClosure, TagFullUserData, TagThread, TagProto:
		return true
	default:
		return false
	}
}
