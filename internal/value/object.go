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

// Kind identifies the concrete representation of a heap (collectable)
// object, independent of the Value tag that points at it (a Value tag
// additionally distinguishes variants such as short vs. long string).
type Kind uint8

const (
	KindShortString Kind = iota
	KindLongString
	KindTable
	KindLuaClosure
	KindGoClosure
	KindUserData
	KindThread
	KindProto
)

func (k Kind) String() string {
	switch k {
	case KindShortString:
		return "short-string"
	case KindLongString:
		return "long-string"
	case KindTable:
		return "table"
	case KindLuaClosure:
		return "lua-closure"
	case KindGoClosure:
		return "go-closure"
	case KindUserData:
		return "userdata"
	case KindThread:
		return "thread"
	case KindProto:
		return "proto"
	default:
		return "unknown"
	}
}

// mark bits, mirroring lua's lgc.h bit layout: exactly one of white0/white1
// is set while an object is white (the flip between the two encodes which
// "shade" of white is current without touching every live object), black
// is set once an object has been fully traversed, and an object with
// neither white nor black set is gray.
const (
	bitWhite0 uint8 = 1 << iota
	bitWhite1
	bitBlack
	bitFinalized // a __gc metamethod has already run
	bitSeparated // object lives on the to-be-finalized list, not allgc
	bitFixed     // never collected (reserved words, the memory-error string)
)

const whiteBits = bitWhite0 | bitWhite1

// Color is the tri-color GC state of an object.
type Color uint8

const (
	ColorWhite Color = iota
	ColorGray
	ColorBlack
)

// Header is embedded as the first field of every heap (collectable)
// object. It carries the intrusive "all objects" link plus the mark byte
// that encodes tri-color state and the auxiliary flags described in
// spec §3 ("Heap object header").
type Header struct {
	next        Object
	kind        Kind
	mark        uint8
	finalizable bool // a __gc metamethod is attached to this object
}

// Next returns the next object in whichever intrusive list this object
// currently belongs to.
func (h *Header) Next() Object { return h.next }

// SetNext relinks this object's intrusive list pointer. Only the gc
// package calls this; it is exported so gc can live in a separate
// package without an import cycle back into value.
func (h *Header) SetNext(o Object) { h.next = o }

func (h *Header) Kind() Kind { return h.kind }

// Color reports the object's current tri-color state.
func (h *Header) Color() Color {
	switch {
	case h.mark&bitBlack != 0:
		return ColorBlack
	case h.mark&whiteBits != 0:
		return ColorWhite
	default:
		return ColorGray
	}
}

// IsWhite reports whether the object carries either white bit (the
// current or the other white), i.e. is neither gray nor black; IsDead
// distinguishes the other white.
func (h *Header) IsWhite() bool { return h.mark&whiteBits != 0 }

// IsDead reports whether the object is white under the *other* white
// (the shade that identifies garbage at the end of a completed cycle).
func (h *Header) IsDead(currentWhite uint8) bool {
	return h.mark&whiteBits&^currentWhite != 0
}

func (h *Header) MakeGray() { h.mark &^= whiteBits | bitBlack }
func (h *Header) MakeBlack() {
	h.mark &^= whiteBits
	h.mark |= bitBlack
}
func (h *Header) MakeWhite(currentWhite uint8) {
	h.mark = (h.mark &^ (whiteBits | bitBlack)) | currentWhite
}

func (h *Header) IsFixed() bool      { return h.mark&bitFixed != 0 }
func (h *Header) SetFixed()          { h.mark |= bitFixed }
func (h *Header) HasFinalizer() bool { return h.finalizable }
func (h *Header) SetFinalizable(v bool) { h.finalizable = v }
func (h *Header) WasFinalized() bool { return h.mark&bitFinalized != 0 }
func (h *Header) IsSeparated() bool   { return h.mark&bitSeparated != 0 }
func (h *Header) SetSeparated()       { h.mark |= bitSeparated }
func (h *Header) ClearSeparated()     { h.mark &^= bitSeparated }
func (h *Header) MarkFinalized()      { h.mark |= bitFinalized }

// NewHeader constructs a Header born white under currentWhite, per the
// lifecycle rule in spec §3: "Every collectable object is born white".
func NewHeader(kind Kind, currentWhite uint8) Header {
	return Header{kind: kind, mark: currentWhite}
}

// Object is implemented by every heap (collectable) type: Str, *table.Table,
// LuaClosure, GoClosure, UserData,
// Thread and Proto. The gc package dispatches "traverse references" on
// this interface rather than via reflection, matching the design note
// that kinds form a closed tagged variant.
type Object interface {
	Header() *Header
	// Traverse calls mark for every Value this object directly
	// references, and barrier for every child Object reference that
	// is not wrapped in a Value (e.g. a table's metatable pointer).
	Traverse(mark func(Value), barrier func(Object))
	// Size reports the object's approximate heap footprint in bytes,
	// used by the allocator shim to maintain the GC debt counter.
	Size() uintptr
	// Identity returns an address-stable value used to hash and
	// compare pointer-bearing keys (spec §4.3's "pointer-bearing:
	// pointer bits"), standing in for the raw pointer comparisons the
	// source performs directly on GCObject*.
	Identity() uintptr
}
