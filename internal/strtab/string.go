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

// Package strtab implements the string table described in spec §4.2:
// an intern table for short strings, plus long (non-interned) strings
// and the API literal cache.
package strtab

import (
	"unsafe"

	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// MaxShortLen is the length threshold below (and at) which a string is
// short: interned, hashed eagerly, compared by pointer. Spec §3.
const MaxShortLen = 40

// Str is the heap string object. Both short and long strings share
// this representation; Long distinguishes which lifecycle applies.
type Str struct {
	hdr    value.Header
	data   []byte
	hash   uint32
	long   bool
	hashed bool // for long strings: has hash already been computed?
	hnext  *Str // intern-table collision chain (short strings only)
}

func (s *Str) Header() *value.Header { return &s.hdr }
func (s *Str) Bytes() []byte         { return s.data }
func (s *Str) String() string        { return string(s.data) }
func (s *Str) Len() int              { return len(s.data) }
func (s *Str) IsLong() bool          { return s.long }

// Traverse implements value.Object: strings reference nothing.
func (s *Str) Traverse(func(value.Value), func(value.Object)) {}

func (s *Str) Size() uintptr {
	return unsafe.Sizeof(*s) + uintptr(len(s.data))
}

func (s *Str) Identity() uintptr { return uintptr(unsafe.Pointer(s)) }

// Hash returns the string's hash, computing it lazily for long strings
// the first time it is needed (spec §3: "hashed lazily on first use as
// a table key or equality test"), matching lstring.c's luaS_hashlongstr.
func (s *Str) Hash(seed uint32) uint32 {
	if s.long {
		if !s.hashed {
			s.hash = hashBytes(s.data, seed)
			s.hashed = true
		}
		return s.hash
	}
	return s.hash
}

// hashLimit bounds the number of bytes sampled from a long string to
// ~2^hashLimit, matching lstring.c's LUAI_HASHLIMIT. SPEC_FULL.md §2.
const hashLimit = 5

// hashBytes implements luaS_hash: seed xor length, then walk backward
// from the last byte in strides of step, folding each sampled byte
// into a rotate-xor accumulator.
func hashBytes(b []byte, seed uint32) uint32 {
	l := len(b)
	h := seed ^ uint32(l)
	step := (l >> hashLimit) + 1
	for ; l >= step; l -= step {
		h ^= (h<<5 + h>>2 + uint32(b[l-1]))
	}
	return h
}
