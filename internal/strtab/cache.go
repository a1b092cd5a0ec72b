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

package strtab

import (
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize mirrors the source's STRCACHE_N x STRCACHE_M fixed
// two-dimensional cache, flattened into a single LRU of equivalent
// capacity.
const cacheSize = 53 * 2

// Cache accelerates repeated interning of the same host literal, per
// spec §4.2. The source keys by the address of a null-terminated C
// string; Go has no equivalent stable literal address, so the cache
// instead keys on the address of the backing array of the byte slice
// passed in (PushLiteral passes a view of its string argument's data,
// so the same Go string literal maps to the same key on every call),
// which is the closest Go-native analogue of "the same literal called
// repeatedly".
type Cache struct {
	lru *lru.Cache[uintptr, *Str]
	// sentinel replaces any cached entry that would otherwise be swept
	// out from under the cache (spec §4.2's "known-live fixed
	// sentinel"); it is the allocator's pinned memory-error string.
	sentinel *Str
}

func NewCache(sentinel *Str) *Cache {
	c, err := lru.New[uintptr, *Str](cacheSize)
	if err != nil {
		// only fails for a non-positive size, which cacheSize never is
		panic(err)
	}
	return &Cache{lru: c, sentinel: sentinel}
}

func keyOf(b []byte) (uintptr, bool) {
	if len(b) == 0 {
		return 0, false
	}
	return uintptr(unsafe.Pointer(&b[0])), true
}

// Lookup returns the previously cached Str for this literal's backing
// address, if any.
func (c *Cache) Lookup(b []byte) (*Str, bool) {
	key, ok := keyOf(b)
	if !ok {
		return nil, false
	}
	return c.lru.Get(key)
}

// Store records s as the interned result for this literal's backing
// address. The LRU evicts its oldest entry automatically on overflow,
// replacing the fixed-array "evicts its oldest slot" behavior from
// spec §4.2 without hand-rolled ring-buffer bookkeeping.
func (c *Cache) Store(b []byte, s *Str) {
	if key, ok := keyOf(b); ok {
		c.lru.Add(key, s)
	}
}

// ReplaceDead scans every cached entry and swaps out any that points
// at a white (about-to-be-swept) string for the fixed sentinel, so the
// cache itself can never keep garbage artificially alive nor ever
// observe an empty slot. Called by the collector at the start of
// sweep, mirroring luaS_clearcache.
func (c *Cache) ReplaceDead(isWhite func(*Str) bool) {
	for _, key := range c.lru.Keys() {
		s, ok := c.lru.Peek(key)
		if ok && isWhite(s) {
			c.lru.Add(key, c.sentinel)
		}
	}
}
