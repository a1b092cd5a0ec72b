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
	"fmt"
	"testing"

	"github.com/bianyuan1986/lua-analysis/internal/value"
	"github.com/stretchr/testify/require"
)

type fakeHeap struct {
	registered []value.Object
	bytes      int64
}

func (f *fakeHeap) AccountBytes(n int64) error { f.bytes += n; return nil }
func (f *fakeHeap) Register(o value.Object)    { f.registered = append(f.registered, o) }

func TestInternIdentity(t *testing.T) {
	h := &fakeHeap{}
	tab := New(h, 12345)

	a, err := tab.InternString("hello")
	require.NoError(t, err)
	b, err := tab.InternString("hello")
	require.NoError(t, err)
	require.Same(t, a, b, "equal short strings must intern to the same object")

	c, err := tab.InternString("world")
	require.NoError(t, err)
	require.NotSame(t, a, c)
}

func TestInternGrowsAndCountsMatch(t *testing.T) {
	h := &fakeHeap{}
	tab := New(h, 1)
	const n = 1 << 13
	for i := 0; i < n; i++ {
		_, err := tab.InternString(fmt.Sprintf("s%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, n, tab.Len())
}

func TestLongStringsNotInterned(t *testing.T) {
	h := &fakeHeap{}
	tab := New(h, 7)
	long := make([]byte, MaxShortLen+1)
	for i := range long {
		long[i] = 'x'
	}
	a, err := tab.New(long)
	require.NoError(t, err)
	b, err := tab.New(long)
	require.NoError(t, err)
	require.NotSame(t, a, b, "long strings are never interned")
	require.Equal(t, a.Bytes(), b.Bytes())
}

func TestHashLazyForLongStrings(t *testing.T) {
	s := &Str{data: []byte("a long string value"), long: true}
	require.False(t, s.hashed)
	h1 := s.Hash(99)
	require.True(t, s.hashed)
	h2 := s.Hash(1) // seed ignored once cached
	require.Equal(t, h1, h2)
}

func TestCacheStoreAndSentinel(t *testing.T) {
	h := &fakeHeap{}
	tab := New(h, 1)
	sentinel, _ := tab.InternString("not enough memory")
	cache := NewCache(sentinel)

	lit := []byte("literal")
	s, err := tab.New(lit)
	require.NoError(t, err)
	cache.Store(lit, s)
	got, ok := cache.Lookup(lit)
	require.True(t, ok)
	require.Same(t, s, got)

	cache.ReplaceDead(func(c *Str) bool { return c == s })
	got, ok = cache.Lookup(lit)
	require.True(t, ok)
	require.Same(t, sentinel, got)
}
