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
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/bianyuan1986/lua-analysis/internal/strtab"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

func newTestHeap() *heapStub { return &heapStub{} }

// heapStub is a minimal strtab.Heap, standing in for the gc collector.
type heapStub struct{ bytes int64 }

func (h *heapStub) AccountBytes(n int64) error { h.bytes += n; return nil }
func (h *heapStub) Register(value.Object)      {}

func internStr(t *testing.T, tab *strtab.Table, s string) value.Value {
	t.Helper()
	str, err := tab.InternString(s)
	require.NoError(t, err)
	return value.FromObject(str)
}

func TestSetGetRoundTrip(t *testing.T) {
	tab := New(0)
	strs := strtab.New(newTestHeap(), 0)

	k := internStr(t, strs, "name")
	require.NoError(t, tab.Set(k, value.Int(42)))
	require.Equal(t, int64(42), mustInt(t, tab.Get(k)))

	require.NoError(t, tab.SetInt(1, value.Bool(true)))
	require.NoError(t, tab.SetInt(2, value.Bool(false)))
	require.True(t, mustBool(t, tab.GetInt(1)))
	require.False(t, mustBool(t, tab.GetInt(2)))
}

func TestNumericCanonicalizationAsKey(t *testing.T) {
	tab := New(0)
	require.NoError(t, tab.Set(value.Float(3), value.Int(99)))
	require.Equal(t, int64(99), mustInt(t, tab.GetInt(3)))
	require.Equal(t, int64(99), mustInt(t, tab.Get(value.Int(3))))
}

func TestNilAndNaNKeysRejected(t *testing.T) {
	tab := New(0)
	require.ErrorIs(t, tab.Set(value.Nil, value.Int(1)), ErrNilKey)
	require.ErrorIs(t, tab.Set(value.Float(nan()), value.Int(1)), ErrNaNKey)
}

func TestLengthBorder(t *testing.T) {
	tab := New(0)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, tab.SetInt(i, value.Bool(true)))
	}
	require.Equal(t, int64(5), tab.Length())

	require.NoError(t, tab.SetInt(3, value.Nil))
	n := tab.Length()
	require.True(t, n == 2 || n == 5, "border must be valid: got %d", n)
}

func TestIterationCoverage(t *testing.T) {
	tab := New(0)
	strs := strtab.New(newTestHeap(), 0)
	want := map[string]int64{}
	for i := int64(0); i < 40; i++ {
		key := internStr(t, strs, string(rune('a'+i%26))+string(rune('A'+i)))
		require.NoError(t, tab.Set(key, value.Int(i)))
		want[keyString(key)] = i
	}
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, tab.SetInt(i, value.Int(-i)))
	}

	seen := map[string]bool{}
	k, v, ok, err := tab.Next(value.Nil)
	require.NoError(t, err)
	count := 0
	for ok {
		count++
		if i, isInt := k.AsInt(); isInt && i >= 1 && i <= 10 {
			require.Equal(t, -i, mustInt(t, v))
		} else {
			ks := keyString(k)
			require.False(t, seen[ks])
			seen[ks] = true
			require.Equal(t, want[ks], mustInt(t, v))
		}
		k, v, ok, err = tab.Next(k)
		require.NoError(t, err)
	}
	require.Equal(t, len(want), len(seen))
	require.Equal(t, 50, count)
}

func TestNextInvalidKey(t *testing.T) {
	tab := New(0)
	require.NoError(t, tab.SetInt(1, value.Int(7)))
	strs := strtab.New(newTestHeap(), 0)
	bogus := internStr(t, strs, "not-a-key")
	_, _, _, err := tab.Next(bogus)
	require.ErrorIs(t, err, ErrInvalidIterKey)
}

func TestMetatableInvalidatesTMCache(t *testing.T) {
	tab := New(0)
	require.True(t, tab.TMCached(0))
	tab.SetMetatable(New(0))
	require.False(t, tab.TMCached(0))
}

// snapshot walks the whole table via Next and returns a sorted
// "key=value" rendering, independent of internal node order.
func snapshot(t *testing.T, tab *Table) []string {
	t.Helper()
	var out []string
	k, v, ok, err := tab.Next(value.Nil)
	require.NoError(t, err)
	for ok {
		out = append(out, fmt.Sprintf("%s=%s", debugKey(k), debugKey(v)))
		k, v, ok, err = tab.Next(k)
		require.NoError(t, err)
	}
	sort.Strings(out)
	return out
}

func debugKey(v value.Value) string {
	if i, ok := v.AsInt(); ok {
		return fmt.Sprintf("int:%d", i)
	}
	if obj, ok := v.Object(); ok {
		if s, ok := obj.(*strtab.Str); ok {
			return "str:" + s.String()
		}
	}
	return v.Type().String()
}

// TestIterationSnapshotIsStableAcrossRehash verifies that growing a
// table with more inserts doesn't perturb the contents already
// visible to iteration: the snapshot taken before the growth must
// still be a subset of the snapshot taken after, compared
// structurally rather than key-by-key.
func TestIterationSnapshotIsStableAcrossRehash(t *testing.T) {
	tab := New(0)
	strs := strtab.New(newTestHeap(), 0)
	for i := int64(0); i < 8; i++ {
		key := internStr(t, strs, fmt.Sprintf("k%02d", i))
		require.NoError(t, tab.Set(key, value.Int(i)))
	}
	before := snapshot(t, tab)

	for i := int64(8); i < 64; i++ {
		key := internStr(t, strs, fmt.Sprintf("k%02d", i))
		require.NoError(t, tab.Set(key, value.Int(i)))
	}
	after := snapshot(t, tab)

	afterSet := make(map[string]bool, len(after))
	for _, e := range after {
		afterSet[e] = true
	}
	var missing []string
	for _, e := range before {
		if !afterSet[e] {
			missing = append(missing, e)
		}
	}
	if diff := cmp.Diff([]string(nil), missing); diff != "" {
		t.Fatalf("entries present before growth went missing after it (-want +got):\n%s", diff)
	}
}

func mustInt(t *testing.T, v value.Value) int64 {
	t.Helper()
	i, ok := v.AsInt()
	require.True(t, ok)
	return i
}

func mustBool(t *testing.T, v value.Value) bool {
	t.Helper()
	b, ok := v.AsBool()
	require.True(t, ok)
	return b
}

func keyString(v value.Value) string {
	obj, _ := v.Object()
	s := obj.(*strtab.Str)
	return s.String()
}

func nan() float64 {
	var f float64
	return f / f
}
