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

package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bianyuan1986/lua-analysis/internal/strtab"
	"github.com/bianyuan1986/lua-analysis/internal/table"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func newCollector(t *testing.T) (*Collector, *strtab.Table) {
	t.Helper()
	c := New(nil, DefaultConfig())
	strs := strtab.New(c, 0)
	require.NoError(t, c.SetStrings(strs))
	return c, strs
}

func TestLivenessRootsSurvive(t *testing.T) {
	c, strs := newCollector(t)
	root := table.New(0)
	c.Register(root)
	k, err := strs.InternString("kept")
	require.NoError(t, err)
	require.NoError(t, root.Set(value.FromObject(k), value.Int(1)))

	garbage := table.New(0)
	c.Register(garbage)

	c.SetRoots(func(mark func(value.Value)) { mark(value.FromObject(root)) })
	c.FullGC()

	require.False(t, root.Header().IsDead(rawCurrentWhite(c)))
	require.True(t, garbage.Header().IsDead(rawCurrentWhite(c)) || garbage.Header().Color() != value.ColorWhite)
}

func TestBarrierCorrectness(t *testing.T) {
	c, _ := newCollector(t)
	root := table.New(0)
	c.Register(root)
	c.SetRoots(func(mark func(value.Value)) { mark(value.FromObject(root)) })

	// Drive the root table black mid-cycle, then write a brand new
	// white object into it: BarrierBack must keep it from being swept.
	c.mustStartCycleForTest()
	c.propagateAllForTest()
	require.Equal(t, value.ColorBlack, root.Header().Color())

	child := table.New(0)
	c.Register(child)
	require.NoError(t, root.Set(value.Int(1), value.FromObject(child)))
	c.BarrierBack(root)

	c.finishCycleForTest()
	require.False(t, root.Header().IsDead(rawCurrentWhite(c)))
	got := root.Get(value.Int(1))
	obj, ok := got.Object()
	require.True(t, ok)
	require.Same(t, child, obj)
	require.False(t, child.Header().IsDead(rawCurrentWhite(c)))
}

type finalizable struct {
	table.Table
	ran *bool
}

func (f *finalizable) Finalize() { *f.ran = true }

func TestFinalizerRunsExactlyOnce(t *testing.T) {
	c, _ := newCollector(t)
	ran := false
	obj := &finalizable{Table: *table.New(0), ran: &ran}
	c.Register(obj)
	c.MarkFinalizable(obj)

	c.SetRoots(func(func(value.Value)) {})
	c.FullGC()
	n := c.RunFinalizers()
	require.Equal(t, 1, n)
	require.True(t, ran)

	n2 := c.RunFinalizers()
	require.Equal(t, 0, n2)
}

// test-only helpers exposing otherwise-private cycle control, kept in
// this file rather than cycle.go since nothing outside tests needs
// partial-cycle stepping.
func (c *Collector) mustStartCycleForTest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCycleLocked()
}

func (c *Collector) propagateAllForTest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.propagateAll()
}

func (c *Collector) finishCycleForTest() {
	for {
		c.mu.Lock()
		phase := c.phase
		c.mu.Unlock()
		if phase == PhasePause {
			return
		}
		c.Step()
	}
}

func rawCurrentWhite(c *Collector) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentWhite
}
