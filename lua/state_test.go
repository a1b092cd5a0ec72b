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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bianyuan1986/lua-analysis/config"
	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/value"
	"github.com/bianyuan1986/lua-analysis/thread"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewState(config.DefaultConfig(), nil)
	require.NoError(t, err)
	return s
}

// TestCreateTableInsertAndLength exercises spec §8 scenario 2: insert
// keys 1..10 with values "v", length returns 10.
func TestCreateTableInsertAndLength(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.CreateTable(0, 0))

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, s.PushString("v"))
		require.NoError(t, s.RawSetI(-2, i))
	}
	require.Equal(t, 1, s.GetTop())

	require.NoError(t, s.Len(-1))
	n, ok := s.ToIntegerX(-1)
	require.True(t, ok)
	require.Equal(t, int64(10), n)
}

// TestGoClosureUpvalues exercises spec §8 scenario 3: a host closure
// over two upvalues ("a", 1), read back by index from within the call.
func TestGoClosureUpvalues(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.PushString("a"))
	require.NoError(t, s.PushInteger(1))

	var gotA string
	var gotB int64
	fn := func(inner *State) (int, error) {
		a, _ := inner.resolve(RegistryIndex - 1)
		b, _ := inner.resolve(RegistryIndex - 2)
		gotA = DebugString(a)
		gotB, _ = b.AsInt()
		return 0, nil
	}
	require.NoError(t, s.PushCClosure(fn, 2))

	closureVal, ok := s.resolve(-1)
	require.True(t, ok)
	obj, ok := closureVal.Object()
	require.True(t, ok)
	gc, ok := obj.(*GoClosure)
	require.True(t, ok)

	inner := &State{shared: s.shared, th: s.th, runningClosure: gc}
	_, err := gc.fn(inner)
	require.NoError(t, err)
	require.Equal(t, "a", gotA)
	require.Equal(t, int64(1), gotB)
}

// TestPCallUncaughtErrorLeavesMessageOnTop exercises spec §8 scenario
// 4: a protected call that raises "boom" with no error handler leaves
// status RUNTIME and the string "boom" on top.
func TestPCallUncaughtErrorLeavesMessageOnTop(t *testing.T) {
	s := newTestState(t)
	boom, err := s.shared.strings.InternString("boom")
	require.NoError(t, err)
	s.SetExecutor(raiseExecutor{raised: thread.RaiseValue(value.FromObject(boom))})

	require.NoError(t, s.PushLightUserData(nil)) // stand in for a callee; the stub executor ignores it
	entryTop := s.GetTop() - 1

	status := s.PCall(0, 0, 0)
	require.Equal(t, callframe.StatusRuntimeError, status)
	require.Equal(t, entryTop+1, s.GetTop())

	v, ok := s.resolve(-1)
	require.True(t, ok)
	require.Equal(t, "boom", DebugString(v))
}

// TestPCallSuccessClearsRecoveryState verifies a successful pcall
// leaves Recovering false once it returns.
func TestPCallSuccessClearsRecoveryState(t *testing.T) {
	s := newTestState(t)
	s.SetExecutor(noopExecutor{})
	require.NoError(t, s.PushLightUserData(nil))

	status := s.PCall(0, 0, 0)
	require.Equal(t, callframe.StatusOK, status)
	require.False(t, s.th.Recovering())
}

type raiseExecutor struct{ raised error }

func (r raiseExecutor) Call(th *thread.Thread, fn int, nargs, nresults int) error {
	return r.raised
}

type noopExecutor struct{}

func (noopExecutor) Call(th *thread.Thread, fn int, nargs, nresults int) error {
	return nil
}
