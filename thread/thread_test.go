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

package thread

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/gc"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

func newTestThread(t *testing.T) *Thread {
	t.Helper()
	c := gc.New(nil, gc.DefaultConfig())
	return New(c, nil, nil, 16, 0)
}

func TestRotateMatchesReferenceDirection(t *testing.T) {
	th := newTestThread(t)
	for _, v := range []value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4), value.Int(5)} {
		require.NoError(t, th.Push(v))
	}

	// rotate([1 2 3 4 5], idx=0, n=2) must produce [4 5 1 2 3], per
	// lapi.c's lua_rotate (m = t-n for n>=0): the last n elements move
	// to the front, not the first n elements to the back.
	th.Rotate(0, 2)
	want := []int64{4, 5, 1, 2, 3}
	for i, w := range want {
		got, ok := th.Get(i).AsInt()
		require.True(t, ok)
		require.Equal(t, w, got, "index %d", i)
	}
}

func TestRotateLawIsAnIdentity(t *testing.T) {
	th := newTestThread(t)
	vals := []value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4), value.Int(5)}
	for _, v := range vals {
		require.NoError(t, th.Push(v))
	}

	th.Rotate(0, 2)
	th.Rotate(0, -2)

	for i, want := range vals {
		got := th.Get(i)
		gi, ok := got.AsInt()
		require.True(t, ok)
		wi, _ := want.AsInt()
		require.Equal(t, wi, gi, "index %d", i)
	}
}

func TestProtectedCallIsolatesStackOnError(t *testing.T) {
	th := newTestThread(t)
	require.NoError(t, th.Push(value.Int(42)))
	entryTop := th.Top()

	status := th.ProtectedCall(entryTop, func() error {
		_ = th.Push(value.Int(1))
		_ = th.Push(value.Int(2))
		return RaiseValue(value.Int(99))
	}, nil)

	require.Equal(t, callframe.StatusRuntimeError, status)
	require.Equal(t, entryTop+1, th.Top())

	errVal := th.Get(th.Top() - 1)
	n, ok := errVal.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(99), n)
}

func TestProtectedCallSuccessLeavesCallerResultsAlone(t *testing.T) {
	th := newTestThread(t)
	status := th.ProtectedCall(th.Top(), func() error {
		return th.Push(value.Int(7))
	}, nil)
	require.Equal(t, callframe.StatusOK, status)
	require.Equal(t, 1, th.Top())
}

func TestProtectedCallRunsErrorHandler(t *testing.T) {
	th := newTestThread(t)
	handlerCalled := false
	status := th.ProtectedCall(th.Top(), func() error {
		return RaiseValue(value.Int(5))
	}, func(v value.Value) (value.Value, error) {
		handlerCalled = true
		n, _ := v.AsInt()
		return value.Int(n * 10), nil
	})
	require.Equal(t, callframe.StatusRuntimeError, status)
	require.True(t, handlerCalled)
	n, ok := th.Get(th.Top() - 1).AsInt()
	require.True(t, ok)
	require.Equal(t, int64(50), n)
}

func TestProtectedCallErrorInErrorHandler(t *testing.T) {
	th := newTestThread(t)
	status := th.ProtectedCall(th.Top(), func() error {
		return RaiseValue(value.Int(1))
	}, func(v value.Value) (value.Value, error) {
		return value.Nil, RaiseValue(value.Int(2))
	})
	require.Equal(t, callframe.StatusErrInErrorHandler, status)
}

func TestYieldAcrossNonYieldableFails(t *testing.T) {
	th := newTestThread(t)
	th.EnterNonYieldable()
	err := th.Yield(nil, callframe.Continuation{})
	require.ErrorIs(t, err, ErrYieldAcrossNonYieldable)
	th.ExitNonYieldable()
}

func TestResumeSuspendsOnYield(t *testing.T) {
	th := newTestThread(t)
	cont := callframe.Continuation{Func: func(ctx any, status callframe.Status) (int, error) {
		return 0, nil
	}}

	results, status := th.Resume(func() ([]value.Value, error) {
		return []value.Value{value.Int(1)}, th.Yield([]value.Value{value.Int(1)}, cont)
	})

	require.Equal(t, callframe.StatusYield, status)
	require.Equal(t, callframe.StatusYield, th.Status())
	require.Len(t, results, 1)

	_, gotCont, ok := th.Suspended()
	require.True(t, ok)
	require.NotNil(t, gotCont.Func)
}

func TestResumeCompletesNormally(t *testing.T) {
	th := newTestThread(t)
	results, status := th.Resume(func() ([]value.Value, error) {
		return []value.Value{value.Int(3)}, nil
	})
	require.Equal(t, callframe.StatusOK, status)
	require.Equal(t, callframe.StatusOK, th.Status())
	n, ok := results[0].AsInt()
	require.True(t, ok)
	require.Equal(t, int64(3), n)
}
