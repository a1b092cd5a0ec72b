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

	"github.com/bianyuan1986/lua-analysis/internal/value"

	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/thread"
)

// scenarioExecutor stands in for a bytecode Executor's own
// suspend/resume plumbing: its first entry yields 7, leaving a
// Continuation that pushes 8 and returns on the matching resume.
type scenarioExecutor struct{}

func (scenarioExecutor) Call(th *thread.Thread, fn int, nargs, nresults int) error {
	th.SetTop(fn)
	cont := callframe.Continuation{Func: func(ctx any, status callframe.Status) (int, error) {
		th.SetTop(fn)
		if err := th.Push(value.Int(8)); err != nil {
			return 0, err
		}
		return 1, nil
	}}
	if err := th.Push(value.Int(7)); err != nil {
		return err
	}
	return th.Yield(nil, cont)
}

// TestResumeYieldsThenReturns exercises spec §8 scenario 5: a
// coroutine that yields 7, then on the next resume returns 8.
func TestResumeYieldsThenReturns(t *testing.T) {
	s := newTestState(t)
	co := s.NewCoroutine()
	co.SetExecutor(scenarioExecutor{})

	require.NoError(t, co.PushLightUserData(nil))
	n, status := co.Resume(0)
	require.Equal(t, callframe.StatusYield, status)
	require.Equal(t, 1, n)
	v, ok := co.resolve(-1)
	require.True(t, ok)
	got, ok := v.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(7), got)
	require.Equal(t, callframe.StatusYield, co.Status())

	n, status = co.Resume(0)
	require.Equal(t, callframe.StatusOK, status)
	require.Equal(t, 1, n)
	v, ok = co.resolve(-1)
	require.True(t, ok)
	got, ok = v.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(8), got)
	require.Equal(t, callframe.StatusOK, co.Status())

	// spec §8 scenario 5: a third resume of an already-returned
	// coroutine must fail rather than reinterpret the stale stack left
	// behind by the previous resume as a fresh call.
	n, status = co.Resume(0)
	require.Equal(t, KindRuntime, status)
	require.Equal(t, 0, n)
}
