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
	"github.com/pkg/errors"

	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// ErrYieldAcrossNonYieldable is returned by Yield when the thread has
// at least one non-yieldable region on its call chain (spec §4.5:
// "yielding through a frame that declared itself non-yieldable is an
// error, not a suspension").
var ErrYieldAcrossNonYieldable = errors.New("attempt to yield across a non-yieldable call boundary")

// ErrResumeDeadCoroutine is returned by Resume when the thread has
// already run to normal completion or terminal error on a previous
// Resume (spec §8 scenario 5): a dead coroutine cannot be resumed
// again, mirroring the reference implementation's "cannot resume dead
// coroutine" error.
var ErrResumeDeadCoroutine = errors.New("cannot resume dead coroutine")

// Yielded is the sentinel error a yielding host call returns: it
// unwinds the Go call stack exactly like any other propagated error,
// but Resume recognizes it and suspends instead of reporting failure.
// This is spec §9's nonlocal-jump mechanism resolved as Go's own
// explicit-error-return convention, since every intervening frame in
// this port already threads one.
type Yielded struct {
	Results []value.Value
	Cont    callframe.Continuation
}

func (y *Yielded) Error() string { return "coroutine yield" }

// Yield implements yield(results, cont) of spec §4.5: suspend this
// thread, carrying results out to the resumer and cont back in on the
// matching Resume. It fails if any enclosing frame forbids yielding.
func (t *Thread) Yield(results []value.Value, cont callframe.Continuation) error {
	if t.nny > 0 {
		return ErrYieldAcrossNonYieldable
	}
	return &Yielded{Results: results, Cont: cont}
}

// pendingYield is the suspended state a yielded thread carries between
// Resume calls: the continuation to re-enter and the call-info frame
// it belongs to, so Resume can tell which frame's Cont to invoke.
type pendingYield struct {
	ci   *callframe.CallInfo
	cont callframe.Continuation
}

// suspend records a yield, parking the thread until the next Resume.
// Called by Resume when body returns a *Yielded.
func (t *Thread) suspend(ci *callframe.CallInfo, y *Yielded) {
	t.status = callframe.StatusYield
	t.yieldable = &pendingYield{ci: ci, cont: y.Cont}
}

// Suspended reports whether the thread is currently parked on a yield,
// and if so the continuation due to run on the next Resume.
func (t *Thread) Suspended() (ci *callframe.CallInfo, cont callframe.Continuation, ok bool) {
	if t.yieldable == nil {
		return nil, callframe.Continuation{}, false
	}
	return t.yieldable.ci, t.yieldable.cont, true
}

// Resume implements resume(args) of spec §4.5. body is supplied by the
// caller: on a thread's first resume it is the coroutine's entry call;
// on a subsequent resume of a suspended thread it is expected to
// re-enter exactly the continuation reported by Suspended, ignoring
// args itself (args have already been placed on the stack by the
// caller before calling Resume, matching how the reference
// implementation passes resume arguments as the yield call's results).
//
// Resume clears any pending yield state before running body, and
// converts a returned *Yielded into a fresh suspension rather than an
// error; any other error is reported with its natural status. A thread
// that has already completed (normally or with a terminal error) is
// dead and refuses any further Resume without invoking body.
func (t *Thread) Resume(body func() ([]value.Value, error)) (results []value.Value, status callframe.Status) {
	if t.dead {
		return nil, callframe.StatusRuntimeError
	}

	t.yieldable = nil
	t.status = callframe.StatusOK

	res, err := body()
	if err == nil {
		t.dead = true
		return res, callframe.StatusOK
	}
	if y, ok := err.(*Yielded); ok {
		t.suspend(t.ci.Current(), y)
		return y.Results, callframe.StatusYield
	}
	t.dead = true
	t.status = statusOf(err)
	return nil, t.status
}
