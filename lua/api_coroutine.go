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
	"github.com/pkg/errors"

	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// NewCoroutine implements create_thread() of spec §4.6: a new thread
// sharing this State's global resources, with its own stack and call
// chain, suitable as the target of Resume.
func (s *State) NewCoroutine() *State { return s.NewThread() }

// Status reports the coroutine's current run status (spec §4.5):
// KindOK when it has never run or has returned normally, StatusYield
// while suspended on a Yield, and the thread's last error kind if it
// died with one.
func (s *State) Status() ErrorKind { return s.th.Status() }

// Resume implements resume(nargs) of spec §4.5/§9: on a fresh
// coroutine, the callee and its nargs arguments are already the top
// nargs+1 values on this State's own stack, exactly as for Call; on a
// coroutine parked by a prior Yield, nargs values are instead resume
// arguments handed back to the pending Continuation in place of
// Yield's results. Either way nresults values are left on this
// State's stack and the run status is returned.
func (s *State) Resume(nargs int) (nresults int, status ErrorKind) {
	if _, cont, ok := s.th.Suspended(); ok {
		return s.resumeContinuation(cont)
	}
	return s.resumeFresh(nargs)
}

// resumeFresh drives a coroutine's first entry. The Executor interface
// reports success or failure only, leaving results on the stack, so
// the result count here is read back from stack geometry rather than
// from thread.Resume's returned slice (which is populated only for a
// yield that carries results out of band).
func (s *State) resumeFresh(nargs int) (int, ErrorKind) {
	if s.shared.executor == nil {
		return 0, KindRuntime
	}
	fn := s.th.Top() - nargs - 1
	if fn < 0 {
		return 0, KindRuntime
	}
	_, status := s.th.Resume(func() ([]value.Value, error) {
		return nil, s.shared.executor.Call(s.th, fn, nargs, MultiRet)
	})
	if status == callframe.StatusOK || status == callframe.StatusYield {
		return s.th.Top() - fn, status
	}
	return 0, status
}

// resumeContinuation re-enters a suspended coroutine's Continuation,
// whose own (nresults, err) return tells us directly how many values
// it left on the stack.
func (s *State) resumeContinuation(cont callframe.Continuation) (int, ErrorKind) {
	var n int
	_, status := s.th.Resume(func() ([]value.Value, error) {
		got, err := cont.Func(cont.Ctx, callframe.StatusYield)
		n = got
		return nil, err
	})
	if status == callframe.StatusOK || status == callframe.StatusYield {
		return n, status
	}
	return 0, status
}

func (s *State) collectFrom(base int) []value.Value {
	n := s.th.Top() - base
	if n <= 0 {
		return nil
	}
	res := make([]value.Value, n)
	for i := 0; i < n; i++ {
		res[i] = s.th.Get(base + i)
	}
	return res
}

// Yield implements yield(nresults) of spec §4.5: the top nresults
// stack values become this coroutine's yielded results, suspending it
// until the next Resume. It fails with ErrYieldAcrossNonYieldable if
// called from within a non-yieldable region (e.g. a metamethod call).
func (s *State) Yield(nresults int) error {
	top := s.th.Top()
	base := top - nresults
	if base < 0 {
		return errors.New("lua: yield with too few results on the stack")
	}
	results := s.collectFrom(base)
	return s.th.Yield(results, callframe.Continuation{})
}
