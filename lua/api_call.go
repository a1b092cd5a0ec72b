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
	"github.com/bianyuan1986/lua-analysis/thread"
)

// MultiRet requests "as many results as the callee produced".
const MultiRet = callframe.MultiRet

// ErrNoExecutor is returned by Call/PCall when no Executor has been
// installed via SetExecutor.
var ErrNoExecutor = errors.New("lua: no Executor installed")

// Call implements call(nargs, nresults): the callee and its nargs
// arguments are the top nargs+1 stack values; on return they are
// replaced by nresults results (or all of them if nresults is
// MultiRet). Errors propagate to the nearest ProtectedCall, or to the
// state-wide panic handler if there is none, per spec §4.5.
func (s *State) Call(nargs, nresults int) error {
	if s.shared.executor == nil {
		return ErrNoExecutor
	}
	fn := s.th.Top() - nargs - 1
	if fn < 0 {
		return errors.New("lua: call with too few arguments on the stack")
	}
	if err := s.shared.executor.Call(s.th, fn, nargs, nresults); err != nil {
		s.propagateUncaught(err)
		return err
	}
	return nil
}

// PCall implements pcall(nargs, nresults, errfunc): wraps Call with an
// error recovery record, per spec §4.5/§4.6. errfunc is a stack index
// naming a message handler, or 0 for none.
func (s *State) PCall(nargs, nresults, errfunc int) callframe.Status {
	var handler func(value.Value) (value.Value, error)
	if errfunc != 0 {
		handler = func(errVal value.Value) (value.Value, error) {
			fn, ok := s.resolve(errfunc)
			if !ok {
				return errVal, nil
			}
			base := s.th.Top()
			if err := s.th.Push(fn); err != nil {
				return errVal, err
			}
			if err := s.th.Push(errVal); err != nil {
				return errVal, err
			}
			if err := s.shared.executor.Call(s.th, base, 1, 1); err != nil {
				return errVal, err
			}
			return s.th.Pop(), nil
		}
	}
	fn := s.th.Top() - nargs - 1
	return s.th.ProtectedCall(fn, func() error {
		return s.Call(nargs, nresults)
	}, handler)
}

// propagateUncaught invokes the state-wide panic handler when an error
// escapes a thread with no pending recovery record (spec §4.5).
func (s *State) propagateUncaught(err error) {
	if s.th.Recovering() {
		return
	}
	if s.shared.panicHandler == nil {
		return
	}
	if r, ok := err.(*thread.Raised); ok {
		s.shared.panicHandler(r.V)
		return
	}
	msg := s.shared.stringize(err.Error())
	s.shared.panicHandler(msg)
}
