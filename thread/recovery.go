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
	"fmt"

	"go.uber.org/zap"

	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// recovery is one error-recovery record of spec §4.5: a linked list
// hanging off the thread, each entry remembering enough to unwind a
// protected call back to where it was entered.
type recovery struct {
	savedTop int
	savedCI  *callframe.CallInfo
	next     *recovery
}

// SetStringizer installs the callback ProtectedCall uses to turn a
// plain (non-Raised) Go error into a Value, typically by interning its
// message as a short string. Without one, such errors surface as nil.
func (t *Thread) SetStringizer(f func(string) value.Value) { t.stringize = f }

// ProtectedCall implements protected_call(restoreTop, f, errHandler) of
// spec §4.5: push a recovery record, invoke f, and on error unwind the
// stack to restoreTop and the call chain back to the point of entry
// before optionally running errHandler with the error value.
//
// restoreTop is the stack position an error rolls back to, before the
// single error value is pushed on top of it; the caller picks it, the
// same way the source's lua_pcall rolls back to below the function
// being called rather than to the top at the instant pcall runs (the
// function and its arguments are already on the stack by then).
//
// errHandler may be nil (no message handler installed). If errHandler
// itself returns an error, the result status is StatusErrInErrorHandler
// and the handler is not re-entered, per spec §7.
//
// On return (success or failure) the stack top is always exactly one
// greater than restoreTop when status != StatusOK, and f alone is
// responsible for the stack shape on StatusOK (it owns pushing its own
// results).
func (t *Thread) ProtectedCall(restoreTop int, f func() error, errHandler func(value.Value) (value.Value, error)) callframe.Status {
	rec := &recovery{savedTop: restoreTop, savedCI: t.ci.Current()}
	rec.next = t.recovery
	t.recovery = rec
	defer func() { t.recovery = rec.next }()

	callErr := t.invokeRecovered(f)
	if callErr == nil {
		return callframe.StatusOK
	}

	t.top = rec.savedTop
	for t.ci.Current() != rec.savedCI {
		t.ci.Pop()
	}

	status := statusOf(callErr)
	errVal := valueOf(callErr, t.stringize)

	if errHandler != nil {
		handled, herr := errHandler(errVal)
		if herr != nil {
			_ = t.Push(valueOf(herr, t.stringize))
			return callframe.StatusErrInErrorHandler
		}
		errVal = handled
	}
	_ = t.Push(errVal)
	return status
}

// invokeRecovered runs f, converting a genuine Go panic raised by host
// code into a runtime error instead of unwinding past the protected
// call boundary; the language-level nonlocal jump itself is the
// ordinary Go error return, since every frame here already threads one.
func (t *Thread) invokeRecovered(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if t.log != nil {
				t.log.Error("recovered panic in protected call", zap.Any("panic", r))
			}
			err = fmt.Errorf("panic in protected call: %v", r)
		}
	}()
	return f()
}

// Recovering reports whether the thread currently has at least one
// pending recovery record, i.e. is running under some ProtectedCall.
func (t *Thread) Recovering() bool { return t.recovery != nil }
