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
	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/value"
	"github.com/bianyuan1986/lua-analysis/thread"
)

// ErrorKind is Status renamed at the public API boundary to match
// spec §7's vocabulary (OK/RUNTIME/MEMORY/SYNTAX/ERR/GC) rather than
// the internal call-chain's Status type.
type ErrorKind = callframe.Status

const (
	KindOK               = callframe.StatusOK
	KindRuntime          = callframe.StatusRuntimeError
	KindMemory           = callframe.StatusMemoryError
	KindSyntax           = callframe.StatusSyntaxError
	KindErrInErrorHandler = callframe.StatusErrInErrorHandler
	KindGC               = callframe.StatusGCError
)

// Raise implements the host-callback equivalent of the source's
// lua_error: raise v as a RUNTIME error, unwinding to the nearest
// ProtectedCall (or the state-wide panic handler if there is none).
func Raise(v value.Value) error { return thread.RaiseValue(v) }

// RaiseKind raises v tagged with an explicit ErrorKind, for a Compiler
// reporting SYNTAX or the allocator shim reporting MEMORY.
func RaiseKind(v value.Value, kind ErrorKind) error { return thread.RaiseKind(v, kind) }

// Error wraps a returned *thread.Raised for callers that want Go's
// standard error inspection (errors.As) without reaching into the
// thread package directly.
type Error struct {
	Kind  ErrorKind
	Value value.Value
}

func (e *Error) Error() string { return "lua error" }

// AsError converts a Go error returned by Call/PCall/Load into the
// structured Error form, when it carries one.
func AsError(err error) (*Error, bool) {
	r, ok := err.(*thread.Raised)
	if !ok {
		return nil, false
	}
	return &Error{Kind: r.Status, Value: r.V}, true
}
