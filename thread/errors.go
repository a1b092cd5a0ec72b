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
	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// Raised carries a language-level error value through Go's ordinary
// error-return path, spec §9's "port using the target language's
// recoverable-panic or structured-result mechanism" resolved as a
// plain error return here since every call site already threads one.
type Raised struct {
	V      value.Value
	Status callframe.Status
}

func (r *Raised) Error() string { return "raised error" }

// RaiseValue constructs a RUNTIME-kind error carrying v as the error
// value, per spec §7.
func RaiseValue(v value.Value) error {
	return &Raised{V: v, Status: callframe.StatusRuntimeError}
}

// RaiseKind constructs an error of the given kind carrying v.
func RaiseKind(v value.Value, status callframe.Status) error {
	return &Raised{V: v, Status: status}
}

// statusOf reports the Status a propagated error should surface as.
func statusOf(err error) callframe.Status {
	if r, ok := err.(*Raised); ok {
		if r.Status != callframe.StatusOK {
			return r.Status
		}
	}
	return callframe.StatusRuntimeError
}

func valueOf(err error, stringize func(string) value.Value) value.Value {
	if r, ok := err.(*Raised); ok {
		return r.V
	}
	if stringize != nil {
		return stringize(err.Error())
	}
	return value.Nil
}
