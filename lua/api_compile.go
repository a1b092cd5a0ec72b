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

	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// ErrNoCompiler is returned by Load when no Compiler has been
// installed via SetCompiler.
var ErrNoCompiler = errors.New("lua: no Compiler installed")

// Load implements the Compile group's load(reader, chunkname, mode) of
// spec §4.6: invoke the external parser to produce a closure pushed on
// the stack, with its first upvalue set to the globals table on
// success.
func (s *State) Load(reader func() ([]byte, error), chunkname, mode string) error {
	if s.shared.compiler == nil {
		return ErrNoCompiler
	}
	proto, err := s.shared.compiler.Load(reader, chunkname, mode)
	if err != nil {
		return errors.Wrapf(err, "lua: loading %s", chunkname)
	}
	s.shared.collector.Register(proto)
	closure := NewLuaClosure(proto, []value.Value{value.FromObject(s.shared.globals)})
	s.shared.collector.Register(closure)
	return s.th.Push(value.FromObject(closure))
}
