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
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/bianyuan1986/lua-analysis/internal/table"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// dumpConfig bounds recursive rendering the same way the teacher
// bounds its own debug dumps: tables can be self-referential, so
// unbounded %v-style reflection would recurse forever.
var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisablePointerAddresses: false,
	MaxDepth:                6,
}

// DebugString renders a Value for diagnostics without invoking
// __tostring, matching the source's %p-based default tostring for
// tables/userdata and plain formatting for primitives and strings.
func DebugString(v value.Value) string {
	if b, ok := stringBytes(v); ok {
		return string(b)
	}
	switch v.Type() {
	case value.TypeNil:
		return "nil"
	case value.TypeBoolean:
		b, _ := v.AsBool()
		return fmt.Sprintf("%v", b)
	case value.TypeNumber:
		if i, ok := v.AsInt(); ok {
			return fmt.Sprintf("%d", i)
		}
		f, _ := v.AsFloat()
		return fmt.Sprintf("%g", f)
	}
	if o, ok := v.Object(); ok {
		switch t := o.(type) {
		case *table.Table:
			return fmt.Sprintf("table: %#x", t.Identity())
		case *UserData:
			return fmt.Sprintf("userdata: %#x", t.Identity())
		default:
			return fmt.Sprintf("%s: %#x", v.Type(), o.Identity())
		}
	}
	return v.Type().String()
}

// Dump renders a structural, spew-backed view of a table's contents
// for diagnostics, bounded against cycles and excessive depth the way
// the teacher bounds its recursive dumps.
func Dump(t *table.Table) string {
	return dumpConfig.Sdump(t)
}
