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

// Package table implements the hybrid array+hash container described
// in spec §3 ("Table") and §4.3, the language's only compound data
// type.
package table

import "github.com/bianyuan1986/lua-analysis/internal/value"

// Node is one slot of the hash part. next is a signed offset (in node
// slice indices, not bytes) to the next node in this key's collision
// chain; zero means "end of chain". Encoding the link as an offset
// rather than a pointer keeps the hash array relocatable, per the
// design note in spec §9 ("Collision chains encoded as signed
// intra-array offsets").
type Node struct {
	key  value.Value
	val  value.Value
	next int32
}

// dummyNode is the statically shared sentinel hash part an empty
// table starts with (spec §3: "An empty table uses a statically
// shared sentinel node for the hash part"). It is never mutated;
// Table.dummy gates every write path so the shared backing array is
// never written through a dummy Table.
var dummyNode = [1]Node{{}}
