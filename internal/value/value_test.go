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

package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRawEqualCrossRepresentation(t *testing.T) {
	require.True(t, RawEqual(Int(2), Float(2.0)))
	require.False(t, RawEqual(Int(2), Float(2.5)))
	require.True(t, RawEqual(Nil, Value{}))
	require.True(t, RawEqual(Bool(true), Bool(true)))
	require.False(t, RawEqual(Bool(true), Bool(false)))
}

func TestCanonicalize(t *testing.T) {
	v := Canonicalize(Float(3.0))
	i, ok := v.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(3), i)

	v = Canonicalize(Float(3.5))
	_, ok = v.AsFloat()
	require.True(t, ok)

	v = Canonicalize(Float(math.NaN()))
	require.True(t, v.IsNaN())
}

func TestIsFalsy(t *testing.T) {
	require.True(t, Nil.IsFalsy())
	require.True(t, Bool(false).IsFalsy())
	require.False(t, Bool(true).IsFalsy())
	require.False(t, Int(0).IsFalsy())
}

func TestHeaderLifecycle(t *testing.T) {
	h := NewHeader(KindTable, bitWhite0)
	require.Equal(t, ColorWhite, h.Color())
	h.MakeGray()
	require.Equal(t, ColorGray, h.Color())
	h.MakeBlack()
	require.Equal(t, ColorBlack, h.Color())
	h.MakeWhite(bitWhite1)
	require.Equal(t, ColorWhite, h.Color())
	require.True(t, h.IsDead(bitWhite0))
	require.False(t, h.IsDead(bitWhite1))
}
