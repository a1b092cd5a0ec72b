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

package table

import "github.com/bianyuan1986/lua-analysis/internal/value"

// setNodeVector installs a hash part with room for at least size
// entries (rounded up to a power of two), or the shared dummy node
// when size is zero, per ltable.c's setnodevector.
func (t *Table) setNodeVector(size int) {
	if size == 0 {
		t.node = dummyNode[:]
		t.dummy = true
		t.lastFree = 0
		return
	}
	lsize := ceilLog2(size)
	if lsize > maxHBits {
		panic("table overflow")
	}
	n := 1 << lsize
	t.node = make([]Node, n)
	t.dummy = false
	t.lastFree = n
}

func (t *Table) setArrayVector(size int) {
	na := make([]value.Value, size)
	copy(na, t.array)
	t.array = na
}

// countInt tallies key (if it is a valid array index) into nums,
// bucketed by the power-of-two range its index falls in, mirroring
// ltable.c's countint.
func countInt(key value.Value, nums []int) bool {
	i, ok := arrayIndex(key)
	if !ok {
		return false
	}
	nums[ceilLog2(i)]++
	return true
}

// numUseArray tallies the live (non-nil) array slots into nums and
// returns the total count, mirroring ltable.c's numusearray.
func (t *Table) numUseArray(nums []int) int {
	ause := 0
	lg := 0
	ttlg := 1 // 2^lg
	for lg <= maxABits {
		lc := 0
		lim := ttlg
		if lim > len(t.array) {
			lim = len(t.array)
		}
		for i := ttlg >> 1; i < lim; i++ {
			if !t.array[i].IsNil() {
				lc++
			}
		}
		nums[lg] += lc
		ause += lc
		if ttlg >= len(t.array) {
			break
		}
		lg++
		ttlg *= 2
	}
	return ause
}

// numUseHash tallies live hash entries whose keys are valid array
// indices into nums, returning (total live hash entries, count of
// those that are array-index candidates), per ltable.c's numusehash.
func (t *Table) numUseHash(nums []int) (totalUse, arrayCandidates int) {
	for i := range t.node {
		n := &t.node[i]
		if !n.val.IsNil() {
			totalUse++
			if countInt(n.key, nums) {
				arrayCandidates++
			}
		}
	}
	return totalUse, arrayCandidates
}

// computeSizes picks the new array size, mirroring ltable.c's
// computesizes: the largest power-of-two range whose cumulative count
// of array-candidate keys exceeds half of that range's capacity.
func computeSizes(nums []int, totalArrayCandidates int) (asize, keptUse int) {
	a := 0
	na := 0
	twotolg := 1
	for lg := 0; lg <= maxABits && totalArrayCandidates > twotolg/2; lg++ {
		if nums[lg] > 0 {
			a += nums[lg]
			if a > twotolg/2 {
				na = twotolg
				keptUse = a
			}
		}
		twotolg *= 2
	}
	return na, keptUse
}

// rehash reinstalls the array and hash parts so that extraKey (a key
// about to be inserted) has room, mirroring ltable.c's rehash: count
// current array-index candidates across both parts, size the new
// array to keep at least half its slots live, and put everything else
// in a freshly sized hash part.
func (t *Table) rehash(extraKey value.Value) error {
	nums := make([]int, maxABits+1)
	nasize := t.numUseArray(nums)
	totalUse := nasize
	hUse, hCandidates := t.numUseHash(nums)
	totalUse += hUse
	nasize += hCandidates
	if countInt(extraKey, nums) {
		nasize++
	}
	totalUse++
	newASize, keptUse := computeSizes(nums, nasize)

	oldArray := t.array
	oldNode := t.node
	oldDummy := t.dummy

	t.setArraySizeExact(newASize)
	nhsize := totalUse - keptUse
	if nhsize < 0 {
		nhsize = 0
	}
	t.setNodeVector(nhsize)

	// reinsert old array entries that no longer fit in the array part
	for i := newASize; i < len(oldArray); i++ {
		if !oldArray[i].IsNil() {
			if err := t.reinsert(value.Int(int64(i+1)), oldArray[i]); err != nil {
				return err
			}
		}
	}
	for i := 0; i < len(oldArray) && i < newASize; i++ {
		t.array[i] = oldArray[i]
	}
	// reinsert old hash entries
	if !oldDummy {
		for i := len(oldNode) - 1; i >= 0; i-- {
			n := &oldNode[i]
			if !n.val.IsNil() {
				if err := t.reinsert(n.key, n.val); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// setArraySizeExact replaces the array part with a zero-valued vector
// of exactly size entries (the caller repopulates it).
func (t *Table) setArraySizeExact(size int) {
	t.array = make([]value.Value, size)
}

// reinsert places a (key, val) pair recovered from the pre-rehash
// table directly, bypassing Set's array-index fast path logic since
// the array part is still being repopulated by the caller.
func (t *Table) reinsert(key value.Value, val value.Value) error {
	if i, ok := arrayIndex(key); ok && i <= len(t.array) {
		t.array[i-1] = val
		return nil
	}
	slot, err := t.newKey(key)
	if err != nil {
		return err
	}
	t.node[slot].val = val
	return nil
}
