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

// Package thread implements the per-coroutine value stack and call
// chain of spec §4.5: stack growth, error recovery, and yield/resume.
//
// Stack positions are represented as plain integer offsets rather
// than pointers into the backing array (spec §9's "Raw-pointer stack
// interiors" design note), so growing the stack is an ordinary slice
// reallocation with no fixup pass: every saved position (CallInfo
// Func/Base/Top, a Recovery's saved top, an open upvalue) remains
// valid across a grow because it was never a pointer to begin with.
package thread

import (
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bianyuan1986/lua-analysis/internal/callframe"
	"github.com/bianyuan1986/lua-analysis/internal/gc"
	"github.com/bianyuan1986/lua-analysis/internal/table"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// ExtraStack is the reserved tail of extra slots past stackLast used
// by metamethod invocation, spec §4.5.
const ExtraStack = 5

// ErrStackOverflow is raised when growing the stack would exceed the
// thread's configured maximum.
var ErrStackOverflow = errors.New("stack overflow")

// Thread is one coroutine: a value stack, its call-info chain, and
// the error-recovery chain rooted on it. The main thread of a global
// state is a Thread like any other (spec §4.7).
type Thread struct {
	hdr value.Header

	collector *gc.Collector
	log       *zap.Logger

	stack     []value.Value
	top       int // one past the last in-use cell
	stackLast int // highest cell normal code may use
	maxStack  int

	ci *callframe.Chain

	nny int // count of frames on the stack declaring themselves non-yieldable

	recovery *recovery

	globals *table.Table

	panicHandler func(value.Value)
	stringize    func(string) value.Value

	status callframe.Status

	yieldable *pendingYield
	dead      bool
}

// New creates a thread with an initial stack of initialSize usable
// slots (plus ExtraStack), growable up to maxStack.
func New(collector *gc.Collector, log *zap.Logger, globals *table.Table, initialSize, maxStack int) *Thread {
	if log == nil {
		log = zap.NewNop()
	}
	if initialSize <= 0 {
		initialSize = 40
	}
	t := &Thread{
		collector: collector,
		log:       log,
		stack:     make([]value.Value, initialSize+ExtraStack),
		maxStack:  maxStack,
		ci:        callframe.NewChain(),
		globals:   globals,
	}
	t.stackLast = len(t.stack) - ExtraStack
	t.hdr = value.NewHeader(value.KindThread, 0)
	if collector != nil {
		collector.Register(t)
	}
	return t
}

func (t *Thread) Header() *value.Header { return &t.hdr }

func (t *Thread) Traverse(mark func(value.Value), barrier func(value.Object)) {
	for i := 0; i < t.top; i++ {
		mark(t.stack[i])
	}
	if t.globals != nil {
		barrier(t.globals)
	}
}

func (t *Thread) Size() uintptr {
	return uintptr(len(t.stack)) * 32
}

func (t *Thread) Identity() uintptr { return uintptr(unsafe.Pointer(t)) }

func (t *Thread) Globals() *table.Table { return t.globals }
func (t *Thread) Top() int              { return t.top }
func (t *Thread) CallChain() *callframe.Chain { return t.ci }
func (t *Thread) NNY() int              { return t.nny }

func (t *Thread) SetPanicHandler(f func(value.Value)) { t.panicHandler = f }

// Status reports the thread's coroutine status (spec §4.5): a thread
// starts OK, becomes StatusYield while suspended, reverts to OK on a
// completed resume, and keeps the error status of a resume that ended
// in an error.
func (t *Thread) Status() callframe.Status { return t.status }

// Dead reports whether the thread's body has already run to normal
// completion or terminal error. A dead thread can never be resumed
// again (spec §8 scenario 5); a further Resume call must fail rather
// than reinterpret whatever is left on the stack as a fresh callee.
func (t *Thread) Dead() bool { return t.dead }

// EnterNonYieldable and ExitNonYieldable bracket a call region that
// must not suspend across, e.g. a metamethod invocation or a pcall
// boundary that the executor can't re-enter on resume. The counter
// nests: a thread may only yield while it reads zero.
func (t *Thread) EnterNonYieldable() { t.nny++ }
func (t *Thread) ExitNonYieldable()  { t.nny-- }

// Get returns the stack cell at absolute index i (0-based), or nil if
// i is out of the in-use range.
func (t *Thread) Get(i int) value.Value {
	if i < 0 || i >= t.top {
		return value.Nil
	}
	return t.stack[i]
}

func (t *Thread) Set(i int, v value.Value) {
	t.growAbsolute(i + 1)
	t.stack[i] = v
}

// Push appends v to the top of the stack, growing if necessary.
func (t *Thread) Push(v value.Value) error {
	if err := t.EnsureStack(1); err != nil {
		return err
	}
	t.stack[t.top] = v
	t.top++
	return nil
}

// Pop removes and returns the top value. Popping an empty stack
// returns the nil Value.
func (t *Thread) Pop() value.Value {
	if t.top == 0 {
		return value.Nil
	}
	t.top--
	v := t.stack[t.top]
	t.stack[t.top] = value.Nil
	return v
}

func (t *Thread) SetTop(newTop int) {
	if newTop < 0 {
		newTop = 0
	}
	if newTop > t.top {
		t.growAbsolute(newTop)
		for i := t.top; i < newTop; i++ {
			t.stack[i] = value.Nil
		}
	} else {
		for i := newTop; i < t.top; i++ {
			t.stack[i] = value.Nil
		}
	}
	t.top = newTop
}
