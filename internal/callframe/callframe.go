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

// Package callframe implements the call-info chain of spec §4.5: one
// CallInfo per active frame, doubly linked, retained as a free chain
// across calls to amortize allocation, plus the continuation record a
// yielding call leaves behind for its eventual resume.
package callframe

// Kind distinguishes a frame driven by the external bytecode executor
// from one driven by a host (Go) function, since the two carry
// different resume state.
type Kind uint8

const (
	KindGo Kind = iota
	KindExecutor
)

// MultiRet requests "as many results as the callee produced" from
// Call, mirroring the source's LUA_MULTRET.
const MultiRet = -1

// status bits, mirroring lstate.h's CIST_* flags that this port needs.
const (
	StatusNone uint16 = 0
	// StatusYieldablePending is SET when the frame currently forbids yielding
	// (spec's nny counter contributes to this per-frame, but the flag
	// also tracks the callee-declared case, e.g. a metamethod frame).
	StatusYieldablePending uint16 = 1 << iota
	StatusYielded
	StatusTailCall
	StatusErrorHandler // this frame is running the error handler for a pcall
)

// Continuation is the (function, context) pair a yielding host call
// leaves on its CallInfo, restored verbatim when the matching resume
// reaches this frame again. Spec §4.5 "Yield and resume".
type Continuation struct {
	Func func(ctx any, status Status) (nresults int, err error)
	Ctx  any
}

// Status is the outcome of a call or resume, spec §4.6/§4.5.
type Status uint8

const (
	StatusOK Status = iota
	StatusYield
	StatusRuntimeError
	StatusMemoryError
	StatusSyntaxError
	StatusErrInErrorHandler
	StatusGCError
)

// CallInfo delimits one active frame: Func is the stack slot holding
// the callee, Base the first argument/local slot, Top one past the
// highest slot this frame may use. Spec §4.5.
type CallInfo struct {
	Func int
	Base int
	Top  int

	Kind Kind

	NResults int // requested result count, or MultiRet

	Cont Continuation

	previous *CallInfo
	next     *CallInfo

	status uint16
}

func (ci *CallInfo) Previous() *CallInfo { return ci.previous }
func (ci *CallInfo) Next() *CallInfo     { return ci.next }

func (ci *CallInfo) SetStatus(bit uint16)   { ci.status |= bit }
func (ci *CallInfo) ClearStatus(bit uint16) { ci.status &^= bit }
func (ci *CallInfo) HasStatus(bit uint16) bool { return ci.status&bit != 0 }

// Chain is the per-thread call-info list: a live frame pointer plus a
// tail of detached frames retained as a free list, per spec §4.5
// ("retained as a free chain (shrunk periodically) to amortize
// allocation").
type Chain struct {
	base    CallInfo // the always-present base frame (the thread itself)
	current *CallInfo
	free    *CallInfo // detached frames available for reuse
	depth   int
}

// NewChain returns a chain with just the base frame current.
func NewChain() *Chain {
	c := &Chain{}
	c.current = &c.base
	return c
}

func (c *Chain) Current() *CallInfo { return c.current }
func (c *Chain) Depth() int         { return c.depth }

// Push extends the chain with a new frame following current. Because
// pushes and pops follow a strict stack discipline, current.next (if
// still linked from an earlier pop at this same position) already has
// its previous pointer correctly set and needs only its contents
// reset; failing that, a frame is taken from the free list or
// allocated.
func (c *Chain) Push() *CallInfo {
	var ci *CallInfo
	switch {
	case c.current.next != nil:
		ci = c.current.next
		next := ci.next
		*ci = CallInfo{previous: c.current, next: next}
	case c.free != nil:
		ci = c.free
		c.free = ci.next
		*ci = CallInfo{previous: c.current}
		c.current.next = ci
	default:
		ci = &CallInfo{previous: c.current}
		c.current.next = ci
	}
	c.current = ci
	c.depth++
	return ci
}

// Pop returns to the previous frame, leaving the popped frame linked
// as the new current frame's next for reuse rather than discarding it.
func (c *Chain) Pop() {
	if c.current == &c.base {
		panic("callframe: pop of base frame")
	}
	popped := c.current
	c.current = popped.previous
	c.depth--
	// leave popped linked under current.next so a subsequent Push can
	// reuse it without touching the free list at all; only Shrink
	// actually moves frames onto free.
}

// Shrink detaches any frames beyond current+keep extra slots onto the
// free list, bounding how much the chain grows monotonically across a
// long-running thread, mirroring the source's periodic call-info
// shrink.
func (c *Chain) Shrink(keep int) {
	n := 0
	ci := c.current
	for ci.next != nil && n < keep {
		ci = ci.next
		n++
	}
	if ci.next == nil {
		return
	}
	detached := ci.next
	ci.next = nil
	tail := detached
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = c.free
	c.free = detached
}
