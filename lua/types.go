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
	"unsafe"

	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// GoFunc is a host function bound into the runtime, called with the
// State so it can read arguments and push results through the
// ordinary stack API. It returns the number of result values it
// pushed, or an error to propagate as a raised RUNTIME error.
type GoFunc func(s *State) (nresults int, err error)

// GoClosure is a host function with bound upvalues (spec §4.6
// "push_cclosure(fn, n)"): fn is called with upvalues reachable through
// the upvalue pseudo-indices below RegistryIndex. A GoClosure with zero
// upvalues is represented instead
// as a LightGoFunc Value and never allocates one of these.
type GoClosure struct {
	hdr value.Header

	fn        GoFunc
	upvalues  []value.Value
}

func newGoClosure(fn GoFunc, upvalues []value.Value) *GoClosure {
	c := &GoClosure{fn: fn, upvalues: upvalues}
	c.hdr = value.NewHeader(value.KindGoClosure, 0)
	return c
}

func (c *GoClosure) Header() *value.Header { return &c.hdr }

func (c *GoClosure) Traverse(mark func(value.Value), barrier func(value.Object)) {
	for _, v := range c.upvalues {
		mark(v)
	}
}

func (c *GoClosure) Size() uintptr {
	return uintptr(64 + len(c.upvalues)*32)
}

func (c *GoClosure) Identity() uintptr { return uintptr(unsafe.Pointer(c)) }

// Upvalue returns the i-th upvalue (0-based) of the closure, or
// (Nil, false) if i is out of range.
func (c *GoClosure) Upvalue(i int) (value.Value, bool) {
	if i < 0 || i >= len(c.upvalues) {
		return value.Nil, false
	}
	return c.upvalues[i], true
}

func (c *GoClosure) SetUpvalue(i int, v value.Value) bool {
	if i < 0 || i >= len(c.upvalues) {
		return false
	}
	c.upvalues[i] = v
	return true
}

// UpvalueJoin implements spec §4.6 "sharing upvalues between two
// closures is supported by upvalue_join": closure b's upvalue slot
// bi starts sharing the same backing cell as closure a's upvalue ai.
// Since upvalues here are plain Values rather than open references
// into a stack, "sharing" means copying a's current value into b's
// slot; true aliasing (further writes to a's upvalue observed by b)
// requires the in-language closure representation the external VM
// owns, which holds true open upvalues into the stack.
func UpvalueJoin(a *GoClosure, ai int, b *GoClosure, bi int) bool {
	v, ok := a.Upvalue(ai)
	if !ok {
		return false
	}
	return b.SetUpvalue(bi, v)
}

// Proto is an opaque compiled-chunk handle produced by the external
// Compiler and consumed by the external Executor; this module never
// inspects its contents (spec §1: "the VM and compiler depend only on
// the interfaces of Value, Table, String table, Thread, and Object
// graph" — Proto itself is the compiler's data, threaded through
// unopened).
type Proto struct {
	hdr  value.Header
	data any
}

// NewProto wraps compiler-owned data as a heap object so it can be
// referenced by a Value and participate in GC like any other object.
func NewProto(data any) *Proto {
	p := &Proto{data: data}
	p.hdr = value.NewHeader(value.KindProto, 0)
	return p
}

func (p *Proto) Header() *value.Header { return &p.hdr }
func (p *Proto) Traverse(func(value.Value), func(value.Object)) {}
func (p *Proto) Size() uintptr         { return 48 }
func (p *Proto) Identity() uintptr     { return uintptr(unsafe.Pointer(p)) }
func (p *Proto) Data() any             { return p.data }

// LuaClosure binds a Proto to the upvalues supplied at load time (spec
// §4.6 "Compile": "on success sets the closure's first upvalue to the
// globals table"). The external Executor is the only consumer that
// interprets Proto.Data and these upvalues together; this type exists
// so a compiled chunk is a first-class Value the stack API can push,
// store, and call like any other function.
type LuaClosure struct {
	hdr value.Header

	proto    *Proto
	upvalues []value.Value
}

func NewLuaClosure(proto *Proto, upvalues []value.Value) *LuaClosure {
	c := &LuaClosure{proto: proto, upvalues: upvalues}
	c.hdr = value.NewHeader(value.KindLuaClosure, 0)
	return c
}

func (c *LuaClosure) Header() *value.Header { return &c.hdr }

func (c *LuaClosure) Traverse(mark func(value.Value), barrier func(value.Object)) {
	barrier(c.proto)
	for _, v := range c.upvalues {
		mark(v)
	}
}

func (c *LuaClosure) Size() uintptr     { return uintptr(64 + len(c.upvalues)*32) }
func (c *LuaClosure) Identity() uintptr { return uintptr(unsafe.Pointer(c)) }
func (c *LuaClosure) Proto() *Proto     { return c.proto }

func (c *LuaClosure) Upvalue(i int) (value.Value, bool) {
	if i < 0 || i >= len(c.upvalues) {
		return value.Nil, false
	}
	return c.upvalues[i], true
}

func (c *LuaClosure) SetUpvalue(i int, v value.Value) bool {
	if i < 0 || i >= len(c.upvalues) {
		return false
	}
	c.upvalues[i] = v
	return true
}

// UserData is the full-userdata variant of spec §6: host-owned opaque
// data plus an optional metatable and finalizer, distinct from a light
// userdata Value (which is just a bare pointer with no header, no
// metatable, and no GC participation).
type UserData struct {
	hdr  value.Header
	data any
	meta *value.Value // metatable stored as a Value wrapping *table.Table, to avoid importing table here
	gc   func(*UserData)
}

func NewUserData(data any) *UserData {
	u := &UserData{data: data}
	u.hdr = value.NewHeader(value.KindUserData, 0)
	return u
}

func (u *UserData) Header() *value.Header { return &u.hdr }

func (u *UserData) Traverse(mark func(value.Value), barrier func(value.Object)) {
	if u.meta != nil {
		mark(*u.meta)
	}
}

func (u *UserData) Size() uintptr     { return 48 }
func (u *UserData) Identity() uintptr { return uintptr(unsafe.Pointer(u)) }
func (u *UserData) Data() any         { return u.data }

func (u *UserData) Metatable() (value.Value, bool) {
	if u.meta == nil {
		return value.Nil, false
	}
	return *u.meta, true
}

func (u *UserData) SetMetatable(v value.Value) { u.meta = &v }

// SetFinalizer installs the __gc-equivalent callback invoked once by
// RunFinalizers, implementing gc.Finalizer.
func (u *UserData) SetFinalizer(f func(*UserData)) {
	u.gc = f
	u.hdr.SetFinalizable(f != nil)
}

func (u *UserData) Finalize() {
	if u.gc != nil {
		u.gc(u)
	}
}
