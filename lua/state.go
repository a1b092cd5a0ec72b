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

// Package lua is the embedding API of spec §4.6 and the global state
// of §4.7: the public surface a host program imports. It wraps a
// *thread.Thread plus state shared across every thread of one logical
// interpreter instance (allocator/GC, intern table, registry,
// primitive-type metatables, panic handler), and exposes the
// positional stack API, pseudo indices, metatable access, GC control,
// and the Compiler/Executor collaborator interfaces the external
// bytecode VM and parser implement.
package lua

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bianyuan1986/lua-analysis/config"
	"github.com/bianyuan1986/lua-analysis/internal/gc"
	"github.com/bianyuan1986/lua-analysis/internal/strtab"
	"github.com/bianyuan1986/lua-analysis/internal/table"
	"github.com/bianyuan1986/lua-analysis/internal/value"
	"github.com/bianyuan1986/lua-analysis/thread"
)

// RegistryIndex is the magic pseudo-index naming the registry table
// (spec §6 "Pseudo-indices"). Valid stack indices lie strictly above
// it, excluding 0.
const RegistryIndex = -1000000 - 1000

// Compiler is implemented by the external parser: Load reads whole
// chunks from reader (which returns a zero-length chunk to signal end
// of input, per spec §6 "Persisted state layout") and produces a
// Proto, named chunkname for error messages.
type Compiler interface {
	Load(reader func() ([]byte, error), chunkname, mode string) (*Proto, error)
}

// Executor is implemented by the external bytecode VM: Call invokes a
// function Value (a LuaClosure, GoClosure, or light host function)
// already on the thread's stack at position fn, with nargs arguments
// above it, and is responsible for leaving results on the stack; it
// reports only success or failure, so callers count results from the
// stack top. Non-raw table accesses that require invoking a
// metamethod also go through Call via the state's plumbing.
type Executor interface {
	Call(th *thread.Thread, fn int, nargs, nresults int) error
}

// sharedState is the resources spec §4.7 says are shared by every
// thread of one logical interpreter instance.
type sharedState struct {
	collector *gc.Collector
	strings   *strtab.Table
	cache     *strtab.Cache

	registry *table.Table
	globals  *table.Table

	// typeMetatables holds one metatable per primitive type tag that
	// can carry one (boolean, number, string, light userdata); indexed
	// by value.Type.
	typeMetatables map[value.Type]*table.Table

	compiler Compiler
	executor Executor

	panicHandler func(value.Value)

	cfg config.Config
	log *zap.Logger

	memErrString *strtab.Str
	stringize    func(string) value.Value
}

// State is one thread's view of a shared interpreter instance: the
// embedding API is a method set on State, and every operation acts on
// State.th's stack.
type State struct {
	shared *sharedState
	th     *thread.Thread

	// runningClosure is the GoClosure currently executing a Call
	// through this State, used to resolve upvalue pseudo-indices
	// (spec §6: "REGISTRY_INDEX − i names the i-th upvalue of the
	// currently executing host closure").
	runningClosure *GoClosure
}

// NewState creates a fresh global state and its main thread, per spec
// §4.7: the main thread is owned by the state and cannot be freed
// independently of it.
func NewState(cfg config.Config, log *zap.Logger) (*State, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gcCfg := gc.Config{GCPause: cfg.GCPause, GCStepMul: cfg.GCStepMul, MaxBytes: cfg.MaxBytes}
	collector := gc.New(log, gcCfg)

	strs := strtab.New(collector, cfg.StringTableSeed)
	if err := collector.SetStrings(strs); err != nil {
		return nil, errors.Wrap(err, "lua: initializing state")
	}

	memErr, err := strs.InternString("not enough memory")
	if err != nil {
		return nil, errors.Wrap(err, "lua: interning memory-error string")
	}
	collector.Fix(memErr)

	shared := &sharedState{
		collector:      collector,
		strings:        strs,
		cache:          strtab.NewCache(memErr),
		registry:       table.New(cfg.StringTableSeed),
		globals:        table.New(cfg.StringTableSeed),
		typeMetatables: make(map[value.Type]*table.Table),
		cfg:            cfg,
		log:            log,
		memErrString:   memErr,
	}
	collector.Register(shared.registry)
	collector.Register(shared.globals)

	shared.stringize = func(msg string) value.Value {
		s, err := strs.InternString(msg)
		if err != nil {
			return value.FromObject(memErr)
		}
		return value.FromObject(s)
	}

	main := thread.New(collector, log, shared.globals, cfg.InitialStackSize, cfg.MaxStackSize)
	main.SetStringizer(shared.stringize)
	main.SetPanicHandler(func(v value.Value) {
		if shared.panicHandler != nil {
			shared.panicHandler(v)
		}
	})

	collector.SetRoots(func(mark func(value.Value)) {
		mark(value.FromObject(shared.registry))
		mark(value.FromObject(shared.globals))
		mark(value.FromObject(main))
	})

	return &State{shared: shared, th: main}, nil
}

// NewThread creates a new coroutine sharing this State's global
// resources (spec §4.7), with its own stack and call chain. Nothing
// else is copied from the main thread.
func (s *State) NewThread() *State {
	nt := thread.New(s.shared.collector, s.shared.log, s.shared.globals, s.shared.cfg.InitialStackSize, s.shared.cfg.MaxStackSize)
	nt.SetStringizer(s.shared.stringize)
	return &State{shared: s.shared, th: nt}
}

// Thread exposes the underlying stack machine for collaborators
// (Compiler/Executor implementations) that need direct access.
func (s *State) Thread() *thread.Thread { return s.th }

// SetCompiler and SetExecutor install the external collaborators; both
// must be set before Load or Call/PCall are used.
func (s *State) SetCompiler(c Compiler) { s.shared.compiler = c }
func (s *State) SetExecutor(e Executor) { s.shared.executor = e }

// SetPanicHandler installs the state-wide panic handler invoked when
// an error escapes a thread with no pending recovery record.
func (s *State) SetPanicHandler(f func(value.Value)) { s.shared.panicHandler = f }

// Registry returns the shared registry table (spec §4.7).
func (s *State) Registry() *table.Table { return s.shared.registry }

// Globals returns the shared globals table.
func (s *State) Globals() *table.Table { return s.shared.globals }

// Collector exposes the shared collector for diagnostics and the GC
// control API group.
func (s *State) Collector() *gc.Collector { return s.shared.collector }
