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

// Package gc implements the tri-color incremental mark-sweep
// collector of spec §4.4: phases pause/propagate/atomic/sweep, the
// intrusive object lists, write barriers, weak and ephemeron table
// handling, and finalizer scheduling. It also implements strtab.Heap,
// so string allocations are accounted through it, and every heap
// object joins its all-objects list through Register.
package gc

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bianyuan1986/lua-analysis/internal/strtab"
	"github.com/bianyuan1986/lua-analysis/internal/table"
	"github.com/bianyuan1986/lua-analysis/internal/value"
)

// Phase is one of the collector's four states, per spec §4.4.
type Phase uint8

const (
	PhasePause Phase = iota
	PhasePropagate
	PhaseAtomic
	PhaseSweep
)

func (p Phase) String() string {
	switch p {
	case PhasePause:
		return "pause"
	case PhasePropagate:
		return "propagate"
	case PhaseAtomic:
		return "atomic"
	case PhaseSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// ErrMemory is the fixed pre-allocated error value spec §7 requires
// for the MEMORY error kind: raising it must not itself allocate.
var ErrMemory = errors.New("not enough memory")

// Config tunes the collector, mirroring the compile-time constants
// spec §4.4/§6 describe as configurable via gc(setpause)/gc(setstepmul).
type Config struct {
	// GCPause is the percentage of in-use memory, measured at the end
	// of a cycle, that must be allocated again before the next cycle
	// starts. 100 means "wait until memory doubles".
	GCPause int
	// GCStepMul scales how much marking/sweeping work a single Step
	// performs relative to the bytes allocated since the last step.
	GCStepMul int
	// MaxBytes optionally caps total accounted bytes; zero means
	// unbounded. Exceeding it raises ErrMemory.
	MaxBytes int64
}

// DefaultConfig matches the reference interpreter's compiled-in
// defaults (LUAI_GCPAUSE / LUAI_GCMUL in luaconf.h).
func DefaultConfig() Config {
	return Config{GCPause: 100, GCStepMul: 100}
}

// Collector is the shared-state garbage collector: one per global
// state (spec §4.7), referenced by every table, string, closure,
// userdata and thread it manages.
type Collector struct {
	mu sync.Mutex

	cfg Config
	log *zap.Logger

	strs    *strtab.Table
	modeKey value.Value // interned "__mode", used to classify weak tables
	rootFunc func(mark func(value.Value))

	phase        Phase
	currentWhite uint8

	allgc         value.Object // intrusive "all objects" list head
	tobefinalized value.Object // dead objects awaiting their one finalizer run
	fixedCount    int

	gray      []value.Object
	grayAgain []value.Object
	weak      []*table.Table // metatable __mode == "v"
	allWeak   []*table.Table // metatable __mode contains both "k" and "v"
	ephemeron []*table.Table // metatable __mode == "k"

	totalBytes int64 // bytes accounted for since the collector was created
	debt       int64 // bytes allocated since the last step was taken
	estimate   int64 // totalBytes at the end of the last completed cycle
	threshold  int64 // totalBytes at which the next cycle begins

	running bool

	finalizerRuns int // objects finalized across the collector's life, for tests
}

// New constructs a Collector with no string table attached yet. The
// collector itself implements strtab.Heap, so the usual construction
// order is: build the Collector, then build the strtab.Table passing
// the Collector as its Heap, then call SetStrings to complete the
// wiring (which interns "__mode" once so weak-table classification
// never allocates during a GC step).
func New(log *zap.Logger, cfg Config) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Collector{
		cfg:          cfg,
		log:          log,
		currentWhite: bitWhite0,
		running:      true,
	}
	c.threshold = nextThreshold(0, cfg.GCPause)
	return c
}

// SetStrings attaches the shared string intern table, per the
// bootstrap order described on New.
func (c *Collector) SetStrings(strs *strtab.Table) error {
	modeStr, err := strs.InternString("__mode")
	if err != nil {
		return errors.Wrap(err, "gc: interning __mode")
	}
	c.Fix(modeStr)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strs = strs
	c.modeKey = value.FromObject(modeStr)
	return nil
}

// AccountBytes implements strtab.Heap (and is reused by every other
// allocation site): record n freshly allocated bytes, enforce the
// optional hard cap, and advance the debt counter that drives
// incremental stepping (spec §4.4 "Stepping").
func (c *Collector) AccountBytes(n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.MaxBytes > 0 && c.totalBytes+n > c.cfg.MaxBytes {
		return ErrMemory
	}
	c.totalBytes += n
	c.debt += n
	if c.running && c.phase == PhasePause && c.totalBytes >= c.threshold {
		c.startCycleLocked()
	}
	return nil
}

// Register implements strtab.Heap: link a newly allocated object onto
// the all-objects list, born white per spec §3's object lifecycle.
func (c *Collector) Register(o value.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerLocked(o)
}

func (c *Collector) registerLocked(o value.Object) {
	h := o.Header()
	h.MakeWhite(c.currentWhite)
	h.SetNext(c.allgc)
	c.allgc = o
}

// Fix marks o as permanently uncollectable (spec §4.4 "fixed
// objects"), for objects such as reserved-word strings that must
// outlive every cycle.
func (c *Collector) Fix(o value.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o.Header().SetFixed()
	c.fixedCount++
}

// Phase reports the collector's current phase, for diagnostics and
// tests.
func (c *Collector) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// FixedCount reports how many objects have been pinned with Fix.
func (c *Collector) FixedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fixedCount
}

// FinalizerRuns reports how many finalizers RunFinalizers has invoked
// over the collector's lifetime, for tests and diagnostics.
func (c *Collector) FinalizerRuns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalizerRuns
}

func logPhase(p Phase) zap.Field { return zap.Stringer("phase", p) }

func nextThreshold(estimate int64, pause int) int64 {
	if pause <= 0 {
		pause = 100
	}
	return estimate + estimate*int64(pause)/100
}
