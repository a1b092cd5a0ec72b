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

package gc

// startCycleLocked flips the current white and enters the propagate
// phase with freshly marked roots. Called either when allocation
// debt crosses the pause threshold, or explicitly via FullGC.
func (c *Collector) startCycleLocked() {
	c.currentWhite = otherWhite(c.currentWhite)
	c.phase = PhasePropagate
	c.gray = c.gray[:0]
	c.grayAgain = c.grayAgain[:0]
	c.markRootsLocked()
	c.log.Debug("gc: cycle started", logPhase(c.phase))
}

// runAtomicLocked performs spec §4.4's atomic step: drain any
// remaining gray work (including grayAgain entries write barriers
// queued during propagate), resolve ephemeron fixed points, clear
// dead weak entries, and separate finalizable garbage.
func (c *Collector) runAtomicLocked() {
	c.phase = PhaseAtomic
	c.gray = append(c.gray, c.grayAgain...)
	c.grayAgain = c.grayAgain[:0]
	c.propagateAll()

	c.classifyWeakTablesLocked()
	c.resolveEphemeronsLocked()
	c.clearDeadWeakEntriesLocked()

	c.separateToBeFinalizedLocked()
	c.log.Debug("gc: atomic step complete", logPhase(c.phase))
}

// Step performs a bounded slice of collection work scaled by
// GCStepMul, per spec §4.4's "Stepping". It is safe to call at any
// time, including when the collector is between cycles (a no-op).
func (c *Collector) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhasePause:
		return
	case PhasePropagate:
		work := stepWork(c.debt, c.cfg.GCStepMul)
		c.debt = 0
		for i := 0; i < work && c.propagateOne(); i++ {
		}
		if len(c.gray) == 0 {
			c.runAtomicLocked()
			c.phase = PhaseSweep
		}
	case PhaseAtomic:
		c.runAtomicLocked()
		c.phase = PhaseSweep
	case PhaseSweep:
		c.sweepLocked()
		c.phase = PhasePause
		c.estimate = c.totalBytes
		c.threshold = nextThreshold(c.estimate, c.cfg.GCPause)
		c.log.Debug("gc: cycle complete", logPhase(c.phase))
	}
}

// FullGC drives the collector through however many Step calls are
// needed to finish any cycle already in flight, then starts one fresh
// cycle and runs it to PhasePause, so every object unreachable at the
// time of the call is collected. Equivalent to gc(op=fullgc) in spec
// §4.6.
func (c *Collector) FullGC() {
	started := false
	for {
		c.mu.Lock()
		if c.phase == PhasePause {
			if started {
				c.mu.Unlock()
				return
			}
			c.startCycleLocked()
			started = true
		}
		c.mu.Unlock()
		c.Step()
	}
}

// Stop/Restart implement the stop/restart GC-control operations of
// spec §4.6: a stopped collector never starts a new cycle from
// AccountBytes, though an in-flight cycle already started is not
// interrupted.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

func (c *Collector) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
}

func (c *Collector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetPause and SetStepMul implement gc(setpause)/gc(setstepmul).
func (c *Collector) SetPause(pct int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.cfg.GCPause
	c.cfg.GCPause = pct
	return old
}

func (c *Collector) SetStepMul(pct int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.cfg.GCStepMul
	c.cfg.GCStepMul = pct
	return old
}

// CountKB implements gc(op=count): total bytes currently accounted
// for, per spec §4.6, expressed in kilobytes as the embedding API
// does.
func (c *Collector) CountKB() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.totalBytes) / 1024
}

func stepWork(debt int64, stepMul int) int {
	if stepMul <= 0 {
		stepMul = 100
	}
	work := debt * int64(stepMul) / 100
	if work < 1 {
		work = 1
	}
	if work > 1<<20 {
		work = 1 << 20
	}
	return int(work)
}
