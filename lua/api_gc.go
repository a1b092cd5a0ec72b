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

// GCOp enumerates the gc(op, data) operations of spec §4.6.
type GCOp uint8

const (
	GCStop GCOp = iota
	GCRestart
	GCFullGC
	GCCount
	GCStep
	GCSetPause
	GCSetStepMul
	GCIsRunning
)

// GC implements the GC control group: gc(op, data). data is the new
// percentage for GCSetPause/GCSetStepMul and is ignored by every other
// op, including GCStep, which performs one collector Step sized by the
// accumulated allocation debt. The return value's meaning
// depends on op: GCCount returns kilobytes currently in use,
// GCSetPause/GCSetStepMul return the previous setting, GCIsRunning
// returns 0 or 1, every other op returns 0.
func (s *State) GC(op GCOp, data int) float64 {
	c := s.shared.collector
	switch op {
	case GCStop:
		c.Stop()
	case GCRestart:
		c.Restart()
	case GCFullGC:
		c.FullGC()
	case GCCount:
		return c.CountKB()
	case GCStep:
		c.Step()
	case GCSetPause:
		return float64(c.SetPause(data))
	case GCSetStepMul:
		return float64(c.SetStepMul(data))
	case GCIsRunning:
		if c.IsRunning() {
			return 1
		}
		return 0
	}
	return 0
}
