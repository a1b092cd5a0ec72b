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

// Package config holds the tunable constants a host can load from a
// TOML file instead of accepting the compiled-in defaults, per
// spec §6 "Environment/configuration".
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config tunes the collector and the per-thread stack limits. Every
// field has a meaningful zero-adjacent default reproduced by
// DefaultConfig; loading a TOML file is optional.
type Config struct {
	// GCPause is the percentage of in-use memory that must be
	// reallocated before the next GC cycle starts (100 = wait for
	// memory to double), spec §4.4.
	GCPause int `toml:"gc_pause"`
	// GCStepMul scales how much work a single incremental step does.
	GCStepMul int `toml:"gc_step_mul"`
	// MaxBytes optionally caps total accounted memory; zero is
	// unbounded.
	MaxBytes int64 `toml:"max_bytes"`

	// InitialStackSize is the number of usable value-stack cells a new
	// thread starts with.
	InitialStackSize int `toml:"initial_stack_size"`
	// MaxStackSize bounds how far a thread's stack may grow; zero is
	// unbounded (still limited in practice by MaxBytes / host memory).
	MaxStackSize int `toml:"max_stack_size"`

	// StringTableSeed seeds the short-string hash table and Brent
	// hybrid table hashing. A host that wants reproducible hashing
	// across runs (e.g. golden-file tests) should pin this; a host
	// that wants hash-flooding resistance should randomize it before
	// calling NewState.
	StringTableSeed uint32 `toml:"string_table_seed"`
}

// short-string max length (spec §6), maximum upvalues, extra-stack
// reserve, and minimum C-stack nesting limit are fixed language-level
// constants, not host-tunable knobs, matching the source's treatment
// of them as compile-time #defines rather than runtime options.
const (
	MaxShortStringLen = 40
	MaxUpvalues       = 255
	MinCallDepth      = 200
)

// DefaultConfig reproduces the source's compile-time constants
// (LUAI_GCPAUSE=100, LUAI_GCMUL=100, LUAI_MAXCCALLS-derived stack
// sizing) exactly.
func DefaultConfig() Config {
	return Config{
		GCPause:          100,
		GCStepMul:        100,
		MaxBytes:         0,
		InitialStackSize: 40,
		MaxStackSize:     1000000,
		StringTableSeed:  0x9e3779b9,
	}
}

// Load reads a TOML file at path, starting from DefaultConfig so an
// incomplete file only overrides the fields it mentions.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: reading %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parsing %s", path)
	}
	return cfg, nil
}
