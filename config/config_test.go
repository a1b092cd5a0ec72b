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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesSourceConstants(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 100, cfg.GCPause)
	require.Equal(t, 100, cfg.GCStepMul)
	require.Equal(t, int64(0), cfg.MaxBytes)
	require.Equal(t, 40, cfg.InitialStackSize)
}

func TestLoadOverridesOnlyMentionedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lua.toml")
	require.NoError(t, os.WriteFile(path, []byte("gc_pause = 200\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 200, cfg.GCPause)
	require.Equal(t, 100, cfg.GCStepMul, "unmentioned fields keep the default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
