// Copyright 2023 OrcaDB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultParameters(t *testing.T) {
	p := NewDefaultParameters()
	require.Equal(t, int64(1024), p.RuntimeFilter.InFilterRowLimit)
	require.Equal(t, int64(1024*1024), p.RuntimeFilter.BloomFilterRowLimit)
	require.InDelta(t, 0.01, p.RuntimeFilter.BloomFilterProbability, 1e-9)
	require.Equal(t, 8, p.Engine.DriverParallelism)
	require.Equal(t, "info", p.Log.Level)
}

func TestParseConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "orca.toml")
	content := `
[log]
level = "debug"
format = "json"

[engine]
driver-parallelism = 4

[runtime-filter]
in-filter-row-limit = 2048
bloom-filter-probability = 0.001
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	var p Parameters
	require.NoError(t, ParseConfigFile(file, &p))
	require.Equal(t, "debug", p.Log.Level)
	require.Equal(t, "json", p.Log.Format)
	require.Equal(t, 4, p.Engine.DriverParallelism)
	require.Equal(t, int64(2048), p.RuntimeFilter.InFilterRowLimit)
	require.InDelta(t, 0.001, p.RuntimeFilter.BloomFilterProbability, 1e-9)
	// everything the file left out falls back to defaults.
	require.Equal(t, int64(1024*1024), p.RuntimeFilter.BloomFilterRowLimit)
}

func TestParseConfigFileMissing(t *testing.T) {
	var p Parameters
	require.Error(t, ParseConfigFile(filepath.Join(t.TempDir(), "nope.toml"), &p))
}
