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
	"context"

	"github.com/BurntSushi/toml"

	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/logutil"
)

const (
	// defaultInFilterRowLimit is the largest build side cardinality for
	// which an IN-filter with literal constants still beats a bloom
	// filter on typical probe sizes.
	defaultInFilterRowLimit = 1024

	// defaultBloomFilterRowLimit caps local-only bloom filters; remote
	// consumers get filters regardless because the network saving
	// dominates the memory cost.
	defaultBloomFilterRowLimit = 1024 * 1024

	// defaultBloomFilterProbability is the target false positive rate.
	defaultBloomFilterProbability = 0.01

	// defaultDriverParallelism is the worker pool size for pipeline
	// drivers when the host cpu count is not used.
	defaultDriverParallelism = 8
)

// RuntimeFilterParameters controls runtime filter generation and
// merging in the pipeline engine.
type RuntimeFilterParameters struct {
	// InFilterRowLimit is the IN-list cardinality limit; above it a
	// builder emits no IN-filter and the merger publishes none.
	InFilterRowLimit int64 `toml:"in-filter-row-limit"`

	// BloomFilterRowLimit skips bloom construction for local-only
	// filters whose build side exceeds it.
	BloomFilterRowLimit int64 `toml:"bloom-filter-row-limit"`

	// BloomFilterProbability is the bloom filter false positive rate.
	BloomFilterProbability float64 `toml:"bloom-filter-probability"`
}

// EngineParameters groups pipeline execution knobs.
type EngineParameters struct {
	// DriverParallelism is the size of the pipeline driver worker pool.
	DriverParallelism int `toml:"driver-parallelism"`
}

// Parameters is the root of the configuration file.
type Parameters struct {
	Log           logutil.LogConfig       `toml:"log"`
	Engine        EngineParameters        `toml:"engine"`
	RuntimeFilter RuntimeFilterParameters `toml:"runtime-filter"`
}

func (p *Parameters) SetDefaultValues() {
	if p.Log.Level == "" {
		p.Log.Level = "info"
	}
	if p.Log.Format == "" {
		p.Log.Format = "console"
	}
	if p.Engine.DriverParallelism <= 0 {
		p.Engine.DriverParallelism = defaultDriverParallelism
	}
	if p.RuntimeFilter.InFilterRowLimit <= 0 {
		p.RuntimeFilter.InFilterRowLimit = defaultInFilterRowLimit
	}
	if p.RuntimeFilter.BloomFilterRowLimit <= 0 {
		p.RuntimeFilter.BloomFilterRowLimit = defaultBloomFilterRowLimit
	}
	if p.RuntimeFilter.BloomFilterProbability <= 0 || p.RuntimeFilter.BloomFilterProbability >= 1 {
		p.RuntimeFilter.BloomFilterProbability = defaultBloomFilterProbability
	}
}

// ParseConfigFile loads parameters from a toml file and fills in
// defaults for everything the file leaves out.
func ParseConfigFile(file string, params *Parameters) error {
	if _, err := toml.DecodeFile(file, params); err != nil {
		return moerr.NewBadConfig(context.Background(), "parse %s: %v", file, err)
	}
	params.SetDefaultValues()
	return nil
}

// NewDefaultParameters returns parameters with every knob at its
// default value.
func NewDefaultParameters() *Parameters {
	var p Parameters
	p.SetDefaultValues()
	return &p
}
