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

package runtimefilter

import (
	"github.com/orcadb/orca/pkg/container/types"
	"github.com/orcadb/orca/pkg/container/vector"
)

// BuildDescriptor is the build specification of one runtime filter of
// a join node: one per join key with a consumer.  The planner fills
// the immutable part; the last arriving builder of a partitioned
// build installs the constructed filter during the merge.
type BuildDescriptor struct {
	filterID         int32
	buildType        types.T
	joinMode         JoinMode
	kind             Kind
	hasConsumer      bool
	hasRemoteTargets bool

	// isPipeline marks descriptors that went through the pipeline
	// engine's partial merge rather than the single-builder path.
	isPipeline bool

	filter JoinRuntimeFilter
}

func NewBuildDescriptor(filterID int32, buildType types.T, joinMode JoinMode, kind Kind,
	hasConsumer, hasRemoteTargets bool) *BuildDescriptor {
	return &BuildDescriptor{
		filterID:         filterID,
		buildType:        buildType,
		joinMode:         joinMode,
		kind:             kind,
		hasConsumer:      hasConsumer,
		hasRemoteTargets: hasRemoteTargets,
	}
}

func (d *BuildDescriptor) FilterID() int32 {
	return d.filterID
}

func (d *BuildDescriptor) BuildType() types.T {
	return d.buildType
}

func (d *BuildDescriptor) JoinMode() JoinMode {
	return d.joinMode
}

func (d *BuildDescriptor) Kind() Kind {
	return d.kind
}

func (d *BuildDescriptor) HasConsumer() bool {
	return d.hasConsumer
}

func (d *BuildDescriptor) HasRemoteTargets() bool {
	return d.hasRemoteTargets
}

func (d *BuildDescriptor) SetPipeline(b bool) {
	d.isPipeline = b
}

func (d *BuildDescriptor) IsPipeline() bool {
	return d.isPipeline
}

func (d *BuildDescriptor) RuntimeFilter() JoinRuntimeFilter {
	return d.filter
}

// SetRuntimeFilter installs the constructed filter, or nil to abandon
// it.  Only the merging builder calls this; publication of the whole
// collector provides the memory ordering probers rely on.
func (d *BuildDescriptor) SetRuntimeFilter(f JoinRuntimeFilter) {
	d.filter = f
}

// BuildParam is one builder's contribution to one descriptor: the
// partition's key column and hash table row count.
type BuildParam struct {
	EqNull     bool
	Column     *vector.Vector
	HTRowCount int64
}

func NewBuildParam(eqNull bool, column *vector.Vector, htRowCount int64) BuildParam {
	return BuildParam{EqNull: eqNull, Column: column, HTRowCount: htRowCount}
}
