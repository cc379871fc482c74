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

package hashbuild

import (
	"github.com/orcadb/orca/pkg/container/vector"
	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/sql/colexec/runtimefilter"
	"github.com/orcadb/orca/pkg/vm"
	"github.com/orcadb/orca/pkg/vm/pipeline"
	"github.com/orcadb/orca/pkg/vm/process"
)

const (
	BuildHashMap = iota
	HandleRuntimeFilter
	End
)

type container struct {
	state int

	rowCount int64
	// keyColumns accumulates the partition's key values, one vector
	// per join key; they become the bloom build params and their
	// ownership passes to the merger.
	keyColumns []*vector.Vector
	collectors []*keyCollector
}

// HashBuild is the build side operator of a hash join in the pipeline
// engine, reduced to the part that produces runtime filters: it
// drains the partition's build batches, collects the distinct join
// keys, and hands its partial filters to the merger.  The last
// arriving driver publishes the merged collector through the hub.
type HashBuild struct {
	vm.OperatorBase
	ctr container

	// NodeID is the join build plan node id, keying the hub holder.
	NodeID int32
	// DriverSequence is this driver's slot in the merger.
	DriverSequence int

	// KeyColumns indexes the join key columns in the child's batches;
	// runtime filter lists are positionally aligned with it.
	KeyColumns []int32
	// EqNulls marks join keys compared with null-safe equality.
	EqNulls []bool
	// InFilterColumns names each key in the consumer's schema; the
	// published in-filters bind to these references.
	InFilterColumns []*colexec.ColumnRef

	// Descriptors are the node's bloom filter build descriptors,
	// shared by all drivers.
	Descriptors []*runtimefilter.BuildDescriptor

	Merger *pipeline.PartialRuntimeFilterMerger
	Hub    *pipeline.RuntimeFilterHub

	// InFilterRowLimit is the IN-list cardinality limit L.
	InFilterRowLimit int64

	OpAnalyzer *process.Analyzer
}
