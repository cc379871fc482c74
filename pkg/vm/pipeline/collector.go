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

package pipeline

import (
	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/sql/colexec/runtimefilter"
)

// RuntimeFilterCollector contains runtime in-filters and bloom-filter
// descriptors; it is stored in the RuntimeFilterHub and every hash
// join build factory publishes exactly one.  The filter lists are
// immutable after publication; only the interior predicate and filter
// state mutate, and only before.
type RuntimeFilterCollector struct {
	// local runtime in-filters
	inFilters []*colexec.InFilter
	// global/local runtime bloom and bitmap filters
	bloomFilters []*runtimefilter.BuildDescriptor
}

func NewRuntimeFilterCollector(inFilters []*colexec.InFilter,
	bloomFilters []*runtimefilter.BuildDescriptor) *RuntimeFilterCollector {
	return &RuntimeFilterCollector{
		inFilters:    inFilters,
		bloomFilters: bloomFilters,
	}
}

func (c *RuntimeFilterCollector) GetInFilters() []*colexec.InFilter {
	return c.inFilters
}

func (c *RuntimeFilterCollector) GetBloomFilters() []*runtimefilter.BuildDescriptor {
	return c.bloomFilters
}

// RewriteInFilters rebinds in-filters to a descendant's schema.
// In-filters are constructed by a node and may be pushed down to its
// descendants; projection nodes between them give the same column a
// different (tuple id, slot id), so the ancestor's tuple slot
// mappings rewrite the filters into the descendant's coordinates.
func (c *RuntimeFilterCollector) RewriteInFilters(mappings []colexec.TupleSlotMapping) {
	tupleIDs := make([]int32, 1)
	for _, mapping := range mappings {
		tupleIDs[0] = mapping.ToTupleID

		for _, inFilter := range c.inFilters {
			if !inFilter.Root().IsBound(tupleIDs) {
				continue
			}

			column := inFilter.Root().Column()
			if column.SlotID() == mapping.ToSlotID {
				column.SetSlotID(mapping.FromSlotID)
				column.SetTupleID(mapping.FromTupleID)
			}
		}
	}
}

// GetInFiltersBoundedByTupleIDs selects the filters a probe operator
// over the given tuples can apply.
func (c *RuntimeFilterCollector) GetInFiltersBoundedByTupleIDs(tupleIDs []int32) []*colexec.InFilter {
	var selected []*colexec.InFilter
	for _, inFilter := range c.inFilters {
		if inFilter.Root().IsBound(tupleIDs) {
			selected = append(selected, inFilter)
		}
	}
	return selected
}
