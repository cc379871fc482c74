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
	"sync/atomic"

	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/config"
	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/sql/colexec/runtimefilter"
)

const defaultInFilterRowLimit = 1024

// PartialRuntimeFilterMerger merges the runtime in-filters and
// bloom-filters generated by the build operators of one join node.
// When the build side goes through a partitioning local exchange,
// each build driver sees one partition and produces a partial filter;
// a partial filter must not reach operators upstream of the exchange
// before it is merged into a total one.
//
// Builders call AddPartialFilters from their own threads; slot idx is
// written only by builder idx, and the decrement of the active
// builder counter publishes the writes.  Only the last decrementer
// reads the populated slots.
type PartialRuntimeFilterMerger struct {
	mp *mpool.MPool

	// limit caps construction of local-only bloom filters.
	limit int64
	// inFilterRowLimit is the IN-list cardinality limit L.
	inFilterRowLimit int64
	// probability is the bloom filter false positive rate.
	probability float64

	numActiveBuilders atomic.Int64
	slotTaken         []atomic.Bool

	htRowCounts        []int64
	partialInFilters   [][]*colexec.InFilter
	partialBloomParams [][]runtimefilter.BuildParam

	bloomFilterDescriptors []*runtimefilter.BuildDescriptor
	totalRowCount          int64
}

func NewPartialRuntimeFilterMerger(mp *mpool.MPool, limit int64, numBuilders int) *PartialRuntimeFilterMerger {
	m := &PartialRuntimeFilterMerger{
		mp:                 mp,
		limit:              limit,
		inFilterRowLimit:   defaultInFilterRowLimit,
		probability:        0.01,
		slotTaken:          make([]atomic.Bool, numBuilders),
		htRowCounts:        make([]int64, numBuilders),
		partialInFilters:   make([][]*colexec.InFilter, numBuilders),
		partialBloomParams: make([][]runtimefilter.BuildParam, numBuilders),
	}
	m.numActiveBuilders.Store(int64(numBuilders))
	return m
}

// NewPartialRuntimeFilterMergerWithConfig picks the limits from the
// runtime filter configuration.
func NewPartialRuntimeFilterMergerWithConfig(mp *mpool.MPool, params *config.RuntimeFilterParameters,
	numBuilders int) *PartialRuntimeFilterMerger {
	m := NewPartialRuntimeFilterMerger(mp, params.BloomFilterRowLimit, numBuilders)
	m.inFilterRowLimit = params.InFilterRowLimit
	m.probability = params.BloomFilterProbability
	return m
}

// AddPartialFilters gathers one builder's partial runtime filters.
// The last arriving builder merges them into the total filters and
// returns merged=true; every other call returns merged=false.  An
// error can only surface on the merging call; the caller must then
// treat the filters as unavailable and leave the hub holder unset.
//
// In-filter and bloom-param lists are positionally aligned across
// builders, one entry per join key; the builder boundary enforces
// that and the merger does not check it.
func (m *PartialRuntimeFilterMerger) AddPartialFilters(
	idx int,
	htRowCount int64,
	partialInFilters []*colexec.InFilter,
	partialBloomParams []runtimefilter.BuildParam,
	bloomFilterDescriptors []*runtimefilter.BuildDescriptor,
) (bool, error) {
	if idx < 0 || idx >= len(m.slotTaken) {
		panic("runtime filter builder index out of range")
	}
	if m.slotTaken[idx].Swap(true) {
		panic("runtime filter builder slot written twice")
	}

	// Slot writes need no fence of their own: each slot has a unique
	// writer and the counter decrement below orders them before the
	// last builder's reads.
	m.htRowCounts[idx] = htRowCount
	m.partialInFilters[idx] = partialInFilters
	m.partialBloomParams[idx] = partialBloomParams

	remaining := m.numActiveBuilders.Add(-1)
	if remaining < 0 {
		panic("runtime filter merger called more times than builders")
	}
	if remaining > 0 {
		return false, nil
	}

	// The descriptors are identical across builders; the last one's
	// suffice.
	m.bloomFilterDescriptors = bloomFilterDescriptors
	if err := m.mergeInFilters(); err != nil {
		return true, err
	}
	m.mergeBloomFilters()
	return true, nil
}

// GetTotalInFilters returns the merged in-filter list; empty when
// merging was abandoned.
func (m *PartialRuntimeFilterMerger) GetTotalInFilters() []*colexec.InFilter {
	return m.partialInFilters[0]
}

func (m *PartialRuntimeFilterMerger) GetTotalBloomFilters() []*runtimefilter.BuildDescriptor {
	return m.bloomFilterDescriptors
}

// GetTotalRowCount returns the build row count summed over all
// partitions; only meaningful after the merge.
func (m *PartialRuntimeFilterMerger) GetTotalRowCount() int64 {
	return m.totalRowCount
}

// Free releases the merged state: the partitions' key columns and any
// constructed filters.  Called once at query teardown, after every
// consumer is done with the filters.
func (m *PartialRuntimeFilterMerger) Free(mp *mpool.MPool) {
	for _, params := range m.partialBloomParams {
		for i := range params {
			if params[i].Column != nil {
				params[i].Column.Free(mp)
				params[i].Column = nil
			}
		}
	}
	for _, desc := range m.bloomFilterDescriptors {
		if f := desc.RuntimeFilter(); f != nil {
			f.Clean(mp)
			desc.SetRuntimeFilter(nil)
		}
	}
}

// mergeInFilters unions the per-partition IN-lists.  An IN-list is
// sound only if every partition contributed a complete enumeration of
// its distinct keys; a single partition that overflowed the limit
// invalidates the union, and the sound fallback is to publish no
// IN-filter at all.
func (m *PartialRuntimeFilterMerger) mergeInFilters() error {
	canMergeInFilters := true
	var numRows int64
	k := -1
	// squeeze partialInFilters and eliminate empty in-filter lists
	// generated by empty hash tables.
	for i := range m.htRowCounts {
		// empty in-filter list generated by an empty hash table, skip it.
		if m.htRowCounts[i] == 0 {
			continue
		}
		// empty in-filter list generated by a non-empty hash table
		// (size above the limit), in-filters can not be merged.
		if len(m.partialInFilters[i]) == 0 {
			canMergeInFilters = false
			break
		}
		// move in-filter list indexed by i to slot indexed by k,
		// eliminating holes in the middle.
		k++
		if k < i {
			m.partialInFilters[k] = m.partialInFilters[i]
		}
		if m.htRowCounts[i] > numRows {
			numRows = m.htRowCounts[i]
		}
	}

	canMergeInFilters = canMergeInFilters && numRows <= m.inFilterRowLimit && k >= 0
	if !canMergeInFilters {
		m.partialInFilters[0] = nil
		return nil
	}
	// only merge k+1 partial in-filter lists
	m.partialInFilters = m.partialInFilters[:k+1]

	totalInFilters := m.partialInFilters[0]
	for i := 1; i < len(m.partialInFilters); i++ {
		inFilters := m.partialInFilters[i]
		for j := range totalInFilters {
			// unsound ∪ known is unknown: a null on either side nulls
			// the position.
			if totalInFilters[j] == nil || inFilters[j] == nil {
				totalInFilters[j] = nil
				continue
			}
			if err := totalInFilters[j].Root().Merge(inFilters[j].Root()); err != nil {
				return err
			}
		}
	}
	merged := totalInFilters[:0]
	for _, f := range totalInFilters {
		if f != nil {
			merged = append(merged, f)
		}
	}
	m.partialInFilters[0] = merged
	return nil
}

// mergeBloomFilters sizes each consumed descriptor's filter to the
// total build row count and fills it from every partition's key
// column.  Filling is best-effort: a failure nulls the affected
// descriptor only, because runtime filters are always optional.
func (m *PartialRuntimeFilterMerger) mergeBloomFilters() {
	if len(m.partialBloomParams) == 0 {
		return
	}
	var rowCount int64
	for _, count := range m.htRowCounts {
		rowCount += count
	}
	m.totalRowCount = rowCount
	for _, desc := range m.bloomFilterDescriptors {
		desc.SetPipeline(true)
		// skip if it does not have a consumer.
		if !desc.HasConsumer() {
			continue
		}
		// skip if the build side exceeds the limit and the filter is
		// only for local consumers; remote consumers get filters
		// regardless because the network saving dominates.
		if !desc.HasRemoteTargets() && rowCount > m.limit {
			continue
		}
		filter := runtimefilter.CreateWithProbability(m.mp, desc.Kind(), desc.BuildType(), m.probability)
		if filter == nil {
			continue
		}
		if err := filter.Init(rowCount); err != nil {
			continue
		}
		filter.SetJoinMode(desc.JoinMode())
		desc.SetRuntimeFilter(filter)
	}

	for _, params := range m.partialBloomParams {
		n := len(params)
		if n > len(m.bloomFilterDescriptors) {
			n = len(m.bloomFilterDescriptors)
		}
		for i := 0; i < n; i++ {
			desc := m.bloomFilterDescriptors[i]
			param := params[i]
			if desc.RuntimeFilter() == nil || param.Column == nil {
				continue
			}
			if err := runtimefilter.Fill(param.Column, desc.BuildType(), desc.RuntimeFilter(), 0,
				param.EqNull); err != nil {
				desc.RuntimeFilter().Clean(m.mp)
				desc.SetRuntimeFilter(nil)
			}
		}
	}
}
