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
	"fmt"
	"sync/atomic"

	"github.com/orcadb/orca/pkg/sql/colexec/runtimefilter"
	"github.com/orcadb/orca/pkg/vm/process"
)

// RuntimeFilterHolder is a publish-once cell.  The producing builder
// installs the collector with a release store; probers poll with
// acquire loads.  The holder owns the collector for the process
// lifetime, so readers never see it freed.
type RuntimeFilterHolder struct {
	collector atomic.Pointer[RuntimeFilterCollector]
}

// SetCollector installs the collector.  Calling it twice is a
// programmer error: a plan node has exactly one last-arriving builder.
func (h *RuntimeFilterHolder) SetCollector(collector *RuntimeFilterCollector) {
	if collector == nil {
		panic("set nil runtime filter collector")
	}
	if !h.collector.CompareAndSwap(nil, collector) {
		panic("runtime filter collector set twice")
	}
}

func (h *RuntimeFilterHolder) GetCollector() *RuntimeFilterCollector {
	return h.collector.Load()
}

func (h *RuntimeFilterHolder) IsReady() bool {
	return h.GetCollector() != nil
}

// RuntimeFilterHub is a mediator that gathers the runtime filters
// generated by hash join build operators.  It has a holder per join
// build plan node; operators consuming runtime filters inspect the
// hub and find their bounded filters.  Holders are reserved during
// plan construction and the key set is frozen afterwards, so lookup
// needs no mutex.
type RuntimeFilterHub struct {
	holders map[int32]*RuntimeFilterHolder
}

func NewRuntimeFilterHub() *RuntimeFilterHub {
	return &RuntimeFilterHub{
		holders: make(map[int32]*RuntimeFilterHolder),
	}
}

// AddHolder reserves the holder of a plan node.  Only legal during
// plan construction, before any concurrent access.
func (hub *RuntimeFilterHub) AddHolder(planNodeID int32) {
	hub.holders[planNodeID] = &RuntimeFilterHolder{}
}

func (hub *RuntimeFilterHub) SetCollector(planNodeID int32, collector *RuntimeFilterCollector) {
	hub.getHolder(planNodeID).SetCollector(collector)
}

func (hub *RuntimeFilterHub) GetBloomFilters(planNodeID int32) []*runtimefilter.BuildDescriptor {
	return hub.getHolder(planNodeID).GetCollector().GetBloomFilters()
}

// GatherHolders returns the holders of a consumer's upstream
// producers; some may still be empty.
func (hub *RuntimeFilterHub) GatherHolders(planNodeIDs []int32) []*RuntimeFilterHolder {
	holders := make([]*RuntimeFilterHolder, 0, len(planNodeIDs))
	for _, id := range planNodeIDs {
		holders = append(holders, hub.getHolder(id))
	}
	return holders
}

// CloseAllInFilters closes every published in-filter's expression
// context; called during pipeline teardown.
func (hub *RuntimeFilterHub) CloseAllInFilters(proc *process.Process) {
	for _, holder := range hub.holders {
		if collector := holder.GetCollector(); collector != nil {
			for _, inFilter := range collector.GetInFilters() {
				inFilter.Close(proc)
			}
		}
	}
}

func (hub *RuntimeFilterHub) getHolder(planNodeID int32) *RuntimeFilterHolder {
	holder, ok := hub.holders[planNodeID]
	if !ok {
		panic(fmt.Sprintf("no runtime filter holder for plan node %d", planNodeID))
	}
	return holder
}
