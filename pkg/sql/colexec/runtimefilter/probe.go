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
	"sync/atomic"

	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/vm/process"
)

// ProbeDescriptor is the probe side view of one runtime filter: which
// column the filter applies to and, once the producer published, the
// filter itself.
type ProbeDescriptor struct {
	filterID    int32
	probeColumn *colexec.ColumnRef

	// filter is installed by whichever prober observes the producer's
	// collector; a later or concurrent install stores the same
	// pointer again, which is harmless.
	filter atomic.Value // JoinRuntimeFilter
}

func NewProbeDescriptor(filterID int32, probeColumn *colexec.ColumnRef) *ProbeDescriptor {
	return &ProbeDescriptor{
		filterID:    filterID,
		probeColumn: probeColumn,
	}
}

func (d *ProbeDescriptor) FilterID() int32 {
	return d.filterID
}

func (d *ProbeDescriptor) ProbeColumn() *colexec.ColumnRef {
	return d.probeColumn
}

func (d *ProbeDescriptor) InstallFilter(f JoinRuntimeFilter) {
	if f != nil {
		d.filter.Store(f)
	}
}

// Filter returns the installed filter, or nil while the producer has
// not published.
func (d *ProbeDescriptor) Filter() JoinRuntimeFilter {
	f, _ := d.filter.Load().(JoinRuntimeFilter)
	return f
}

// ProbeCollector holds the probe descriptors of one consumer plan
// node and installs published filters into the probe evaluators.  A
// node decomposed into several operator factories shares one
// collector through a refcounted wrapper; prepare/open/close here run
// exactly once.
type ProbeCollector struct {
	descriptors []*ProbeDescriptor
	byID        map[int32]*ProbeDescriptor

	prepared bool
	opened   bool
	closed   bool

	prepareCalls atomic.Int32
	openCalls    atomic.Int32
	closeCalls   atomic.Int32
}

func NewProbeCollector() *ProbeCollector {
	return &ProbeCollector{
		byID: make(map[int32]*ProbeDescriptor),
	}
}

func (c *ProbeCollector) AddDescriptor(d *ProbeDescriptor) {
	c.descriptors = append(c.descriptors, d)
	c.byID[d.FilterID()] = d
}

func (c *ProbeCollector) Descriptors() []*ProbeDescriptor {
	return c.descriptors
}

func (c *ProbeCollector) GetDescriptor(filterID int32) *ProbeDescriptor {
	return c.byID[filterID]
}

// Prepare binds the probe expressions against the operator's row
// layout.  Runs once for the collector's lifetime.
func (c *ProbeCollector) Prepare(proc *process.Process, rowDesc colexec.RowDescriptor, analyzer *process.Analyzer) error {
	if c.prepared {
		return moerr.NewInvalidState(proc.Ctx, "probe collector prepared twice")
	}
	for _, d := range c.descriptors {
		if d.probeColumn == nil {
			return moerr.NewInternalError(proc.Ctx, "probe descriptor %d without column", d.filterID)
		}
		if len(rowDesc.TupleIDs) > 0 && !tupleVisible(rowDesc, d.probeColumn.TupleID()) {
			return moerr.NewInternalError(proc.Ctx,
				"probe descriptor %d bound to tuple %d not in row", d.filterID, d.probeColumn.TupleID())
		}
	}
	c.prepared = true
	c.prepareCalls.Add(1)
	_ = analyzer
	return nil
}

func (c *ProbeCollector) Open(proc *process.Process) error {
	if !c.prepared {
		return moerr.NewInvalidState(proc.Ctx, "open probe collector before prepare")
	}
	c.opened = true
	c.openCalls.Add(1)
	return nil
}

func (c *ProbeCollector) Close(proc *process.Process) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeCalls.Add(1)
}

func (c *ProbeCollector) PrepareCalls() int32 {
	return c.prepareCalls.Load()
}

func (c *ProbeCollector) OpenCalls() int32 {
	return c.openCalls.Load()
}

func (c *ProbeCollector) CloseCalls() int32 {
	return c.closeCalls.Load()
}

func tupleVisible(rowDesc colexec.RowDescriptor, tupleID int32) bool {
	for _, id := range rowDesc.TupleIDs {
		if id == tupleID {
			return true
		}
	}
	return false
}
