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

	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/sql/colexec/runtimefilter"
	"github.com/orcadb/orca/pkg/vm/process"
)

// A plan node in the row engine decomposes into more than one
// operator factory in the pipeline engine.  The framework does not
// know which factories a runtime filter takes effect on, so every
// factory from the same node shares one probe collector through this
// wrapper, whose refcount guarantees the wrapped prepare and close
// both run exactly once.
//
// Precondition: the pipeline calls Prepare at most N times, Close at
// most N times, and every Close of an operator strictly follows that
// operator's Prepare.  The close arithmetic is only correct when
// every operator that will ever prepare has prepared before the
// first close; the wrapper does not verify this.
type RefCountedProbeCollector struct {
	// count packs two refcounts: the high 32 bits count close
	// invocations remaining, the low 32 bits prepare invocations
	// remaining.
	count atomic.Uint64

	// numOperators is how many operator factories the plan node
	// decomposed into.
	numOperators uint64

	// collector is the wrapped probe collector initialized by the
	// plan node.
	collector *runtimefilter.ProbeCollector
}

func NewRefCountedProbeCollector(numOperators int, collector *runtimefilter.ProbeCollector) *RefCountedProbeCollector {
	c := &RefCountedProbeCollector{
		numOperators: uint64(numOperators),
		collector:    collector,
	}
	c.count.Store(uint64(numOperators)<<32 | uint64(numOperators))
	return c
}

// Prepare runs the wrapped prepare and open on the first call only;
// some sibling operators may be wired in but never reached, so all
// that matters is first-one-wins initialization.
func (c *RefCountedProbeCollector) Prepare(proc *process.Process, rowDesc colexec.RowDescriptor,
	analyzer *process.Analyzer) error {
	pre := c.count.Add(^uint64(0)) + 1
	if pre&0xffffffff == 0 {
		panic("probe collector prepared more times than operators generated")
	}
	if pre&0xffffffff == c.numOperators {
		if err := c.collector.Prepare(proc, rowDesc, analyzer); err != nil {
			return err
		}
		if err := c.collector.Open(proc); err != nil {
			return err
		}
	}
	return nil
}

// Close runs the wrapped close on the last call only, and only if
// some sibling actually prepared; a collector never opened has
// nothing to release.
func (c *RefCountedProbeCollector) Close(proc *process.Process) {
	const k = uint64(1) << 32
	pre := c.count.Add(^(k - 1)) + k
	if pre < k {
		panic("probe collector closed more times than operators generated")
	}
	if pre>>32 == 1 && pre&0xffffffff < c.numOperators {
		c.collector.Close(proc)
	}
}

func (c *RefCountedProbeCollector) GetProbeCollector() *runtimefilter.ProbeCollector {
	return c.collector
}
