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
	"bytes"

	"go.uber.org/zap"

	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/container/vector"
	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/sql/colexec/runtimefilter"
	"github.com/orcadb/orca/pkg/vm"
	"github.com/orcadb/orca/pkg/vm/message"
	"github.com/orcadb/orca/pkg/vm/pipeline"
	"github.com/orcadb/orca/pkg/vm/process"
)

const opName = "hash_build"

func (hashBuild *HashBuild) String(buf *bytes.Buffer) {
	buf.WriteString(opName)
	buf.WriteString(": hash build ")
}

func (hashBuild *HashBuild) OpType() vm.OpType {
	return vm.HashBuild
}

func (hashBuild *HashBuild) Prepare(proc *process.Process) error {
	if hashBuild.OpAnalyzer == nil {
		hashBuild.OpAnalyzer = process.NewAnalyzer(opName)
	} else {
		hashBuild.OpAnalyzer.Reset()
	}

	if hashBuild.Merger == nil || hashBuild.Hub == nil {
		return moerr.NewInternalError(proc.Ctx, "hash build without runtime filter merger or hub")
	}
	nkeys := len(hashBuild.KeyColumns)
	if len(hashBuild.EqNulls) != nkeys || len(hashBuild.InFilterColumns) != nkeys ||
		len(hashBuild.Descriptors) != nkeys {
		return moerr.NewInternalError(proc.Ctx, "hash build runtime filter lists are not aligned")
	}
	if hashBuild.InFilterRowLimit <= 0 {
		return moerr.NewInternalError(proc.Ctx, "hash build without in-filter row limit")
	}

	ctr := &hashBuild.ctr
	ctr.state = BuildHashMap
	ctr.rowCount = 0
	ctr.keyColumns = make([]*vector.Vector, nkeys)
	ctr.collectors = make([]*keyCollector, nkeys)
	for k := 0; k < nkeys; k++ {
		ctr.keyColumns[k] = vector.NewVec(hashBuild.InFilterColumns[k].Type().ToType())
		ctr.collectors[k] = newKeyCollector(hashBuild.InFilterRowLimit)
	}
	return nil
}

func (hashBuild *HashBuild) Call(proc *process.Process) (vm.CallResult, error) {
	analyzer := hashBuild.OpAnalyzer
	result := vm.NewCallResult()
	ctr := &hashBuild.ctr
	for {
		switch ctr.state {
		case BuildHashMap:
			if err := ctr.build(hashBuild, proc, analyzer); err != nil {
				return result, err
			}
			ctr.state = HandleRuntimeFilter

		case HandleRuntimeFilter:
			if err := ctr.handleRuntimeFilter(hashBuild, proc); err != nil {
				return result, err
			}
			ctr.state = End

		case End:
			result.Batch = nil
			result.Status = vm.ExecStop
			return result, nil
		}
	}
}

func (hashBuild *HashBuild) Free(proc *process.Process, pipelineFailed bool, err error) {
	ctr := &hashBuild.ctr
	// key columns hand over to the merger inside handleRuntimeFilter;
	// anything still here belongs to this driver.
	for i := range ctr.keyColumns {
		if ctr.keyColumns[i] != nil {
			ctr.keyColumns[i].Free(proc.Mp())
			ctr.keyColumns[i] = nil
		}
	}
	ctr.collectors = nil
}

func (ctr *container) build(hashBuild *HashBuild, proc *process.Process, analyzer *process.Analyzer) error {
	for {
		result, err := vm.ChildrenCall(hashBuild.GetChildren(0), proc, analyzer)
		if err != nil {
			return err
		}
		if result.Batch == nil {
			return nil
		}
		bat := result.Batch
		if bat.IsEmpty() {
			continue
		}

		ctr.rowCount += int64(bat.RowCount())
		for k, colIdx := range hashBuild.KeyColumns {
			src := bat.GetVector(colIdx)
			dst := ctr.keyColumns[k]
			collector := ctr.collectors[k]
			length := src.Length()
			for row := 0; row < length; row++ {
				if err := dst.UnionOne(src, row, proc.Mp()); err != nil {
					return err
				}
				if !src.IsNull(row) {
					collector.Add(src.EncodeKey(row))
				}
			}
		}
	}
}

// buildPartialInFilters turns the collected keys into this driver's
// IN-filter list.  An empty hash table yields an empty list, which
// the merger ignores; an overflowed collector also yields an empty
// list, which the merger treats as "cannot merge".
func (ctr *container) buildPartialInFilters(hashBuild *HashBuild, proc *process.Process) ([]*colexec.InFilter, error) {
	if ctr.rowCount == 0 {
		return nil, nil
	}
	for _, collector := range ctr.collectors {
		if collector.Overflowed() {
			return nil, nil
		}
	}
	inFilters := make([]*colexec.InFilter, 0, len(hashBuild.KeyColumns))
	for k := range hashBuild.KeyColumns {
		pred := colexec.NewInPredicate(hashBuild.InFilterColumns[k], hashBuild.EqNulls[k])
		pred.AddVector(ctr.keyColumns[k])
		filter := colexec.NewInFilter(pred)
		if err := filter.Prepare(proc); err != nil {
			return nil, err
		}
		if err := filter.Open(proc); err != nil {
			return nil, err
		}
		inFilters = append(inFilters, filter)
	}
	return inFilters, nil
}

func (ctr *container) handleRuntimeFilter(hashBuild *HashBuild, proc *process.Process) error {
	inFilters, err := ctr.buildPartialInFilters(hashBuild, proc)
	if err != nil {
		return err
	}

	params := make([]runtimefilter.BuildParam, 0, len(hashBuild.KeyColumns))
	for k := range hashBuild.KeyColumns {
		params = append(params,
			runtimefilter.NewBuildParam(hashBuild.EqNulls[k], ctr.keyColumns[k], ctr.rowCount))
	}
	// ownership of the key columns passes to the merger with the params.
	ctr.keyColumns = nil

	merged, err := hashBuild.Merger.AddPartialFilters(
		hashBuild.DriverSequence, ctr.rowCount, inFilters, params, hashBuild.Descriptors)
	if err != nil {
		// the merge failed on this, the last, builder; the holder
		// stays unset and downstream probes see no filter.
		return err
	}
	if !merged {
		return nil
	}

	collector := pipeline.NewRuntimeFilterCollector(
		hashBuild.Merger.GetTotalInFilters(), hashBuild.Merger.GetTotalBloomFilters())
	hashBuild.Hub.SetCollector(hashBuild.NodeID, collector)
	proc.Debug("runtime filters published",
		zap.Int32("node", hashBuild.NodeID),
		zap.Int("in_filters", len(collector.GetInFilters())),
		zap.Int("bloom_filters", len(collector.GetBloomFilters())))

	ctr.sendRemoteFilters(hashBuild, proc)
	return nil
}

// sendRemoteFilters posts the merged filters of descriptors with
// remote consumers to the message board, where the exchange layer
// picks them up.  A descriptor whose filter was abandoned sends DROP
// so remote probes stop waiting.
func (ctr *container) sendRemoteFilters(hashBuild *HashBuild, proc *process.Process) {
	for _, desc := range hashBuild.Descriptors {
		if !desc.HasRemoteTargets() {
			continue
		}
		msg := message.RuntimeFilterMessage{Tag: desc.FilterID()}
		filter := desc.RuntimeFilter()
		if filter == nil {
			msg.Typ = message.RuntimeFilter_DROP
			message.SendRuntimeFilter(msg, proc.GetMessageBoard())
			continue
		}
		raw, err := filter.Marshal()
		if err != nil {
			proc.Warn("marshal runtime filter failed, dropping",
				zap.Int32("filter", desc.FilterID()), zap.Error(err))
			msg.Typ = message.RuntimeFilter_DROP
			message.SendRuntimeFilter(msg, proc.GetMessageBoard())
			continue
		}
		switch filter.Kind() {
		case runtimefilter.KindBitmap:
			msg.Typ = message.RuntimeFilter_BITMAP
		default:
			msg.Typ = message.RuntimeFilter_BLOOMFILTER
		}
		msg.Card = int32(hashBuild.Merger.GetTotalRowCount())
		msg.Data = message.EncodeFilterData(raw)
		message.SendRuntimeFilter(msg, proc.GetMessageBoard())
	}
}
