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

package vm

import (
	"bytes"

	"github.com/orcadb/orca/pkg/container/batch"
	"github.com/orcadb/orca/pkg/vm/process"
)

type OpType int

const (
	ValueScan OpType = iota
	Projection
	HashBuild
	Merge
	Output
)

type ExecStatus int

const (
	ExecNext ExecStatus = iota
	ExecStop
)

// CallResult is what one Call of an operator hands to its parent.  A
// nil batch tells the parent the operator has no more rows (an empty
// but live result is batch.EmptyBatch); ExecStop means the operator
// is drained.
type CallResult struct {
	Status ExecStatus
	Batch  *batch.Batch
}

func NewCallResult() CallResult {
	return CallResult{Status: ExecNext}
}

// Operator is one node of a pipeline.  Prepare runs once per driver
// before the first Call; Call is pulled repeatedly until it reports
// ExecStop; Free releases resources and is called exactly once, even
// on failure.
type Operator interface {
	String(buf *bytes.Buffer)
	OpType() OpType

	Prepare(proc *process.Process) error
	Call(proc *process.Process) (CallResult, error)
	Free(proc *process.Process, pipelineFailed bool, err error)

	GetChildren(idx int) Operator
	AppendChild(child Operator)
}

// OperatorBase carries the child list so operators only implement the
// interesting parts.
type OperatorBase struct {
	Children []Operator
}

func (o *OperatorBase) GetChildren(idx int) Operator {
	return o.Children[idx]
}

func (o *OperatorBase) AppendChild(child Operator) {
	o.Children = append(o.Children, child)
}

// ChildrenCall pulls one result from a child operator.
func ChildrenCall(o Operator, proc *process.Process, analyzer *process.Analyzer) (CallResult, error) {
	result, err := o.Call(proc)
	if err != nil {
		return result, err
	}
	if result.Batch != nil {
		analyzer.Input(result.Batch.RowCount())
	}
	return result, nil
}
