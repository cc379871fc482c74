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

package colexec

// A column is named by the (tuple id, slot id) pair of some plan
// node's output schema.  Nodes that re-project columns (projections
// between a filter producer and its consumer) give the same column a
// different pair; TupleSlotMapping records how an ancestor's naming
// projects onto a descendant's.
type TupleSlotMapping struct {
	FromTupleID int32
	FromSlotID  int32
	ToTupleID   int32
	ToSlotID    int32
}

// RowDescriptor lists the tuple ids visible to an operator's input
// rows.
type RowDescriptor struct {
	TupleIDs []int32
}
