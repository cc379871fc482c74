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

package batch

import (
	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/vector"
)

// EmptyBatch is a batch with zero rows, distinct from nil which
// signals end of stream.
var EmptyBatch = &Batch{rowCount: 0}

// Batch represents a part of a relation: a list of column vectors of
// equal length.
type Batch struct {
	Attrs    []string
	Vecs     []*vector.Vector
	rowCount int
}

func New(attrs []string) *Batch {
	return &Batch{
		Attrs: attrs,
		Vecs:  make([]*vector.Vector, len(attrs)),
	}
}

func NewWithSize(n int) *Batch {
	return &Batch{
		Vecs: make([]*vector.Vector, n),
	}
}

func (bat *Batch) SetAttributes(attrs []string) {
	bat.Attrs = attrs
}

func (bat *Batch) SetVector(i int32, vec *vector.Vector) {
	bat.Vecs[i] = vec
}

func (bat *Batch) GetVector(i int32) *vector.Vector {
	return bat.Vecs[i]
}

func (bat *Batch) VectorCount() int {
	return len(bat.Vecs)
}

func (bat *Batch) RowCount() int {
	return bat.rowCount
}

func (bat *Batch) SetRowCount(rowCount int) {
	bat.rowCount = rowCount
}

func (bat *Batch) IsEmpty() bool {
	return bat.rowCount == 0
}

func (bat *Batch) Clean(m *mpool.MPool) {
	if bat == EmptyBatch {
		return
	}
	for _, vec := range bat.Vecs {
		if vec != nil {
			vec.Free(m)
		}
	}
	bat.Vecs = nil
	bat.rowCount = 0
}
