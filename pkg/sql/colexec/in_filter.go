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

import (
	"github.com/tidwall/btree"

	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/container/types"
	"github.com/orcadb/orca/pkg/container/vector"
	"github.com/orcadb/orca/pkg/vm/process"
)

// ColumnRef is a reference to a column of some tuple.  Both ids are
// mutable: a filter built against a descendant schema gets rebound to
// the consumer's schema before push down.
type ColumnRef struct {
	tupleID int32
	slotID  int32
	typ     types.T
}

func NewColumnRef(tupleID, slotID int32, typ types.T) *ColumnRef {
	return &ColumnRef{tupleID: tupleID, slotID: slotID, typ: typ}
}

func (c *ColumnRef) TupleID() int32 {
	return c.tupleID
}

func (c *ColumnRef) SlotID() int32 {
	return c.slotID
}

func (c *ColumnRef) SetTupleID(id int32) {
	c.tupleID = id
}

func (c *ColumnRef) SetSlotID(id int32) {
	c.slotID = id
}

func (c *ColumnRef) Type() types.T {
	return c.typ
}

// InPredicate is an IN-predicate whose first child is a column
// reference and whose right side is a set of literal keys in their
// canonical byte encoding.  The key set is ordered so enumeration is
// deterministic.
type InPredicate struct {
	column  *ColumnRef
	typ     types.T
	eqNull  bool
	hasNull bool
	keys    btree.Set[string]
}

func NewInPredicate(column *ColumnRef, eqNull bool) *InPredicate {
	return &InPredicate{
		column: column,
		typ:    column.Type(),
		eqNull: eqNull,
	}
}

// Column returns child 0 of the predicate.
func (p *InPredicate) Column() *ColumnRef {
	return p.column
}

func (p *InPredicate) Type() types.T {
	return p.typ
}

func (p *InPredicate) EqNull() bool {
	return p.eqNull
}

func (p *InPredicate) HasNull() bool {
	return p.hasNull
}

// IsBound reports whether the predicate only references columns of
// the given tuples.
func (p *InPredicate) IsBound(tupleIDs []int32) bool {
	for _, id := range tupleIDs {
		if id == p.column.TupleID() {
			return true
		}
	}
	return false
}

func (p *InPredicate) AddKey(key []byte) {
	p.keys.Insert(string(key))
}

// AddVector inserts every row of a build side key column.  Null keys
// only match other nulls, and only under null-safe equality.
func (p *InPredicate) AddVector(v *vector.Vector) {
	length := v.Length()
	for i := 0; i < length; i++ {
		if v.IsNull(i) {
			if p.eqNull {
				p.hasNull = true
			}
			continue
		}
		p.keys.Insert(string(v.EncodeKey(i)))
	}
}

func (p *InPredicate) Cardinality() int {
	return p.keys.Len()
}

func (p *InPredicate) Test(key []byte) bool {
	return p.keys.Contains(string(key))
}

// Keys enumerates the key set in byte order.
func (p *InPredicate) Keys() [][]byte {
	result := make([][]byte, 0, p.keys.Len())
	p.keys.Scan(func(k string) bool {
		result = append(result, []byte(k))
		return true
	})
	return result
}

// Merge unions the other predicate's key set into this one.  Both
// sides must be over the same type with the same null-equality
// semantics; the partitioned build guarantees that.
func (p *InPredicate) Merge(other *InPredicate) error {
	if other == nil {
		return moerr.NewInternalErrorNoCtx("merge nil in-predicate")
	}
	if p.typ != other.typ {
		return moerr.NewTypeMismatchNoCtx("merge in-predicate of %s into %s", other.typ, p.typ)
	}
	if p.eqNull != other.eqNull {
		return moerr.NewInternalErrorNoCtx("merge in-predicate with different null equality")
	}
	other.keys.Scan(func(k string) bool {
		p.keys.Insert(k)
		return true
	})
	p.hasNull = p.hasNull || other.hasNull
	return nil
}

// Evaluate probes every row of the vector.
func (p *InPredicate) Evaluate(v *vector.Vector, callBack func(bool, int)) {
	length := v.Length()
	for i := 0; i < length; i++ {
		if v.IsNull(i) {
			callBack(p.eqNull && p.hasNull, i)
			continue
		}
		callBack(p.keys.Contains(string(v.EncodeKey(i))), i)
	}
}

// InFilter is the expression context wrapping an IN-predicate: the
// prepare/open/close lifecycle the expression framework expects.
type InFilter struct {
	root *InPredicate

	prepared bool
	opened   bool
	closed   bool
}

func NewInFilter(root *InPredicate) *InFilter {
	return &InFilter{root: root}
}

func (f *InFilter) Root() *InPredicate {
	return f.root
}

func (f *InFilter) Prepare(proc *process.Process) error {
	if f.root == nil {
		return moerr.NewInvalidState(proc.Ctx, "prepare in-filter without root")
	}
	f.prepared = true
	return nil
}

func (f *InFilter) Open(proc *process.Process) error {
	if !f.prepared {
		return moerr.NewInvalidState(proc.Ctx, "open in-filter before prepare")
	}
	f.opened = true
	return nil
}

// Close is idempotent; pipeline teardown may reach a filter through
// more than one path.
func (f *InFilter) Close(proc *process.Process) {
	if f.closed {
		return
	}
	f.closed = true
}

func (f *InFilter) Closed() bool {
	return f.closed
}
