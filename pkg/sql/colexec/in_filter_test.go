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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/types"
	"github.com/orcadb/orca/pkg/container/vector"
	"github.com/orcadb/orca/pkg/vm/process"
)

func encodeInt64(v int64) []byte {
	return types.EncodeInt64(&v)
}

func TestInPredicateMerge(t *testing.T) {
	left := NewInPredicate(NewColumnRef(1, 0, types.T_int64), false)
	left.AddKey(encodeInt64(1))
	left.AddKey(encodeInt64(2))

	right := NewInPredicate(NewColumnRef(1, 0, types.T_int64), false)
	right.AddKey(encodeInt64(2))
	right.AddKey(encodeInt64(3))

	require.NoError(t, left.Merge(right))
	require.Equal(t, 3, left.Cardinality())
	for _, k := range []int64{1, 2, 3} {
		require.True(t, left.Test(encodeInt64(k)))
	}
	require.False(t, left.Test(encodeInt64(4)))

	// the right side is unchanged.
	require.Equal(t, 2, right.Cardinality())
}

func TestInPredicateMergeMismatch(t *testing.T) {
	left := NewInPredicate(NewColumnRef(1, 0, types.T_int64), false)
	wrongType := NewInPredicate(NewColumnRef(1, 0, types.T_int32), false)
	err := left.Merge(wrongType)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTypeMismatch))

	wrongNullEq := NewInPredicate(NewColumnRef(1, 0, types.T_int64), true)
	require.Error(t, left.Merge(wrongNullEq))
	require.Error(t, left.Merge(nil))
}

func TestInPredicateIsBound(t *testing.T) {
	pred := NewInPredicate(NewColumnRef(5, 2, types.T_varchar), false)
	require.True(t, pred.IsBound([]int32{5}))
	require.True(t, pred.IsBound([]int32{1, 5}))
	require.False(t, pred.IsBound([]int32{2}))
	require.False(t, pred.IsBound(nil))
}

func TestInPredicateNullSemantics(t *testing.T) {
	mp := mpool.MustNewZero("in_filter_test")
	vec := vector.NewVec(types.T_int64.ToType())
	require.NoError(t, vector.AppendFixed(vec, int64(1), false, mp))
	require.NoError(t, vector.AppendFixed(vec, int64(0), true, mp))
	require.NoError(t, vector.AppendFixed(vec, int64(2), false, mp))

	// plain equality: nulls never enter the set and never match.
	pred := NewInPredicate(NewColumnRef(1, 0, types.T_int64), false)
	pred.AddVector(vec)
	require.Equal(t, 2, pred.Cardinality())
	require.False(t, pred.HasNull())

	probe := vector.NewVec(types.T_int64.ToType())
	require.NoError(t, vector.AppendFixed(probe, int64(1), false, mp))
	require.NoError(t, vector.AppendFixed(probe, int64(0), true, mp))
	var got []bool
	pred.Evaluate(probe, func(ok bool, _ int) { got = append(got, ok) })
	require.Equal(t, []bool{true, false}, got)

	// null-safe equality: a null on the build side matches probe nulls.
	eqNull := NewInPredicate(NewColumnRef(1, 0, types.T_int64), true)
	eqNull.AddVector(vec)
	require.True(t, eqNull.HasNull())
	got = got[:0]
	eqNull.Evaluate(probe, func(ok bool, _ int) { got = append(got, ok) })
	require.Equal(t, []bool{true, true}, got)

	vec.Free(mp)
	probe.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestInPredicateKeysOrdered(t *testing.T) {
	pred := NewInPredicate(NewColumnRef(1, 0, types.T_varchar), false)
	pred.AddKey([]byte("pear"))
	pred.AddKey([]byte("apple"))
	pred.AddKey([]byte("fig"))
	pred.AddKey([]byte("apple"))

	keys := pred.Keys()
	require.Equal(t, [][]byte{[]byte("apple"), []byte("fig"), []byte("pear")}, keys)
}

func TestInFilterLifecycle(t *testing.T) {
	mp := mpool.MustNewZero("in_filter_lifecycle_test")
	proc := process.New(context.Background(), mp)

	f := NewInFilter(NewInPredicate(NewColumnRef(1, 0, types.T_int64), false))
	require.Error(t, f.Open(proc))
	require.NoError(t, f.Prepare(proc))
	require.NoError(t, f.Open(proc))
	require.False(t, f.Closed())
	f.Close(proc)
	f.Close(proc)
	require.True(t, f.Closed())

	broken := NewInFilter(nil)
	require.Error(t, broken.Prepare(proc))
}
