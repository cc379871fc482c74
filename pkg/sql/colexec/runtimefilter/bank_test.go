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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/types"
	"github.com/orcadb/orca/pkg/container/vector"
)

func encodeInt64(v int64) []byte {
	return types.EncodeInt64(&v)
}

func newKeyVector(t *testing.T, mp *mpool.MPool, vals []int64, nulls []bool) *vector.Vector {
	vec := vector.NewVec(types.T_int64.ToType())
	for i, v := range vals {
		isNull := nulls != nil && nulls[i]
		require.NoError(t, vector.AppendFixed(vec, v, isNull, mp))
	}
	return vec
}

func TestCreateKinds(t *testing.T) {
	mp := mpool.MustNewZero("bank_test")

	bloom := Create(mp, KindBloom, types.T_varchar)
	require.NotNil(t, bloom)
	require.Equal(t, KindBloom, bloom.Kind())

	bm := Create(mp, KindBitmap, types.T_int32)
	require.NotNil(t, bm)
	require.Equal(t, KindBitmap, bm.Kind())

	// bitmap filters have no representation for non-integer keys.
	require.Nil(t, Create(mp, KindBitmap, types.T_varchar))
	require.Nil(t, Create(mp, Kind(99), types.T_int64))
}

func TestBloomFilterFillAndTest(t *testing.T) {
	mp := mpool.MustNewZero("bank_bloom_test")

	f := Create(mp, KindBloom, types.T_int64)
	require.NoError(t, f.Init(100))
	f.SetJoinMode(JoinModeShuffle)
	require.Equal(t, JoinModeShuffle, f.JoinMode())

	keys := newKeyVector(t, mp, []int64{10, 20, 30}, nil)
	require.NoError(t, Fill(keys, types.T_int64, f, 0, false))

	// no false negatives.
	for _, k := range []int64{10, 20, 30} {
		require.True(t, f.TestKey(encodeInt64(k)))
	}

	// probes answer per row; nulls match only under null-safe
	// equality with nulls seen.
	probe := newKeyVector(t, mp, []int64{10, 0, 999999}, []bool{false, true, false})
	var got []bool
	f.Evaluate(probe, func(ok bool, _ int) { got = append(got, ok) })
	require.Len(t, got, 3)
	require.True(t, got[0])
	require.False(t, got[1])

	keys.Free(mp)
	probe.Free(mp)
	f.Clean(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestBloomFilterEqNull(t *testing.T) {
	mp := mpool.MustNewZero("bank_eqnull_test")

	f := Create(mp, KindBloom, types.T_int64)
	require.NoError(t, f.Init(10))

	keys := newKeyVector(t, mp, []int64{1, 0}, []bool{false, true})
	require.NoError(t, Fill(keys, types.T_int64, f, 0, true))
	require.True(t, f.HasNull())

	probe := newKeyVector(t, mp, []int64{0}, []bool{true})
	var got []bool
	f.Evaluate(probe, func(ok bool, _ int) { got = append(got, ok) })
	require.Equal(t, []bool{true}, got)

	keys.Free(mp)
	probe.Free(mp)
	f.Clean(mp)
}

func TestFillErrors(t *testing.T) {
	mp := mpool.MustNewZero("bank_fill_test")

	f := Create(mp, KindBloom, types.T_int64)
	require.NoError(t, f.Init(10))

	require.Error(t, Fill(nil, types.T_int64, f, 0, false))
	require.Error(t, Fill(newKeyVector(t, mp, nil, nil), types.T_int32, f, 0, false))

	wrongType := vector.NewVec(types.T_int32.ToType())
	require.NoError(t, vector.AppendFixed(wrongType, int32(1), false, mp))
	require.Error(t, Fill(wrongType, types.T_int64, f, 0, false))

	require.Error(t, Fill(newKeyVector(t, mp, nil, nil), types.T_int64, nil, 0, false))
}

func TestFillOffset(t *testing.T) {
	mp := mpool.MustNewZero("bank_offset_test")

	f := Create(mp, KindBitmap, types.T_int64)
	require.NoError(t, f.Init(4))
	keys := newKeyVector(t, mp, []int64{1, 2, 3, 4}, nil)
	require.NoError(t, Fill(keys, types.T_int64, f, 2, false))

	require.False(t, f.TestKey(encodeInt64(1)))
	require.False(t, f.TestKey(encodeInt64(2)))
	require.True(t, f.TestKey(encodeInt64(3)))
	require.True(t, f.TestKey(encodeInt64(4)))
}

func TestBitmapFilterExactness(t *testing.T) {
	mp := mpool.MustNewZero("bank_bitmap_test")

	f := Create(mp, KindBitmap, types.T_int64)
	require.NoError(t, f.Init(1000))
	keys := newKeyVector(t, mp, []int64{-5, 0, 1 << 40}, nil)
	require.NoError(t, Fill(keys, types.T_int64, f, 0, false))

	require.True(t, f.TestKey(encodeInt64(-5)))
	require.True(t, f.TestKey(encodeInt64(0)))
	require.True(t, f.TestKey(encodeInt64(1<<40)))
	require.False(t, f.TestKey(encodeInt64(7)))
}

func TestBloomFilterMarshalRoundTrip(t *testing.T) {
	mp := mpool.MustNewZero("bank_marshal_test")

	f := Create(mp, KindBloom, types.T_int64)
	require.NoError(t, f.Init(100))
	f.SetJoinMode(JoinModeBroadcast)
	f.SetHasNull(true)
	keys := newKeyVector(t, mp, []int64{11, 22, 33}, nil)
	require.NoError(t, Fill(keys, types.T_int64, f, 0, false))

	data, err := f.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalBloom(data)
	require.NoError(t, err)
	require.Equal(t, JoinModeBroadcast, restored.JoinMode())
	require.True(t, restored.HasNull())
	for _, k := range []int64{11, 22, 33} {
		require.True(t, restored.TestKey(encodeInt64(k)))
	}

	_, err = UnmarshalBloom([]byte{1, 2})
	require.Error(t, err)
}

func TestBitmapFilterMarshalRoundTrip(t *testing.T) {
	mp := mpool.MustNewZero("bank_bitmap_marshal_test")

	f := Create(mp, KindBitmap, types.T_int32)
	require.NoError(t, f.Init(10))
	vec := vector.NewVec(types.T_int32.ToType())
	for _, v := range []int32{3, 5, 7} {
		require.NoError(t, vector.AppendFixed(vec, v, false, mp))
	}
	require.NoError(t, Fill(vec, types.T_int32, f, 0, false))

	data, err := f.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalBitmap(data)
	require.NoError(t, err)
	v := int32(5)
	require.True(t, restored.TestKey(types.EncodeInt32(&v)))
	v = 6
	require.False(t, restored.TestKey(types.EncodeInt32(&v)))

	_, err = UnmarshalBitmap([]byte{1})
	require.Error(t, err)
}
