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

package vector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/types"
)

func TestAppendFixed(t *testing.T) {
	mp := mpool.MustNewZero("vector_test")
	vec := NewVec(types.T_int64.ToType())

	require.NoError(t, AppendFixedList(vec, []int64{3, 1, 4, 1, 5}, mp))
	require.NoError(t, AppendFixed(vec, int64(0), true, mp))
	require.Equal(t, 6, vec.Length())

	col := MustFixedCol[int64](vec)
	require.Equal(t, []int64{3, 1, 4, 1, 5, 0}, col)
	require.True(t, vec.IsNull(5))
	require.False(t, vec.IsNull(0))
	require.True(t, vec.HasNull())

	// appending bytes to a fixed width vector is a type error.
	require.Error(t, AppendBytes(vec, []byte("x"), false, mp))

	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAppendBytes(t *testing.T) {
	mp := mpool.MustNewZero("vector_bytes_test")
	vec := NewVec(types.T_varchar.ToType())

	require.NoError(t, AppendBytes(vec, []byte("foo"), false, mp))
	require.NoError(t, AppendBytes(vec, nil, true, mp))
	require.NoError(t, AppendBytes(vec, []byte("barbaz"), false, mp))
	require.Equal(t, 3, vec.Length())
	require.Equal(t, []byte("foo"), vec.GetBytesAt(0))
	require.True(t, vec.IsNull(1))

	require.Error(t, AppendFixed(vec, int64(1), false, mp))

	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestEncodeKey(t *testing.T) {
	mp := mpool.MustNewZero("vector_key_test")

	fixed := NewVec(types.T_int32.ToType())
	require.NoError(t, AppendFixed(fixed, int32(7), false, mp))
	require.NoError(t, AppendFixed(fixed, int32(0), true, mp))
	v := int32(7)
	require.Equal(t, types.EncodeInt32(&v), fixed.EncodeKey(0))
	require.Nil(t, fixed.EncodeKey(1))

	varlen := NewVec(types.T_varchar.ToType())
	require.NoError(t, AppendBytes(varlen, []byte("key"), false, mp))
	require.Equal(t, []byte("key"), varlen.EncodeKey(0))

	fixed.Free(mp)
	varlen.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestUnionOne(t *testing.T) {
	mp := mpool.MustNewZero("vector_union_test")

	src := NewVec(types.T_int64.ToType())
	require.NoError(t, AppendFixed(src, int64(10), false, mp))
	require.NoError(t, AppendFixed(src, int64(0), true, mp))

	dst := NewVec(types.T_int64.ToType())
	require.NoError(t, dst.UnionOne(src, 0, mp))
	require.NoError(t, dst.UnionOne(src, 1, mp))
	require.Equal(t, 2, dst.Length())
	require.Equal(t, int64(10), MustFixedCol[int64](dst)[0])
	require.True(t, dst.IsNull(1))

	other := NewVec(types.T_int32.ToType())
	require.Error(t, other.UnionOne(src, 0, mp))

	src.Free(mp)
	dst.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestMarshalRoundTrip(t *testing.T) {
	mp := mpool.MustNewZero("vector_marshal_test")

	t.Run("fixed", func(t *testing.T) {
		vec := NewVec(types.T_int64.ToType())
		require.NoError(t, AppendFixed(vec, int64(1), false, mp))
		require.NoError(t, AppendFixed(vec, int64(0), true, mp))
		require.NoError(t, AppendFixed(vec, int64(3), false, mp))

		data, err := vec.MarshalBinary()
		require.NoError(t, err)

		var restored Vector
		require.NoError(t, restored.UnmarshalBinary(data))
		require.Equal(t, types.T_int64, restored.GetType().Oid)
		require.Equal(t, 3, restored.Length())
		require.Equal(t, []int64{1, 0, 3}, MustFixedCol[int64](&restored))
		require.True(t, restored.IsNull(1))
		vec.Free(mp)
	})

	t.Run("varlen", func(t *testing.T) {
		vec := NewVec(types.T_varchar.ToType())
		require.NoError(t, AppendBytes(vec, []byte("a"), false, mp))
		require.NoError(t, AppendBytes(vec, nil, true, mp))
		require.NoError(t, AppendBytes(vec, []byte("ccc"), false, mp))

		data, err := vec.MarshalBinary()
		require.NoError(t, err)

		var restored Vector
		require.NoError(t, restored.UnmarshalBinary(data))
		require.Equal(t, 3, restored.Length())
		require.Equal(t, []byte("a"), restored.GetBytesAt(0))
		require.True(t, restored.IsNull(1))
		require.Equal(t, []byte("ccc"), restored.GetBytesAt(2))
		vec.Free(mp)
	})

	var broken Vector
	require.Error(t, broken.UnmarshalBinary([]byte{1, 2, 3}))
	require.Equal(t, int64(0), mp.CurrNB())
}
