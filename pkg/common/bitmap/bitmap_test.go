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

package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmapBasic(t *testing.T) {
	bm := New(100)
	require.True(t, bm.IsEmpty())
	require.Equal(t, int64(100), bm.Len())

	bm.Add(0)
	bm.Add(63)
	bm.Add(64)
	bm.Add(99)
	require.False(t, bm.IsEmpty())
	require.Equal(t, 4, bm.Count())
	require.True(t, bm.Contains(63))
	require.True(t, bm.Contains(64))
	require.False(t, bm.Contains(65))
	require.False(t, bm.Contains(1000))

	bm.Remove(63)
	require.False(t, bm.Contains(63))
	require.Equal(t, 3, bm.Count())

	bm.Reset()
	require.True(t, bm.IsEmpty())
}

func TestBitmapExpand(t *testing.T) {
	var bm Bitmap
	bm.Add(200)
	require.True(t, bm.Contains(200))
	require.Equal(t, int64(201), bm.Len())

	bm.AddMany([]uint64{1, 2, 300})
	require.Equal(t, 4, bm.Count())
}

func TestBitmapOr(t *testing.T) {
	a := New(64)
	a.Add(1)
	b := New(128)
	b.Add(100)

	a.Or(b)
	require.True(t, a.Contains(1))
	require.True(t, a.Contains(100))
	require.Equal(t, int64(128), a.Len())
}

func TestBitmapMarshalRoundTrip(t *testing.T) {
	bm := New(300)
	for _, v := range []uint64{0, 17, 64, 150, 299} {
		bm.Add(v)
	}

	var restored Bitmap
	restored.Unmarshal(bm.Marshal())
	require.Equal(t, bm.Len(), restored.Len())
	require.Equal(t, bm.Count(), restored.Count())
	for _, v := range []uint64{0, 17, 64, 150, 299} {
		require.True(t, restored.Contains(v))
	}
	require.False(t, restored.Contains(5))
}

func TestBitmapCloneIndependent(t *testing.T) {
	bm := New(64)
	bm.Add(3)
	clone := bm.Clone()
	clone.Add(5)
	require.False(t, bm.Contains(5))
	require.True(t, clone.Contains(3))
}
