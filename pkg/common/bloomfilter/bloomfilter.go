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

package bloomfilter

import (
	"bytes"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/orcadb/orca/pkg/common/bitmap"
	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/types"
	"github.com/orcadb/orca/pkg/container/vector"
)

// BloomFilter is a seeded multi-hash bloom filter over encoded column
// keys.  Each seed contributes one bit position per key.
type BloomFilter struct {
	bitmap   bitmap.Bitmap
	poolData []byte // backing buffer when allocated from an mpool
	hashSeed []uint64
}

// fixed seed sequence; must be identical on build and probe side.
var seedSequence = []uint64{
	0x9E3779B97F4A7C15, 0xBF58476D1CE4E5B9, 0x94D049BB133111EB,
	0xD6E8FEB86659FD93, 0xA5A5A5A5A5A5A5A5, 0xC2B2AE3D27D4EB4F,
	0x165667B19E3779F9, 0x27D4EB2F165667C5,
}

// computeMemAndHashCount derives the bit count and number of hash
// functions from the expected element count and the desired false
// positive probability.
func computeMemAndHashCount(rowCount int64, probability float64) (int64, int) {
	if rowCount <= 0 {
		rowCount = 2
	}
	nbits := int64(math.Ceil(-float64(rowCount) * math.Log(probability) / (math.Ln2 * math.Ln2)))
	if nbits < 64 {
		nbits = 64
	}
	k := int(math.Ceil(-math.Log2(probability)))
	if k < 1 {
		k = 1
	}
	if k > len(seedSequence) {
		k = len(seedSequence)
	}
	return nbits, k
}

func New(rowCount int64, probability float64) *BloomFilter {
	nbits, k := computeMemAndHashCount(rowCount, probability)
	var bf BloomFilter
	bf.bitmap.InitWithSize(nbits)
	bf.hashSeed = seedSequence[:k]
	return &bf
}

// NewWithPool is like New but draws the bit array from the pool so
// operator tests can account for it.  Callers must Clean the filter.
func NewWithPool(rowCount int64, probability float64, m *mpool.MPool) (*BloomFilter, error) {
	nbits, k := computeMemAndHashCount(rowCount, probability)
	nwords := (nbits + 63) / 64
	bs, err := m.Alloc(int(nwords) * 8)
	if err != nil {
		return nil, err
	}
	var bf BloomFilter
	bf.bitmap.InitWithData(nbits, types.DecodeSlice[uint64](bs))
	bf.poolData = bs
	bf.hashSeed = seedSequence[:k]
	return &bf, nil
}

func (bf *BloomFilter) Clean(m *mpool.MPool) {
	if bf.poolData != nil {
		m.Free(bf.poolData)
		bf.poolData = nil
	}
	bf.bitmap = bitmap.Bitmap{}
	bf.hashSeed = nil
}

func (bf *BloomFilter) Nbits() int64 {
	return bf.bitmap.Len()
}

func (bf *BloomFilter) position(seed uint64, key []byte) uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.Write(types.EncodeUint64(&seed))
	_, _ = d.Write(key)
	h := d.Sum64()
	bitSize := uint64(bf.bitmap.Len())
	if h >= bitSize {
		return h % bitSize
	}
	return h
}

func (bf *BloomFilter) AddKey(key []byte) {
	for _, seed := range bf.hashSeed {
		bf.bitmap.Add(bf.position(seed, key))
	}
}

func (bf *BloomFilter) TestKey(key []byte) bool {
	for _, seed := range bf.hashSeed {
		if !bf.bitmap.Contains(bf.position(seed, key)) {
			return false
		}
	}
	return true
}

// Add inserts every non-null row of the vector.
func (bf *BloomFilter) Add(v *vector.Vector) {
	length := v.Length()
	for i := 0; i < length; i++ {
		if v.IsNull(i) {
			continue
		}
		bf.AddKey(v.EncodeKey(i))
	}
}

// Test probes every row of the vector.  Null rows report false; NULL
// equality is the caller's concern.
func (bf *BloomFilter) Test(v *vector.Vector, callBack func(bool, int)) {
	length := v.Length()
	for i := 0; i < length; i++ {
		if v.IsNull(i) {
			callBack(false, i)
			continue
		}
		callBack(bf.TestKey(v.EncodeKey(i)), i)
	}
}

// Marshal encodes BloomFilter into byte sequence for transmission via
// runtime filter message within the same node.  Encoding format:
//
//	[seedCount:uint32][seeds...:uint64][bitmapLen:uint32][bitmapBytes...]
func (bf *BloomFilter) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	seedCount := uint32(len(bf.hashSeed))
	buf.Write(types.EncodeUint32(&seedCount))
	for i := 0; i < int(seedCount); i++ {
		buf.Write(types.EncodeUint64(&bf.hashSeed[i]))
	}

	bmBytes := bf.bitmap.Marshal()
	bmLen := uint32(len(bmBytes))
	buf.Write(types.EncodeUint32(&bmLen))
	buf.Write(bmBytes)

	return buf.Bytes(), nil
}

// Unmarshal restores BloomFilter from byte sequence.
func (bf *BloomFilter) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return moerr.NewInternalErrorNoCtx("invalid bloomfilter data")
	}

	seedCount := int(types.DecodeUint32(data[:4]))
	data = data[4:]

	if seedCount <= 0 {
		return moerr.NewInternalErrorNoCtx("invalid bloomfilter seed count")
	}

	hashSeed := make([]uint64, seedCount)
	for i := 0; i < seedCount; i++ {
		if len(data) < 8 {
			return moerr.NewInternalErrorNoCtx("invalid bloomfilter data (seed truncated)")
		}
		hashSeed[i] = types.DecodeUint64(data[:8])
		data = data[8:]
	}

	if len(data) < 4 {
		return moerr.NewInternalErrorNoCtx("invalid bloomfilter data (no bitmap length)")
	}
	bmLen := int(types.DecodeUint32(data[:4]))
	data = data[4:]
	if bmLen < 0 || len(data) < bmLen {
		return moerr.NewInternalErrorNoCtx("invalid bloomfilter data (bitmap truncated)")
	}

	var bm bitmap.Bitmap
	bm.Unmarshal(data[:bmLen])

	bf.bitmap = bm
	bf.poolData = nil
	bf.hashSeed = hashSeed
	return nil
}
