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
	"bytes"
	"math/bits"
	"strconv"

	"github.com/orcadb/orca/pkg/container/types"
)

// In case len is not multiple of 64, the trailing bits of the last
// word must be kept zero; all the code below assumes that.

type Bitmap struct {
	len  int64
	data []uint64
}

func New(n int64) *Bitmap {
	var bm Bitmap
	bm.InitWithSize(n)
	return &bm
}

func (n *Bitmap) InitWithSize(len int64) {
	n.len = len
	n.data = make([]uint64, (len+63)/64)
}

// InitWithData adopts a caller provided word array; the caller keeps
// ownership of the backing memory.
func (n *Bitmap) InitWithData(len int64, data []uint64) {
	n.len = len
	n.data = data
}

func (n *Bitmap) InitWith(other *Bitmap) {
	n.len = other.len
	n.data = append([]uint64(nil), other.data...)
}

func (n *Bitmap) Clone() *Bitmap {
	if n == nil {
		return nil
	}
	var ret Bitmap
	ret.InitWith(n)
	return &ret
}

func (n *Bitmap) Len() int64 {
	return n.len
}

func (n *Bitmap) Reset() {
	for i := range n.data {
		n.data[i] = 0
	}
}

// expand the bitmap to hold the given row if necessary.
func (n *Bitmap) TryExpandWithSize(size int64) {
	if size <= n.len {
		return
	}
	newCap := (size + 63) / 64
	n.len = size
	if newCap > int64(len(n.data)) {
		data := make([]uint64, newCap)
		copy(data, n.data)
		n.data = data
	}
}

func (n *Bitmap) Add(row uint64) {
	n.TryExpandWithSize(int64(row) + 1)
	n.data[row>>6] |= 1 << (row & 0x3F)
}

func (n *Bitmap) AddMany(rows []uint64) {
	for _, row := range rows {
		n.Add(row)
	}
}

func (n *Bitmap) Remove(row uint64) {
	if int64(row) >= n.len {
		return
	}
	n.data[row>>6] &^= 1 << (row & 0x3F)
}

func (n *Bitmap) Contains(row uint64) bool {
	if int64(row) >= n.len {
		return false
	}
	return (n.data[row>>6] & (1 << (row & 0x3F))) != 0
}

func (n *Bitmap) IsEmpty() bool {
	for i := range n.data {
		if n.data[i] != 0 {
			return false
		}
	}
	return true
}

func (n *Bitmap) Count() int {
	var cnt int
	for i := range n.data {
		cnt += bits.OnesCount64(n.data[i])
	}
	return cnt
}

// Or in-place unions two bitmaps of possibly different lengths.
func (n *Bitmap) Or(m *Bitmap) {
	n.TryExpandWithSize(m.len)
	for i := range m.data {
		n.data[i] |= m.data[i]
	}
}

func (n *Bitmap) Marshal() []byte {
	var buf bytes.Buffer
	buf.Write(types.EncodeInt64(&n.len))
	dataLen := int64(len(n.data) * 8)
	buf.Write(types.EncodeInt64(&dataLen))
	buf.Write(types.EncodeSlice(n.data))
	return buf.Bytes()
}

func (n *Bitmap) Unmarshal(data []byte) {
	n.len = types.DecodeInt64(data[:8])
	data = data[8:]
	dataLen := types.DecodeInt64(data[:8])
	data = data[8:]
	n.data = append([]uint64(nil), types.DecodeSlice[uint64](data[:dataLen])...)
}

func (n *Bitmap) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for i := int64(0); i < n.len; i++ {
		if n.Contains(uint64(i)) {
			if !first {
				buf.WriteByte(' ')
			}
			first = false
			buf.WriteString(strconv.FormatInt(i, 10))
		}
	}
	buf.WriteByte(']')
	return buf.String()
}
