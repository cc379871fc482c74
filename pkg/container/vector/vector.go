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
	"bytes"

	"github.com/orcadb/orca/pkg/common/bitmap"
	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/types"
)

// Vector represents a column of values of one type.  Fixed width
// values live in data, var-len values in varl.  The null bitmap marks
// rows whose value is NULL; for such rows the stored value is the
// zero value and must not be interpreted.
type Vector struct {
	typ    types.Type
	data   []byte
	varl   [][]byte
	nsp    *bitmap.Bitmap
	length int
}

func NewVec(typ types.Type) *Vector {
	return &Vector{
		typ: typ,
		nsp: &bitmap.Bitmap{},
	}
}

func (v *Vector) GetType() *types.Type {
	return &v.typ
}

func (v *Vector) Length() int {
	return v.length
}

func (v *Vector) GetNulls() *bitmap.Bitmap {
	return v.nsp
}

func (v *Vector) HasNull() bool {
	return v.nsp != nil && !v.nsp.IsEmpty()
}

func (v *Vector) IsNull(i int) bool {
	return v.nsp != nil && v.nsp.Contains(uint64(i))
}

// AppendFixed appends one fixed width value.
func AppendFixed[T types.FixedSizeT](v *Vector, val T, isNull bool, m *mpool.MPool) error {
	sz := v.typ.Oid.FixedLength()
	if sz <= 0 {
		return moerr.NewTypeMismatchNoCtx("append fixed value to %s vector", v.typ.Oid)
	}
	need := (v.length + 1) * sz
	if need > cap(v.data) {
		newCap := cap(v.data) * 2
		if newCap < need {
			newCap = need * 2
		}
		data, err := m.Grow(v.data[:len(v.data)], newCap)
		if err != nil {
			return err
		}
		v.data = data
	}
	v.data = v.data[:need]
	if isNull {
		var zero T
		val = zero
	}
	copy(v.data[v.length*sz:], types.EncodeFixed(val))
	if isNull {
		v.nsp.Add(uint64(v.length))
	}
	v.length++
	return nil
}

// AppendFixedList appends a batch of fixed width values, none null.
func AppendFixedList[T types.FixedSizeT](v *Vector, vals []T, m *mpool.MPool) error {
	for _, val := range vals {
		if err := AppendFixed(v, val, false, m); err != nil {
			return err
		}
	}
	return nil
}

// AppendBytes appends one var-len value.
func AppendBytes(v *Vector, val []byte, isNull bool, m *mpool.MPool) error {
	if v.typ.Oid.IsFixedLen() {
		return moerr.NewTypeMismatchNoCtx("append bytes to %s vector", v.typ.Oid)
	}
	var stored []byte
	if !isNull {
		bs, err := m.Alloc(len(val))
		if err != nil {
			return err
		}
		copy(bs, val)
		stored = bs
	}
	v.varl = append(v.varl, stored)
	if isNull {
		v.nsp.Add(uint64(v.length))
	}
	v.length++
	return nil
}

func (v *Vector) appendRawFixed(valBytes []byte, isNull bool, m *mpool.MPool) error {
	sz := v.typ.Oid.FixedLength()
	if sz <= 0 {
		return moerr.NewTypeMismatchNoCtx("append fixed value to %s vector", v.typ.Oid)
	}
	need := (v.length + 1) * sz
	if need > cap(v.data) {
		newCap := cap(v.data) * 2
		if newCap < need {
			newCap = need * 2
		}
		data, err := m.Grow(v.data[:len(v.data)], newCap)
		if err != nil {
			return err
		}
		v.data = data
	}
	v.data = v.data[:need]
	dst := v.data[v.length*sz:]
	if valBytes != nil {
		copy(dst, valBytes)
	} else {
		for i := range dst {
			dst[i] = 0
		}
	}
	if isNull {
		v.nsp.Add(uint64(v.length))
	}
	v.length++
	return nil
}

// UnionOne appends row of w to v.
func (v *Vector) UnionOne(w *Vector, row int, m *mpool.MPool) error {
	if v.typ.Oid != w.typ.Oid {
		return moerr.NewTypeMismatchNoCtx("union %s vector into %s vector", w.typ.Oid, v.typ.Oid)
	}
	if v.typ.Oid.IsFixedLen() {
		if w.IsNull(row) {
			return v.appendRawFixed(nil, true, m)
		}
		sz := v.typ.Oid.FixedLength()
		return v.appendRawFixed(w.data[row*sz:(row+1)*sz], false, m)
	}
	if w.IsNull(row) {
		return AppendBytes(v, nil, true, m)
	}
	return AppendBytes(v, w.varl[row], false, m)
}

// MustFixedCol returns the typed view over the fixed width data.
// Rows marked null hold the zero value.
func MustFixedCol[T types.FixedSizeT](v *Vector) []T {
	return types.DecodeSlice[T](v.data)[:v.length]
}

func (v *Vector) GetBytesAt(i int) []byte {
	return v.varl[i]
}

// EncodeKey returns the canonical byte encoding of row i, used as a
// hash or set key.  Null rows encode to nil.
func (v *Vector) EncodeKey(i int) []byte {
	if v.IsNull(i) {
		return nil
	}
	if sz := v.typ.Oid.FixedLength(); sz > 0 {
		return v.data[i*sz : (i+1)*sz]
	}
	return v.varl[i]
}

func (v *Vector) Free(m *mpool.MPool) {
	if v.data != nil {
		m.Free(v.data[:cap(v.data)])
		v.data = nil
	}
	for i := range v.varl {
		m.Free(v.varl[i])
	}
	v.varl = nil
	v.length = 0
	if v.nsp != nil {
		v.nsp.Reset()
	}
}

// MarshalBinary encodes the vector for the in-process message board.
// Format:
//
//	[oid:u8][length:i64][nspLen:i64][nsp][payload]
func (v *Vector) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(v.typ.Oid))
	l := int64(v.length)
	buf.Write(types.EncodeInt64(&l))
	nspData := v.nsp.Marshal()
	nspLen := int64(len(nspData))
	buf.Write(types.EncodeInt64(&nspLen))
	buf.Write(nspData)
	if v.typ.Oid.IsFixedLen() {
		dataLen := int64(len(v.data))
		buf.Write(types.EncodeInt64(&dataLen))
		buf.Write(v.data)
	} else {
		for i := 0; i < v.length; i++ {
			sz := int64(len(v.varl[i]))
			buf.Write(types.EncodeInt64(&sz))
			buf.Write(v.varl[i])
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a vector produced by MarshalBinary.  The
// result does not use pool accounting; it is a read-only view for the
// consuming side.
func (v *Vector) UnmarshalBinary(data []byte) error {
	if len(data) < 17 {
		return moerr.NewInvalidInputNoCtx("short vector encoding")
	}
	v.typ = types.T(data[0]).ToType()
	data = data[1:]
	v.length = int(types.DecodeInt64(data[:8]))
	data = data[8:]
	nspLen := types.DecodeInt64(data[:8])
	data = data[8:]
	v.nsp = &bitmap.Bitmap{}
	if nspLen > 0 {
		v.nsp.Unmarshal(data[:nspLen])
		data = data[nspLen:]
	}
	if v.typ.Oid.IsFixedLen() {
		dataLen := types.DecodeInt64(data[:8])
		data = data[8:]
		v.data = append([]byte(nil), data[:dataLen]...)
		return nil
	}
	v.varl = make([][]byte, 0, v.length)
	for i := 0; i < v.length; i++ {
		sz := types.DecodeInt64(data[:8])
		data = data[8:]
		v.varl = append(v.varl, append([]byte(nil), data[:sz]...))
		data = data[sz:]
	}
	return nil
}
