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
	"bytes"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/orcadb/orca/pkg/common/bloomfilter"
	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/types"
	"github.com/orcadb/orca/pkg/container/vector"
)

// Kind selects the representation of a merged runtime filter.
type Kind int32

const (
	KindBloom Kind = iota
	// KindBitmap is an exact membership bitmap; only integer build
	// keys support it.
	KindBitmap
)

// JoinMode tells a filter how the join distributed its build side,
// which decides how the probe side may apply it.
type JoinMode int32

const (
	JoinModeBroadcast JoinMode = iota
	JoinModeShuffle
	JoinModeColocate
)

const defaultProbability = 0.01

// JoinRuntimeFilter is a constructed runtime filter ready to take
// build keys and answer probe membership.  Implementations are not
// safe for concurrent mutation; only the last arriving builder writes.
type JoinRuntimeFilter interface {
	Kind() Kind

	// Init sizes the filter for the expected build row count.
	Init(rowCount int64) error

	SetJoinMode(mode JoinMode)
	JoinMode() JoinMode

	// SetHasNull records that the build side contained NULL keys under
	// null-safe equality.
	SetHasNull(b bool)
	HasNull() bool

	// AddKey inserts one canonical encoded key.
	AddKey(key []byte) error
	// TestKey probes one canonical encoded key.
	TestKey(key []byte) bool

	// Evaluate probes every row of a column; null rows match only when
	// the filter saw nulls under null-safe equality.
	Evaluate(v *vector.Vector, callBack func(bool, int))

	// Marshal encodes the filter for the runtime filter message.
	Marshal() ([]byte, error)

	Clean(m *mpool.MPool)
}

// Create constructs an empty filter of the given kind over the given
// build key type.  Returns nil for kind/type combinations that have
// no representation; runtime filters are optional, the caller skips.
func Create(m *mpool.MPool, kind Kind, typ types.T) JoinRuntimeFilter {
	return CreateWithProbability(m, kind, typ, defaultProbability)
}

func CreateWithProbability(m *mpool.MPool, kind Kind, typ types.T, probability float64) JoinRuntimeFilter {
	switch kind {
	case KindBloom:
		return &bloomRuntimeFilter{mp: m, probability: probability}
	case KindBitmap:
		if !typ.IsInteger() {
			return nil
		}
		return &bitmapRuntimeFilter{typ: typ}
	default:
		return nil
	}
}

// Fill inserts the rows of a build key column into the filter,
// starting at the row offset.  NULL keys are never inserted; with
// null-safe equality their presence is recorded instead.  Any failure
// leaves the filter unusable and the caller discards it.
func Fill(column *vector.Vector, typ types.T, filter JoinRuntimeFilter, offset int, eqNull bool) error {
	if filter == nil {
		return moerr.NewInternalErrorNoCtx("fill nil runtime filter")
	}
	if column == nil {
		return moerr.NewInternalErrorNoCtx("fill runtime filter from nil column")
	}
	if column.GetType().Oid != typ {
		return moerr.NewTypeMismatchNoCtx("fill %s runtime filter from %s column", typ, column.GetType().Oid)
	}
	length := column.Length()
	for i := offset; i < length; i++ {
		if column.IsNull(i) {
			if eqNull {
				filter.SetHasNull(true)
			}
			continue
		}
		if err := filter.AddKey(column.EncodeKey(i)); err != nil {
			return err
		}
	}
	return nil
}

// bloomRuntimeFilter backs the common case: any key type, approximate
// membership.
type bloomRuntimeFilter struct {
	mp          *mpool.MPool
	probability float64
	filter      *bloomfilter.BloomFilter
	joinMode    JoinMode
	hasNull     bool
}

func (f *bloomRuntimeFilter) Kind() Kind {
	return KindBloom
}

func (f *bloomRuntimeFilter) Init(rowCount int64) error {
	bf, err := bloomfilter.NewWithPool(rowCount, f.probability, f.mp)
	if err != nil {
		return err
	}
	f.filter = bf
	return nil
}

func (f *bloomRuntimeFilter) SetJoinMode(mode JoinMode) {
	f.joinMode = mode
}

func (f *bloomRuntimeFilter) JoinMode() JoinMode {
	return f.joinMode
}

func (f *bloomRuntimeFilter) SetHasNull(b bool) {
	f.hasNull = b
}

func (f *bloomRuntimeFilter) HasNull() bool {
	return f.hasNull
}

func (f *bloomRuntimeFilter) AddKey(key []byte) error {
	if f.filter == nil {
		return moerr.NewInvalidStateNoCtx("add key to uninitialized bloom runtime filter")
	}
	f.filter.AddKey(key)
	return nil
}

func (f *bloomRuntimeFilter) TestKey(key []byte) bool {
	return f.filter.TestKey(key)
}

func (f *bloomRuntimeFilter) Evaluate(v *vector.Vector, callBack func(bool, int)) {
	length := v.Length()
	for i := 0; i < length; i++ {
		if v.IsNull(i) {
			callBack(f.hasNull, i)
			continue
		}
		callBack(f.filter.TestKey(v.EncodeKey(i)), i)
	}
}

// bloom filter message layout: [joinMode:i32][hasNull:u8][bloom bytes]
func (f *bloomRuntimeFilter) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	mode := int32(f.joinMode)
	buf.Write(types.EncodeInt32(&mode))
	if f.hasNull {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	bloomData, err := f.filter.Marshal()
	if err != nil {
		return nil, err
	}
	buf.Write(bloomData)
	return buf.Bytes(), nil
}

func (f *bloomRuntimeFilter) Clean(m *mpool.MPool) {
	if f.filter != nil {
		f.filter.Clean(m)
		f.filter = nil
	}
}

// UnmarshalBloom rebuilds a bloom runtime filter from message bytes.
func UnmarshalBloom(data []byte) (JoinRuntimeFilter, error) {
	if len(data) < 5 {
		return nil, moerr.NewInvalidInputNoCtx("short bloom runtime filter encoding")
	}
	f := &bloomRuntimeFilter{probability: defaultProbability}
	f.joinMode = JoinMode(types.DecodeInt32(data[:4]))
	f.hasNull = data[4] != 0
	var bf bloomfilter.BloomFilter
	if err := bf.Unmarshal(data[5:]); err != nil {
		return nil, err
	}
	f.filter = &bf
	return f, nil
}

// bitmapRuntimeFilter is an exact filter over integer keys using a
// compressed bitmap.
type bitmapRuntimeFilter struct {
	typ      types.T
	bitmap   *roaring64.Bitmap
	joinMode JoinMode
	hasNull  bool
}

func (f *bitmapRuntimeFilter) Kind() Kind {
	return KindBitmap
}

func (f *bitmapRuntimeFilter) Init(rowCount int64) error {
	f.bitmap = roaring64.NewBitmap()
	return nil
}

func (f *bitmapRuntimeFilter) SetJoinMode(mode JoinMode) {
	f.joinMode = mode
}

func (f *bitmapRuntimeFilter) JoinMode() JoinMode {
	return f.joinMode
}

func (f *bitmapRuntimeFilter) SetHasNull(b bool) {
	f.hasNull = b
}

func (f *bitmapRuntimeFilter) HasNull() bool {
	return f.hasNull
}

// decodeIntegerKey maps an encoded integer key to the bitmap domain.
// Signed values reinterpret as uint64; both sides of the join use the
// same mapping so membership is preserved.
func decodeIntegerKey(typ types.T, key []byte) (uint64, error) {
	switch typ {
	case types.T_int8:
		return uint64(types.DecodeFixed[int8](key)), nil
	case types.T_int16:
		return uint64(types.DecodeFixed[int16](key)), nil
	case types.T_int32:
		return uint64(types.DecodeFixed[int32](key)), nil
	case types.T_int64:
		return uint64(types.DecodeFixed[int64](key)), nil
	case types.T_uint8:
		return uint64(types.DecodeFixed[uint8](key)), nil
	case types.T_uint16:
		return uint64(types.DecodeFixed[uint16](key)), nil
	case types.T_uint32:
		return uint64(types.DecodeFixed[uint32](key)), nil
	case types.T_uint64:
		return types.DecodeFixed[uint64](key), nil
	default:
		return 0, moerr.NewTypeMismatchNoCtx("bitmap runtime filter over %s", typ)
	}
}

func (f *bitmapRuntimeFilter) AddKey(key []byte) error {
	if f.bitmap == nil {
		return moerr.NewInvalidStateNoCtx("add key to uninitialized bitmap runtime filter")
	}
	v, err := decodeIntegerKey(f.typ, key)
	if err != nil {
		return err
	}
	f.bitmap.Add(v)
	return nil
}

func (f *bitmapRuntimeFilter) TestKey(key []byte) bool {
	v, err := decodeIntegerKey(f.typ, key)
	if err != nil {
		return true
	}
	return f.bitmap.Contains(v)
}

func (f *bitmapRuntimeFilter) Evaluate(v *vector.Vector, callBack func(bool, int)) {
	length := v.Length()
	for i := 0; i < length; i++ {
		if v.IsNull(i) {
			callBack(f.hasNull, i)
			continue
		}
		callBack(f.TestKey(v.EncodeKey(i)), i)
	}
}

// bitmap filter message layout: [joinMode:i32][hasNull:u8][typ:u8][roaring bytes]
func (f *bitmapRuntimeFilter) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	mode := int32(f.joinMode)
	buf.Write(types.EncodeInt32(&mode))
	if f.hasNull {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteByte(byte(f.typ))
	if _, err := f.bitmap.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *bitmapRuntimeFilter) Clean(m *mpool.MPool) {
	f.bitmap = nil
}

// UnmarshalBitmap rebuilds a bitmap runtime filter from message bytes.
func UnmarshalBitmap(data []byte) (JoinRuntimeFilter, error) {
	if len(data) < 6 {
		return nil, moerr.NewInvalidInputNoCtx("short bitmap runtime filter encoding")
	}
	f := &bitmapRuntimeFilter{}
	f.joinMode = JoinMode(types.DecodeInt32(data[:4]))
	f.hasNull = data[4] != 0
	f.typ = types.T(data[5])
	f.bitmap = roaring64.NewBitmap()
	if _, err := f.bitmap.ReadFrom(bytes.NewReader(data[6:])); err != nil {
		return nil, moerr.NewInvalidInputNoCtx("decode bitmap runtime filter: %v", err)
	}
	return f, nil
}
