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

package types

import "fmt"

type T uint8

const (
	// any family
	T_any T = 0

	// numeric/integer family
	T_bool    T = 10
	T_int8    T = 20
	T_int16   T = 21
	T_int32   T = 22
	T_int64   T = 23
	T_uint8   T = 24
	T_uint16  T = 25
	T_uint32  T = 26
	T_uint64  T = 27
	T_float32 T = 30
	T_float64 T = 31

	// string family
	T_char    T = 40
	T_varchar T = 41
	T_text    T = 42
)

// Type describes type of a value.
type Type struct {
	Oid   T
	Size  int32
	Width int32
	Scale int32
}

func New(oid T, width, scale int32) Type {
	return Type{Oid: oid, Size: int32(oid.FixedLength()), Width: width, Scale: scale}
}

func (t T) ToType() Type {
	return Type{Oid: t, Size: int32(t.FixedLength())}
}

// FixedLength returns the byte width of a fixed-size type, or -1 for
// var-len types.
func (t T) FixedLength() int {
	switch t {
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32:
		return 4
	case T_int64, T_uint64, T_float64:
		return 8
	case T_char, T_varchar, T_text:
		return -1
	default:
		return 0
	}
}

func (t T) IsFixedLen() bool {
	return t.FixedLength() > 0
}

func (t T) IsInteger() bool {
	switch t {
	case T_int8, T_int16, T_int32, T_int64, T_uint8, T_uint16, T_uint32, T_uint64:
		return true
	}
	return false
}

func (t T) IsUnsignedInt() bool {
	switch t {
	case T_uint8, T_uint16, T_uint32, T_uint64:
		return true
	}
	return false
}

func (t Type) String() string {
	return t.Oid.String()
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	case T_text:
		return "TEXT"
	}
	return fmt.Sprintf("unexpected type: %d", t)
}
