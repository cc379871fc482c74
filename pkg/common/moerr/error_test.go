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

package moerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()

	err := NewInternalError(ctx, "boom %d", 42)
	require.Equal(t, ErrInternal, err.ErrorCode())
	require.Contains(t, err.Error(), "boom 42")
	require.Equal(t, "HY000", err.SqlState())

	require.True(t, IsMoErrCode(err, ErrInternal))
	require.False(t, IsMoErrCode(err, ErrInvalidInput))
	require.True(t, IsMoErrCode(nil, Ok))
	require.False(t, IsMoErrCode(errors.New("other"), ErrInternal))

	require.Equal(t, ErrInvalidState, NewInvalidStateNoCtx("x").ErrorCode())
	require.Equal(t, ErrTypeMismatch, NewTypeMismatchNoCtx("x").ErrorCode())
	require.Equal(t, ErrOOM, NewOOMNoCtx().ErrorCode())
	require.Equal(t, ErrBadConfig, NewBadConfig(ctx, "x").ErrorCode())
}

func TestErrorIs(t *testing.T) {
	a := NewInvalidInputNoCtx("a")
	b := NewInvalidInputNoCtx("b")
	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, NewInternalErrorNoCtx("c")))
}

func TestConvertPanicError(t *testing.T) {
	ctx := context.Background()

	err := ConvertPanicError(ctx, "something broke")
	require.Equal(t, ErrInternal, err.ErrorCode())
	require.Contains(t, err.Error(), "something broke")

	orig := NewQueryInterrupted(ctx)
	require.Same(t, orig, ConvertPanicError(ctx, orig))
}
