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
	"fmt"
)

const (
	// 0 - 99 is OK.  They do not contain info; no Error is built for
	// them, a nil error stands for Ok (see IsMoErrCode).
	Ok uint16 = 0

	OkMax uint16 = 99

	// Group 1: Internal errors
	ErrStart            uint16 = 20100
	ErrInternal         uint16 = 20101
	ErrNYI              uint16 = 20102
	ErrOOM              uint16 = 20103
	ErrQueryInterrupted uint16 = 20104
	ErrNotSupported     uint16 = 20105

	// Group 2: numeric and functions
	ErrDivByZero  uint16 = 20200
	ErrOutOfRange uint16 = 20201
	ErrInvalidArg uint16 = 20203

	// Group 3: invalid input
	ErrBadConfig    uint16 = 20300
	ErrInvalidInput uint16 = 20301

	// Group 4: unexpected state
	ErrInvalidState uint16 = 20400
	ErrEmptyVector  uint16 = 20404
	ErrTypeMismatch uint16 = 20405
)

type errorItem struct {
	sqlState string
	errorMsg string
}

var errorMsgRefer = map[uint16]errorItem{
	ErrInternal:         {"HY000", "internal error: %s"},
	ErrNYI:              {"HY000", "%s is not yet implemented"},
	ErrOOM:              {"HY001", "out of memory"},
	ErrQueryInterrupted: {"70100", "query interrupted"},
	ErrNotSupported:     {"HY000", "%s is not supported"},
	ErrDivByZero:        {"22012", "division by zero"},
	ErrOutOfRange:       {"22003", "data out of range: data type %s, %s"},
	ErrInvalidArg:       {"HY000", "invalid argument %s, bad value %s"},
	ErrBadConfig:        {"HY000", "invalid configuration: %s"},
	ErrInvalidInput:     {"22000", "invalid input: %s"},
	ErrInvalidState:     {"HY000", "invalid state %s"},
	ErrEmptyVector:      {"HY000", "vector is empty"},
	ErrTypeMismatch:     {"22000", "type mismatch: %s"},
}

// Error is the standard error of the system.  Do not construct it
// directly, use one of the New functions below so the error carries
// a well known error code.
type Error struct {
	code     uint16
	sqlState string
	message  string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) SqlState() string {
	return e.sqlState
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}

// IsMoErrCode checks if the error is an Error carrying the given code.
func IsMoErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}
	me, ok := e.(*Error)
	if !ok {
		return false
	}
	return me.code == rc
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	item, has := errorMsgRefer[code]
	if !has {
		panic(fmt.Errorf("not exist MOErrorCode: %d", code))
	}
	var msg string
	if len(args) == 0 {
		msg = item.errorMsg
	} else {
		msg = fmt.Sprintf(item.errorMsg, args...)
	}
	_ = ctx
	return &Error{code: code, sqlState: item.sqlState, message: msg}
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInternal, fmt.Sprintf(msg, args...))
}

func NewInternalErrorNoCtx(msg string, args ...any) *Error {
	return newError(context.Background(), ErrInternal, fmt.Sprintf(msg, args...))
}

func NewNYI(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrNYI, fmt.Sprintf(msg, args...))
}

func NewNotSupported(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrNotSupported, fmt.Sprintf(msg, args...))
}

func NewOOM(ctx context.Context) *Error {
	return newError(ctx, ErrOOM)
}

func NewOOMNoCtx() *Error {
	return newError(context.Background(), ErrOOM)
}

func NewQueryInterrupted(ctx context.Context) *Error {
	return newError(ctx, ErrQueryInterrupted)
}

func NewInvalidArg(ctx context.Context, arg string, val any) *Error {
	return newError(ctx, ErrInvalidArg, arg, fmt.Sprintf("%v", val))
}

func NewBadConfig(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrBadConfig, fmt.Sprintf(msg, args...))
}

func NewInvalidInput(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInvalidInput, fmt.Sprintf(msg, args...))
}

func NewInvalidInputNoCtx(msg string, args ...any) *Error {
	return newError(context.Background(), ErrInvalidInput, fmt.Sprintf(msg, args...))
}

func NewInvalidState(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrInvalidState, fmt.Sprintf(msg, args...))
}

func NewInvalidStateNoCtx(msg string, args ...any) *Error {
	return newError(context.Background(), ErrInvalidState, fmt.Sprintf(msg, args...))
}

func NewEmptyVector(ctx context.Context) *Error {
	return newError(ctx, ErrEmptyVector)
}

func NewTypeMismatch(ctx context.Context, msg string, args ...any) *Error {
	return newError(ctx, ErrTypeMismatch, fmt.Sprintf(msg, args...))
}

func NewTypeMismatchNoCtx(msg string, args ...any) *Error {
	return newError(context.Background(), ErrTypeMismatch, fmt.Sprintf(msg, args...))
}

// ConvertPanicError converts a runtime panic to an internal error.
func ConvertPanicError(ctx context.Context, v any) *Error {
	if err, ok := v.(*Error); ok {
		return err
	}
	return newError(ctx, ErrInternal, fmt.Sprintf("panic %v", v))
}
