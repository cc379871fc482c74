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

package process

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/logutil"
	"github.com/orcadb/orca/pkg/vm/message"
)

const DefaultBatchSize = 8192

// Limitation caps resource usage of a query.
type Limitation struct {
	// Size is the memory threshold in bytes
	Size int64
	// BatchRows is the max rows for a batch
	BatchRows int64
	// BatchSize is the max size for a batch
	BatchSize int64
}

// BaseProcess is the query level state shared by all drivers of a
// query on one node.
type BaseProcess struct {
	Id           string
	Lim          Limitation
	UnixTime     int64
	mp           *mpool.MPool
	logger       *zap.Logger
	messageBoard *message.MessageBoard
}

// Process carries the runtime state an operator needs: the query
// context, the memory pool, the message board, logging.  One process
// per pipeline; drivers of the same query share the base.
type Process struct {
	Ctx    context.Context
	Cancel context.CancelFunc
	Base   *BaseProcess
}

func New(ctx context.Context, m *mpool.MPool) *Process {
	ctx, cancel := context.WithCancel(ctx)
	return &Process{
		Ctx:    ctx,
		Cancel: cancel,
		Base: &BaseProcess{
			Id:           uuid.NewString(),
			mp:           m,
			logger:       logutil.GetGlobalLogger(),
			messageBoard: message.NewMessageBoard(),
		},
	}
}

// NewFromProc derives a pipeline process sharing the base state.
func NewFromProc(proc *Process) *Process {
	ctx, cancel := context.WithCancel(proc.Ctx)
	return &Process{
		Ctx:    ctx,
		Cancel: cancel,
		Base:   proc.Base,
	}
}

func (proc *Process) QueryId() string {
	return proc.Base.Id
}

func (proc *Process) SetQueryId(id string) {
	proc.Base.Id = id
}

// fallback pool for expression evaluation without a proc (tests).
var xxxProcMp = mpool.MustNewZero("fallback_proc_mp")

func (proc *Process) GetMPool() *mpool.MPool {
	if proc == nil {
		return xxxProcMp
	}
	return proc.Base.mp
}

func (proc *Process) Mp() *mpool.MPool {
	return proc.GetMPool()
}

func (proc *Process) GetLim() Limitation {
	return proc.Base.Lim
}

func (proc *Process) GetMessageBoard() *message.MessageBoard {
	return proc.Base.messageBoard
}

func (proc *Process) SetMessageBoard(mb *message.MessageBoard) {
	proc.Base.messageBoard = mb
}

func (proc *Process) OperatorOutofMemory(size int64) bool {
	return proc.Mp().Cap() < size
}

func (proc *Process) sessionFields(fields []zap.Field) []zap.Field {
	return append(fields, logutil.QueryIdField(proc.Base.Id))
}

func (proc *Process) Info(msg string, fields ...zap.Field) {
	proc.Base.logger.Info(msg, proc.sessionFields(fields)...)
}

func (proc *Process) Error(msg string, fields ...zap.Field) {
	proc.Base.logger.Error(msg, proc.sessionFields(fields)...)
}

func (proc *Process) Warn(msg string, fields ...zap.Field) {
	proc.Base.logger.Warn(msg, proc.sessionFields(fields)...)
}

func (proc *Process) Debug(msg string, fields ...zap.Field) {
	proc.Base.logger.Debug(msg, proc.sessionFields(fields)...)
}
