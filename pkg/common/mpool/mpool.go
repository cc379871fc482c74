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

package mpool

import (
	"sync/atomic"

	"github.com/orcadb/orca/pkg/common/moerr"
)

// Mo's extremely simple memory pool.  It tracks the number of bytes
// handed out so that operator tests can assert every allocation was
// returned, and enforces an optional cap.  Alloc'ed buffers come from
// the Go heap; the pool only does accounting.
type MPool struct {
	name   string
	cap    int64 // 0 means no limit
	currNB atomic.Int64
	allocs atomic.Int64
}

// PB, kB, MB, GB
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// NoLimit caps.
const NoLimit int64 = 0

func MustNewZero(name string) *MPool {
	return &MPool{name: name}
}

func MustNew(name string, cap int64) *MPool {
	return &MPool{name: name, cap: cap}
}

func (m *MPool) Name() string {
	return m.name
}

// CurrNB returns the number of bytes currently allocated from the pool.
func (m *MPool) CurrNB() int64 {
	return m.currNB.Load()
}

func (m *MPool) Cap() int64 {
	if m.cap == NoLimit {
		return int64(^uint64(0) >> 1)
	}
	return m.cap
}

func (m *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInternalErrorNoCtx("mpool %s alloc size %d", m.name, sz)
	}
	if sz == 0 {
		return nil, nil
	}
	if curr := m.currNB.Add(int64(sz)); m.cap != NoLimit && curr > m.cap {
		m.currNB.Add(-int64(sz))
		return nil, moerr.NewOOMNoCtx()
	}
	m.allocs.Add(1)
	return make([]byte, sz), nil
}

func (m *MPool) Free(bs []byte) {
	if bs == nil {
		return
	}
	m.currNB.Add(-int64(cap(bs)))
}

// Grow reallocates bs to the new size, keeping the accounting straight.
func (m *MPool) Grow(bs []byte, sz int) ([]byte, error) {
	if sz <= cap(bs) {
		return bs[:sz], nil
	}
	nbs, err := m.Alloc(sz)
	if err != nil {
		return nil, err
	}
	copy(nbs, bs)
	m.Free(bs)
	return nbs, nil
}
