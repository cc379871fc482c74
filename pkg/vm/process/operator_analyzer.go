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
	"sync/atomic"
	"time"
)

// Analyzer collects per-operator execution statistics for the query
// profile.
type Analyzer struct {
	name string

	inputRows  atomic.Int64
	outputRows atomic.Int64
	allocBytes atomic.Int64
	timeNS     atomic.Int64
}

func NewAnalyzer(name string) *Analyzer {
	return &Analyzer{name: name}
}

func (a *Analyzer) Reset() {
	a.inputRows.Store(0)
	a.outputRows.Store(0)
	a.allocBytes.Store(0)
	a.timeNS.Store(0)
}

func (a *Analyzer) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

func (a *Analyzer) Input(rows int) {
	if a != nil {
		a.inputRows.Add(int64(rows))
	}
}

func (a *Analyzer) Output(rows int) {
	if a != nil {
		a.outputRows.Add(int64(rows))
	}
}

func (a *Analyzer) Alloc(size int64) {
	if a != nil {
		a.allocBytes.Add(size)
	}
}

func (a *Analyzer) AddDuration(d time.Duration) {
	if a != nil {
		a.timeNS.Add(int64(d))
	}
}

func (a *Analyzer) InputRows() int64 {
	return a.inputRows.Load()
}

func (a *Analyzer) OutputRows() int64 {
	return a.outputRows.Load()
}

func (a *Analyzer) AllocBytes() int64 {
	return a.allocBytes.Load()
}
