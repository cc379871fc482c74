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

package pipeline

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/vm/process"
)

func TestHolderPublishOnce(t *testing.T) {
	var holder RuntimeFilterHolder
	require.False(t, holder.IsReady())
	require.Nil(t, holder.GetCollector())

	collector := NewRuntimeFilterCollector([]*colexec.InFilter{newInFilter([]int64{1})}, nil)
	holder.SetCollector(collector)
	require.True(t, holder.IsReady())
	require.Same(t, collector, holder.GetCollector())

	require.Panics(t, func() {
		holder.SetCollector(NewRuntimeFilterCollector(nil, nil))
	})
	require.Panics(t, func() {
		holder.SetCollector(nil)
	})
}

// every concurrent reader observes either nil or the exact installed
// pointer with its payload visible.
func TestHolderConcurrentReaders(t *testing.T) {
	const numReaders = 1000
	var holder RuntimeFilterHolder
	collector := NewRuntimeFilterCollector([]*colexec.InFilter{newInFilter([]int64{7, 8})}, nil)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for {
				c := holder.GetCollector()
				if c == nil {
					runtime.Gosched()
					continue
				}
				require.Same(t, collector, c)
				require.Len(t, c.GetInFilters(), 1)
				require.Equal(t, 2, c.GetInFilters()[0].Root().Cardinality())
				return
			}
		}()
	}

	close(start)
	time.Sleep(time.Millisecond)
	holder.SetCollector(collector)
	wg.Wait()
}

func TestHubHoldersAndClose(t *testing.T) {
	mp := mpool.MustNewZero("hub_test")
	proc := process.New(context.Background(), mp)

	hub := NewRuntimeFilterHub()
	hub.AddHolder(3)
	hub.AddHolder(7)

	holders := hub.GatherHolders([]int32{3, 7})
	require.Len(t, holders, 2)
	require.False(t, holders[0].IsReady())
	require.False(t, holders[1].IsReady())

	inFilter := newInFilter([]int64{1})
	hub.SetCollector(3, NewRuntimeFilterCollector([]*colexec.InFilter{inFilter}, nil))
	require.True(t, holders[0].IsReady())
	require.False(t, holders[1].IsReady())
	require.Empty(t, hub.GetBloomFilters(3))

	// close walks ready holders only; the unset holder is fine.
	hub.CloseAllInFilters(proc)
	require.True(t, inFilter.Closed())

	require.Panics(t, func() {
		hub.GatherHolders([]int32{99})
	})
}
