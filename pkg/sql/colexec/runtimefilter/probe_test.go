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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcadb/orca/pkg/common/mpool"
	"github.com/orcadb/orca/pkg/container/types"
	"github.com/orcadb/orca/pkg/sql/colexec"
	"github.com/orcadb/orca/pkg/vm/process"
)

func TestProbeCollectorLifecycle(t *testing.T) {
	mp := mpool.MustNewZero("probe_lifecycle_test")
	proc := process.New(context.Background(), mp)

	pc := NewProbeCollector()
	pc.AddDescriptor(NewProbeDescriptor(1, colexec.NewColumnRef(1, 0, types.T_int64)))
	pc.AddDescriptor(NewProbeDescriptor(2, colexec.NewColumnRef(1, 1, types.T_int64)))
	require.Len(t, pc.Descriptors(), 2)
	require.NotNil(t, pc.GetDescriptor(2))
	require.Nil(t, pc.GetDescriptor(99))

	require.Error(t, pc.Open(proc))

	rowDesc := colexec.RowDescriptor{TupleIDs: []int32{1}}
	require.NoError(t, pc.Prepare(proc, rowDesc, nil))
	require.Error(t, pc.Prepare(proc, rowDesc, nil))
	require.NoError(t, pc.Open(proc))

	pc.Close(proc)
	pc.Close(proc)
	require.Equal(t, int32(1), pc.CloseCalls())
}

func TestProbeCollectorPrepareValidation(t *testing.T) {
	mp := mpool.MustNewZero("probe_validate_test")
	proc := process.New(context.Background(), mp)

	pc := NewProbeCollector()
	pc.AddDescriptor(NewProbeDescriptor(1, colexec.NewColumnRef(7, 0, types.T_int64)))

	// a descriptor bound to a tuple the row does not carry is a
	// planner bug.
	err := pc.Prepare(proc, colexec.RowDescriptor{TupleIDs: []int32{1, 2}}, nil)
	require.Error(t, err)
}

func TestProbeDescriptorInstallFilter(t *testing.T) {
	mp := mpool.MustNewZero("probe_install_test")

	d := NewProbeDescriptor(1, colexec.NewColumnRef(1, 0, types.T_int64))
	require.Nil(t, d.Filter())

	// nil installs are ignored: an abandoned filter leaves the probe
	// unfiltered.
	d.InstallFilter(nil)
	require.Nil(t, d.Filter())

	f := Create(mp, KindBloom, types.T_int64)
	require.NoError(t, f.Init(10))
	d.InstallFilter(f)
	require.Equal(t, f, d.Filter())

	f.Clean(mp)
}
