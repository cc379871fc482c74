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

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/orcadb/orca/pkg/common/moerr"
	"github.com/orcadb/orca/pkg/vm"
	"github.com/orcadb/orca/pkg/vm/process"
)

// Driver is one parallel instance of a pipeline: a root operator and
// the process it runs with.
type Driver struct {
	Op   vm.Operator
	Proc *process.Process
}

// DriverRunner schedules pipeline drivers on a fixed worker pool.
// Builders of the same plan node run from distinct workers and may
// finish in any order.
type DriverRunner struct {
	pool *ants.Pool
}

func NewDriverRunner(parallelism int) (*DriverRunner, error) {
	pool, err := ants.NewPool(parallelism)
	if err != nil {
		return nil, moerr.NewInternalErrorNoCtx("new driver pool: %v", err)
	}
	return &DriverRunner{pool: pool}, nil
}

func (r *DriverRunner) Release() {
	r.pool.Release()
}

// RunDrivers runs every driver to completion and returns the first
// error.  A cancelled context stops drivers between operator calls;
// work already handed to the merger is not undone, and a builder
// cancelled before posting its partial filter simply leaves the
// holder empty.
func (r *DriverRunner) RunDrivers(ctx context.Context, drivers []Driver) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range drivers {
		driver := drivers[i]
		done := make(chan error, 1)
		if err := r.pool.Submit(func() {
			done <- runDriver(ctx, driver)
		}); err != nil {
			return moerr.NewInternalErrorNoCtx("submit driver: %v", err)
		}
		g.Go(func() error {
			return <-done
		})
	}
	return g.Wait()
}

func runDriver(ctx context.Context, driver Driver) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = moerr.ConvertPanicError(driver.Proc.Ctx, e)
		}
	}()

	if err = driver.Op.Prepare(driver.Proc); err != nil {
		driver.Op.Free(driver.Proc, true, err)
		return err
	}
	for {
		select {
		case <-ctx.Done():
			err = moerr.NewQueryInterrupted(driver.Proc.Ctx)
			driver.Op.Free(driver.Proc, true, err)
			return err
		default:
		}

		result, callErr := driver.Op.Call(driver.Proc)
		if callErr != nil {
			driver.Op.Free(driver.Proc, true, callErr)
			return callErr
		}
		if result.Status == vm.ExecStop {
			driver.Op.Free(driver.Proc, false, nil)
			return nil
		}
	}
}
