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

package hashbuild

import (
	hll "github.com/axiomhq/hyperloglog"
)

// keyCollector tracks the distinct keys of one join key column of one
// partition.  The exact set feeds the IN-filter; the sketch gives a
// cheap cardinality estimate that cuts the exact set loose early on
// partitions far above the limit.  The estimate can only force the
// "no IN-filter" outcome, which is always sound.
type keyCollector struct {
	limit int64

	sketch     *hll.Sketch
	keys       map[string]struct{}
	overflowed bool
}

func newKeyCollector(limit int64) *keyCollector {
	return &keyCollector{
		limit:  limit,
		sketch: hll.New(),
		keys:   make(map[string]struct{}),
	}
}

func (kc *keyCollector) Add(key []byte) {
	kc.sketch.Insert(key)
	if kc.overflowed {
		return
	}
	if _, ok := kc.keys[string(key)]; ok {
		return
	}
	if int64(len(kc.keys)) >= kc.limit || int64(kc.sketch.Estimate()) > 2*kc.limit {
		kc.overflowed = true
		kc.keys = nil
		return
	}
	kc.keys[string(key)] = struct{}{}
}

func (kc *keyCollector) Overflowed() bool {
	return kc.overflowed
}

func (kc *keyCollector) DistinctCount() int {
	return len(kc.keys)
}

func (kc *keyCollector) Estimate() uint64 {
	return kc.sketch.Estimate()
}
