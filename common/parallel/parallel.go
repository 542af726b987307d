// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parallel

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ForEach calls worker for every element of a. Elements are claimed by nWorkers
// goroutines in index order; with nWorkers <= 1 they are visited in order on the
// calling goroutine. A panic in a worker stops the remaining elements from being
// claimed and is raised again on the caller once every worker has returned.
func ForEach[T any](a []T, nWorkers int, worker func(int, T)) {
	if nWorkers <= 1 {
		for i, v := range a {
			worker(i, v)
		}
		return
	}
	var (
		next      atomic.Int64
		stopped   atomic.Bool
		panicOnce sync.Once
		panicked  any
		wg        sync.WaitGroup
	)
	for range min(nWorkers, len(a)) {
		wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					stopped.Store(true)
					panicOnce.Do(func() { panicked = r })
				}
			}()
			for !stopped.Load() {
				i := int(next.Add(1) - 1)
				if i >= len(a) {
					return
				}
				worker(i, a[i])
			}
		})
	}
	wg.Wait()
	if panicked != nil {
		panic(fmt.Sprintf("parallel worker panicked: %v", panicked))
	}
}
