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
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestForEach(t *testing.T) {
	a := lo.Range(10000)
	// multiple threads
	b := make([]int, len(a))
	ForEach(a, 4, func(i, v int) {
		b[i] = v
	})
	assert.Equal(t, a, b)
	// single thread keeps order
	var mu sync.Mutex
	var visited []int
	ForEach(a, 1, func(i, v int) {
		mu.Lock()
		defer mu.Unlock()
		visited = append(visited, i)
	})
	assert.Equal(t, a, visited)
}

func TestForEachWorkers(t *testing.T) {
	a := lo.Range(1000)
	var mu sync.Mutex
	seen := mapset.NewSet[int]()
	ForEach(a, 8, func(_ int, v int) {
		mu.Lock()
		defer mu.Unlock()
		seen.Add(v)
	})
	assert.Equal(t, 1000, seen.Cardinality())
}

func TestForEachPanic(t *testing.T) {
	a := lo.Range(100)
	var visited atomic.Int64
	assert.PanicsWithValue(t, "parallel worker panicked: bad element 10", func() {
		ForEach(a, 4, func(_ int, v int) {
			if v == 10 {
				panic(fmt.Sprintf("bad element %d", v))
			}
			visited.Add(1)
		})
	})
	assert.Less(t, visited.Load(), int64(100))

	// sequential mode raises the original value
	assert.PanicsWithValue(t, "bad element 0", func() {
		ForEach(a, 1, func(_ int, v int) {
			panic(fmt.Sprintf("bad element %d", v))
		})
	})
}

func TestForEachEmpty(t *testing.T) {
	called := false
	ForEach([]int{}, 4, func(int, int) { called = true })
	assert.False(t, called)
}
