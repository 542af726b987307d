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

package heap

import (
	"cmp"
	"container/heap"

	"golang.org/x/exp/constraints"
)

// Elem is a value with its weight.
type Elem[T cmp.Ordered, W constraints.Ordered] struct {
	Value  T
	Weight W
}

// less reports whether a ranks below b: lower weight, or equal weight and greater value.
func (a Elem[T, W]) less(b Elem[T, W]) bool {
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	return a.Value > b.Value
}

// _heap keeps the lowest ranked element on top.
type _heap[T cmp.Ordered, W constraints.Ordered] struct {
	elems []Elem[T, W]
}

func (h *_heap[T, W]) Len() int           { return len(h.elems) }
func (h *_heap[T, W]) Less(i, j int) bool { return h.elems[i].less(h.elems[j]) }
func (h *_heap[T, W]) Swap(i, j int)      { h.elems[i], h.elems[j] = h.elems[j], h.elems[i] }
func (h *_heap[T, W]) Push(x any)         { h.elems = append(h.elems, x.(Elem[T, W])) }

func (h *_heap[T, W]) Pop() any {
	old := h.elems
	n := len(old)
	x := old[n-1]
	h.elems = old[:n-1]
	return x
}

// TopKFilter filters out top k items with maximum weights. Ties are broken by the
// smaller value, so the result is deterministic.
type TopKFilter[T cmp.Ordered, W constraints.Ordered] struct {
	_heap[T, W]
	k int
}

// NewTopKFilter creates a top k filter.
func NewTopKFilter[T cmp.Ordered, W constraints.Ordered](k int) *TopKFilter[T, W] {
	return &TopKFilter[T, W]{k: k}
}

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Count().
func (filter *TopKFilter[T, W]) Push(item T, weight W) {
	if filter.k <= 0 {
		return
	}
	heap.Push(&filter._heap, Elem[T, W]{item, weight})
	if filter.Len() > filter.k {
		heap.Pop(&filter._heap)
	}
}

// PopAll pops all items in the filter with decreasing order.
func (filter *TopKFilter[T, W]) PopAll() []Elem[T, W] {
	elems := make([]Elem[T, W], filter.Len())
	for i := len(elems) - 1; i >= 0; i-- {
		elems[i] = heap.Pop(&filter._heap).(Elem[T, W])
	}
	return elems
}

// PopAllValues pops all values in the filter with decreasing order.
func (filter *TopKFilter[T, W]) PopAllValues() []T {
	elems := filter.PopAll()
	values := make([]T, len(elems))
	for i, elem := range elems {
		values[i] = elem.Value
	}
	return values
}
