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

package logics

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/roadmap/dataset"
)

// ParseTags parses a comma separated tag list into a set of lower-cased tags.
func ParseTags(raw string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(dataset.SplitTags(raw)...)
}

// Similarity returns the fraction of item tags covered by the closure. It is 0 when
// either set is empty.
func Similarity(itemTags, closure mapset.Set[string]) float64 {
	if itemTags.Cardinality() == 0 || closure.Cardinality() == 0 {
		return 0
	}
	var covered int
	for tag := range itemTags.Iter() {
		if closure.Contains(tag) {
			covered++
		}
	}
	return float64(covered) / float64(itemTags.Cardinality())
}
