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

package util

import (
	"math"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// ParseFloat parses a decimal string with the precision of T. Blank strings parse as zero.
func ParseFloat[T constraints.Float](s string) (T, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	var zero T
	v, err := strconv.ParseFloat(s, int(unsafe.Sizeof(zero))*8)
	return T(v), err
}

// Round rounds x to the given number of decimal places.
func Round[T constraints.Float](x T, places int) T {
	scale := math.Pow(10, float64(places))
	return T(math.Round(float64(x)*scale) / scale)
}

// Clip limits x to [low, high].
func Clip[T constraints.Float | constraints.Integer](x, low, high T) T {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}
