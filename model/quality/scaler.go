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

package quality

import (
	"fmt"
	"math"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

// StandardScaler standardizes features to zero mean and unit variance. It remembers
// the feature names it was fit on.
type StandardScaler struct {
	Features []string
	Mean     []float64
	Std      []float64
}

// Fit computes per-feature mean and population standard deviation. Constant features
// get a standard deviation of 1 so they pass through centered.
func (s *StandardScaler) Fit(features []string, x [][]float64) {
	s.Features = append([]string(nil), features...)
	s.Mean = make([]float64, len(features))
	s.Std = make([]float64, len(features))
	if len(x) == 0 {
		for j := range s.Std {
			s.Std[j] = 1
		}
		return
	}
	n := float64(len(x))
	for _, row := range x {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] < 1e-12 {
			s.Std[j] = 1
		}
	}
}

// Check rejects a feature list different from the one the scaler was fit on.
func (s *StandardScaler) Check(features []string) error {
	if len(features) != len(s.Features) {
		return errors.NotValidf("scaler fit on %d features, got %d", len(s.Features), len(features))
	}
	for i := range features {
		if features[i] != s.Features[i] {
			return errors.NotValidf("scaler feature %d is %q, got %q", i, s.Features[i], features[i])
		}
	}
	return nil
}

// Transform standardizes rows into float32 network inputs.
func (s *StandardScaler) Transform(x [][]float64) [][]float32 {
	return lo.Map(x, func(row []float64, i int) []float32 {
		if len(row) != len(s.Mean) {
			panic(fmt.Sprintf("row %d has %d features, expected %d", i, len(row), len(s.Mean)))
		}
		out := make([]float32, len(row))
		for j, v := range row {
			out[j] = float32((v - s.Mean[j]) / s.Std[j])
		}
		return out
	})
}
