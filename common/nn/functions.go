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

package nn

// MeanSquareError returns mean((yPred - y)^2) / 2 and its gradient with respect to yPred.
func MeanSquareError(yPred, y *Matrix) (float32, *Matrix) {
	grad := NewMatrix(yPred.Rows, yPred.Cols)
	if len(yPred.Data) == 0 {
		return 0, grad
	}
	n := float32(len(yPred.Data))
	var sum float32
	for i := range yPred.Data {
		d := yPred.Data[i] - y.Data[i]
		sum += d * d
		grad.Data[i] = d / n
	}
	return sum / n / 2, grad
}
