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

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func randomMatrix(rng *rand.Rand, rows, cols int) *Matrix {
	m := NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = float32(rng.NormFloat64())
	}
	return m
}

func TestMatrix(t *testing.T) {
	m := NewMatrixFromRows([][]float32{{1, 2}, {3, 4}, {5, 6}})
	assert.Equal(t, 3, m.Rows)
	assert.Equal(t, 2, m.Cols)
	assert.Equal(t, []float32{3, 4}, m.Row(1))
	assert.Equal(t, float32(6), m.At(2, 1))
	g := m.Gather([]int{2, 0})
	assert.Equal(t, []float32{5, 6, 1, 2}, g.Data)
	assert.Panics(t, func() {
		NewMatrixFromRows([][]float32{{1, 2}, {3}})
	})
}

func TestLinearRegression(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	x := NewMatrix(100, 1)
	y := NewMatrix(100, 1)
	for i := 0; i < 100; i++ {
		x.Data[i] = rng.Float32()
		y.Data[i] = 2*x.Data[i] + 5
	}

	linear := NewLinear(1, 1, rng)
	optimizer := NewSGD(linear.Parameters(), 0.1)
	for i := 0; i < 3000; i++ {
		yPred := linear.Forward(x)
		_, grad := MeanSquareError(yPred, y)
		optimizer.ZeroGrad()
		linear.Backward(grad)
		optimizer.Step()
	}

	assert.InDelta(t, float64(2), linear.W.Data[0], 0.1)
	assert.InDelta(t, float64(5), linear.B.Data[0], 0.1)
}

func TestGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	model := NewSequential(NewLinear(3, 4, rng), NewReLU(), NewLinear(4, 1, rng))
	x := randomMatrix(rng, 5, 3)
	y := randomMatrix(rng, 5, 1)

	_, grad := MeanSquareError(model.Forward(x), y)
	for _, p := range model.Parameters() {
		clear(p.Grad)
	}
	model.Backward(grad)

	const eps = 1e-3
	for _, p := range model.Parameters() {
		for i := range p.Data {
			origin := p.Data[i]
			p.Data[i] = origin + eps
			lossPlus, _ := MeanSquareError(model.Forward(x), y)
			p.Data[i] = origin - eps
			lossMinus, _ := MeanSquareError(model.Forward(x), y)
			p.Data[i] = origin
			numeric := (lossPlus - lossMinus) / (2 * eps)
			assert.InDelta(t, numeric, p.Grad[i], 1e-2)
		}
	}
}

func TestMeanSquareError(t *testing.T) {
	yPred := NewMatrixFromRows([][]float32{{1}, {2}})
	y := NewMatrixFromRows([][]float32{{0}, {4}})
	loss, grad := MeanSquareError(yPred, y)
	assert.InDelta(t, 1.25, loss, 1e-6)
	assert.Equal(t, []float32{0.5, -1}, grad.Data)
}

func testOptimizer(optimizerCreator func(params []*Parameter, lr float32) Optimizer, lr float32, epochs int) []float32 {
	rng := rand.New(rand.NewSource(0))
	x := randomMatrix(rng, 64, 2)
	y := NewMatrix(64, 1)
	for i := 0; i < x.Rows; i++ {
		y.Data[i] = 1 + 2*x.At(i, 0) - 3*x.At(i, 1)
	}
	linear := NewLinear(2, 1, rng)
	optimizer := optimizerCreator(linear.Parameters(), lr)
	var losses []float32
	for i := 0; i < epochs; i++ {
		loss, grad := MeanSquareError(linear.Forward(x), y)
		losses = append(losses, loss)
		optimizer.ZeroGrad()
		linear.Backward(grad)
		optimizer.Step()
	}
	return losses
}

func TestSGD(t *testing.T) {
	losses := testOptimizer(NewSGD, 0.1, 500)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.Less(t, losses[len(losses)-1], float32(0.01))
}

func TestAdam(t *testing.T) {
	losses := testOptimizer(NewAdam, 0.05, 1000)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.Less(t, losses[len(losses)-1], float32(0.01))
}

func TestWeightDecay(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	linear := NewLinear(4, 4, rng)
	optimizer := NewSGD(linear.Parameters(), 0.1)
	optimizer.SetWeightDecay(1)
	before := float32(0)
	for _, w := range linear.W.Data {
		before += math32.Abs(w)
	}
	// zero gradients, so only the decay moves the weights
	optimizer.ZeroGrad()
	optimizer.Step()
	after := float32(0)
	for _, w := range linear.W.Data {
		after += math32.Abs(w)
	}
	assert.InDelta(t, before*0.9, after, 1e-4)
}

func TestNeuralNetwork(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	x := NewMatrix(64, 1)
	y := NewMatrix(64, 1)
	for i := 0; i < 64; i++ {
		x.Data[i] = float32(i)/32 - 1
		y.Data[i] = math32.Abs(x.Data[i])
	}
	model := NewMLP(1, []int{16}, 1, rng)
	assert.Len(t, model.Linears(), 2)
	optimizer := NewAdam(model.Parameters(), 0.01)
	var loss float32
	var grad *Matrix
	for i := 0; i < 2000; i++ {
		loss, grad = MeanSquareError(model.Forward(x), y)
		optimizer.ZeroGrad()
		model.Backward(grad)
		optimizer.Step()
	}
	assert.Less(t, loss, float32(0.01))
}
