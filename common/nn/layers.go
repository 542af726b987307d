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

	"github.com/chewxy/math32"
)

// Parameter is a trainable buffer with its accumulated gradient.
type Parameter struct {
	Data []float32
	Grad []float32
}

func newParameter(n int) *Parameter {
	return &Parameter{Data: make([]float32, n), Grad: make([]float32, n)}
}

// Layer is a differentiable function. Forward caches what Backward needs, so a layer
// must not be shared by concurrent forward passes.
type Layer interface {
	Parameters() []*Parameter
	Forward(x *Matrix) *Matrix
	Backward(dy *Matrix) *Matrix
}

type Model Layer

type LinearLayer struct {
	In  int
	Out int
	W   *Parameter // In x Out
	B   *Parameter
	x   *Matrix
}

// NewLinear creates a fully connected layer initialized with Glorot uniform weights.
func NewLinear(in, out int, rng *rand.Rand) *LinearLayer {
	l := &LinearLayer{In: in, Out: out, W: newParameter(in * out), B: newParameter(out)}
	bound := math32.Sqrt(6 / float32(in+out))
	for i := range l.W.Data {
		l.W.Data[i] = (rng.Float32()*2 - 1) * bound
	}
	for i := range l.B.Data {
		l.B.Data[i] = (rng.Float32()*2 - 1) * bound
	}
	return l
}

func (l *LinearLayer) Forward(x *Matrix) *Matrix {
	l.x = x
	y := NewMatrix(x.Rows, l.Out)
	for i := 0; i < x.Rows; i++ {
		xi, yi := x.Row(i), y.Row(i)
		copy(yi, l.B.Data)
		for k, xik := range xi {
			if xik == 0 {
				continue
			}
			wk := l.W.Data[k*l.Out : (k+1)*l.Out]
			for j, w := range wk {
				yi[j] += xik * w
			}
		}
	}
	return y
}

func (l *LinearLayer) Backward(dy *Matrix) *Matrix {
	dx := NewMatrix(dy.Rows, l.In)
	for i := 0; i < dy.Rows; i++ {
		xi, dyi, dxi := l.x.Row(i), dy.Row(i), dx.Row(i)
		for j, g := range dyi {
			l.B.Grad[j] += g
		}
		for k := 0; k < l.In; k++ {
			wk := l.W.Data[k*l.Out : (k+1)*l.Out]
			gk := l.W.Grad[k*l.Out : (k+1)*l.Out]
			var sum float32
			for j, g := range dyi {
				gk[j] += xi[k] * g
				sum += g * wk[j]
			}
			dxi[k] = sum
		}
	}
	return dx
}

func (l *LinearLayer) Parameters() []*Parameter {
	return []*Parameter{l.W, l.B}
}

type reluLayer struct {
	mask []bool
}

func NewReLU() Layer {
	return &reluLayer{}
}

func (r *reluLayer) Parameters() []*Parameter {
	return nil
}

func (r *reluLayer) Forward(x *Matrix) *Matrix {
	y := NewMatrix(x.Rows, x.Cols)
	r.mask = make([]bool, len(x.Data))
	for i, v := range x.Data {
		if v > 0 {
			y.Data[i] = v
			r.mask[i] = true
		}
	}
	return y
}

func (r *reluLayer) Backward(dy *Matrix) *Matrix {
	dx := NewMatrix(dy.Rows, dy.Cols)
	for i, g := range dy.Data {
		if r.mask[i] {
			dx.Data[i] = g
		}
	}
	return dx
}

type Sequential struct {
	Layers []Layer
}

func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range s.Layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

func (s *Sequential) Forward(x *Matrix) *Matrix {
	for _, l := range s.Layers {
		x = l.Forward(x)
	}
	return x
}

func (s *Sequential) Backward(dy *Matrix) *Matrix {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		dy = s.Layers[i].Backward(dy)
	}
	return dy
}

// Linears returns the fully connected layers in order.
func (s *Sequential) Linears() []*LinearLayer {
	var linears []*LinearLayer
	for _, l := range s.Layers {
		if linear, ok := l.(*LinearLayer); ok {
			linears = append(linears, linear)
		}
	}
	return linears
}

// NewMLP builds Linear-ReLU blocks for the hidden sizes followed by a linear output layer.
func NewMLP(in int, hidden []int, out int, rng *rand.Rand) *Sequential {
	var layers []Layer
	for _, h := range hidden {
		layers = append(layers, NewLinear(in, h, rng), NewReLU())
		in = h
	}
	layers = append(layers, NewLinear(in, out, rng))
	return NewSequential(layers...)
}
