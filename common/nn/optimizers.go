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

import "github.com/chewxy/math32"

type Optimizer interface {
	SetWeightDecay(rate float32)
	SetLearningRate(lr float32)
	ZeroGrad()
	Step()
}

type baseOptimizer struct {
	params []*Parameter
	wd     float32
}

func (o *baseOptimizer) ZeroGrad() {
	for _, p := range o.params {
		clear(p.Grad)
	}
}

func (o *baseOptimizer) SetWeightDecay(wd float32) {
	o.wd = wd
}

type SGD struct {
	baseOptimizer
	lr float32
}

func NewSGD(params []*Parameter, lr float32) Optimizer {
	return &SGD{
		baseOptimizer: baseOptimizer{params: params},
		lr:            lr,
	}
}

func (s *SGD) SetLearningRate(lr float32) {
	s.lr = lr
}

func (s *SGD) Step() {
	for _, p := range s.params {
		for i := range p.Data {
			p.Data[i] -= s.lr * (p.Grad[i] + p.Data[i]*s.wd)
		}
	}
}

type Adam struct {
	baseOptimizer
	alpha float32
	beta1 float32
	beta2 float32
	eps   float32
	ms    map[*Parameter][]float32
	vs    map[*Parameter][]float32
	t     float32
}

func NewAdam(params []*Parameter, alpha float32) Optimizer {
	return &Adam{
		baseOptimizer: baseOptimizer{params: params},
		alpha:         alpha,
		beta1:         0.9,
		beta2:         0.999,
		eps:           1e-8,
		ms:            make(map[*Parameter][]float32),
		vs:            make(map[*Parameter][]float32),
	}
}

func (a *Adam) SetLearningRate(lr float32) {
	a.alpha = lr
}

func (a *Adam) Step() {
	a.t++

	fix1 := 1 - math32.Pow(a.beta1, a.t)
	fix2 := 1 - math32.Pow(a.beta2, a.t)
	lr := a.alpha * math32.Sqrt(fix2) / fix1

	for _, p := range a.params {
		if _, ok := a.ms[p]; !ok {
			a.ms[p] = make([]float32, len(p.Data))
			a.vs[p] = make([]float32, len(p.Data))
		}
		m, v := a.ms[p], a.vs[p]
		for i := range p.Data {
			g := p.Grad[i] + a.wd*p.Data[i]
			// m += (1 - beta1) * (grad - m)
			m[i] += (1 - a.beta1) * (g - m[i])
			// v += (1 - beta2) * (grad * grad - v)
			v[i] += (1 - a.beta2) * (g*g - v[i])
			p.Data[i] -= lr * m[i] / (math32.Sqrt(v[i]) + a.eps)
		}
	}
}
