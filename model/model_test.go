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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Copy(t *testing.T) {
	a := Params{
		NEpochs:     1,
		Lr:          0.1,
		RandomState: 0,
	}
	b := a.Copy()
	b[NEpochs] = 2
	b[Lr] = 0.2
	b[RandomState] = 1
	assert.Equal(t, 1, a.GetInt(NEpochs, -1))
	assert.Equal(t, float32(0.1), a.GetFloat32(Lr, -0.1))
	assert.Equal(t, int64(0), a.GetInt64(RandomState, -1))
	assert.Equal(t, 2, b.GetInt(NEpochs, -1))
	assert.Equal(t, float32(0.2), b.GetFloat32(Lr, -0.1))
	assert.Equal(t, int64(1), b.GetInt64(RandomState, -1))
}

func TestParams_GetFloat(t *testing.T) {
	p := Params{}
	assert.Equal(t, float32(0.1), p.GetFloat32(Lr, 0.1))
	p[Lr] = 1.0
	assert.Equal(t, float32(1), p.GetFloat32(Lr, 0.1))
	p[Lr] = float32(2)
	assert.Equal(t, float32(2), p.GetFloat32(Lr, 0.1))
	p[Lr] = 1
	assert.Equal(t, float32(1), p.GetFloat32(Lr, 0.1))
	p[Lr] = "hello"
	assert.Equal(t, float32(0.1), p.GetFloat32(Lr, 0.1))
}

func TestParams_GetInt(t *testing.T) {
	p := Params{}
	assert.Equal(t, -1, p.GetInt(BatchSize, -1))
	p[BatchSize] = 0
	assert.Equal(t, 0, p.GetInt(BatchSize, -1))
	p[BatchSize] = int64(8)
	assert.Equal(t, 8, p.GetInt(BatchSize, -1))
	p[BatchSize] = "hello"
	assert.Equal(t, -1, p.GetInt(BatchSize, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{}
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
	p[RandomState] = int64(0)
	assert.Equal(t, int64(0), p.GetInt64(RandomState, -1))
	p[RandomState] = 42
	assert.Equal(t, int64(42), p.GetInt64(RandomState, -1))
	p[RandomState] = "hello"
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
}

func TestParams_GetInts(t *testing.T) {
	p := Params{}
	assert.Equal(t, []int{64, 32, 16}, p.GetInts(HiddenLayers, []int{64, 32, 16}))
	p[HiddenLayers] = []int{8}
	assert.Equal(t, []int{8}, p.GetInts(HiddenLayers, nil))
	p[HiddenLayers] = 8
	assert.Nil(t, p.GetInts(HiddenLayers, nil))
}

func TestParams_Overwrite(t *testing.T) {
	a := Params{Lr: 0.1, Reg: 0.01}
	b := a.Overwrite(Params{Lr: 0.2})
	assert.Equal(t, float32(0.1), a.GetFloat32(Lr, 0))
	assert.Equal(t, float32(0.2), b.GetFloat32(Lr, 0))
	assert.Equal(t, float32(0.01), b.GetFloat32(Reg, 0))
	assert.Equal(t, `{"Lr":0.2,"Reg":0.01}`, b.ToString())
	assert.Equal(t, b.ToString(), Params{Reg: 0.01, Lr: 0.2}.ToString())
	assert.Equal(t, a, a.Overwrite(nil))
}

func TestBaseModel(t *testing.T) {
	var a, b BaseModel
	a.SetParams(Params{RandomState: 42})
	b.SetParams(Params{RandomState: 42})
	assert.Equal(t, int64(42), a.GetRandomState())
	assert.Equal(t, a.GetRandomGenerator().Int63(), b.GetRandomGenerator().Int63())
	assert.Equal(t, 42, a.GetParams().GetInt(RandomState, 0))
}
