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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloat(t *testing.T) {
	v, err := ParseFloat[float64]("0.1234567891")
	assert.NoError(t, err)
	assert.Equal(t, 0.1234567891, v)
	f, err := ParseFloat[float32](" 2.5 ")
	assert.NoError(t, err)
	assert.Equal(t, float32(2.5), f)
	v, err = ParseFloat[float64]("")
	assert.NoError(t, err)
	assert.Zero(t, v)
	_, err = ParseFloat[float64]("abc")
	assert.Error(t, err)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.1235, Round(0.123456, 4))
	assert.Equal(t, 4.57, Round(4.5678, 2))
	assert.Equal(t, 30.0, Round(30.0, 2))
}

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(1.1, 0, 1))
	assert.Equal(t, 0.0, Clip(-0.2, 0, 1))
	assert.Equal(t, 0.5, Clip(0.5, 0, 1))
	assert.Equal(t, 100, Clip(150, 0, 100))
}
