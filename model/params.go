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
	"github.com/goccy/go-json"
	"github.com/gorse-io/roadmap/common/log"
	"go.uber.org/zap"
)

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	Lr           ParamName = "Lr"           // learning rate
	Reg          ParamName = "Reg"          // regularization strength
	NEpochs      ParamName = "NEpochs"      // maximum number of epochs
	BatchSize    ParamName = "BatchSize"    // mini-batch size
	RandomState  ParamName = "RandomState"  // random state (seed)
	HiddenLayers ParamName = "HiddenLayers" // hidden layer sizes
)

// Params stores hyper-parameters for a model. For example, the quality predictor
// is configured by:
//
//	model.Params{
//		model.Lr:           0.001,
//		model.Reg:          0.001,
//		model.HiddenLayers: []int{64, 32, 16},
//	}
type Params map[ParamName]any

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params, len(parameters))
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets an integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		case int64:
			return int(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)), zap.Any("value", val), zap.String("expect", "int"))
		}
	}
	return _default
}

// GetInt64 gets an int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)), zap.Any("value", val), zap.String("expect", "int64"))
		}
	}
	return _default
}

// GetFloat32 gets a float32 parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetFloat32(name ParamName, _default float32) float32 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float32:
			return val
		case float64:
			return float32(val)
		case int:
			return float32(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)), zap.Any("value", val), zap.String("expect", "float32"))
		}
	}
	return _default
}

// GetInts gets an integer slice parameter by name.
func (parameters Params) GetInts(name ParamName, _default []int) []int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case []int:
			return val
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)), zap.Any("value", val), zap.String("expect", "[]int"))
		}
	}
	return _default
}

// Overwrite returns a copy of parameters with params applied on top.
func (parameters Params) Overwrite(params Params) Params {
	merged := parameters.Copy()
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// ToString encodes parameters as JSON with sorted keys, so equal parameters give
// equal strings.
func (parameters Params) ToString() string {
	b, err := json.Marshal(parameters)
	if err != nil {
		log.Logger().Fatal("failed to marshal params", zap.Error(err))
	}
	return string(b)
}
