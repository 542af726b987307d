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
	"context"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/gorse-io/roadmap/common/encoding"
	"github.com/gorse-io/roadmap/common/log"
	"github.com/gorse-io/roadmap/common/nn"
	"github.com/gorse-io/roadmap/config"
	"github.com/gorse-io/roadmap/dataset"
	"github.com/gorse-io/roadmap/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const headerMLP = "quality.MLP"

// Metadata reported alongside predictions.
const (
	ModelType  = "Neural Network (MLP)"
	Activation = "ReLU"
	Optimizer  = "Adam"
)

var defaultHiddenLayers = []int{64, 32, 16}

var defaultParams = model.Params{
	model.Lr:           0.001,
	model.Reg:          0.001,
	model.BatchSize:    32,
	model.NEpochs:      1000,
	model.RandomState:  int64(42),
	model.HiddenLayers: defaultHiddenLayers,
}

type Score struct {
	R2   float64
	RMSE float64
}

type FitConfig struct {
	Verbose            int
	Patience           int
	ValidationFraction float64
	Tolerance          float64
	// OnEpoch is called after every epoch with the mean training loss.
	OnEpoch func(epoch int, loss float32)
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Verbose:            100,
		Patience:           50,
		ValidationFraction: 0.1,
		Tolerance:          1e-4,
	}
}

// NewFitConfigFromConfig builds a fit config from the [train] section.
func NewFitConfigFromConfig(cfg config.TrainConfig) *FitConfig {
	return NewFitConfig().
		SetVerbose(cfg.Verbose).
		SetPatience(cfg.Patience).
		SetValidationFraction(cfg.ValidationFraction)
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetPatience(patience int) *FitConfig {
	config.Patience = patience
	return config
}

func (config *FitConfig) SetValidationFraction(fraction float64) *FitConfig {
	config.ValidationFraction = fraction
	return config
}

func (config *FitConfig) SetOnEpoch(onEpoch func(epoch int, loss float32)) *FitConfig {
	config.OnEpoch = onEpoch
	return config
}

// NewParamsFromConfig converts the [train] section to hyper-parameters.
func NewParamsFromConfig(cfg config.TrainConfig) model.Params {
	return model.Params{
		model.Lr:           cfg.Lr,
		model.Reg:          cfg.Reg,
		model.BatchSize:    cfg.BatchSize,
		model.NEpochs:      cfg.NEpochs,
		model.RandomState:  cfg.RandomState,
		model.HiddenLayers: cfg.HiddenLayers,
	}
}

// Predictor regresses the quality score of a roadmap from its nine statistics with a
// multi-layer perceptron. A predictor is not safe for concurrent use.
type Predictor struct {
	model.BaseModel
	Scaler  *StandardScaler
	network *nn.Sequential

	// Hyper parameters
	lr        float32
	reg       float32
	batchSize int
	nEpochs   int
	hidden    []int
}

// NewPredictor creates a predictor. Missing hyper-parameters take the defaults of
// the 9-64-32-16-1 network.
func NewPredictor(params model.Params) *Predictor {
	p := new(Predictor)
	p.SetParams(defaultParams.Overwrite(params))
	return p
}

func (p *Predictor) SetParams(params model.Params) {
	p.BaseModel.SetParams(params)
	p.lr = p.Params.GetFloat32(model.Lr, defaultParams.GetFloat32(model.Lr, 0))
	p.reg = p.Params.GetFloat32(model.Reg, defaultParams.GetFloat32(model.Reg, 0))
	p.batchSize = p.Params.GetInt(model.BatchSize, defaultParams.GetInt(model.BatchSize, 0))
	p.nEpochs = p.Params.GetInt(model.NEpochs, defaultParams.GetInt(model.NEpochs, 0))
	p.hidden = p.Params.GetInts(model.HiddenLayers, defaultHiddenLayers)
}

// Clear drops the scaler and the network weights.
func (p *Predictor) Clear() {
	p.Scaler = nil
	p.network = nil
}

func (p *Predictor) IsTrained() bool {
	return p.network != nil
}

// Architecture returns layer sizes such as "9-64-32-16-1".
func (p *Predictor) Architecture() string {
	sizes := append([]int{len(dataset.FeatureNames)}, p.hidden...)
	sizes = append(sizes, 1)
	return joinInts(sizes, "-")
}

// Fit trains the predictor to reproduce the QualityScore of items. Training stops
// early once the validation R2 stops improving for Patience epochs, or the training
// loss when the catalog is too small to hold out a validation split.
func (p *Predictor) Fit(ctx context.Context, items []*dataset.Item, config *FitConfig) (score Score, err error) {
	// a failed fit leaves the predictor untrained
	defer func() {
		if err != nil {
			p.Clear()
		}
	}()
	if len(items) < 2 {
		return Score{}, errors.NotValidf("training set of %d roadmaps", len(items))
	}
	if config == nil {
		config = NewFitConfig()
	}
	// reseed so that repeated fits are reproducible
	p.SetParams(p.Params)
	rng := p.GetRandomGenerator()
	start := time.Now()

	raw := lo.Map(items, func(item *dataset.Item, _ int) []float64 { return item.Features() })
	target := lo.Map(items, func(item *dataset.Item, _ int) float64 { return item.QualityScore })
	p.Scaler = new(StandardScaler)
	p.Scaler.Fit(dataset.FeatureNames, raw)
	x := nn.NewMatrixFromRows(p.Scaler.Transform(raw))
	y := nn.NewMatrix(len(items), 1)
	for i, v := range target {
		y.Data[i] = float32(v)
	}

	// hold out a validation split
	perm := rng.Perm(len(items))
	numValid := int(math.Ceil(float64(len(items)) * config.ValidationFraction))
	if numValid < 2 || len(items)-numValid < 1 {
		numValid = 0
	}
	validIndices, trainIndices := perm[:numValid], perm[numValid:]

	p.network = nn.NewMLP(len(dataset.FeatureNames), p.hidden, 1, rng)
	optimizer := nn.NewAdam(p.network.Parameters(), p.lr)
	optimizer.SetWeightDecay(p.reg / float32(p.batchSize))

	var (
		bestScore   = math.Inf(-1)
		bestLoss    = math.Inf(1)
		bestWeights = p.snapshot()
		noImprove   int
	)
	for epoch := 1; epoch <= p.nEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Score{}, errors.Trace(err)
		}
		rng.Shuffle(len(trainIndices), func(i, j int) {
			trainIndices[i], trainIndices[j] = trainIndices[j], trainIndices[i]
		})
		var sumLoss float32
		for begin := 0; begin < len(trainIndices); begin += p.batchSize {
			end := min(begin+p.batchSize, len(trainIndices))
			batch := trainIndices[begin:end]
			optimizer.ZeroGrad()
			yPred := p.network.Forward(x.Gather(batch))
			loss, grad := nn.MeanSquareError(yPred, y.Gather(batch))
			p.network.Backward(grad)
			optimizer.Step()
			sumLoss += loss * float32(len(batch))
		}
		trainLoss := sumLoss / float32(len(trainIndices))
		if config.OnEpoch != nil {
			config.OnEpoch(epoch, trainLoss)
		}

		improved := false
		if numValid > 0 {
			validScore := r2Score(gatherFloat64(target, validIndices), p.forward(x.Gather(validIndices)))
			if validScore > bestScore+config.Tolerance {
				improved = true
			}
			if validScore > bestScore {
				bestScore = validScore
				bestWeights = p.snapshot()
			}
			if config.Verbose > 0 && epoch%config.Verbose == 0 {
				log.Logger().Info("fit quality predictor",
					zap.Int("epoch", epoch), zap.Float32("loss", trainLoss), zap.Float64("valid_r2", validScore))
			}
		} else {
			if float64(trainLoss) < bestLoss-config.Tolerance {
				improved = true
			}
			if float64(trainLoss) < bestLoss {
				bestLoss = float64(trainLoss)
				bestWeights = p.snapshot()
			}
			if config.Verbose > 0 && epoch%config.Verbose == 0 {
				log.Logger().Info("fit quality predictor",
					zap.Int("epoch", epoch), zap.Float32("loss", trainLoss))
			}
		}
		if improved {
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove > config.Patience {
			log.Logger().Debug("early stop quality predictor", zap.Int("epoch", epoch))
			break
		}
	}
	p.restore(bestWeights)

	predictions := p.forward(x)
	score = Score{
		R2:   r2Score(target, predictions),
		RMSE: rootMeanSquareError(target, predictions),
	}
	log.Logger().Info("fit quality predictor complete",
		zap.Int("n_items", len(items)),
		zap.Int("n_valid", numValid),
		zap.Float64("r2", score.R2),
		zap.Float64("rmse", score.RMSE),
		zap.Int64("random_state", p.GetRandomState()),
		zap.String("params", p.GetParams().ToString()),
		zap.Duration("duration", time.Since(start)))
	return score, nil
}

// Predict returns the predicted quality of items. It panics if the predictor has
// been neither fitted nor loaded.
func (p *Predictor) Predict(items []*dataset.Item) ([]float64, error) {
	if !p.IsTrained() {
		panic("predictor is not trained")
	}
	if err := p.Scaler.Check(dataset.FeatureNames); err != nil {
		return nil, errors.Trace(err)
	}
	if len(items) == 0 {
		return []float64{}, nil
	}
	raw := lo.Map(items, func(item *dataset.Item, _ int) []float64 { return item.Features() })
	return p.forward(nn.NewMatrixFromRows(p.Scaler.Transform(raw))), nil
}

func (p *Predictor) forward(x *nn.Matrix) []float64 {
	if x.Rows == 0 {
		return nil
	}
	y := p.network.Forward(x)
	return lo.Map(y.Data, func(v float32, _ int) float64 { return float64(v) })
}

func (p *Predictor) snapshot() [][]float32 {
	params := p.network.Parameters()
	weights := make([][]float32, len(params))
	for i, param := range params {
		weights[i] = append([]float32(nil), param.Data...)
	}
	return weights
}

func (p *Predictor) restore(weights [][]float32) {
	for i, param := range p.network.Parameters() {
		copy(param.Data, weights[i])
	}
}

// Marshal writes hyper-parameters, the scaler and layer weights.
func (p *Predictor) Marshal(w io.Writer) error {
	if !p.IsTrained() {
		return errors.New("predictor is not trained")
	}
	if err := encoding.WriteString(w, headerMLP); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, p.Scaler); err != nil {
		return errors.Trace(err)
	}
	linears := p.network.Linears()
	shapes := lo.Map(linears, func(l *nn.LinearLayer, _ int) lo.Tuple2[int, int] {
		return lo.Tuple2[int, int]{A: l.In, B: l.Out}
	})
	if err := encoding.WriteGob(w, shapes); err != nil {
		return errors.Trace(err)
	}
	for _, l := range linears {
		if err := encoding.WriteMatrix(w, [][]float32{l.W.Data, l.B.Data}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal reads a predictor written by Marshal.
func (p *Predictor) Unmarshal(r io.Reader) error {
	header, err := encoding.ReadString(r)
	if err != nil {
		return errors.Trace(err)
	}
	if header != headerMLP {
		return errors.NotValidf("model header %q", header)
	}
	var params model.Params
	if err = encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	p.SetParams(params)
	var scaler StandardScaler
	if err = encoding.ReadGob(r, &scaler); err != nil {
		return errors.Trace(err)
	}
	var shapes []lo.Tuple2[int, int]
	if err = encoding.ReadGob(r, &shapes); err != nil {
		return errors.Trace(err)
	}
	if len(shapes) == 0 || shapes[0].A != len(scaler.Mean) || shapes[len(shapes)-1].B != 1 {
		return errors.NotValidf("network shape %v", shapes)
	}
	rng := rand.New(rand.NewSource(0))
	var layers []nn.Layer
	for i, shape := range shapes {
		if shape.A <= 0 || shape.B <= 0 || (i > 0 && shapes[i-1].B != shape.A) {
			return errors.NotValidf("network shape %v", shapes)
		}
		linear := nn.NewLinear(shape.A, shape.B, rng)
		if err = encoding.ReadMatrix(r, [][]float32{linear.W.Data, linear.B.Data}); err != nil {
			return errors.Trace(err)
		}
		layers = append(layers, linear)
		if i < len(shapes)-1 {
			layers = append(layers, nn.NewReLU())
		}
	}
	p.Scaler = &scaler
	p.network = nn.NewSequential(layers...)
	p.hidden = lo.Map(shapes[:len(shapes)-1], func(shape lo.Tuple2[int, int], _ int) int { return shape.B })
	return nil
}

func gatherFloat64(a []float64, indices []int) []float64 {
	return lo.Map(indices, func(i int, _ int) float64 { return a[i] })
}

// r2Score is the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func r2Score(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	mean := lo.Sum(yTrue) / float64(len(yTrue))
	var ssRes, ssTot float64
	for i := range yTrue {
		ssRes += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
		ssTot += (yTrue[i] - mean) * (yTrue[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func rootMeanSquareError(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var sum float64
	for i := range yTrue {
		sum += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}
	return math.Sqrt(sum / float64(len(yTrue)))
}

func joinInts(a []int, sep string) string {
	return strings.Join(lo.Map(a, func(v int, _ int) string { return strconv.Itoa(v) }), sep)
}
