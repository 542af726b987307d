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

package logics

import (
	"context"
	"reflect"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/roadmap/common/heap"
	"github.com/gorse-io/roadmap/common/log"
	"github.com/gorse-io/roadmap/common/parallel"
	"github.com/gorse-io/roadmap/common/util"
	"github.com/gorse-io/roadmap/config"
	"github.com/gorse-io/roadmap/dataset"
	"github.com/gorse-io/roadmap/model"
	"github.com/gorse-io/roadmap/model/quality"
	"github.com/gorse-io/roadmap/storage/blob"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// QualityPredictor predicts the quality of roadmaps. *quality.Predictor is the
// production implementation.
type QualityPredictor interface {
	Predict(items []*dataset.Item) ([]float64, error)
	Architecture() string
}

// PredictorProvider returns a trained predictor for a catalog.
type PredictorProvider func(ctx context.Context, items []*dataset.Item) (QualityPredictor, error)

// TrainPredictor returns a provider that fits a new predictor.
func TrainPredictor(params model.Params, fitConfig *quality.FitConfig) PredictorProvider {
	return func(ctx context.Context, items []*dataset.Item) (QualityPredictor, error) {
		p := quality.NewPredictor(params)
		if _, err := p.Fit(ctx, items, fitConfig); err != nil {
			return nil, errors.Trace(err)
		}
		return p, nil
	}
}

// StoredPredictor returns a provider that loads the predictor from a store, or trains
// and saves one if it cannot be loaded.
func StoredPredictor(store blob.Store, name string, params model.Params, fitConfig *quality.FitConfig) PredictorProvider {
	return func(ctx context.Context, items []*dataset.Item) (QualityPredictor, error) {
		p, err := quality.LoadOrTrain(ctx, store, name, params, items, fitConfig)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return p, nil
	}
}

// RecommendedItem is a roadmap in a personalized result.
type RecommendedItem struct {
	RoadmapId       string  `json:"roadmap_id"`
	Name            string  `json:"name"`
	Tags            string  `json:"tags"`
	QualityScore    float64 `json:"quality_score"`
	Similarity      float64 `json:"similarity"`
	CompletionRate  float64 `json:"completion_rate"`
	UsefulnessScore float64 `json:"usefulness_score"`
	EfficiencyRate  float64 `json:"efficiency_rate"`
	AvgHoursSpent   float64 `json:"avg_hours_spent"`
	BookmarkCount   int     `json:"bookmark_count"`
}

func NewRecommendedItem(item *dataset.Item) RecommendedItem {
	return RecommendedItem{
		RoadmapId:       item.RoadmapId,
		Name:            item.Name,
		Tags:            item.Tags,
		QualityScore:    util.Round(item.FinalScore, 4),
		Similarity:      util.Round(item.Similarity, 4),
		CompletionRate:  util.Round(item.CompletionRate, 4),
		UsefulnessScore: util.Round(item.UsefulnessScore, 2),
		EfficiencyRate:  util.Round(item.EfficiencyRate, 4),
		AvgHoursSpent:   util.Round(item.AvgHoursSpent, 2),
		BookmarkCount:   int(item.BookmarkCount),
	}
}

type Metadata struct {
	UserHasCompleted   int    `json:"user_has_completed"`
	UserNodesCompleted int    `json:"user_nodes_completed"`
	UserTagsCount      int    `json:"user_tags_count"`
	TotalAvailable     int    `json:"total_available"`
	ModelType          string `json:"model_type"`
	Personalized       bool   `json:"personalized"`
}

// PersonalizedResult holds roadmaps close to what the user already knows and
// roadmaps on topics new to the user. A roadmap may appear in both lists.
type PersonalizedResult struct {
	Similar []RecommendedItem `json:"similar"`
	New     []RecommendedItem `json:"new"`
	Metadata
}

// Recommender ranks roadmaps of a catalog. The catalog is scored once on creation and
// the predictor is obtained on first use.
type Recommender struct {
	mu        sync.Mutex
	catalog   *dataset.Catalog
	scorer    *QualityScorer
	provider  PredictorProvider
	predictor QualityPredictor
	filter    *vm.Program
	cfg       config.RecommendConfig
}

func NewRecommender(catalog *dataset.Catalog, provider PredictorProvider, cfg config.RecommendConfig) (*Recommender, error) {
	// Compile filter expression
	var filter *vm.Program
	if cfg.Filter != "" {
		var err error
		filter, err = expr.Compile(cfg.Filter, expr.Env(map[string]any{
			"item": dataset.Item{},
		}))
		if err != nil {
			return nil, errors.NewNotValid(err, "invalid filter")
		}
		if filter.Node().Type().Kind() != reflect.Bool {
			return nil, errors.NotValidf("filter %q must return bool", cfg.Filter)
		}
	}
	scorer := NewQualityScorer(catalog.Items())
	scorer.ScoreAll(catalog.Items(), cfg.Jobs)
	return &Recommender{
		catalog:  catalog,
		scorer:   scorer,
		provider: provider,
		filter:   filter,
		cfg:      cfg,
	}, nil
}

func (r *Recommender) Catalog() *dataset.Catalog {
	return r.catalog
}

// Recommend returns at most topN similar and topN new roadmaps for a user, optionally
// restricted to roadmaps whose tags contain tag.
func (r *Recommender) Recommend(ctx context.Context, profile *dataset.Profile, tag string, topN int) (*PersonalizedResult, error) {
	if profile == nil {
		profile = &dataset.Profile{}
	}
	if topN <= 0 {
		topN = r.cfg.TopN
	}
	closure := profile.TagClosure(r.catalog)
	result := &PersonalizedResult{
		Similar: []RecommendedItem{},
		New:     []RecommendedItem{},
		Metadata: Metadata{
			UserHasCompleted:   profile.TotalRoadmapsCompleted,
			UserNodesCompleted: profile.TotalNodesCompleted,
			UserTagsCount:      closure.Cardinality(),
			ModelType:          quality.ModelType,
			Personalized:       true,
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := r.candidates(profile.CompletedSet(), tag)
	result.TotalAvailable = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}
	parallel.ForEach(candidates, r.cfg.Jobs, func(_ int, item *dataset.Item) {
		item.Similarity = Similarity(ParseTags(item.Tags), closure)
	})
	if err := r.blend(ctx, candidates); err != nil {
		return nil, errors.Trace(err)
	}

	similar := heap.NewTopKFilter[string, float64](topN)
	fresh := heap.NewTopKFilter[string, float64](topN)
	for _, item := range candidates {
		if item.Similarity > r.cfg.SimilarThreshold {
			similar.Push(item.RoadmapId, item.Similarity*r.cfg.SimilarityWeight+item.FinalScore*r.cfg.FinalWeight)
		}
		if item.Similarity < r.cfg.NewThreshold {
			fresh.Push(item.RoadmapId, item.FinalScore)
		}
	}
	result.Similar = r.format(similar.PopAllValues())
	result.New = r.format(fresh.PopAllValues())
	log.Logger().Debug("recommend roadmaps",
		zap.String("tag", tag),
		zap.Int("n_candidates", len(candidates)),
		zap.Int("n_similar", len(result.Similar)),
		zap.Int("n_new", len(result.New)))
	return result, nil
}

func (r *Recommender) format(ids []string) []RecommendedItem {
	return lo.Map(ids, func(id string, _ int) RecommendedItem {
		item, _ := r.catalog.Get(id)
		return NewRecommendedItem(item)
	})
}

// candidates returns roadmaps not excluded that pass the tag filter and the filter
// expression.
func (r *Recommender) candidates(exclude mapset.Set[string], tag string) []*dataset.Item {
	items := dataset.FilterByTag(r.catalog.Exclude(exclude), tag)
	if r.filter == nil {
		return items
	}
	return lo.Filter(items, func(item *dataset.Item, _ int) bool {
		result, err := expr.Run(r.filter, map[string]any{
			"item": *item,
		})
		if err != nil {
			log.Logger().Error("evaluate filter function", zap.String("roadmap_id", item.RoadmapId), zap.Error(err))
			return false
		}
		return result.(bool)
	})
}

// blend sets PredictedQuality and FinalScore of items.
func (r *Recommender) blend(ctx context.Context, items []*dataset.Item) error {
	predictor, err := r.ensurePredictor(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	predictions, err := predictor.Predict(items)
	if err != nil {
		return errors.Trace(err)
	}
	for i, item := range items {
		item.PredictedQuality = predictions[i]
		item.FinalScore = predictions[i]*r.cfg.PredictedWeight + item.QualityScore*r.cfg.QualityWeight
	}
	return nil
}

func (r *Recommender) ensurePredictor(ctx context.Context) (QualityPredictor, error) {
	if r.predictor != nil {
		return r.predictor, nil
	}
	predictor, err := r.provider(ctx, r.catalog.Items())
	if err != nil {
		return nil, errors.Annotate(err, "failed to prepare quality predictor")
	}
	r.predictor = predictor
	return predictor, nil
}
