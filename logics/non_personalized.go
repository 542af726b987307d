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
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/roadmap/common/heap"
	"github.com/gorse-io/roadmap/common/util"
	"github.com/gorse-io/roadmap/dataset"
	"github.com/gorse-io/roadmap/model/quality"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// ErrNoCandidates is wrapped by NotFoundResult.
const ErrNoCandidates = errors.ConstError("no candidates")

// confidenceCandidates is the number of candidates at which confidence reaches 100%.
const confidenceCandidates = 10

// NotFoundResult is returned when no roadmap matches a tag. It carries a sample of
// the tags that would match.
type NotFoundResult struct {
	Message       string   `json:"error"`
	AvailableTags []string `json:"available_tags"`
}

func (e *NotFoundResult) Error() string {
	return e.Message
}

func (e *NotFoundResult) Unwrap() error {
	return ErrNoCandidates
}

// BestResult is the best roadmap for a tag with full statistics and model details.
type BestResult struct {
	RoadmapId         string  `json:"roadmap_id"`
	Name              string  `json:"name"`
	Tags              string  `json:"tags"`
	QualityScore      float64 `json:"quality_score"`
	CompletionRate    float64 `json:"completion_rate"`
	UsefulnessScore   float64 `json:"usefulness_score"`
	EfficiencyRate    float64 `json:"efficiency_rate"`
	DropoutRate       float64 `json:"dropout_rate"`
	EngagementScore   float64 `json:"engagement_score"`
	CompletionCount   int     `json:"completion_count"`
	BookmarkCount     int     `json:"bookmark_count"`
	AvgHoursSpent     float64 `json:"avg_hours_spent"`
	AvgNodesCompleted float64 `json:"avg_nodes_completed"`
	Confidence        float64 `json:"confidence"`
	TotalCandidates   int     `json:"total_candidates"`
	MLModelUsed       bool    `json:"ml_model_used"`
	ModelType         string  `json:"model_type"`
	Architecture      string  `json:"architecture"`
	Activation        string  `json:"activation"`
	Optimizer         string  `json:"optimizer"`
}

// TopItem is a roadmap in a top-N list.
type TopItem struct {
	RoadmapId       string  `json:"roadmap_id"`
	Name            string  `json:"name"`
	Tags            string  `json:"tags"`
	QualityScore    float64 `json:"quality_score"`
	CompletionRate  float64 `json:"completion_rate"`
	UsefulnessScore float64 `json:"usefulness_score"`
	EfficiencyRate  float64 `json:"efficiency_rate"`
}

// Confidence grows linearly with the number of candidates and saturates at 100.
func Confidence(n int) float64 {
	return util.Round(min(100, float64(n)/confidenceCandidates*100), 2)
}

// Best returns the roadmap with the highest final score among roadmaps whose tags
// contain tag, skipping excluded identifiers. If nothing matches, the error is a
// *NotFoundResult.
func (r *Recommender) Best(ctx context.Context, tag string, exclude []string) (*BestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := r.candidates(mapset.NewThreadUnsafeSet(exclude...), tag)
	if len(candidates) == 0 {
		return nil, r.notFound(tag)
	}
	if err := r.blend(ctx, candidates); err != nil {
		return nil, errors.Trace(err)
	}
	filter := heap.NewTopKFilter[string, float64](1)
	for _, item := range candidates {
		filter.Push(item.RoadmapId, item.FinalScore)
	}
	best, _ := r.catalog.Get(filter.PopAllValues()[0])
	return &BestResult{
		RoadmapId:         best.RoadmapId,
		Name:              best.Name,
		Tags:              best.Tags,
		QualityScore:      util.Round(best.FinalScore, 4),
		CompletionRate:    util.Round(best.CompletionRate, 4),
		UsefulnessScore:   util.Round(best.UsefulnessScore, 2),
		EfficiencyRate:    util.Round(best.EfficiencyRate, 4),
		DropoutRate:       util.Round(best.DropoutRate, 4),
		EngagementScore:   util.Round(best.EngagementScore, 2),
		CompletionCount:   int(best.CompletionCount),
		BookmarkCount:     int(best.BookmarkCount),
		AvgHoursSpent:     util.Round(best.AvgHoursSpent, 2),
		AvgNodesCompleted: util.Round(best.AvgNodesCompleted, 2),
		Confidence:        Confidence(len(candidates)),
		TotalCandidates:   len(candidates),
		MLModelUsed:       true,
		ModelType:         quality.ModelType,
		Architecture:      r.predictor.Architecture(),
		Activation:        quality.Activation,
		Optimizer:         quality.Optimizer,
	}, nil
}

// Top returns at most n roadmaps whose tags contain tag, ordered by final score.
func (r *Recommender) Top(ctx context.Context, tag string, n int) ([]TopItem, error) {
	if n <= 0 {
		n = r.cfg.TopN
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := r.candidates(nil, tag)
	if len(candidates) == 0 {
		return []TopItem{}, nil
	}
	if err := r.blend(ctx, candidates); err != nil {
		return nil, errors.Trace(err)
	}
	filter := heap.NewTopKFilter[string, float64](n)
	for _, item := range candidates {
		filter.Push(item.RoadmapId, item.FinalScore)
	}
	return lo.Map(filter.PopAllValues(), func(id string, _ int) TopItem {
		item, _ := r.catalog.Get(id)
		return TopItem{
			RoadmapId:       item.RoadmapId,
			Name:            item.Name,
			Tags:            item.Tags,
			QualityScore:    util.Round(item.FinalScore, 4),
			CompletionRate:  util.Round(item.CompletionRate, 4),
			UsefulnessScore: util.Round(item.UsefulnessScore, 2),
			EfficiencyRate:  util.Round(item.EfficiencyRate, 4),
		}
	}), nil
}

// AvailableTags returns every tag of the catalog.
func (r *Recommender) AvailableTags() []string {
	return r.catalog.AvailableTags()
}

func (r *Recommender) notFound(tag string) *NotFoundResult {
	tags := r.catalog.AvailableTags()
	return &NotFoundResult{
		Message:       fmt.Sprintf("No roadmaps found for tag: %s", strings.TrimSpace(tag)),
		AvailableTags: lo.Subset(tags, 0, uint(r.cfg.MaxAvailableTags)),
	}
}
