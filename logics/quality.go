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
	"math"

	"github.com/gorse-io/roadmap/common/parallel"
	"github.com/gorse-io/roadmap/common/util"
	"github.com/gorse-io/roadmap/dataset"
)

// Weights of the quality heuristic. They sum to 1.10 and the score is clipped to [0, 1].
const (
	completionWeight = 0.35
	usefulnessWeight = 0.30
	retentionWeight  = 0.20
	efficiencyWeight = 0.15
	engagementWeight = 0.10

	maxUsefulnessScore = 5
)

// QualityScorer computes the heuristic quality of roadmaps. Efficiency and engagement
// are normalized by their maxima over the catalog it was created from.
type QualityScorer struct {
	maxEfficiencyRate  float64
	maxEngagementScore float64
}

func NewQualityScorer(items []*dataset.Item) *QualityScorer {
	scorer := new(QualityScorer)
	for _, item := range items {
		scorer.maxEfficiencyRate = max(scorer.maxEfficiencyRate, item.EfficiencyRate)
		scorer.maxEngagementScore = max(scorer.maxEngagementScore, item.EngagementScore)
	}
	return scorer
}

func (s *QualityScorer) MaxEfficiencyRate() float64 {
	return s.maxEfficiencyRate
}

func (s *QualityScorer) MaxEngagementScore() float64 {
	return s.maxEngagementScore
}

// Score returns the quality of an item in [0, 1].
func (s *QualityScorer) Score(item *dataset.Item) float64 {
	score := item.CompletionRate*completionWeight +
		item.UsefulnessScore/maxUsefulnessScore*usefulnessWeight +
		(1-item.DropoutRate)*retentionWeight
	// a catalog without positive maxima contributes nothing for the term
	if s.maxEfficiencyRate > 0 {
		score += item.EfficiencyRate / s.maxEfficiencyRate * efficiencyWeight
	}
	if s.maxEngagementScore > 0 {
		score += item.EngagementScore / s.maxEngagementScore * engagementWeight
	}
	if math.IsNaN(score) {
		return 0
	}
	return util.Clip(score, 0, 1)
}

// ScoreAll sets QualityScore of every item using jobs workers.
func (s *QualityScorer) ScoreAll(items []*dataset.Item, jobs int) {
	parallel.ForEach(items, jobs, func(_ int, item *dataset.Item) {
		item.QualityScore = s.Score(item)
	})
}
