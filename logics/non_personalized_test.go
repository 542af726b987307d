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
	"strconv"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorse-io/roadmap/config"
	"github.com/gorse-io/roadmap/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0))
	assert.Equal(t, 30.0, Confidence(3))
	assert.Equal(t, 70.0, Confidence(7))
	assert.Equal(t, 100.0, Confidence(10))
	assert.Equal(t, 100.0, Confidence(15))
}

func TestBest(t *testing.T) {
	recommender, calls := newTestRecommender(t, []*dataset.Item{
		newItem("1", "go,backend", 0.9, 4.5),
		newItem("2", "go,cli", 0.7, 4.0),
		newItem("3", "Go,web", 0.5, 3.0),
		newItem("4", "rust", 0.8, 4.0),
	}, config.GetDefaultConfig().Recommend)

	best, err := recommender.Best(context.Background(), " GO ", nil)
	require.NoError(t, err)
	assert.Contains(t, []string{"1", "2", "3"}, best.RoadmapId)
	assert.Equal(t, 3, best.TotalCandidates)
	assert.Equal(t, 30.0, best.Confidence)
	assert.True(t, best.MLModelUsed)
	assert.Equal(t, "Neural Network (MLP)", best.ModelType)
	assert.Equal(t, "9-4-1", best.Architecture)
	assert.Equal(t, "ReLU", best.Activation)
	assert.Equal(t, "Adam", best.Optimizer)
	assert.Equal(t, 1, *calls)

	// best has the highest final score
	top, err := recommender.Top(context.Background(), "go", 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, top[0].RoadmapId, best.RoadmapId)
	assert.Equal(t, top[0].QualityScore, best.QualityScore)

	// exclusion
	excluded, err := recommender.Best(context.Background(), "go", []string{best.RoadmapId})
	require.NoError(t, err)
	assert.NotEqual(t, best.RoadmapId, excluded.RoadmapId)
	assert.Equal(t, 2, excluded.TotalCandidates)
	assert.Equal(t, 20.0, excluded.Confidence)
}

func TestBestFields(t *testing.T) {
	item := newItem("1", "go", 0.9, 4.567)
	recommender, _ := newTestRecommender(t, []*dataset.Item{item, newItem("2", "rust", 0.1, 1)}, config.GetDefaultConfig().Recommend)
	best, err := recommender.Best(context.Background(), "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", best.RoadmapId)
	assert.Equal(t, 90, best.CompletionCount)
	assert.Equal(t, 4.57, best.UsefulnessScore)
	assert.Equal(t, 0.1, best.DropoutRate)
	assert.Equal(t, 2.28, best.EngagementScore)
	assert.Equal(t, 5.0, best.AvgNodesCompleted)
	assert.Equal(t, 10.0, best.Confidence)

	data, err := json.Marshal(best)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"roadmap_id", "quality_score", "dropout_rate", "completion_count",
		"avg_nodes_completed", "confidence", "total_candidates", "ml_model_used", "architecture"} {
		assert.Contains(t, fields, key)
	}
}

func TestBestNotFound(t *testing.T) {
	var items []*dataset.Item
	for i := 0; i < 30; i++ {
		items = append(items, newItem(strconv.Itoa(i), "tag"+strconv.Itoa(i), 0.5, 3.0))
	}
	recommender, calls := newTestRecommender(t, items, config.GetDefaultConfig().Recommend)

	_, err := recommender.Best(context.Background(), "kotlin", nil)
	assert.True(t, errors.Is(err, ErrNoCandidates))
	var notFound *NotFoundResult
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "No roadmaps found for tag: kotlin", notFound.Message)
	assert.Len(t, notFound.AvailableTags, 20)
	assert.Equal(t, recommender.AvailableTags()[:20], notFound.AvailableTags)
	assert.Zero(t, *calls)

	data, err := json.Marshal(notFound)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "No roadmaps found for tag: kotlin", fields["error"])
	assert.Len(t, fields["available_tags"], 20)

	// every candidate excluded
	_, err = recommender.Best(context.Background(), "tag1", lo.Map(items, func(item *dataset.Item, _ int) string {
		return item.RoadmapId
	}))
	assert.True(t, errors.Is(err, ErrNoCandidates))
}

func TestTop(t *testing.T) {
	var items []*dataset.Item
	for i := 0; i < 8; i++ {
		items = append(items, newItem(strconv.Itoa(i), "python,data", 0.1*float64(i+1), float64(i%5)))
	}
	recommender, _ := newTestRecommender(t, items, config.GetDefaultConfig().Recommend)

	top, err := recommender.Top(context.Background(), "python", 0)
	require.NoError(t, err)
	assert.Len(t, top, 5)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].QualityScore, top[i].QualityScore)
	}

	top, err = recommender.Top(context.Background(), "python", 100)
	require.NoError(t, err)
	assert.Len(t, top, 8)

	top, err = recommender.Top(context.Background(), "kotlin", 5)
	require.NoError(t, err)
	assert.NotNil(t, top)
	assert.Empty(t, top)
}
