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

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/roadmap/common/util"
	"github.com/juju/errors"
)

// FeatureNames are the predictor inputs, in the order returned by Item.Features.
var FeatureNames = []string{
	"completion_count",
	"dropout_count",
	"avg_hours_spent",
	"avg_nodes_completed",
	"bookmark_count",
	"usefulness_score",
	"completion_rate",
	"efficiency_rate",
	"engagement_score",
}

// Item is a roadmap with its aggregated statistics. The lower group of fields is
// filled in by the scoring pipeline.
type Item struct {
	RoadmapId         string
	Name              string
	Tags              string
	CompletionCount   float64
	DropoutCount      float64
	AvgHoursSpent     float64
	AvgNodesCompleted float64
	BookmarkCount     float64
	UsefulnessScore   float64
	CompletionRate    float64
	DropoutRate       float64
	EfficiencyRate    float64
	EngagementScore   float64
	CreatedAt         time.Time

	QualityScore     float64
	PredictedQuality float64
	FinalScore       float64
	Similarity       float64
}

// Features returns the predictor inputs of the item.
func (item *Item) Features() []float64 {
	return []float64{
		item.CompletionCount,
		item.DropoutCount,
		item.AvgHoursSpent,
		item.AvgNodesCompleted,
		item.BookmarkCount,
		item.UsefulnessScore,
		item.CompletionRate,
		item.EfficiencyRate,
		item.EngagementScore,
	}
}

// SplitTags splits a comma separated tag list into trimmed, lower-cased, non-empty tags.
// Duplicates are kept.
func SplitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

var numericColumns = map[string]func(item *Item) *float64{
	"completion_count":    func(item *Item) *float64 { return &item.CompletionCount },
	"dropout_count":       func(item *Item) *float64 { return &item.DropoutCount },
	"avg_hours_spent":     func(item *Item) *float64 { return &item.AvgHoursSpent },
	"avg_nodes_completed": func(item *Item) *float64 { return &item.AvgNodesCompleted },
	"bookmark_count":      func(item *Item) *float64 { return &item.BookmarkCount },
	"usefulness_score":    func(item *Item) *float64 { return &item.UsefulnessScore },
	"completion_rate":     func(item *Item) *float64 { return &item.CompletionRate },
	"dropout_rate":        func(item *Item) *float64 { return &item.DropoutRate },
	"efficiency_rate":     func(item *Item) *float64 { return &item.EfficiencyRate },
	"engagement_score":    func(item *Item) *float64 { return &item.EngagementScore },
}

// Catalog is an immutable snapshot of all roadmaps.
type Catalog struct {
	items []*Item
	index map[string]int
}

func NewCatalog(items []*Item) (*Catalog, error) {
	c := &Catalog{
		items: items,
		index: make(map[string]int, len(items)),
	}
	for i, item := range items {
		if _, exist := c.index[item.RoadmapId]; exist {
			return nil, errors.NotValidf("duplicate roadmap_id %q", item.RoadmapId)
		}
		c.index[item.RoadmapId] = i
	}
	return c, nil
}

// LoadCSVFile loads a catalog from a CSV file exported by the statistics job.
func LoadCSVFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	catalog, err := LoadCSV(f)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load %s", path)
	}
	return catalog, nil
}

// LoadCSV decodes a catalog. The first record is the header; column order is free and
// unknown columns are ignored. The optional created_at column accepts any layout known
// to dateparse.
func LoadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NotValidf("empty dataset")
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[name] = i
	}
	if _, exist := columns["roadmap_id"]; !exist {
		if i, exist := columns["id"]; exist {
			columns["roadmap_id"] = i
		}
	}
	required := append([]string{"roadmap_id", "name", "tags", "dropout_rate"}, FeatureNames...)
	for _, name := range required {
		if _, exist := columns[name]; !exist {
			return nil, errors.NotValidf("dataset without required column %q", name)
		}
	}

	var items []*Item
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		item := &Item{
			RoadmapId: strings.TrimSpace(record[columns["roadmap_id"]]),
			Name:      record[columns["name"]],
			Tags:      record[columns["tags"]],
		}
		if item.RoadmapId == "" {
			return nil, errors.NotValidf("empty roadmap_id at line %d", line)
		}
		for name, field := range numericColumns {
			value, err := util.ParseFloat[float64](record[columns[name]])
			if err != nil {
				return nil, errors.NewNotValid(err, fmt.Sprintf("invalid %s at line %d", name, line))
			}
			*field(item) = value
		}
		if i, exist := columns["created_at"]; exist && strings.TrimSpace(record[i]) != "" {
			item.CreatedAt, err = dateparse.ParseAny(strings.TrimSpace(record[i]))
			if err != nil {
				return nil, errors.NewNotValid(err, fmt.Sprintf("invalid created_at at line %d", line))
			}
		}
		items = append(items, item)
	}
	return NewCatalog(items)
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns all roadmaps in file order.
func (c *Catalog) Items() []*Item {
	return c.items
}

func (c *Catalog) Get(roadmapId string) (*Item, bool) {
	i, exist := c.index[roadmapId]
	if !exist {
		return nil, false
	}
	return c.items[i], true
}

// Exclude returns roadmaps whose identifiers are not in ids.
func (c *Catalog) Exclude(ids mapset.Set[string]) []*Item {
	result := make([]*Item, 0, len(c.items))
	for _, item := range c.items {
		if ids == nil || !ids.Contains(item.RoadmapId) {
			result = append(result, item)
		}
	}
	return result
}

// FilterByTag keeps roadmaps whose raw tag text contains tag, ignoring case. It is a
// substring match, so "java" also matches "javascript". A blank tag keeps everything.
func FilterByTag(items []*Item, tag string) []*Item {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return items
	}
	var result []*Item
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Tags), tag) {
			result = append(result, item)
		}
	}
	return result
}

// AvailableTags returns every normalized tag of the catalog in ascending order.
func (c *Catalog) AvailableTags() []string {
	tags := mapset.NewThreadUnsafeSet[string]()
	for _, item := range c.items {
		tags.Append(SplitTags(item.Tags)...)
	}
	result := tags.ToSlice()
	sort.Strings(result)
	return result
}
