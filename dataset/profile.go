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
	"bytes"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"
	"github.com/juju/errors"
)

// Profile is the learning history of a single user.
type Profile struct {
	CompletedRoadmaps      []string
	CompletedNodes         []string
	TotalRoadmapsCompleted int
	TotalNodesCompleted    int
}

type profileObject struct {
	CompletedRoadmaps      []json.RawMessage `json:"completed_roadmaps"`
	CompletedNodes         []json.RawMessage `json:"completed_nodes"`
	TotalRoadmapsCompleted *int              `json:"total_roadmaps_completed"`
	TotalNodesCompleted    *int              `json:"total_nodes_completed"`
}

// ParseProfile decodes a profile. Both the object form and a bare array of completed
// roadmap identifiers are accepted.
func ParseProfile(data []byte) (*Profile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &Profile{}, nil
	}
	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.NewNotValid(err, "invalid profile")
		}
		roadmaps, err := identifiers(raw)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return &Profile{
			CompletedRoadmaps:      roadmaps,
			TotalRoadmapsCompleted: len(roadmaps),
		}, nil
	case '{':
		var obj profileObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, errors.NewNotValid(err, "invalid profile")
		}
		roadmaps, err := identifiers(obj.CompletedRoadmaps)
		if err != nil {
			return nil, errors.Trace(err)
		}
		nodes, err := identifiers(obj.CompletedNodes)
		if err != nil {
			return nil, errors.Trace(err)
		}
		profile := &Profile{
			CompletedRoadmaps:      roadmaps,
			CompletedNodes:         nodes,
			TotalRoadmapsCompleted: len(roadmaps),
			TotalNodesCompleted:    len(nodes),
		}
		if obj.TotalRoadmapsCompleted != nil {
			profile.TotalRoadmapsCompleted = *obj.TotalRoadmapsCompleted
		}
		if obj.TotalNodesCompleted != nil {
			profile.TotalNodesCompleted = *obj.TotalNodesCompleted
		}
		return profile, nil
	default:
		return nil, errors.NotValidf("profile %q", abbreviate(data))
	}
}

// identifiers converts JSON strings and numbers to identifiers.
func identifiers(raw []json.RawMessage) ([]string, error) {
	result := make([]string, 0, len(raw))
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 {
			continue
		}
		switch {
		case r[0] == '"':
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				return nil, errors.NewNotValid(err, "invalid identifier")
			}
			result = append(result, s)
		case r[0] == '-' || (r[0] >= '0' && r[0] <= '9'):
			result = append(result, string(r))
		default:
			return nil, errors.NotValidf("identifier %s", abbreviate(r))
		}
	}
	return result, nil
}

func abbreviate(data []byte) string {
	if len(data) > 32 {
		return string(data[:32]) + "..."
	}
	return string(data)
}

// CompletedSet returns the completed roadmap identifiers.
func (p *Profile) CompletedSet() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(p.CompletedRoadmaps...)
}

// TagClosure returns the explicitly completed tags plus the tags of completed roadmaps
// found in the catalog. Unknown roadmaps contribute nothing.
func (p *Profile) TagClosure(catalog *Catalog) mapset.Set[string] {
	closure := mapset.NewThreadUnsafeSet[string]()
	// a node is one tag even if its name contains a comma
	for _, node := range p.CompletedNodes {
		if tag := strings.ToLower(strings.TrimSpace(node)); tag != "" {
			closure.Add(tag)
		}
	}
	for _, id := range p.CompletedRoadmaps {
		if item, exist := catalog.Get(id); exist {
			closure.Append(SplitTags(item.Tags)...)
		}
	}
	return closure
}
