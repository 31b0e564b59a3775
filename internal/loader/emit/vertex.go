// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package emit

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"graphloader/internal/loader/graph"
)

// ErrNoID is yielded when a bounded id driver has nothing left to hand out.
var ErrNoID = errors.New("no output id available")

// VertexEmitter emits one vertex per item in PhaseOne and records its id in
// the index when one is set.
type VertexEmitter struct {
	label string
	index *VertexIndex
}

func NewVertexEmitter(label string, index *VertexIndex) *VertexEmitter {
	if label == "" {
		label = "vertex"
	}
	return &VertexEmitter{label: label, index: index}
}

func (v *VertexEmitter) Emit(ctx context.Context, phase graph.Phase, item string, ids IDSource) iter.Seq2[graph.Element, error] {
	return func(yield func(graph.Element, error) bool) {
		if phase != graph.PhaseOne {
			return
		}
		id, err := nextID(ctx, ids, item)
		if err != nil {
			yield(graph.Element{}, err)
			return
		}
		el := graph.Element{
			Kind:       graph.KindVertex,
			ID:         id,
			Label:      v.label,
			Properties: map[string]any{"source": item},
		}
		// only vertices the consumer accepted become edge endpoints
		if yield(el, nil) && v.index != nil {
			v.index.Record(item, id)
		}
	}
}

func nextID(ctx context.Context, ids IDSource, item string) (string, error) {
	id, ok, err := ids.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("id for item %s: %w", item, err)
	}
	if !ok {
		return "", fmt.Errorf("id for item %s: %w", item, ErrNoID)
	}
	return id.String(), nil
}
