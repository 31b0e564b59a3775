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

// Package emit turns input items into graph elements. Emitters are called
// concurrently by the scheduler's workers and keep no per-item state.
package emit

import (
	"context"
	"iter"

	"graphloader/internal/loader/driver"
	"graphloader/internal/loader/graph"
)

// IDSource hands out fresh element ids. driver.OutputIDDriver satisfies it.
type IDSource interface {
	Next(ctx context.Context) (driver.OutputID, bool, error)
}

// Emitter yields the elements derived from one item during phase. An emitter
// that has nothing to do in phase yields nothing. A yielded error ends the
// sequence for that item.
type Emitter interface {
	Emit(ctx context.Context, phase graph.Phase, item string, ids IDSource) iter.Seq2[graph.Element, error]
}

// Chain runs every emitter in order for each item.
type Chain []Emitter

func (c Chain) Emit(ctx context.Context, phase graph.Phase, item string, ids IDSource) iter.Seq2[graph.Element, error] {
	return func(yield func(graph.Element, error) bool) {
		for _, e := range c {
			for el, err := range e.Emit(ctx, phase, item, ids) {
				if !yield(el, err) || err != nil {
					return
				}
			}
		}
	}
}

// Options configures the default emitters.
type Options struct {
	VertexLabel string
	Edge        EdgeOptions
}

// New returns the vertex emitter chained with the edge emitter. Both share
// one vertex index, so a Chain must not be reused across runs.
func New(opts Options) Chain {
	index := NewVertexIndex()
	return Chain{NewVertexEmitter(opts.VertexLabel, index), NewEdgeEmitter(opts.Edge, index)}
}
