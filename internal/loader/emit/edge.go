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
	"encoding/binary"
	"iter"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"graphloader/internal/loader/graph"
	"graphloader/pkg/gear"
)

// EdgeOptions configures the EdgeEmitter.
type EdgeOptions struct {
	// Labels gets one slip wheel each; every label contributes Degree
	// candidate edges per item.
	Labels []string
	Degree int
	Seed   uint64
	// Partners are drawn from the item space [PartnerBase, PartnerBase+PartnerCount).
	PartnerBase  uint64
	PartnerCount uint64
}

// EdgeEmitter emits edges from each item to deterministic partners in
// PhaseTwo. Per item, one slip wheel per label pairs the item (gear A) with
// its candidate partners (gear B); a gear box merges the labels.
//
// Endpoints are resolved through the vertex index filled in PhaseOne. A
// candidate whose item or partner has no vertex is skipped.
type EdgeEmitter struct {
	opts  EdgeOptions
	index *VertexIndex
}

// NewEdgeEmitter resolves endpoints through index. A nil index is empty, so
// such an emitter yields no edges.
func NewEdgeEmitter(opts EdgeOptions, index *VertexIndex) *EdgeEmitter {
	if index == nil {
		index = NewVertexIndex()
	}
	return &EdgeEmitter{opts: opts, index: index}
}

type candidate struct {
	label    string
	from, to string
}

func (e *EdgeEmitter) Emit(ctx context.Context, phase graph.Phase, item string, ids IDSource) iter.Seq2[graph.Element, error] {
	return func(yield func(graph.Element, error) bool) {
		if phase != graph.PhaseTwo || e.opts.Degree <= 0 || e.opts.PartnerCount == 0 || len(e.opts.Labels) == 0 {
			return
		}
		from, ok := e.index.Lookup(item)
		if !ok {
			return
		}
		box := e.gearBox(item)
		defer box.Close()

		for c := range box.Stream() {
			if c.from == c.to {
				continue
			}
			to, ok := e.index.Lookup(c.to)
			if !ok {
				continue
			}
			id, err := nextID(ctx, ids, item)
			if err != nil {
				yield(graph.Element{}, err)
				return
			}
			el := graph.Element{Kind: graph.KindEdge, ID: id, Label: c.label, From: from, To: to}
			if !yield(el, nil) {
				return
			}
		}
		if err := box.Err(); err != nil {
			yield(graph.Element{}, err)
		}
	}
}

func (e *EdgeEmitter) gearBox(item string) *gear.GearBox[candidate] {
	pinions := make([]gear.Meshed[candidate], 0, len(e.opts.Labels))
	for _, label := range e.opts.Labels {
		zip := func(from, to string) candidate { return candidate{label: label, from: from, to: to} }
		wheel := gear.NewSlipWheel(gear.SliceSupplier(item), e.partners(item, label), zip, nil, e.opts.Degree)
		pinions = append(pinions, wheel)
	}
	return gear.NewGearBox[candidate](pinions...)
}

// partners replays the same Degree candidates on every rotation.
func (e *EdgeEmitter) partners(item, label string) gear.Supplier[string] {
	return func() iter.Seq[string] {
		return func(yield func(string) bool) {
			for k := 0; k < e.opts.Degree; k++ {
				h := partnerHash(e.opts.Seed, item, label, k)
				if !yield(strconv.FormatUint(e.opts.PartnerBase+h%e.opts.PartnerCount, 10)) {
					return
				}
			}
		}
	}
}

func partnerHash(seed uint64, item, label string, k int) uint64 {
	var buf [8]byte
	d := xxhash.New()
	binary.LittleEndian.PutUint64(buf[:], seed)
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(item)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(label)
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	_, _ = d.Write(buf[:])
	return d.Sum64()
}
