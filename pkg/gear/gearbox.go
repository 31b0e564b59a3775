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

package gear

import (
	"errors"
	"iter"
)

// Meshed is anything that hands out zipped batches until complete.
// *PinionSystem satisfies it for any pair of gear types.
type Meshed[Z any] interface {
	GetNext() ([]Z, bool, error)
	Complete() bool
	Close()
}

// GearBox merges independent pinions into one flattened sequence. No order is
// promised between pinions; every batch of every pinion appears exactly once.
type GearBox[Z any] struct {
	pinions []Meshed[Z]
	active  []bool
	errs    []error
}

// NewGearBox wraps the given pinions.
func NewGearBox[Z any](pinions ...Meshed[Z]) *GearBox[Z] {
	active := make([]bool, len(pinions))
	for i, p := range pinions {
		active[i] = !p.Complete()
	}
	return &GearBox[Z]{pinions: pinions, active: active}
}

// Stream visits the incomplete pinions round-robin, one batch each per turn,
// until all of them are complete. A pinion whose halt check fails stops
// contributing; the failure is reported by Err.
func (g *GearBox[Z]) Stream() iter.Seq[Z] {
	return func(yield func(Z) bool) {
		for remaining := g.countActive(); remaining > 0; remaining = g.countActive() {
			for i, p := range g.pinions {
				if !g.active[i] {
					continue
				}
				batch, ok, err := p.GetNext()
				if err != nil {
					g.errs = append(g.errs, err)
				}
				if !ok {
					g.active[i] = false
					continue
				}
				for _, z := range batch {
					if !yield(z) {
						return
					}
				}
			}
		}
	}
}

// Complete reports whether every contained pinion is complete.
func (g *GearBox[Z]) Complete() bool {
	for _, p := range g.pinions {
		if !p.Complete() {
			return false
		}
	}
	return true
}

// Close stops every pinion that is still live. Call it when abandoning a
// Stream before it ends.
func (g *GearBox[Z]) Close() {
	for i, p := range g.pinions {
		p.Close()
		g.active[i] = false
	}
}

// Err joins the halt failures seen while streaming.
func (g *GearBox[Z]) Err() error { return errors.Join(g.errs...) }

// Len returns the number of pinions in the box.
func (g *GearBox[Z]) Len() int { return len(g.pinions) }

func (g *GearBox[Z]) countActive() int {
	n := 0
	for _, a := range g.active {
		if a {
			n++
		}
	}
	return n
}
