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

import "iter"

// HaltCheck decides, from the state of both gears, when pairing should stop.
type HaltCheck[A, B any] func(a *CyclicStream[A], b *CyclicStream[B]) (bool, error)

// OneRotationHaltCheck stops once both gears have drawn at least one full pass
// of their underlying sequences. The shorter gear wraps around and repeats its
// values while the longer gear still has fresh elements.
func OneRotationHaltCheck[A, B any](a *CyclicStream[A], b *CyclicStream[B]) (bool, error) {
	return a.Passes() >= 1 && b.Passes() >= 1, nil
}

// RotationsHaltCheck stops once both gears have drawn n full passes.
func RotationsHaltCheck[A, B any](n uint64) HaltCheck[A, B] {
	return func(a *CyclicStream[A], b *CyclicStream[B]) (bool, error) {
		return a.Passes() >= n && b.Passes() >= n, nil
	}
}

// GearAPassesHaltCheck stops once gear A alone has drawn n full passes,
// regardless of where gear B stands.
func GearAPassesHaltCheck[A, B any](n uint64) HaltCheck[A, B] {
	return func(a *CyclicStream[A], _ *CyclicStream[B]) (bool, error) {
		return a.Passes() >= n, nil
	}
}

// PinionSystem meshes gear A with gear B. Every draw consumes exactly one
// element of A and then up to notches elements of B, zipping each pair.
//
// Gear A gates the pairing: the halt check is consulted whenever A's live
// rotation runs out, and a false answer restarts A transparently. Gear B
// restarts whenever it runs out while the pinion is live, unless a gear B
// halt was installed with WithGearBHalt and says otherwise; in that case the
// remaining notches of the draw are skipped and the batch is smaller.
type PinionSystem[A, B, Z any] struct {
	a       *CyclicStream[A]
	b       *CyclicStream[B]
	zip     func(A, B) Z
	halt    HaltCheck[A, B]
	haltB   HaltCheck[A, B]
	notches int

	// odometers, never reset
	odoA uint64
	odoB uint64

	complete bool
	err      error
}

// NewPinionSystem builds a one-notch pinion. A nil halt selects
// OneRotationHaltCheck.
func NewPinionSystem[A, B, Z any](gearA Supplier[A], gearB Supplier[B], zip func(A, B) Z, halt HaltCheck[A, B]) *PinionSystem[A, B, Z] {
	return NewSlipWheel(gearA, gearB, zip, halt, 1)
}

// NewSlipWheel builds a pinion that pairs each element of gear A with notches
// consecutive elements of gear B. notches below 1 is treated as 1.
func NewSlipWheel[A, B, Z any](gearA Supplier[A], gearB Supplier[B], zip func(A, B) Z, halt HaltCheck[A, B], notches int) *PinionSystem[A, B, Z] {
	if halt == nil {
		halt = OneRotationHaltCheck[A, B]
	}
	if notches < 1 {
		notches = 1
	}
	p := &PinionSystem[A, B, Z]{zip: zip, halt: halt, notches: notches}
	p.a = NewCyclicStream(gearA, func() (bool, error) {
		return p.halt(p.a, p.b)
	})
	p.b = NewCyclicStream(gearB, func() (bool, error) {
		if p.complete {
			return true, nil
		}
		if p.haltB != nil {
			return p.haltB(p.a, p.b)
		}
		return false, nil
	})
	return p
}

// WithGearBHalt installs a halt check for gear B alone. It must be called
// before the first draw.
func (p *PinionSystem[A, B, Z]) WithGearBHalt(h HaltCheck[A, B]) *PinionSystem[A, B, Z] {
	p.haltB = h
	return p
}

// GetNext returns the zipped batch for one element of gear A. The boolean is
// false once the pinion is complete. A halt check failure terminates the
// pairing and is returned wrapped in ErrHaltCheck.
func (p *PinionSystem[A, B, Z]) GetNext() ([]Z, bool, error) {
	if p.complete {
		return nil, false, p.err
	}

	a, ok, err := p.a.Next()
	if err != nil {
		p.terminate(err)
		return nil, false, err
	}
	if !ok {
		p.terminate(nil)
		return nil, false, nil
	}
	p.odoA++

	out := make([]Z, 0, p.notches)
	for i := 0; i < p.notches; i++ {
		b, ok, err := p.b.Next()
		if err != nil {
			p.terminate(err)
			return nil, false, err
		}
		if !ok {
			break
		}
		p.odoB++
		out = append(out, p.zip(a, b))
	}
	return out, true, nil
}

// Stream flattens every batch into one sequence. Inspect Err once it ends.
func (p *PinionSystem[A, B, Z]) Stream() iter.Seq[Z] {
	return func(yield func(Z) bool) {
		for {
			batch, ok, _ := p.GetNext()
			if !ok {
				return
			}
			for _, z := range batch {
				if !yield(z) {
					return
				}
			}
		}
	}
}

// Close stops the pinion early. It is a no-op once the pinion is complete.
func (p *PinionSystem[A, B, Z]) Close() {
	if !p.complete {
		p.terminate(nil)
	}
}

// Complete reports whether the pinion has stopped producing batches.
func (p *PinionSystem[A, B, Z]) Complete() bool { return p.complete }

// Err returns the failure that terminated the pairing, if any.
func (p *PinionSystem[A, B, Z]) Err() error { return p.err }

// Odometers returns the total number of elements drawn from gear A and gear B
// across all rotations.
func (p *PinionSystem[A, B, Z]) Odometers() (uint64, uint64) { return p.odoA, p.odoB }

// Notches returns how many B elements are paired with each A element.
func (p *PinionSystem[A, B, Z]) Notches() int { return p.notches }

// GearA exposes gear A for diagnostics and custom halt checks.
func (p *PinionSystem[A, B, Z]) GearA() *CyclicStream[A] { return p.a }

// GearB exposes gear B for diagnostics and custom halt checks.
func (p *PinionSystem[A, B, Z]) GearB() *CyclicStream[B] { return p.b }

func (p *PinionSystem[A, B, Z]) terminate(err error) {
	p.complete = true
	p.err = err
	p.a.Close()
	p.b.Close()
}
