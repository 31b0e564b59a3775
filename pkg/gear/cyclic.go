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

// Package gear pairs sequences of unequal, possibly unbounded length by
// treating them as meshed gears that restart when exhausted.
//
// A CyclicStream is one gear: a restartable wrapper around a supplier of
// finite sequences plus a halt predicate. A PinionSystem meshes two gears
// through a zip function, a SlipWheel lets one element of gear A pair with
// several consecutive elements of gear B, and a GearBox merges independent
// pinions into a single flattened sequence.
//
// None of the types in this package are safe for concurrent use. A gear is a
// sequential state machine; confine each instance to one goroutine or guard
// every call with a single mutex.
package gear

import (
	"errors"
	"fmt"
	"iter"
)

// ErrHaltCheck wraps any error returned by a user supplied halt predicate.
var ErrHaltCheck = errors.New("gear: halt check failed")

// Supplier returns a fresh, finite sequence every time it is called.
type Supplier[T any] func() iter.Seq[T]

// HaltFunc reports whether the whole wheel should stop. It is evaluated each
// time the current underlying sequence is exhausted.
type HaltFunc func() (bool, error)

// SliceSupplier returns a Supplier that replays the given values on every rotation.
func SliceSupplier[T any](values ...T) Supplier[T] {
	return func() iter.Seq[T] {
		return func(yield func(T) bool) {
			for _, v := range values {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// CyclicStream is a restartable sequence driven by an external stopping
// condition. The zero value is not usable; call NewCyclicStream.
//
// The stream keeps a one element lookahead on the live rotation so that the
// end of a pass is known as soon as its last element is drawn.
type CyclicStream[T any] struct {
	supplier Supplier[T]
	halt     HaltFunc

	next func() (T, bool)
	stop func()

	peeked  T
	hasPeek bool

	started bool
	done    bool
	err     error

	// rotations counts how many times the supplier has been asked for a
	// sequence; the first start counts as rotation one.
	rotations uint64
	// passes counts how many rotations were drawn to their end.
	passes uint64
	drawn  uint64
}

// NewCyclicStream builds a gear over supplier. A nil halt never stops the
// wheel, so the stream only ends when the supplier yields an empty rotation.
func NewCyclicStream[T any](supplier Supplier[T], halt HaltFunc) *CyclicStream[T] {
	if halt == nil {
		halt = func() (bool, error) { return false, nil }
	}
	return &CyclicStream[T]{supplier: supplier, halt: halt}
}

// Next draws the next element, restarting the underlying sequence when it is
// exhausted and the halt predicate allows it. The boolean is false once the
// stream has ended; err is non-nil only when the halt predicate failed.
func (c *CyclicStream[T]) Next() (T, bool, error) {
	var zero T
	if c.done {
		return zero, false, c.err
	}
	if !c.started {
		c.started = true
		c.restart()
	}
	if !c.hasPeek {
		halted, err := c.halt()
		if err != nil {
			c.finish(fmt.Errorf("%w: %w", ErrHaltCheck, err))
			return zero, false, c.err
		}
		if halted {
			c.finish(nil)
			return zero, false, nil
		}
		c.restart()
		if !c.hasPeek {
			// an empty rotation would spin forever
			c.finish(nil)
			return zero, false, nil
		}
	}

	v := c.peeked
	c.drawn++
	c.advance()
	return v, true, nil
}

// Stream returns the elements of the wheel for its whole lifetime. A halt
// failure ends the sequence early; inspect Err afterwards.
func (c *CyclicStream[T]) Stream() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok, _ := c.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Close releases the live rotation. Further calls to Next report the end of
// the stream.
func (c *CyclicStream[T]) Close() {
	c.finish(c.err)
}

// Err returns the halt failure that ended the stream, if any.
func (c *CyclicStream[T]) Err() error { return c.err }

// Done reports whether the stream has ended.
func (c *CyclicStream[T]) Done() bool { return c.done }

// Rotations returns the number of times the underlying sequence was started.
// It is 0 before first use and 1 during the first rotation.
func (c *CyclicStream[T]) Rotations() uint64 { return c.rotations }

// CompletedRotations returns the number of rotations abandoned in favor of a
// new one: max(0, Rotations()-1).
func (c *CyclicStream[T]) CompletedRotations() uint64 {
	if c.rotations == 0 {
		return 0
	}
	return c.rotations - 1
}

// Passes returns the number of rotations that were drawn to their end.
func (c *CyclicStream[T]) Passes() uint64 { return c.passes }

// Drawn returns the total number of elements drawn across all rotations.
func (c *CyclicStream[T]) Drawn() uint64 { return c.drawn }

// AtBoundary reports whether the live rotation has no element left.
func (c *CyclicStream[T]) AtBoundary() bool { return c.started && !c.hasPeek }

func (c *CyclicStream[T]) restart() {
	if c.stop != nil {
		c.stop()
	}
	c.rotations++
	c.next, c.stop = iter.Pull(c.supplier())
	c.advance()
}

func (c *CyclicStream[T]) advance() {
	v, ok := c.next()
	if ok {
		c.peeked, c.hasPeek = v, true
		return
	}
	var zero T
	c.peeked, c.hasPeek = zero, false
	c.passes++
	c.stop()
	c.stop = nil
}

func (c *CyclicStream[T]) finish(err error) {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	var zero T
	c.peeked, c.hasPeek = zero, false
	c.done = true
	c.err = err
}
