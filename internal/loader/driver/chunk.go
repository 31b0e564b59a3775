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

package driver

import (
	"context"
	"iter"
)

// WorkChunk is a finite, ordered slice of item ids owned by exactly one worker.
// It must not be shared across goroutines once handed out.
type WorkChunk struct {
	id       uint64
	items    []string
	pos      int
	ledger   *chunkLedger
	finished bool
}

// ID returns the chunk id, unique across every run of its driver.
func (c *WorkChunk) ID() uint64 { return c.id }

// Len returns the total number of items in the chunk.
func (c *WorkChunk) Len() int { return len(c.items) }

// Remaining returns the number of items not consumed yet.
func (c *WorkChunk) Remaining() int { return len(c.items) - c.pos }

// Next consumes the next item.
func (c *WorkChunk) Next() (string, bool) {
	if c.pos >= len(c.items) {
		return "", false
	}
	item := c.items[c.pos]
	c.pos++
	return item, true
}

// Items consumes the remaining items in order.
func (c *WorkChunk) Items() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			item, ok := c.Next()
			if !ok || !yield(item) {
				return
			}
		}
	}
}

// OnComplete reports the chunk as fully drained to its driver. Only the first
// call has an effect.
func (c *WorkChunk) OnComplete() error {
	if c.finished {
		return nil
	}
	c.finished = true
	return c.ledger.AcknowledgeComplete(c.id)
}

// Abandon gives the chunk up without acknowledging it, e.g. when the phase
// is aborted. Unconsumed items are not redistributed.
func (c *WorkChunk) Abandon() {
	if c.finished {
		return
	}
	c.finished = true
	c.ledger.release(c.id)
}

// ChunkStats is a point-in-time view of a chunk driver's bookkeeping.
type ChunkStats struct {
	Emitted      uint64
	Acknowledged uint64
	Abandoned    uint64
	Outstanding  int64
}

// WorkChunkDriver distributes the work of a phase as disjoint chunks.
//
// Next is safe for concurrent use. It returns (nil, false, nil) when no work
// is left and ErrNotInitialized when called outside Init/Close.
type WorkChunkDriver interface {
	Init(ctx context.Context) error
	Next(ctx context.Context) (*WorkChunk, bool, error)
	AcknowledgeComplete(id uint64) error
	Close(ctx context.Context) error
	Stats() ChunkStats
}
