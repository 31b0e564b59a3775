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
	"fmt"
	"strconv"
	"sync"
	"time"
)

// RangeOptions configures a RangeChunkDriver.
type RangeOptions struct {
	// Start and End bound the numeric item space [Start, End).
	Start uint64
	End   uint64
	// ChunkSize is the maximum number of items per chunk. Defaults to 100.
	ChunkSize int
	// Partitions splits the space into that many disjoint ranges which are
	// visited round-robin. Defaults to 1.
	Partitions int
	// CloseTimeout bounds Close's wait for outstanding chunks. Zero selects
	// DefaultCloseTimeout; a negative value disables the wait.
	CloseTimeout time.Duration
}

type partition struct {
	next uint64
	hi   uint64
}

// RangeChunkDriver hands out a numeric id space as chunks of decimal item ids.
type RangeChunkDriver struct {
	*chunkLedger
	opts RangeOptions

	mu    sync.Mutex
	parts []partition
	rr    int
}

// NewRangeChunkDriver validates opts and returns an uninitialized driver.
func NewRangeChunkDriver(opts RangeOptions) (*RangeChunkDriver, error) {
	if opts.End < opts.Start {
		return nil, fmt.Errorf("range driver: end %d before start %d", opts.End, opts.Start)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100
	}
	if opts.Partitions <= 0 {
		opts.Partitions = 1
	}
	return &RangeChunkDriver{
		chunkLedger: newChunkLedger(resolveCloseTimeout(opts.CloseTimeout)),
		opts:        opts,
	}, nil
}

// Init lays out the partitions. Calling it again on an open driver is a no-op.
func (d *RangeChunkDriver) Init(_ context.Context) error {
	return d.open(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.parts = splitRange(d.opts.Start, d.opts.End, d.opts.Partitions)
		d.rr = 0
		return nil
	})
}

// Next returns the next chunk from the next non-empty partition.
func (d *RangeChunkDriver) Next(ctx context.Context) (*WorkChunk, bool, error) {
	// the state is checked under d.mu so a reset cannot run in between
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	for k := 0; k < len(d.parts); k++ {
		idx := (d.rr + k) % len(d.parts)
		p := &d.parts[idx]
		if p.next >= p.hi {
			continue
		}
		n := p.hi - p.next
		if n > uint64(d.opts.ChunkSize) {
			n = uint64(d.opts.ChunkSize)
		}
		items := make([]string, 0, n)
		for v := p.next; v < p.next+n; v++ {
			items = append(items, strconv.FormatUint(v, 10))
		}
		p.next += n
		d.rr = idx + 1
		chunk, err := d.issue(items)
		if err != nil {
			return nil, false, err
		}
		return chunk, true, nil
	}
	return nil, false, nil
}

// Close waits for outstanding chunks and resets the driver for the next run.
func (d *RangeChunkDriver) Close(ctx context.Context) error {
	return d.close(ctx, func() {
		d.mu.Lock()
		d.parts = nil
		d.rr = 0
		d.mu.Unlock()
	})
}

// splitRange cuts [lo, hi) into n contiguous, disjoint partitions. Empty
// partitions are dropped.
func splitRange(lo, hi uint64, n int) []partition {
	total := hi - lo
	if uint64(n) > total {
		n = int(total)
	}
	if n == 0 {
		return nil
	}
	parts := make([]partition, 0, n)
	step := total / uint64(n)
	extra := total % uint64(n)
	cur := lo
	for i := 0; i < n; i++ {
		size := step
		if uint64(i) < extra {
			size++
		}
		parts = append(parts, partition{next: cur, hi: cur + size})
		cur += size
	}
	return parts
}

func resolveCloseTimeout(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultCloseTimeout
	case d < 0:
		return 0
	default:
		return d
	}
}
