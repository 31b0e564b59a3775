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
	"io"
	"math"
	"sync"
	"sync/atomic"
)

// BlockAllocator reserves contiguous blocks of the numeric id space. A
// reservation [lo, lo+size) is never handed out twice.
type BlockAllocator interface {
	Allocate(ctx context.Context, size uint64) (lo uint64, err error)
}

// MemoryBlockAllocator reserves blocks from an in-process atomic cursor.
type MemoryBlockAllocator struct {
	next atomic.Uint64
}

// NewMemoryBlockAllocator starts reserving at start.
func NewMemoryBlockAllocator(start uint64) *MemoryBlockAllocator {
	a := &MemoryBlockAllocator{}
	a.next.Store(start)
	return a
}

func (a *MemoryBlockAllocator) Allocate(_ context.Context, size uint64) (uint64, error) {
	for {
		lo := a.next.Load()
		if lo > math.MaxUint64-size {
			return 0, ErrIDSpaceExhausted
		}
		if a.next.CompareAndSwap(lo, lo+size) {
			return lo, nil
		}
	}
}

// BlockIDDriver serves ids from blocks reserved up front through a
// BlockAllocator. Ids are unique but not gapless: the unused tail of the
// current block is dropped on Close.
type BlockIDDriver struct {
	alloc     BlockAllocator
	blockSize uint64

	open   atomic.Bool
	issued atomic.Uint64

	mu  sync.Mutex
	cur uint64
	hi  uint64
}

// NewBlockIDDriver reserves blockSize ids at a time (default 1024).
func NewBlockIDDriver(alloc BlockAllocator, blockSize uint64) *BlockIDDriver {
	if blockSize == 0 {
		blockSize = 1024
	}
	return &BlockIDDriver{alloc: alloc, blockSize: blockSize}
}

func (d *BlockIDDriver) Open(_ context.Context) error {
	d.open.Store(true)
	return nil
}

func (d *BlockIDDriver) Next(ctx context.Context) (OutputID, bool, error) {
	if !d.open.Load() {
		return OutputID{}, false, ErrNotInitialized
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur == d.hi {
		lo, err := d.alloc.Allocate(ctx, d.blockSize)
		if err != nil {
			return OutputID{}, false, fmt.Errorf("reserve id block: %w", err)
		}
		d.cur, d.hi = lo, lo+d.blockSize
	}
	v := d.cur
	d.cur++
	d.issued.Add(1)
	return NumericID(v), true, nil
}

func (d *BlockIDDriver) Close(_ context.Context) error {
	d.open.Store(false)
	d.mu.Lock()
	d.cur, d.hi = 0, 0
	d.mu.Unlock()
	d.issued.Store(0)
	return nil
}

func (d *BlockIDDriver) Issued() uint64 { return d.issued.Load() }

// Release closes the allocator when it holds a connection.
func (d *BlockIDDriver) Release() error {
	if c, ok := d.alloc.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
