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
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Releaser is implemented by drivers that hold resources beyond a single
// run, such as a Redis connection pool. A released driver cannot be opened
// again.
type Releaser interface {
	Release() error
}

// ChunkOptions carries every setting a chunk driver factory may read.
type ChunkOptions struct {
	Start        uint64
	End          uint64
	ChunkSize    int
	Partitions   int
	File         string
	Items        []string
	CloseTimeout time.Duration
}

// IDOptions carries every setting an id driver factory may read.
type IDOptions struct {
	Start     uint64
	Limit     uint64
	BlockSize uint64
	RedisAddr string
	RedisKey  string
}

type (
	ChunkFactory func(ChunkOptions) (WorkChunkDriver, error)
	IDFactory    func(IDOptions) (OutputIDDriver, error)
)

var (
	regMu          sync.RWMutex
	chunkFactories = map[string]ChunkFactory{}
	idFactories    = map[string]IDFactory{}
)

// RegisterChunkDriver makes a chunk driver selectable by name. Registering a
// name twice replaces the earlier factory.
func RegisterChunkDriver(name string, f ChunkFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	chunkFactories[name] = f
}

// RegisterIDDriver makes an id driver selectable by name.
func RegisterIDDriver(name string, f IDFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	idFactories[name] = f
}

// BuildChunkDriver constructs the chunk driver registered under name.
// Built in:
//   - "range" (default): numeric id space split into partitions
//   - "list": the explicit Items list
//   - "file": newline separated ids read from File on every Init
func BuildChunkDriver(name string, opts ChunkOptions) (WorkChunkDriver, error) {
	if name == "" {
		name = "range"
	}
	regMu.RLock()
	f, ok := chunkFactories[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chunk driver %q", ErrUnknownDriver, name)
	}
	return f(opts)
}

// BuildIDDriver constructs the id driver registered under name.
// Built in:
//   - "counter" (default): atomic counter from Start, bounded by Limit when non-zero
//   - "block": block reservations from memory, or from Redis when RedisAddr is set
//   - "ulid": monotonic ULIDs
func BuildIDDriver(name string, opts IDOptions) (OutputIDDriver, error) {
	if name == "" {
		name = "counter"
	}
	regMu.RLock()
	f, ok := idFactories[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: id driver %q", ErrUnknownDriver, name)
	}
	return f(opts)
}

// ChunkDriverNames lists registered chunk drivers in sorted order.
func ChunkDriverNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	return sortedKeys(chunkFactories)
}

// IDDriverNames lists registered id drivers in sorted order.
func IDDriverNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	return sortedKeys(idFactories)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterChunkDriver("range", func(o ChunkOptions) (WorkChunkDriver, error) {
		return NewRangeChunkDriver(RangeOptions{
			Start:        o.Start,
			End:          o.End,
			ChunkSize:    o.ChunkSize,
			Partitions:   o.Partitions,
			CloseTimeout: o.CloseTimeout,
		})
	})
	RegisterChunkDriver("list", func(o ChunkOptions) (WorkChunkDriver, error) {
		if len(o.Items) == 0 {
			return nil, errors.New("list driver requires driver.chunk.items")
		}
		return NewListChunkDriver(o.Items, o.ChunkSize, o.CloseTimeout), nil
	})
	RegisterChunkDriver("file", func(o ChunkOptions) (WorkChunkDriver, error) {
		if o.File == "" {
			return nil, errors.New("file driver requires driver.chunk.file")
		}
		return NewFileChunkDriver(o.File, o.ChunkSize, o.CloseTimeout), nil
	})

	RegisterIDDriver("counter", func(o IDOptions) (OutputIDDriver, error) {
		return NewCounterIDDriver(o.Start, o.Limit), nil
	})
	RegisterIDDriver("block", func(o IDOptions) (OutputIDDriver, error) {
		var alloc BlockAllocator
		if o.RedisAddr != "" {
			alloc = NewRedisBlockAllocator(NewGoRedisEvaler(o.RedisAddr), o.RedisKey, o.Limit)
		} else {
			alloc = NewMemoryBlockAllocator(o.Start)
		}
		return NewBlockIDDriver(alloc, o.BlockSize), nil
	})
	RegisterIDDriver("ulid", func(IDOptions) (OutputIDDriver, error) {
		return NewULIDDriver(), nil
	})
}
