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
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func mustRange(t *testing.T, opts RangeOptions) *RangeChunkDriver {
	t.Helper()
	d, err := NewRangeChunkDriver(opts)
	require.NoError(t, err)
	return d
}

// drainAll pulls chunks from d with n goroutines until it reports no more work
// and returns every item seen, in no particular order.
func drainAll(t *testing.T, d WorkChunkDriver, n int) []string {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []string
	)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for {
				c, ok, err := d.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				var local []string
				for item := range c.Items() {
					local = append(local, item)
				}
				mu.Lock()
				seen = append(seen, local...)
				mu.Unlock()
				if err := c.OnComplete(); err != nil {
					return err
				}
			}
		})
	}
	require.NoError(t, g.Wait())
	return seen
}

func TestRangeChunkDriver_AtMostOnceUnderConcurrency(t *testing.T) {
	tests := map[string]struct {
		start, end uint64
		chunk      int
		partitions int
		workers    int
	}{
		"single partition":           {start: 0, end: 1000, chunk: 7, partitions: 1, workers: 8},
		"many partitions":            {start: 10, end: 2010, chunk: 13, partitions: 5, workers: 16},
		"more partitions than items": {start: 0, end: 3, chunk: 1, partitions: 8, workers: 4},
		"empty range":                {start: 5, end: 5, chunk: 10, partitions: 2, workers: 3},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := mustRange(t, RangeOptions{Start: tc.start, End: tc.end, ChunkSize: tc.chunk, Partitions: tc.partitions})
			require.NoError(t, d.Init(context.Background()))

			seen := drainAll(t, d, tc.workers)
			require.Len(t, seen, int(tc.end-tc.start))

			uniq := make(map[string]struct{}, len(seen))
			for _, s := range seen {
				_, dup := uniq[s]
				require.False(t, dup, "item %s handed out twice", s)
				uniq[s] = struct{}{}
			}
			for v := tc.start; v < tc.end; v++ {
				require.Contains(t, uniq, strconv.FormatUint(v, 10))
			}

			st := d.Stats()
			require.Equal(t, st.Emitted, st.Acknowledged)
			require.Zero(t, st.Outstanding)
			require.NoError(t, d.Close(context.Background()))
		})
	}
}

func TestRangeChunkDriver_ResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := mustRange(t, RangeOptions{Start: 0, End: 50, ChunkSize: 10})

	for run := 0; run < 3; run++ {
		require.NoError(t, d.Init(ctx))
		require.NoError(t, d.Init(ctx)) // second Init is a no-op
		require.Len(t, drainAll(t, d, 3), 50)
		require.Equal(t, uint64(5), d.Stats().Emitted)
		require.NoError(t, d.Close(ctx))
		require.NoError(t, d.Close(ctx))
		require.Equal(t, ChunkStats{}, d.Stats())
	}
}

func TestChunkDriver_UninitializedUse(t *testing.T) {
	ctx := context.Background()
	d := mustRange(t, RangeOptions{Start: 0, End: 10})

	_, ok, err := d.Next(ctx)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.False(t, ok)
	require.ErrorIs(t, d.AcknowledgeComplete(1), ErrNotInitialized)

	require.NoError(t, d.Init(ctx))
	require.NoError(t, d.Close(ctx))
	_, _, err = d.Next(ctx)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestChunkDriver_UnknownAckIsRejected(t *testing.T) {
	ctx := context.Background()
	d := mustRange(t, RangeOptions{Start: 0, End: 10, ChunkSize: 5})
	require.NoError(t, d.Init(ctx))

	c, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, d.AcknowledgeComplete(c.ID()+100), ErrUnknownChunk)
	require.Zero(t, d.Stats().Acknowledged)

	require.NoError(t, c.OnComplete())
	require.NoError(t, c.OnComplete())
	require.ErrorIs(t, d.AcknowledgeComplete(c.ID()), ErrUnknownChunk)
	require.Equal(t, uint64(1), d.Stats().Acknowledged)
	require.NoError(t, d.Close(ctx))
}

func TestChunkDriver_CloseTimesOutOnOutstandingChunks(t *testing.T) {
	ctx := context.Background()
	d := mustRange(t, RangeOptions{Start: 0, End: 10, ChunkSize: 5, CloseTimeout: 20 * time.Millisecond})
	require.NoError(t, d.Init(ctx))

	_, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	err = d.Close(ctx)
	require.ErrorIs(t, err, ErrOutstandingChunks)
	require.Equal(t, ChunkStats{}, d.Stats(), "close resets even on failure")

	// the driver is usable for a fresh run
	require.NoError(t, d.Init(ctx))
	require.Len(t, drainAll(t, d, 2), 10)
	require.NoError(t, d.Close(ctx))
}

func TestChunkDriver_CloseWaitsForLateAck(t *testing.T) {
	ctx := context.Background()
	d := mustRange(t, RangeOptions{Start: 0, End: 4, ChunkSize: 4, CloseTimeout: time.Second})
	require.NoError(t, d.Init(ctx))

	c, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	done := make(chan error, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		done <- c.OnComplete()
	}()
	require.NoError(t, d.Close(ctx))
	require.NoError(t, <-done)
}

func TestChunkDriver_NoWaitWhenTimeoutDisabled(t *testing.T) {
	ctx := context.Background()
	d := mustRange(t, RangeOptions{Start: 0, End: 4, CloseTimeout: -1})
	require.NoError(t, d.Init(ctx))
	_, _, err := d.Next(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, d.Close(ctx), ErrOutstandingChunks)
}

func TestChunkDriver_AbandonReleasesChunk(t *testing.T) {
	ctx := context.Background()
	d := mustRange(t, RangeOptions{Start: 0, End: 10, ChunkSize: 10, CloseTimeout: 10 * time.Millisecond})
	require.NoError(t, d.Init(ctx))

	c, _, err := d.Next(ctx)
	require.NoError(t, err)
	c.Abandon()
	require.NoError(t, c.OnComplete()) // already finished

	st := d.Stats()
	require.Equal(t, uint64(1), st.Abandoned)
	require.Zero(t, st.Acknowledged)
	require.Zero(t, st.Outstanding)
	require.NoError(t, d.Close(ctx))
}

func TestChunkDriver_NextRacingClose(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 50; round++ {
		d := mustRange(t, RangeOptions{Start: 0, End: 1 << 20, ChunkSize: 1, CloseTimeout: time.Second})
		require.NoError(t, d.Init(ctx))

		var g errgroup.Group
		for w := 0; w < 4; w++ {
			g.Go(func() error {
				for {
					c, ok, err := d.Next(ctx)
					if errors.Is(err, ErrNotInitialized) {
						return nil
					}
					if err != nil {
						return err
					}
					if !ok {
						return errors.New("range drained before close")
					}
					if err := c.OnComplete(); err != nil {
						return err
					}
				}
			})
		}
		time.Sleep(time.Millisecond)
		require.NoError(t, d.Close(ctx))
		require.NoError(t, g.Wait())
		require.Equal(t, ChunkStats{}, d.Stats(), "round %d", round)

		// nothing leaked into the next run
		require.NoError(t, d.Init(ctx))
		require.Zero(t, d.Stats().Outstanding)
		require.NoError(t, d.Close(ctx))
	}
}

func TestChunkDriver_StaleChunkRejectedAfterReset(t *testing.T) {
	ctx := context.Background()
	d := NewListChunkDriver([]string{"a", "b"}, 1, -1)
	require.NoError(t, d.Init(ctx))
	stale, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.ErrorIs(t, d.Close(ctx), ErrOutstandingChunks)

	require.NoError(t, d.Init(ctx))
	fresh, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, stale.ID(), fresh.ID())

	require.ErrorIs(t, stale.OnComplete(), ErrUnknownChunk)
	require.Zero(t, d.Stats().Acknowledged)
	require.NoError(t, fresh.OnComplete())
	require.Len(t, drainAll(t, d, 1), 1)
	require.NoError(t, d.Close(ctx))
}

func TestNewRangeChunkDriver_RejectsInvertedRange(t *testing.T) {
	_, err := NewRangeChunkDriver(RangeOptions{Start: 10, End: 1})
	require.Error(t, err)
}

func TestListAndFileChunkDrivers(t *testing.T) {
	ctx := context.Background()

	l := NewListChunkDriver([]string{"a", "b", "c", "d", "e"}, 2, 0)
	require.NoError(t, l.Init(ctx))
	require.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, drainAll(t, l, 3))
	require.Equal(t, uint64(3), l.Stats().Emitted)
	require.NoError(t, l.Close(ctx))

	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("# header\nv1\n\n  v2  \nv3\n"), 0o644))
	f := NewFileChunkDriver(path, 10, 0)
	require.NoError(t, f.Init(ctx))
	require.Equal(t, []string{"v1", "v2", "v3"}, drainAll(t, f, 1))
	require.NoError(t, f.Close(ctx))

	missing := NewFileChunkDriver(filepath.Join(t.TempDir(), "nope"), 10, 0)
	require.Error(t, missing.Init(ctx))
	_, _, err := missing.Next(ctx)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestSplitRange(t *testing.T) {
	parts := splitRange(0, 10, 3)
	require.Equal(t, []partition{{0, 4}, {4, 7}, {7, 10}}, parts)
	require.Nil(t, splitRange(3, 3, 4))
	require.Len(t, splitRange(0, 2, 5), 2)
}

// fakeRedis mimics the reservation script against an in-memory counter.
type fakeRedis struct {
	mu   sync.Mutex
	vals map[string]int64
	err  error
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.vals == nil {
		f.vals = map[string]int64{}
	}
	size, limit := args[0].(int64), args[1].(int64)
	cur := f.vals[keys[0]]
	if limit > 0 && cur+size > limit {
		return int64(-1), nil
	}
	f.vals[keys[0]] = cur + size
	return cur + size, nil
}

// closingRedis counts how often its connection pool was closed.
type closingRedis struct {
	fakeRedis
	closed int
}

func (c *closingRedis) Close() error {
	c.closed++
	return nil
}

func TestBlockIDDriver_ReleaseClosesAllocator(t *testing.T) {
	ctx := context.Background()
	r := &closingRedis{}
	d := NewBlockIDDriver(NewRedisBlockAllocator(r, "ids", 0), 4)
	require.NoError(t, d.Open(ctx))
	_, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.Close(ctx))
	require.Zero(t, r.closed, "close keeps the connection for the next run")
	require.NoError(t, d.Open(ctx))
	require.NoError(t, d.Close(ctx))

	var rel Releaser = d
	require.NoError(t, rel.Release())
	require.Equal(t, 1, r.closed)

	require.NoError(t, NewBlockIDDriver(NewMemoryBlockAllocator(0), 4).Release())
}

func TestOutputIDDrivers_UniqueUnderConcurrency(t *testing.T) {
	shared := &fakeRedis{}
	tests := map[string]func() OutputIDDriver{
		"counter":      func() OutputIDDriver { return NewCounterIDDriver(100, 0) },
		"block memory": func() OutputIDDriver { return NewBlockIDDriver(NewMemoryBlockAllocator(1), 16) },
		"block redis":  func() OutputIDDriver { return NewBlockIDDriver(NewRedisBlockAllocator(shared, "ids", 0), 8) },
		"ulid":         func() OutputIDDriver { return NewULIDDriver() },
	}

	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d := build()
			_, _, err := d.Next(ctx)
			require.ErrorIs(t, err, ErrNotInitialized)
			require.NoError(t, d.Open(ctx))

			const workers, perWorker = 8, 250
			var (
				mu   sync.Mutex
				seen = make(map[string]struct{}, workers*perWorker)
			)
			var g errgroup.Group
			for w := 0; w < workers; w++ {
				g.Go(func() error {
					local := make([]string, 0, perWorker)
					for i := 0; i < perWorker; i++ {
						id, ok, err := d.Next(ctx)
						if err != nil {
							return err
						}
						if !ok {
							return errors.New("unexpected end of id space")
						}
						local = append(local, id.String())
					}
					mu.Lock()
					defer mu.Unlock()
					for _, s := range local {
						if _, dup := seen[s]; dup {
							return errors.New("duplicate id " + s)
						}
						seen[s] = struct{}{}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())
			require.Len(t, seen, workers*perWorker)
			require.Equal(t, uint64(workers*perWorker), d.Issued())

			require.NoError(t, d.Close(ctx))
			require.Zero(t, d.Issued())
		})
	}
}

func TestCounterIDDriver_Bounds(t *testing.T) {
	ctx := context.Background()
	d := NewCounterIDDriver(5, 3)
	require.NoError(t, d.Open(ctx))

	var got []string
	for {
		id, ok, err := d.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, id.String())
	}
	require.Equal(t, []string{"5", "6", "7"}, got)

	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Open(ctx))
	id, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, NumericID(5), id, "close restarts the counter")
}

func TestCounterIDDriver_Exhausted(t *testing.T) {
	ctx := context.Background()
	d := NewCounterIDDriver(^uint64(0), 0)
	require.NoError(t, d.Open(ctx))

	_, ok, err := d.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	_, _, err = d.Next(ctx)
	require.ErrorIs(t, err, ErrIDSpaceExhausted)
}

func TestRedisBlockAllocator(t *testing.T) {
	ctx := context.Background()
	r := &fakeRedis{}
	a := NewRedisBlockAllocator(r, "k", 20)

	lo, err := a.Allocate(ctx, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(0), lo)
	lo, err = a.Allocate(ctx, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(8), lo)

	_, err = a.Allocate(ctx, 8)
	require.ErrorIs(t, err, ErrIDSpaceExhausted)

	r.err = errors.New("connection refused")
	_, err = a.Allocate(ctx, 1)
	require.ErrorContains(t, err, "connection refused")

	d := NewBlockIDDriver(a, 4)
	require.NoError(t, d.Open(ctx))
	_, _, err = d.Next(ctx)
	require.ErrorContains(t, err, "reserve id block")
}

func TestOutputID(t *testing.T) {
	require.True(t, OutputID{}.IsZero())
	require.Equal(t, "42", NumericID(42).String())
	require.Equal(t, "v-1", StringID("v-1").String())
	require.Equal(t, NumericID(7), NumericID(7))
	require.NotEqual(t, NumericID(7), StringID("7"))
}

func TestRegistry(t *testing.T) {
	require.Equal(t, []string{"file", "list", "range"}, ChunkDriverNames())
	require.Equal(t, []string{"block", "counter", "ulid"}, IDDriverNames())

	c, err := BuildChunkDriver("", ChunkOptions{End: 10})
	require.NoError(t, err)
	require.IsType(t, &RangeChunkDriver{}, c)

	_, err = BuildChunkDriver("file", ChunkOptions{})
	require.Error(t, err)

	_, err = BuildChunkDriver("list", ChunkOptions{})
	require.ErrorContains(t, err, "driver.chunk.items")
	c, err = BuildChunkDriver("list", ChunkOptions{Items: []string{"x", "y"}})
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	require.ElementsMatch(t, []string{"x", "y"}, drainAll(t, c, 2))
	require.NoError(t, c.Close(context.Background()))

	_, err = BuildChunkDriver("zookeeper", ChunkOptions{})
	require.ErrorIs(t, err, ErrUnknownDriver)

	id, err := BuildIDDriver("", IDOptions{})
	require.NoError(t, err)
	require.IsType(t, &CounterIDDriver{}, id)

	id, err = BuildIDDriver("block", IDOptions{BlockSize: 4})
	require.NoError(t, err)
	require.IsType(t, &BlockIDDriver{}, id)

	_, err = BuildIDDriver("snowflake", IDOptions{})
	require.ErrorIs(t, err, ErrUnknownDriver)
}
