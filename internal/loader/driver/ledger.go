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
	"sync"
	"sync/atomic"
	"time"

	"graphloader/internal/loader/telemetry"
)

const (
	stateNew int32 = iota
	stateOpen
	stateClosing
)

// DefaultCloseTimeout bounds how long Close waits for outstanding chunks.
const DefaultCloseTimeout = 30 * time.Second

const drainPollInterval = 5 * time.Millisecond

// chunkLedger is the bookkeeping shared by every chunk driver: lifecycle
// state, counters and the concurrent set of outstanding chunk ids.
//
// Acknowledgements are accepted while the ledger is closing so that workers
// finishing their last chunk can drain it. Chunk ids keep growing across
// runs, so a chunk left over from an earlier run is never mistaken for one
// of the current run.
type chunkLedger struct {
	mu    sync.Mutex // serializes init and close
	state atomic.Int32
	// gate orders issue against the open to closing transition
	gate sync.Mutex
	seq  atomic.Uint64

	emitted   atomic.Uint64
	acked     atomic.Uint64
	abandoned atomic.Uint64
	pending   atomic.Int64

	outstanding sync.Map // map[uint64]struct{}

	closeTimeout time.Duration
}

func newChunkLedger(closeTimeout time.Duration) *chunkLedger {
	return &chunkLedger{closeTimeout: closeTimeout}
}

// open runs setup exactly once per run.
func (l *chunkLedger) open(setup func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Load() == stateOpen {
		return nil
	}
	if setup != nil {
		if err := setup(); err != nil {
			return err
		}
	}
	l.state.Store(stateOpen)
	return nil
}

func (l *chunkLedger) checkOpen() error {
	if l.state.Load() != stateOpen {
		return ErrNotInitialized
	}
	return nil
}

// issue registers a new outstanding chunk over items. It fails once close
// has started, so no chunk is handed out that close would not wait for.
func (l *chunkLedger) issue(items []string) (*WorkChunk, error) {
	l.gate.Lock()
	defer l.gate.Unlock()
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	id := l.seq.Add(1)
	l.emitted.Add(1)
	l.outstanding.Store(id, struct{}{})
	l.pending.Add(1)
	telemetry.ObserveChunkEmitted()
	return &WorkChunk{id: id, items: items, ledger: l}, nil
}

// AcknowledgeComplete marks the chunk as drained. An id that is not
// outstanding is rejected and leaves the counters untouched.
func (l *chunkLedger) AcknowledgeComplete(id uint64) error {
	switch l.state.Load() {
	case stateOpen, stateClosing:
	default:
		return ErrNotInitialized
	}
	if _, ok := l.outstanding.LoadAndDelete(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChunk, id)
	}
	l.pending.Add(-1)
	l.acked.Add(1)
	telemetry.ObserveChunkAcknowledged()
	return nil
}

func (l *chunkLedger) release(id uint64) {
	if _, ok := l.outstanding.LoadAndDelete(id); ok {
		l.pending.Add(-1)
		l.abandoned.Add(1)
		telemetry.ObserveChunkAbandoned()
	}
}

// Stats returns a snapshot of the counters.
func (l *chunkLedger) Stats() ChunkStats {
	return ChunkStats{
		Emitted:      l.emitted.Load(),
		Acknowledged: l.acked.Load(),
		Abandoned:    l.abandoned.Load(),
		Outstanding:  l.pending.Load(),
	}
}

// close stops handing out chunks, waits for the outstanding ones to be
// acknowledged, and resets the ledger whatever the outcome.
func (l *chunkLedger) close(ctx context.Context, reset func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gate.Lock()
	closing := l.state.CompareAndSwap(stateOpen, stateClosing)
	l.gate.Unlock()

	var err error
	if closing {
		err = l.awaitDrain(ctx)
	}

	l.outstanding.Range(func(key, _ any) bool {
		l.outstanding.Delete(key)
		return true
	})
	l.pending.Store(0)
	l.emitted.Store(0)
	l.acked.Store(0)
	l.abandoned.Store(0)
	if reset != nil {
		reset()
	}
	l.state.Store(stateNew)
	return err
}

func (l *chunkLedger) awaitDrain(ctx context.Context) error {
	if l.pending.Load() == 0 {
		return nil
	}
	if l.closeTimeout <= 0 {
		return fmt.Errorf("%w: %d", ErrOutstandingChunks, l.pending.Load())
	}

	timer := time.NewTimer(l.closeTimeout)
	defer timer.Stop()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if l.pending.Load() == 0 {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("%w: %d after %s", ErrOutstandingChunks, l.pending.Load(), l.closeTimeout)
		case <-ctx.Done():
			return fmt.Errorf("%w: %d: %w", ErrOutstandingChunks, l.pending.Load(), ctx.Err())
		}
	}
}
