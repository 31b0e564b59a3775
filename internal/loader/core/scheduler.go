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

// Package core runs the phases of a load: a fixed pool of workers pulls
// chunks from the chunk driver, turns every item into graph elements and
// hands them to the sink.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"graphloader/internal/loader/driver"
	"graphloader/internal/loader/emit"
	"graphloader/internal/loader/graph"
	"graphloader/internal/loader/telemetry"
	"graphloader/pkg/logger"
)

// ElementSink receives every element a worker produces. *output.Sink
// satisfies it.
type ElementSink interface {
	Write(ctx context.Context, phase graph.Phase, el graph.Element) error
}

// SchedulerOptions wires a Scheduler.
type SchedulerOptions struct {
	Threads int
	Run     *RunContext
	Emitter emit.Emitter
	Sink    ElementSink
	Handler ErrorHandler
	Logger  logger.Logger
}

// Scheduler executes one phase at a time with a fixed number of workers.
type Scheduler struct {
	threads int
	rc      *RunContext
	emitter emit.Emitter
	sink    ElementSink
	handler ErrorHandler
	log     logger.Logger
}

func NewScheduler(opts SchedulerOptions) (*Scheduler, error) {
	if opts.Threads < 1 {
		return nil, fmt.Errorf("threads must be at least 1, got %d", opts.Threads)
	}
	if opts.Run == nil || opts.Emitter == nil || opts.Sink == nil {
		return nil, errors.New("scheduler needs a run context, an emitter and a sink")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	if opts.Handler == nil {
		opts.Handler = RecoverableHandler{log: opts.Logger}
	}
	return &Scheduler{
		threads: opts.Threads,
		rc:      opts.Run,
		emitter: opts.Emitter,
		sink:    opts.Sink,
		handler: opts.Handler,
		log:     opts.Logger,
	}, nil
}

func (s *Scheduler) Threads() int { return s.threads }

type runMetrics struct {
	items    []atomic.Uint64
	elements atomic.Uint64
	failures atomic.Uint64
}

func (m *runMetrics) snapshot() PhaseMetrics {
	out := PhaseMetrics{
		ItemsPerWorker: make([]uint64, len(m.items)),
		Elements:       m.elements.Load(),
		Failures:       m.failures.Load(),
	}
	for i := range m.items {
		n := m.items[i].Load()
		out.ItemsPerWorker[i] = n
		out.Items += n
	}
	return out
}

// Run executes phase to completion and reports how it went. The run context
// must already be open; Run does not close it.
//
// The phase fails when any worker returns an error: a fatal item, a driver
// error or cancellation of ctx. The first such error cancels the remaining
// workers, which abandon the chunk they hold.
func (s *Scheduler) Run(ctx context.Context, phase graph.Phase) PhaseStatus {
	st := PhaseStatus{Phase: phase, State: StateRunning, Start: time.Now()}
	if !s.rc.IsOpen() {
		st.End = time.Now()
		st.fail(fmt.Errorf("phase %s: %w", phase, driver.ErrNotInitialized))
		return st
	}

	s.log.Info("phase started", zap.Stringer("phase", phase), zap.Int("threads", s.threads))
	m := &runMetrics{items: make([]atomic.Uint64, s.threads)}
	// the id driver stays open across phases
	idsBefore := s.rc.IDs.Issued()

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(s.threads)
	for slot := 0; slot < s.threads; slot++ {
		p.Go(func(wctx context.Context) error {
			return s.work(ctx, wctx, phase, slot, m)
		})
	}
	err := p.Wait()

	st.End = time.Now()
	st.Metrics = m.snapshot()
	cs := s.rc.Chunks.Stats()
	st.Metrics.ChunksEmitted = cs.Emitted
	st.Metrics.ChunksAcknowledged = cs.Acknowledged
	st.Metrics.ChunksAbandoned = cs.Abandoned
	st.Metrics.IDsIssued = s.rc.IDs.Issued() - idsBefore
	if err != nil {
		st.fail(err)
	} else {
		st.State = StateSucceeded
	}

	telemetry.ObservePhase(phase.String(), string(st.State), st.End.Sub(st.Start))
	telemetry.ObserveIDsIssued(st.Metrics.IDsIssued)

	fields := []zap.Field{
		zap.Stringer("phase", phase),
		zap.String("state", string(st.State)),
		zap.Uint64("items", st.Metrics.Items),
		zap.Uint64("elements", st.Metrics.Elements),
		zap.Uint64("failures", st.Metrics.Failures),
		zap.Duration("elapsed", st.End.Sub(st.Start)),
	}
	if st.Err != nil {
		s.log.Error("phase failed", append(fields, zap.Error(st.Err))...)
	} else {
		s.log.Info("phase finished", fields...)
	}
	return st
}

// work is one worker's loop. parent is the phase context, wctx the pool's
// context that is also canceled when a sibling fails. A worker stopped only
// by a sibling returns nil so the sibling's error is the one reported. A
// chunk driver closed under the worker fails the phase with
// driver.ErrNotInitialized; only an empty Next ends the worker cleanly.
func (s *Scheduler) work(parent, wctx context.Context, phase graph.Phase, slot int, m *runMetrics) error {
	for {
		if wctx.Err() != nil {
			return parent.Err()
		}
		chunk, ok, err := s.rc.Chunks.Next(wctx)
		switch {
		case err != nil:
			if wctx.Err() != nil {
				return parent.Err()
			}
			return fmt.Errorf("next chunk: %w", err)
		case !ok:
			return nil
		}

		if err := s.drain(wctx, phase, slot, chunk, m); err != nil {
			chunk.Abandon()
			if wctx.Err() != nil && !errors.Is(err, ErrFatal) {
				return parent.Err()
			}
			return err
		}
		if err := chunk.OnComplete(); err != nil {
			return fmt.Errorf("acknowledge chunk %d: %w", chunk.ID(), err)
		}
	}
}

func (s *Scheduler) drain(ctx context.Context, phase graph.Phase, slot int, chunk *driver.WorkChunk, m *runMetrics) error {
	var n int
	defer func() { telemetry.ObserveItems(phase.String(), n) }()

	for item := range chunk.Items() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.items[slot].Add(1)
		n++
		written, err := s.process(ctx, phase, item)
		m.elements.Add(written)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.failures.Add(1)
		telemetry.ObserveFailure(phase.String())
		if herr := s.handler.Handle(ctx, phase, item, err); herr != nil {
			return herr
		}
	}
	return nil
}

// process emits the elements of one item and writes them in order.
func (s *Scheduler) process(ctx context.Context, phase graph.Phase, item string) (uint64, error) {
	var n uint64
	for el, err := range s.emitter.Emit(ctx, phase, item, s.rc.IDs) {
		if err != nil {
			return n, err
		}
		if err := s.sink.Write(ctx, phase, el); err != nil {
			return n, fmt.Errorf("write %s %s: %w", el.Kind, el.ID, err)
		}
		n++
	}
	return n, nil
}
