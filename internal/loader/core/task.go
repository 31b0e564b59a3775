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

package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"graphloader/internal/loader/graph"
	"graphloader/pkg/logger"
)

// PhaseFlusher is notified after the workers of a phase have stopped.
// *output.Sink satisfies it.
type PhaseFlusher interface {
	Flush(ctx context.Context, phase graph.Phase) error
}

// Task runs the configured phases in order. Every phase gets a freshly
// initialized chunk driver; the id driver stays open for the whole run.
type Task struct {
	sched   *Scheduler
	rc      *RunContext
	flusher PhaseFlusher
	phases  []graph.Phase
	log     logger.Logger
	runID   string
	closer  func() error

	mu       sync.Mutex
	statuses []PhaseStatus
	closeErr error
}

// NewTask builds a task. flusher and closer may be nil.
func NewTask(sched *Scheduler, phases []graph.Phase, flusher PhaseFlusher, closer func() error) *Task {
	return &Task{
		sched:   sched,
		rc:      sched.rc,
		flusher: flusher,
		phases:  phases,
		log:     sched.log,
		runID:   uuid.NewString(),
		closer:  closer,
	}
}

func (t *Task) RunID() string { return t.runID }

func (t *Task) Phases() []graph.Phase { return t.phases }

// Run yields a running status when a phase starts and its final status when
// it ends. A failed phase ends the sequence; breaking out of the loop early
// skips the remaining phases. The drivers are closed before Run returns.
func (t *Task) Run(ctx context.Context) iter.Seq[StatusMap] {
	return func(yield func(StatusMap) bool) {
		defer t.endRun(ctx)
		for _, phase := range t.phases {
			running := PhaseStatus{Phase: phase, State: StateRunning, Start: time.Now()}
			if !yield(running.Map(t.runID)) {
				return
			}
			st := t.runPhase(ctx, phase)
			t.mu.Lock()
			t.statuses = append(t.statuses, st)
			t.mu.Unlock()
			if !yield(st.Map(t.runID)) || st.State == StateFailed {
				return
			}
		}
	}
}

func (t *Task) runPhase(ctx context.Context, phase graph.Phase) PhaseStatus {
	log := t.log.With(zap.String("run_id", t.runID))
	if err := t.rc.Open(ctx); err != nil {
		now := time.Now()
		st := PhaseStatus{Phase: phase, Start: now, End: now}
		st.fail(err)
		log.Error("phase not started", zap.Stringer("phase", phase), zap.Error(err))
		return st
	}

	st := t.sched.Run(ctx, phase)

	// flush and reset even when ctx is already canceled
	cleanup := context.WithoutCancel(ctx)
	if t.flusher != nil {
		if err := t.flusher.Flush(cleanup, phase); err != nil {
			st.fail(fmt.Errorf("flush output: %w", err))
		}
	}
	if err := t.rc.EndPhase(cleanup); err != nil {
		st.fail(fmt.Errorf("reset chunk driver: %w", err))
	}
	if st.State == StateFailed {
		log.Debug("phase cleanup done", zap.Stringer("phase", phase), zap.Error(st.Err))
	}
	return st
}

func (t *Task) endRun(ctx context.Context) {
	if err := t.rc.Close(context.WithoutCancel(ctx)); err != nil {
		t.log.Error("close drivers", zap.String("run_id", t.runID), zap.Error(err))
		t.mu.Lock()
		t.closeErr = fmt.Errorf("close drivers: %w", err)
		t.mu.Unlock()
	}
}

// Statuses returns the statuses of every phase run so far.
func (t *Task) Statuses() []PhaseStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]PhaseStatus(nil), t.statuses...)
}

// Err joins the errors of all failed phases and of closing the drivers.
func (t *Task) Err() error {
	var errs []error
	for _, st := range t.Statuses() {
		if st.Err != nil {
			errs = append(errs, fmt.Errorf("phase %s: %w", st.Phase, st.Err))
		}
	}
	t.mu.Lock()
	errs = append(errs, t.closeErr)
	t.mu.Unlock()
	return errors.Join(errs...)
}

// Close releases the output behind the task.
func (t *Task) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}
