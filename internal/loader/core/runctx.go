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
	"sync/atomic"

	"graphloader/internal/loader/driver"
)

// RunContext owns the two drivers of a run. The id driver is opened once and
// stays open across every phase, so ids are unique for the whole run. The
// chunk driver is initialized per phase and reset after it.
type RunContext struct {
	Chunks driver.WorkChunkDriver
	IDs    driver.OutputIDDriver

	idsOpen    atomic.Bool
	chunksOpen atomic.Bool
}

func NewRunContext(chunks driver.WorkChunkDriver, ids driver.OutputIDDriver) *RunContext {
	return &RunContext{Chunks: chunks, IDs: ids}
}

// Open prepares the drivers for a phase: it opens the id driver unless it is
// already open and initializes the chunk driver. On failure the chunk driver
// is left uninitialized.
func (rc *RunContext) Open(ctx context.Context) error {
	if !rc.idsOpen.Load() {
		if err := rc.IDs.Open(ctx); err != nil {
			return fmt.Errorf("open id driver: %w", err)
		}
		rc.idsOpen.Store(true)
	}
	if err := rc.Chunks.Init(ctx); err != nil {
		return fmt.Errorf("init chunk driver: %w", err)
	}
	rc.chunksOpen.Store(true)
	return nil
}

// IsOpen reports whether both drivers are ready for a phase.
func (rc *RunContext) IsOpen() bool { return rc.idsOpen.Load() && rc.chunksOpen.Load() }

// EndPhase resets the chunk driver and leaves the id driver open.
func (rc *RunContext) EndPhase(ctx context.Context) error {
	rc.chunksOpen.Store(false)
	return rc.Chunks.Close(ctx)
}

// Close ends the run: both drivers are closed, even when the first one fails.
func (rc *RunContext) Close(ctx context.Context) error {
	rc.chunksOpen.Store(false)
	rc.idsOpen.Store(false)
	return errors.Join(rc.Chunks.Close(ctx), rc.IDs.Close(ctx))
}
