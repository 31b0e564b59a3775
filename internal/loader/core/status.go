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
	"errors"
	"time"

	"graphloader/internal/loader/graph"
)

type PhaseState string

const (
	StateRunning   PhaseState = "running"
	StateSucceeded PhaseState = "succeeded"
	StateFailed    PhaseState = "failed"
)

// PhaseMetrics is the bookkeeping of one phase, captured before the drivers
// are reset.
type PhaseMetrics struct {
	ItemsPerWorker     []uint64
	Items              uint64
	Elements           uint64
	Failures           uint64
	ChunksEmitted      uint64
	ChunksAcknowledged uint64
	ChunksAbandoned    uint64
	IDsIssued          uint64
}

// PhaseStatus is the outcome of one phase.
type PhaseStatus struct {
	Phase   graph.Phase
	State   PhaseState
	Start   time.Time
	End     time.Time
	Metrics PhaseMetrics
	Err     error
}

func (s *PhaseStatus) fail(err error) {
	s.State = StateFailed
	s.Err = errors.Join(s.Err, err)
}

// StatusMap is the loosely typed status report yielded by Task.Run. Keys:
// run_id, phase, status, metrics, start, end (once the phase is over) and,
// for failed phases, error.
type StatusMap map[string]any

// Map renders the status for reporting. A running phase has no end yet; its
// duration is the time elapsed so far.
func (s PhaseStatus) Map(runID string) StatusMap {
	end := s.End
	if s.State == StateRunning {
		end = time.Now()
	}
	m := StatusMap{
		"run_id": runID,
		"phase":  s.Phase.String(),
		"status": string(s.State),
		"start":  s.Start,
		"metrics": map[string]any{
			"items":               s.Metrics.Items,
			"items_per_worker":    s.Metrics.ItemsPerWorker,
			"elements":            s.Metrics.Elements,
			"failures":            s.Metrics.Failures,
			"chunks_emitted":      s.Metrics.ChunksEmitted,
			"chunks_acknowledged": s.Metrics.ChunksAcknowledged,
			"chunks_abandoned":    s.Metrics.ChunksAbandoned,
			"ids_issued":          s.Metrics.IDsIssued,
			"duration_ms":         end.Sub(s.Start).Milliseconds(),
		},
	}
	if s.State != StateRunning {
		m["end"] = s.End
	}
	if s.Err != nil {
		m["error"] = s.Err.Error()
	}
	return m
}
