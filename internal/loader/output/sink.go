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

package output

import (
	"context"
	"fmt"
	"sync"

	"graphloader/internal/loader/graph"
	"graphloader/internal/loader/telemetry"
)

type streamKey struct {
	phase graph.Phase
	kind  graph.Kind
}

// Sink encodes elements and writes them to an Output. For encoders with a
// header line, the header of a (phase, kind) stream is written exactly once
// and before any of its rows.
type Sink struct {
	enc Encoder
	out Output

	mu      sync.Mutex
	headers map[streamKey]bool
}

func NewSink(enc Encoder, out Output) *Sink {
	return &Sink{enc: enc, out: out, headers: make(map[streamKey]bool)}
}

func (s *Sink) Write(ctx context.Context, phase graph.Phase, el graph.Element) error {
	body, err := s.enc.Encode(el)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", el.Kind, el.ID, err)
	}
	if err := s.ensureHeader(ctx, phase, el.Kind); err != nil {
		return err
	}
	if err := s.out.Write(ctx, phase, Record{Kind: el.Kind, ID: el.ID, Body: body}); err != nil {
		return fmt.Errorf("write %s %s: %w", el.Kind, el.ID, err)
	}
	telemetry.ObserveElement(phase.String(), string(el.Kind))
	return nil
}

func (s *Sink) ensureHeader(ctx context.Context, phase graph.Phase, kind graph.Kind) error {
	header := s.enc.Header(kind)
	if header == nil {
		return nil
	}
	key := streamKey{phase, kind}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headers[key] {
		return nil
	}
	if err := s.out.Write(ctx, phase, Record{Kind: kind, Header: true, Body: header}); err != nil {
		return fmt.Errorf("write %s header: %w", kind, err)
	}
	s.headers[key] = true
	return nil
}

// Flush ends the phase on the output.
func (s *Sink) Flush(ctx context.Context, phase graph.Phase) error {
	return s.out.Flush(ctx, phase)
}

func (s *Sink) Close() error { return s.out.Close() }
