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
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphloader/internal/loader/graph"
	"graphloader/pkg/logger"
)

// LogOutput logs every record at debug level and prints a per-phase summary
// table on Close. It stores nothing; use it for dry runs.
type LogOutput struct {
	log     logger.Logger
	summary io.Writer

	mu      sync.Mutex
	counts  map[streamKey]int64
	flushes map[graph.Phase]int64
	closed  bool
}

func NewLogOutput(log logger.Logger, summary io.Writer) *LogOutput {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &LogOutput{
		log:     log,
		summary: summary,
		counts:  make(map[streamKey]int64),
		flushes: make(map[graph.Phase]int64),
	}
}

func (l *LogOutput) Write(_ context.Context, phase graph.Phase, rec Record) error {
	if rec.Header {
		l.log.Debug("header", zap.Stringer("phase", phase), zap.String("kind", string(rec.Kind)), zap.ByteString("body", rec.Body))
		return nil
	}
	l.log.Debug("record",
		zap.Stringer("phase", phase),
		zap.String("kind", string(rec.Kind)),
		zap.String("id", rec.ID),
		zap.ByteString("body", rec.Body))

	l.mu.Lock()
	l.counts[streamKey{phase, rec.Kind}]++
	l.mu.Unlock()
	return nil
}

func (l *LogOutput) Flush(_ context.Context, phase graph.Phase) error {
	l.mu.Lock()
	l.flushes[phase]++
	l.mu.Unlock()
	return nil
}

// Close prints the summary once.
func (l *LogOutput) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.summary != nil {
		l.printSummary()
	}
	return nil
}

// Count returns the number of records written for phase and kind.
func (l *LogOutput) Count(phase graph.Phase, kind graph.Kind) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[streamKey{phase, kind}]
}

func (l *LogOutput) printSummary() {
	keys := make([]streamKey, 0, len(l.counts))
	for k := range l.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].phase != keys[j].phase {
			return keys[i].phase < keys[j].phase
		}
		return keys[i].kind < keys[j].kind
	})

	yellow := "\x1b[33m"
	reset := "\x1b[0m"
	now := time.Now().Format(time.RFC3339)
	sep := strings.Repeat("-", 60)

	var total int64
	fmt.Fprintf(l.summary, "%s[%s] Output summary\n", yellow, now)
	fmt.Fprintln(l.summary, sep)
	fmt.Fprintf(l.summary, "%-18s %-12s %12s %8s\n", "Phase", "Kind", "Records", "Flushes")
	fmt.Fprintln(l.summary, sep)
	for _, k := range keys {
		n := l.counts[k]
		total += n
		fmt.Fprintf(l.summary, "%-18s %-12s %12d %8d\n", k.phase, k.kind, n, l.flushes[k.phase])
	}
	fmt.Fprintln(l.summary, sep)
	fmt.Fprintf(l.summary, "%-18s %-12s %12d\n", "Total", "", total)
	fmt.Fprint(l.summary, reset)
}
