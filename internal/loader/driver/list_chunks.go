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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// ListChunkDriver hands out an explicit list of item ids. The list is read
// from its loader on every Init, so a file-backed driver picks up edits
// between runs.
type ListChunkDriver struct {
	*chunkLedger
	load      func() ([]string, error)
	chunkSize int

	mu    sync.Mutex
	items []string
	pos   int
}

// NewListChunkDriver serves items in chunks of chunkSize (default 100).
func NewListChunkDriver(items []string, chunkSize int, closeTimeout time.Duration) *ListChunkDriver {
	snapshot := append([]string(nil), items...)
	return newListChunkDriver(func() ([]string, error) { return snapshot, nil }, chunkSize, closeTimeout)
}

// NewFileChunkDriver serves the newline separated ids stored at path. Blank
// lines and lines starting with '#' are skipped.
func NewFileChunkDriver(path string, chunkSize int, closeTimeout time.Duration) *ListChunkDriver {
	return newListChunkDriver(func() ([]string, error) { return ReadIDFile(path) }, chunkSize, closeTimeout)
}

func newListChunkDriver(load func() ([]string, error), chunkSize int, closeTimeout time.Duration) *ListChunkDriver {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &ListChunkDriver{
		chunkLedger: newChunkLedger(resolveCloseTimeout(closeTimeout)),
		load:        load,
		chunkSize:   chunkSize,
	}
}

// Init loads the item list once per run.
func (d *ListChunkDriver) Init(_ context.Context) error {
	return d.open(func() error {
		items, err := d.load()
		if err != nil {
			return fmt.Errorf("list driver: %w", err)
		}
		d.mu.Lock()
		d.items, d.pos = items, 0
		d.mu.Unlock()
		return nil
	})
}

// Next returns the next slice of at most chunkSize items.
func (d *ListChunkDriver) Next(ctx context.Context) (*WorkChunk, bool, error) {
	// the state is checked under d.mu so a reset cannot run in between
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if d.pos >= len(d.items) {
		return nil, false, nil
	}
	end := d.pos + d.chunkSize
	if end > len(d.items) {
		end = len(d.items)
	}
	items := d.items[d.pos:end:end]
	d.pos = end
	chunk, err := d.issue(items)
	if err != nil {
		return nil, false, err
	}
	return chunk, true, nil
}

// Close waits for outstanding chunks and drops the loaded list.
func (d *ListChunkDriver) Close(ctx context.Context) error {
	return d.close(ctx, func() {
		d.mu.Lock()
		d.items, d.pos = nil, 0
		d.mu.Unlock()
	})
}

// ReadIDFile reads newline separated ids, skipping blanks and '#' comments.
func ReadIDFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}
