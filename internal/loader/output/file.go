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
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"graphloader/internal/loader/graph"
)

// phaseFile is a buffered append-only file for one phase.
type phaseFile struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

func openPhaseFile(path string) (*phaseFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &phaseFile{f: f, w: bufio.NewWriterSize(f, 1<<20 /*1MiB*/), path: path, lastFlush: time.Now()}, nil
}

func (p *phaseFile) writeLine(body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(body); err != nil {
		return err
	}
	if err := p.w.WriteByte('\n'); err != nil {
		return err
	}
	// Flush periodically to bound data loss on crash.
	if time.Since(p.lastFlush) > 100*time.Millisecond {
		p.lastFlush = time.Now()
		return p.w.Flush()
	}
	return nil
}

func (p *phaseFile) flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastFlush = time.Now()
	if err := p.w.Flush(); err != nil {
		return err
	}
	return p.f.Sync()
}

func (p *phaseFile) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.w.Flush(), p.f.Close())
}

// FileOutput appends records to <dir>/<phase>.<ext>, one line per record.
// Files are opened lazily on the first record of a phase.
type FileOutput struct {
	dir string
	ext string

	mu    sync.Mutex
	files map[graph.Phase]*phaseFile
}

func NewFileOutput(dir, ext string) (*FileOutput, error) {
	if dir == "" {
		dir = "."
	}
	if ext == "" {
		ext = "jsonl"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &FileOutput{dir: dir, ext: ext, files: make(map[graph.Phase]*phaseFile)}, nil
}

// Path returns the file that receives the records of phase.
func (o *FileOutput) Path(phase graph.Phase) string {
	return filepath.Join(o.dir, phase.String()+"."+o.ext)
}

func (o *FileOutput) file(phase graph.Phase) (*phaseFile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.files[phase]; ok {
		return f, nil
	}
	f, err := openPhaseFile(o.Path(phase))
	if err != nil {
		return nil, err
	}
	o.files[phase] = f
	return f, nil
}

func (o *FileOutput) Write(_ context.Context, phase graph.Phase, rec Record) error {
	f, err := o.file(phase)
	if err != nil {
		return err
	}
	return f.writeLine(rec.Body)
}

func (o *FileOutput) Flush(_ context.Context, phase graph.Phase) error {
	o.mu.Lock()
	f, ok := o.files[phase]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	return f.flush()
}

// Close flushes and closes every phase file concurrently.
func (o *FileOutput) Close() error {
	o.mu.Lock()
	files := o.files
	o.files = make(map[graph.Phase]*phaseFile)
	o.mu.Unlock()

	var g errgroup.Group
	for _, f := range files {
		g.Go(func() error {
			if err := f.close(); err != nil {
				return fmt.Errorf("close %s: %w", f.path, err)
			}
			return nil
		})
	}
	return g.Wait()
}
