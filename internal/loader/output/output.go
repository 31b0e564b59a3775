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

// Package output encodes graph elements and delivers them to a destination.
// Delivery is at-least-once at best: a record written before a failed phase
// is not retracted.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"graphloader/internal/loader/graph"
	"graphloader/pkg/logger"
)

// Record is one encoded line bound for an output. Header records carry the
// column line of a per-kind stream and have no ID.
type Record struct {
	Kind   graph.Kind
	ID     string
	Header bool
	Body   []byte
}

// Output is a destination for encoded records. Write is safe for concurrent
// use. Flush makes everything written for phase durable; Close flushes what
// is left and releases the destination.
type Output interface {
	Write(ctx context.Context, phase graph.Phase, rec Record) error
	Flush(ctx context.Context, phase graph.Phase) error
	Close() error
}

var ErrUnknownOutput = errors.New("unknown output")

// Options carries every setting an output may read.
type Options struct {
	Dir         string
	Ext         string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
	Logger      logger.Logger
	Summary     io.Writer
}

type Factory func(Options) (Output, error)

var factories = map[string]Factory{
	"log":   func(o Options) (Output, error) { return NewLogOutput(o.Logger, o.Summary), nil },
	"jsonl": buildFile,
	"file":  buildFile,
	"sqlite": func(o Options) (Output, error) {
		return NewSQLiteOutput(o.SQLitePath)
	},
	"redis": func(o Options) (Output, error) {
		if o.RedisAddr == "" {
			return nil, errors.New("redis output requires output.redis.addr")
		}
		return NewRedisOutput(NewGoRedisLister(o.RedisAddr), o.RedisPrefix), nil
	},
}

func buildFile(o Options) (Output, error) {
	return NewFileOutput(o.Dir, o.Ext)
}

// Build constructs the output registered under name.
// Supported outputs:
//   - "log" (default): debug line per record plus an end-of-run summary
//   - "jsonl"/"file": one buffered append file per phase under Dir
//   - "sqlite": rows in a local SQLite database
//   - "redis": RPUSH onto one list per phase
func Build(name string, opts Options) (Output, error) {
	if name == "" {
		name = "log"
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	if opts.Summary == nil {
		opts.Summary = os.Stdout
	}
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOutput, name)
	}
	return f(opts)
}

// Names lists the registered outputs in sorted order.
func Names() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
