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
	"fmt"
	"io"
	"strings"

	"graphloader/internal/loader/config"
	"graphloader/internal/loader/driver"
	"graphloader/internal/loader/emit"
	"graphloader/internal/loader/graph"
	"graphloader/internal/loader/output"
	"graphloader/pkg/logger"
)

// Build assembles a Task from validated settings. summary receives the
// end-of-run table of the log output; nil means stdout.
func Build(s config.Settings, log logger.Logger, summary io.Writer) (*Task, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	phases, err := graph.ParsePhases(s.Runtime.Phases)
	if err != nil {
		return nil, err
	}

	cs := s.Driver.Chunk
	chunks, err := driver.BuildChunkDriver(cs.Name, driver.ChunkOptions{
		Start:        cs.Start,
		End:          cs.End,
		ChunkSize:    cs.Size,
		Partitions:   cs.Partitions,
		File:         cs.File,
		Items:        cs.Items,
		CloseTimeout: cs.CloseTimeout,
	})
	if err != nil {
		return nil, err
	}
	is := s.Driver.ID
	ids, err := driver.BuildIDDriver(is.Name, driver.IDOptions{
		Start:     is.Start,
		Limit:     is.Limit,
		BlockSize: is.BlockSize,
		RedisAddr: is.Redis.Addr,
		RedisKey:  is.Redis.Key,
	})
	if err != nil {
		return nil, err
	}

	emitter := emit.New(emit.Options{
		VertexLabel: s.Emitter.Vertex.Label,
		Edge: emit.EdgeOptions{
			Labels:       s.Emitter.Edge.Labels,
			Degree:       s.Emitter.Edge.Degree,
			Seed:         s.Emitter.Edge.Seed,
			PartnerBase:  cs.Start,
			PartnerCount: s.Emitter.Vertex.Count,
		},
	})

	releaseIDs := func() error {
		if r, ok := ids.(driver.Releaser); ok {
			return r.Release()
		}
		return nil
	}

	enc, err := output.BuildEncoder(s.Encoder.Name)
	if err != nil {
		_ = releaseIDs()
		return nil, err
	}
	out, err := output.Build(s.Output.Name, output.Options{
		Dir:         s.Output.Dir,
		Ext:         enc.Ext(),
		SQLitePath:  s.Output.SQLite.Path,
		RedisAddr:   s.Output.Redis.Addr,
		RedisPrefix: s.Output.Redis.Prefix,
		Logger:      log,
		Summary:     summary,
	})
	if err != nil {
		_ = releaseIDs()
		return nil, err
	}
	sink := output.NewSink(enc, out)
	closer := func() error { return errors.Join(sink.Close(), releaseIDs()) }

	handler, err := NewErrorHandler(s.Runtime.ErrorHandler, log)
	if err != nil {
		_ = closer()
		return nil, err
	}
	sched, err := NewScheduler(SchedulerOptions{
		Threads: s.Runtime.Threads,
		Run:     NewRunContext(chunks, ids),
		Emitter: emitter,
		Sink:    sink,
		Handler: handler,
		Logger:  log,
	})
	if err != nil {
		_ = closer()
		return nil, err
	}

	recordSettings(s, phases)
	return NewTask(sched, phases, sink, closer), nil
}

func recordSettings(s config.Settings, phases []graph.Phase) {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.String()
	}
	SetSetting("runtime.phases", strings.Join(names, ","))
	SetSettingInt("runtime.threads", s.Runtime.Threads)
	SetSetting("runtime.error-handler", s.Runtime.ErrorHandler)
	SetSetting("driver.chunk.name", s.Driver.Chunk.Name)
	SetSetting("driver.chunk.range", fmt.Sprintf("[%d,%d)", s.Driver.Chunk.Start, s.Driver.Chunk.End))
	SetSettingInt("driver.chunk.size", s.Driver.Chunk.Size)
	SetSettingDuration("driver.chunk.close-timeout", s.Driver.Chunk.CloseTimeout)
	SetSetting("driver.id.name", s.Driver.ID.Name)
	SetSettingUint64("emitter.vertex.count", s.Emitter.Vertex.Count)
	SetSettingInt("emitter.edge.degree", s.Emitter.Edge.Degree)
	SetSetting("encoder.name", s.Encoder.Name)
	SetSetting("output.name", s.Output.Name)
}
