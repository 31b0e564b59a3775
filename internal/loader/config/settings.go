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

package config

import (
	"errors"
	"fmt"
	"time"
)

// Settings is the typed view of every key in Defaults.
type Settings struct {
	Runtime struct {
		Threads      int      `mapstructure:"threads"`
		ErrorHandler string   `mapstructure:"error-handler"`
		Phases       []string `mapstructure:"phases"`
	} `mapstructure:"runtime"`

	Driver struct {
		Chunk ChunkSettings `mapstructure:"chunk"`
		ID    IDSettings    `mapstructure:"id"`
	} `mapstructure:"driver"`

	Emitter struct {
		Vertex struct {
			Label string `mapstructure:"label"`
			Count uint64 `mapstructure:"count"`
		} `mapstructure:"vertex"`
		Edge struct {
			Labels []string `mapstructure:"labels"`
			Degree int      `mapstructure:"degree"`
			Seed   uint64   `mapstructure:"seed"`
		} `mapstructure:"edge"`
	} `mapstructure:"emitter"`

	Encoder struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"encoder"`

	Output OutputSettings `mapstructure:"output"`

	Log struct {
		Format string `mapstructure:"format"`
		Level  string `mapstructure:"level"`
	} `mapstructure:"log"`

	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`

	Status struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"status"`
}

type ChunkSettings struct {
	Name         string        `mapstructure:"name"`
	Start        uint64        `mapstructure:"start"`
	End          uint64        `mapstructure:"end"`
	Size         int           `mapstructure:"size"`
	Partitions   int           `mapstructure:"partitions"`
	File         string        `mapstructure:"file"`
	Items        []string      `mapstructure:"items"`
	CloseTimeout time.Duration `mapstructure:"close-timeout"`
}

type IDSettings struct {
	Name      string `mapstructure:"name"`
	Start     uint64 `mapstructure:"start"`
	Limit     uint64 `mapstructure:"limit"`
	BlockSize uint64 `mapstructure:"block-size"`
	Redis     struct {
		Addr string `mapstructure:"addr"`
		Key  string `mapstructure:"key"`
	} `mapstructure:"redis"`
}

type OutputSettings struct {
	Name   string `mapstructure:"name"`
	Dir    string `mapstructure:"dir"`
	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`
	Redis struct {
		Addr   string `mapstructure:"addr"`
		Prefix string `mapstructure:"prefix"`
	} `mapstructure:"redis"`
}

// Validate rejects settings no component can run with.
func (s Settings) Validate() error {
	var errs []error
	if s.Runtime.Threads < 1 {
		errs = append(errs, fmt.Errorf("runtime.threads must be at least 1, got %d", s.Runtime.Threads))
	}
	switch s.Runtime.ErrorHandler {
	case "recoverable", "fatal":
	default:
		errs = append(errs, fmt.Errorf("runtime.error-handler must be recoverable or fatal, got %q", s.Runtime.ErrorHandler))
	}
	if len(s.Runtime.Phases) == 0 {
		errs = append(errs, errors.New("runtime.phases must name at least one phase"))
	}
	if s.Driver.Chunk.End < s.Driver.Chunk.Start {
		errs = append(errs, fmt.Errorf("driver.chunk.end %d before driver.chunk.start %d", s.Driver.Chunk.End, s.Driver.Chunk.Start))
	}
	if s.Driver.Chunk.Name == "list" && len(s.Driver.Chunk.Items) == 0 {
		errs = append(errs, errors.New("driver.chunk.items must list at least one item for the list driver"))
	}
	if s.Emitter.Edge.Degree < 0 {
		errs = append(errs, fmt.Errorf("emitter.edge.degree must not be negative, got %d", s.Emitter.Edge.Degree))
	}
	return errors.Join(errs...)
}
