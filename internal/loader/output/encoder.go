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
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"

	"graphloader/internal/loader/graph"
)

// Encoder renders one element as a single line without the trailing newline.
type Encoder interface {
	Name() string
	// Ext is the file extension used by file outputs.
	Ext() string
	// Header returns the column line for kind, or nil when the format has none.
	Header(kind graph.Kind) []byte
	Encode(el graph.Element) ([]byte, error)
}

var ErrUnknownEncoder = errors.New("unknown encoder")

// BuildEncoder returns the encoder registered under name ("json" by default).
func BuildEncoder(name string) (Encoder, error) {
	switch name {
	case "", "json":
		return JSONEncoder{}, nil
	case "csv":
		return CSVEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoder, name)
	}
}

// JSONEncoder writes one JSON object per element.
type JSONEncoder struct{}

func (JSONEncoder) Name() string             { return "json" }
func (JSONEncoder) Ext() string              { return "jsonl" }
func (JSONEncoder) Header(graph.Kind) []byte { return nil }
func (JSONEncoder) Encode(el graph.Element) ([]byte, error) {
	return json.Marshal(el)
}

// CSVEncoder writes one row per element. Vertices and edges have different
// columns, so each kind gets its own header line.
type CSVEncoder struct{}

var (
	vertexColumns = []string{"id", "label", "properties"}
	edgeColumns   = []string{"id", "label", "from", "to", "properties"}
)

func (CSVEncoder) Name() string { return "csv" }
func (CSVEncoder) Ext() string  { return "csv" }

func (CSVEncoder) Header(kind graph.Kind) []byte {
	switch kind {
	case graph.KindVertex:
		b, _ := csvLine(vertexColumns)
		return b
	case graph.KindEdge:
		b, _ := csvLine(edgeColumns)
		return b
	default:
		return nil
	}
}

func (CSVEncoder) Encode(el graph.Element) ([]byte, error) {
	props := ""
	if len(el.Properties) > 0 {
		b, err := json.Marshal(el.Properties)
		if err != nil {
			return nil, fmt.Errorf("encode properties of %s: %w", el.ID, err)
		}
		props = string(b)
	}
	switch el.Kind {
	case graph.KindVertex:
		return csvLine([]string{el.ID, el.Label, props})
	case graph.KindEdge:
		return csvLine([]string{el.ID, el.Label, el.From, el.To, props})
	default:
		return nil, fmt.Errorf("csv: unsupported element kind %q", el.Kind)
	}
}

func csvLine(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\r\n"), nil
}
