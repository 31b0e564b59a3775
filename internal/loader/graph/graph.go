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

// Package graph holds the vocabulary shared by emitters, outputs and the
// scheduler: phases and the elements a phase produces.
package graph

import (
	"fmt"
	"strings"
)

// Phase is one of the two sequential passes of a load.
type Phase int

const (
	// PhaseOne loads vertices.
	PhaseOne Phase = iota + 1
	// PhaseTwo loads edges. It always runs after PhaseOne.
	PhaseTwo
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseOne, PhaseTwo}

func (p Phase) String() string {
	switch p {
	case PhaseOne:
		return "vertices"
	case PhaseTwo:
		return "edges"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// ParsePhase accepts one|two|vertices|edges|1|2, case-insensitively.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one", "vertices", "1":
		return PhaseOne, nil
	case "two", "edges", "2":
		return PhaseTwo, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}

// ParsePhases parses names and sorts them into execution order. Duplicates
// are dropped.
func ParsePhases(names []string) ([]Phase, error) {
	seen := make(map[Phase]bool, len(names))
	for _, n := range names {
		p, err := ParsePhase(n)
		if err != nil {
			return nil, err
		}
		seen[p] = true
	}
	out := make([]Phase, 0, len(seen))
	for _, p := range Phases {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

type Kind string

const (
	KindVertex Kind = "vertex"
	KindEdge   Kind = "edge"
)

// Element is one generated vertex or edge. From and To are set for edges only.
type Element struct {
	Kind       Kind           `json:"kind"`
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}
