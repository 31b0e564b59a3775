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

package emit

import (
	"sync"
	"sync/atomic"
)

// VertexIndex maps the item key of every vertex emitted in PhaseOne to the
// id it was given, so PhaseTwo can point edges at real vertices. It is safe
// for concurrent use.
type VertexIndex struct {
	ids sync.Map // map[string]string
	n   atomic.Int64
}

func NewVertexIndex() *VertexIndex { return &VertexIndex{} }

// Record stores id for key. The first vertex recorded for a key wins.
func (x *VertexIndex) Record(key, id string) {
	if _, loaded := x.ids.LoadOrStore(key, id); !loaded {
		x.n.Add(1)
	}
}

// Lookup returns the vertex id recorded for key.
func (x *VertexIndex) Lookup(key string) (string, bool) {
	v, ok := x.ids.Load(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (x *VertexIndex) Len() int { return int(x.n.Load()) }
