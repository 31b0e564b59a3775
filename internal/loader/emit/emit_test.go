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
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"graphloader/internal/loader/driver"
	"graphloader/internal/loader/graph"
)

// seqIDs hands out 1, 2, 3, ... and fails once limit ids were issued.
type seqIDs struct {
	n     uint64
	limit uint64
	err   error
}

func (s *seqIDs) Next(context.Context) (driver.OutputID, bool, error) {
	if s.err != nil {
		return driver.OutputID{}, false, s.err
	}
	if s.limit > 0 && s.n >= s.limit {
		return driver.OutputID{}, false, nil
	}
	s.n++
	return driver.NumericID(s.n), true, nil
}

func collect(t *testing.T, e Emitter, phase graph.Phase, item string, ids IDSource) ([]graph.Element, error) {
	t.Helper()
	var out []graph.Element
	for el, err := range e.Emit(context.Background(), phase, item, ids) {
		if err != nil {
			return out, err
		}
		out = append(out, el)
	}
	return out, nil
}

// indexed records the keys lo..hi-1 as vertices "v<key>".
func indexed(lo, hi int) *VertexIndex {
	x := NewVertexIndex()
	for k := lo; k < hi; k++ {
		x.Record(strconv.Itoa(k), "v"+strconv.Itoa(k))
	}
	return x
}

func TestVertexEmitter(t *testing.T) {
	index := NewVertexIndex()
	v := NewVertexEmitter("person", index)

	got, err := collect(t, v, graph.PhaseOne, "42", &seqIDs{})
	require.NoError(t, err)
	require.Equal(t, []graph.Element{{
		Kind:       graph.KindVertex,
		ID:         "1",
		Label:      "person",
		Properties: map[string]any{"source": "42"},
	}}, got)
	id, ok := index.Lookup("42")
	require.True(t, ok)
	require.Equal(t, "1", id)

	got, err = collect(t, v, graph.PhaseTwo, "42", &seqIDs{})
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = collect(t, v, graph.PhaseOne, "42", &seqIDs{limit: 0, err: driver.ErrNotInitialized})
	require.ErrorIs(t, err, driver.ErrNotInitialized)

	ids := &seqIDs{limit: 1}
	_, err = collect(t, v, graph.PhaseOne, "a", ids)
	require.NoError(t, err)
	_, err = collect(t, v, graph.PhaseOne, "b", ids)
	require.ErrorIs(t, err, ErrNoID)
	_, ok = index.Lookup("b")
	require.False(t, ok)

	require.Equal(t, "vertex", NewVertexEmitter("", nil).label)
}

func TestVertexEmitter_RejectedVertexNotIndexed(t *testing.T) {
	index := NewVertexIndex()
	v := NewVertexEmitter("person", index)
	for range v.Emit(context.Background(), graph.PhaseOne, "7", &seqIDs{}) {
		break
	}
	_, ok := index.Lookup("7")
	require.False(t, ok)
	require.Zero(t, index.Len())
}

func TestVertexIndex_FirstRecordWins(t *testing.T) {
	x := NewVertexIndex()
	x.Record("a", "1")
	x.Record("a", "2")
	id, ok := x.Lookup("a")
	require.True(t, ok)
	require.Equal(t, "1", id)
	require.Equal(t, 1, x.Len())
}

func TestEdgeEmitter(t *testing.T) {
	opts := EdgeOptions{Labels: []string{"knows", "likes"}, Degree: 3, Seed: 7, PartnerBase: 100, PartnerCount: 50}
	e := NewEdgeEmitter(opts, indexed(100, 150))

	got, err := collect(t, e, graph.PhaseTwo, "123", &seqIDs{})
	require.NoError(t, err)
	require.LessOrEqual(t, len(got), 6)
	require.NotEmpty(t, got)

	perLabel := map[string]int{}
	ids := map[string]bool{}
	for _, el := range got {
		require.Equal(t, graph.KindEdge, el.Kind)
		require.Equal(t, "v123", el.From)
		require.NotEqual(t, el.From, el.To)
		require.Equal(t, "v", el.To[:1])
		to, err := strconv.ParseUint(el.To[1:], 10, 64)
		require.NoError(t, err)
		require.GreaterOrEqual(t, to, uint64(100))
		require.Less(t, to, uint64(150))
		require.False(t, ids[el.ID], "duplicate edge id %s", el.ID)
		ids[el.ID] = true
		perLabel[el.Label]++
	}
	require.LessOrEqual(t, perLabel["knows"], 3)
	require.LessOrEqual(t, perLabel["likes"], 3)

	// the same item always yields the same partners
	again, err := collect(t, e, graph.PhaseTwo, "123", &seqIDs{})
	require.NoError(t, err)
	require.Equal(t, got, again)

	none, err := collect(t, e, graph.PhaseOne, "123", &seqIDs{})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestEdgeEmitter_SkipsSelfLoops(t *testing.T) {
	// A single partner slot means every candidate is the item itself.
	e := NewEdgeEmitter(EdgeOptions{Labels: []string{"self"}, Degree: 4, PartnerBase: 9, PartnerCount: 1}, indexed(9, 10))
	got, err := collect(t, e, graph.PhaseTwo, "9", &seqIDs{})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestEdgeEmitter_Disabled(t *testing.T) {
	for name, opts := range map[string]EdgeOptions{
		"no labels":   {Degree: 2, PartnerCount: 10},
		"zero degree": {Labels: []string{"x"}, PartnerCount: 10},
		"no partners": {Labels: []string{"x"}, Degree: 2},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := collect(t, NewEdgeEmitter(opts, indexed(0, 10)), graph.PhaseTwo, "1", &seqIDs{})
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestEdgeEmitter_IDFailureStopsItem(t *testing.T) {
	e := NewEdgeEmitter(EdgeOptions{Labels: []string{"knows"}, Degree: 5, PartnerCount: 1000}, indexed(0, 1000))
	boom := errors.New("redis down")
	got, err := collect(t, e, graph.PhaseTwo, "1", &seqIDs{err: boom})
	require.ErrorIs(t, err, boom)
	require.Empty(t, got)
}

func TestEdgeEmitter_EarlyBreak(t *testing.T) {
	e := NewEdgeEmitter(EdgeOptions{Labels: []string{"a", "b"}, Degree: 5, PartnerCount: 1000}, indexed(0, 1000))
	n := 0
	for range e.Emit(context.Background(), graph.PhaseTwo, "1", &seqIDs{}) {
		n++
		break
	}
	require.Equal(t, 1, n)
}

func TestEdgeEmitter_UnknownEndpointsSkipped(t *testing.T) {
	opts := EdgeOptions{Labels: []string{"knows"}, Degree: 4, PartnerCount: 20}

	// the item never became a vertex
	got, err := collect(t, NewEdgeEmitter(opts, indexed(0, 10)), graph.PhaseTwo, "15", &seqIDs{})
	require.NoError(t, err)
	require.Empty(t, got)

	// partners 10..19 have no vertex, so only edges into 0..9 survive
	ids := &seqIDs{}
	got, err = collect(t, NewEdgeEmitter(opts, indexed(0, 10)), graph.PhaseTwo, "3", ids)
	require.NoError(t, err)
	for _, el := range got {
		to, err := strconv.Atoi(el.To[1:])
		require.NoError(t, err)
		require.Less(t, to, 10)
	}
	// skipped candidates do not consume ids
	require.Equal(t, uint64(len(got)), ids.n)

	got, err = collect(t, NewEdgeEmitter(opts, nil), graph.PhaseTwo, "3", &seqIDs{})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestChain(t *testing.T) {
	c := New(Options{
		VertexLabel: "v",
		Edge:        EdgeOptions{Labels: []string{"e"}, Degree: 2, PartnerCount: 4},
	})
	ids := &seqIDs{}

	vertexIDs := map[string]bool{}
	for _, item := range []string{"0", "1", "2", "3"} {
		vs, err := collect(t, c, graph.PhaseOne, item, ids)
		require.NoError(t, err)
		require.Len(t, vs, 1)
		require.Equal(t, graph.KindVertex, vs[0].Kind)
		vertexIDs[vs[0].ID] = true
	}

	for _, item := range []string{"0", "1", "2", "3"} {
		es, err := collect(t, c, graph.PhaseTwo, item, ids)
		require.NoError(t, err)
		require.LessOrEqual(t, len(es), 2)
		for _, el := range es {
			require.Equal(t, graph.KindEdge, el.Kind)
			require.True(t, vertexIDs[el.From], "edge from unknown vertex %s", el.From)
			require.True(t, vertexIDs[el.To], "edge to unknown vertex %s", el.To)
			require.False(t, vertexIDs[el.ID], "edge id %s reuses a vertex id", el.ID)
		}
	}
}
