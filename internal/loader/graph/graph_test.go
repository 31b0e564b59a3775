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

package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePhase(t *testing.T) {
	for in, want := range map[string]Phase{
		"one": PhaseOne, "Vertices": PhaseOne, "1": PhaseOne,
		"two": PhaseTwo, " edges ": PhaseTwo, "2": PhaseTwo,
	} {
		got, err := ParsePhase(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParsePhase("three")
	require.Error(t, err)
}

func TestParsePhasesOrdersAndDedups(t *testing.T) {
	got, err := ParsePhases([]string{"edges", "vertices", "2"})
	require.NoError(t, err)
	require.Equal(t, []Phase{PhaseOne, PhaseTwo}, got)

	_, err = ParsePhases([]string{"vertices", "bogus"})
	require.Error(t, err)
}

func TestPhaseText(t *testing.T) {
	require.Equal(t, "vertices", PhaseOne.String())
	require.Equal(t, "edges", PhaseTwo.String())
	require.Equal(t, "phase(7)", Phase(7).String())

	b, err := json.Marshal(map[string]Phase{"phase": PhaseTwo})
	require.NoError(t, err)
	require.JSONEq(t, `{"phase":"edges"}`, string(b))
}
