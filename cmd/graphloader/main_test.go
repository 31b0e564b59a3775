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

package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	root.AddCommand(newRunCommand(), newVersionCommand())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "graphloader dev")
}

func TestRun_JSONLOutput(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run",
		"--log-level", "none",
		"--output", "jsonl",
		"--output-dir", dir,
		"--threads", "3",
		"--set", "driver.chunk.end=40",
		"--set", "driver.chunk.size=7",
		"--set", "emitter.vertex.count=40",
	)
	require.NoError(t, err)
	require.Contains(t, out, "Load summary")
	require.Equal(t, 40, countLines(t, filepath.Join(dir, "vertices.jsonl")))
	require.Positive(t, countLines(t, filepath.Join(dir, "edges.jsonl")))
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "load.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
runtime:
  phases: [vertices]
driver:
  chunk:
    end: 12
encoder:
  name: csv
output:
  name: file
  dir: `+dir+`
log:
  level: none
`), 0o644))

	_, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)
	// header plus one row per item
	require.Equal(t, 13, countLines(t, filepath.Join(dir, "vertices.csv")))
	_, err = os.Stat(filepath.Join(dir, "edges.csv"))
	require.True(t, os.IsNotExist(err))
}

func TestRun_InvalidSettings(t *testing.T) {
	_, err := execute(t, "run", "--log-level", "none", "--threads", "0")
	require.ErrorContains(t, err, "runtime.threads")

	_, err = execute(t, "run", "--set", "novalue")
	require.ErrorContains(t, err, "key=value")

	_, err = execute(t, "run", "--log-level", "none", "--output", "kafka")
	require.Error(t, err)
}
