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
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// settings holds human-readable configuration knobs captured at startup.
	settingsMu sync.RWMutex
	settings   = make(map[string]string)
)

// SetSetting records a configuration value for the final summary.
func SetSetting(name string, value string) {
	settingsMu.Lock()
	settings[name] = value
	settingsMu.Unlock()
}

func SetSettingInt(name string, v int)                { SetSetting(name, fmt.Sprintf("%d", v)) }
func SetSettingUint64(name string, v uint64)          { SetSetting(name, fmt.Sprintf("%d", v)) }
func SetSettingDuration(name string, d time.Duration) { SetSetting(name, d.String()) }

func getSettingsSnapshot() map[string]string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out
}

// resetSettingsForTests clears the settings registry. Intended for tests only.
func resetSettingsForTests() {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	for k := range settings {
		delete(settings, k)
	}
}

// PrintSummary writes a single yellow end-of-run summary with one column per
// phase followed by the captured settings.
func PrintSummary(w io.Writer, runID string, statuses []PhaseStatus) {
	yellow := "\x1b[33m"
	reset := "\x1b[0m"
	now := time.Now().Format(time.RFC3339)

	sep := strings.Repeat("-", 60)
	fmt.Fprintf(w, "%s[%s] Load summary (run %s)\n", yellow, now, runID)
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "%-18s", "Metric")
	for _, st := range statuses {
		fmt.Fprintf(w, " %12s", st.Phase)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, sep)

	row := func(name string, value func(PhaseStatus) string) {
		fmt.Fprintf(w, "%-18s", name)
		for _, st := range statuses {
			fmt.Fprintf(w, " %12s", value(st))
		}
		fmt.Fprintln(w)
	}
	u := func(v uint64) string { return fmt.Sprintf("%d", v) }
	row("Status", func(st PhaseStatus) string { return string(st.State) })
	row("Items", func(st PhaseStatus) string { return u(st.Metrics.Items) })
	row("Elements", func(st PhaseStatus) string { return u(st.Metrics.Elements) })
	row("Failures", func(st PhaseStatus) string { return u(st.Metrics.Failures) })
	row("Chunks emitted", func(st PhaseStatus) string { return u(st.Metrics.ChunksEmitted) })
	row("Chunks acked", func(st PhaseStatus) string { return u(st.Metrics.ChunksAcknowledged) })
	row("Chunks abandoned", func(st PhaseStatus) string { return u(st.Metrics.ChunksAbandoned) })
	row("IDs issued", func(st PhaseStatus) string { return u(st.Metrics.IDsIssued) })
	row("Duration", func(st PhaseStatus) string { return st.End.Sub(st.Start).Round(time.Millisecond).String() })
	fmt.Fprintln(w, sep)

	for _, st := range statuses {
		if st.Err != nil {
			fmt.Fprintf(w, "%s error: %v\n", st.Phase, st.Err)
		}
	}

	s := getSettingsSnapshot()
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		fmt.Fprintf(w, "Configured settings\n")
		fmt.Fprintln(w, sep)
		fmt.Fprintf(w, "%-30s %24s\n", "Name", "Value")
		fmt.Fprintln(w, sep)
		for _, k := range keys {
			fmt.Fprintf(w, "%-30s %24s\n", k, s[k])
		}
		fmt.Fprintln(w, sep)
	}
	fmt.Fprint(w, reset)
}
