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

package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevels(t *testing.T) {
	for _, tc := range []struct {
		name          string
		expectedLevel zapcore.Level
	}{
		{name: "Debug", expectedLevel: zapcore.DebugLevel},
		{name: "Info", expectedLevel: zapcore.InfoLevel},
		{name: "Warn", expectedLevel: zapcore.WarnLevel},
		{name: "Error", expectedLevel: zapcore.ErrorLevel},
		{name: "InfoWithContext", expectedLevel: zapcore.InfoLevel},
		{name: "ErrorWithContext", expectedLevel: zapcore.ErrorLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			dut := ZapLogger{zap.New(core)}
			const msg = "phase finished"
			switch tc.name {
			case "Debug":
				dut.Debug(msg)
			case "Info":
				dut.Info(msg)
			case "Warn":
				dut.Warn(msg)
			case "Error":
				dut.Error(msg)
			case "InfoWithContext":
				dut.InfoWithContext(context.Background(), msg)
			case "ErrorWithContext":
				dut.ErrorWithContext(context.Background(), msg)
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			require.Equal(t, msg, entry.Message)
			require.Equal(t, tc.expectedLevel, entry.Level)
			require.Empty(t, entry.ContextMap())
		})
	}
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	parent := &ZapLogger{zap.New(core)}

	child := parent.With(zap.String("phase", "vertices"))
	child.Info("child")
	parent.Info("parent")

	require.Equal(t, map[string]interface{}{"phase": "vertices"}, logs.All()[0].ContextMap())
	require.Empty(t, logs.All()[1].ContextMap())
}

func TestNewLogger(t *testing.T) {
	tests := map[string]struct {
		format, level string
		wantErr       bool
	}{
		"json info":  {format: "json", level: "info"},
		"text debug": {format: "text", level: "debug"},
		"defaults":   {},
		"none":       {format: "json", level: "none"},
		"bad level":  {format: "json", level: "chatty", wantErr: true},
		"bad format": {format: "xml", level: "info", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			l, err := NewLogger(tc.format, tc.level)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, l)
		})
	}

	require.Panics(t, func() { MustNewLogger("json", "loud") })
}
