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

// Package api exposes the progress of a running load over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"graphloader/internal/loader/core"
	"graphloader/pkg/logger"
)

// StatusBoard collects the status maps of a run as Task.Run yields them.
type StatusBoard struct {
	mu       sync.RWMutex
	runID    string
	started  time.Time
	statuses []core.StatusMap
	done     bool
}

func NewStatusBoard(runID string) *StatusBoard {
	return &StatusBoard{runID: runID, started: time.Now()}
}

// Record stores one phase status. The final status of a phase replaces the
// running one reported when it started.
func (b *StatusBoard) Record(st core.StatusMap) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.statuses); n > 0 {
		last := b.statuses[n-1]
		if last["phase"] == st["phase"] && last["status"] == string(core.StateRunning) {
			b.statuses[n-1] = st
			return
		}
	}
	b.statuses = append(b.statuses, st)
}

// Finish marks the run as over; no more statuses follow.
func (b *StatusBoard) Finish() {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()
}

type statusResponse struct {
	RunID   string           `json:"run_id"`
	Started time.Time        `json:"started"`
	Done    bool             `json:"done"`
	Phases  []core.StatusMap `json:"phases"`
}

func (b *StatusBoard) snapshot() statusResponse {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return statusResponse{
		RunID:   b.runID,
		Started: b.started,
		Done:    b.done,
		Phases:  append([]core.StatusMap{}, b.statuses...),
	}
}

// Server serves the status board, a liveness probe and the Prometheus
// registry.
type Server struct {
	board *StatusBoard
	log   logger.Logger
}

func NewServer(board *StatusBoard, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Server{board: board, log: log}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.board.snapshot()); err != nil {
		s.log.Warn("encode status", zap.Error(err))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start serves on addr in the background and returns the server so the
// caller can shut it down.
func (s *Server) Start(addr string) *http.Server {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		s.log.Info("status server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status server failed", zap.Error(err))
		}
	}()
	return httpServer
}
