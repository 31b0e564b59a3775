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

// Package telemetry provides opt-in Prometheus counters for loader runs. It is
// safe to call from hot paths: when disabled, all Observe functions are no-ops.
package telemetry

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the telemetry module.
//
// MetricsAddr, when non-empty, starts a dedicated HTTP server that serves
// /metrics. If /metrics is already exposed elsewhere (the status API does),
// leave it empty.
type Config struct {
	Enabled     bool
	MetricsAddr string
}

var (
	modEnabled atomic.Bool

	// Labels are limited to phase, kind and state: cardinality stays bounded.
	chunksEmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "graphloader_chunks_emitted_total",
		Help: "Total work chunks handed out to workers",
	})
	chunksAckedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "graphloader_chunks_acknowledged_total",
		Help: "Total work chunks reported complete",
	})
	chunksAbandonedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "graphloader_chunks_abandoned_total",
		Help: "Total work chunks released without completion (aborted phases)",
	})
	itemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graphloader_items_total",
		Help: "Total input items processed, by phase",
	}, []string{"phase"})
	elementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graphloader_elements_written_total",
		Help: "Total graph elements written to the output, by phase and kind",
	}, []string{"phase", "kind"})
	failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graphloader_failures_total",
		Help: "Total per-item failures, by phase",
	}, []string{"phase"})
	idsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "graphloader_ids_issued_total",
		Help: "Total output ids issued across runs",
	})
	phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graphloader_phase_duration_seconds",
		Help:    "Wall time of each phase, by phase and final state",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"phase", "state"})
)

func init() {
	// Register eagerly. If no Prometheus endpoint is exposed, the registration is harmless.
	prometheus.MustRegister(chunksEmittedTotal, chunksAckedTotal, chunksAbandonedTotal,
		itemsTotal, elementsTotal, failuresTotal, idsIssuedTotal, phaseDuration)
}

// Enable configures the module. Safe to call multiple times; subsequent calls
// replace the config. The returned server is non-nil when MetricsAddr was set.
func Enable(cfg Config) *http.Server {
	modEnabled.Store(cfg.Enabled)
	if cfg.MetricsAddr == "" {
		return nil
	}
	return StartMetricsEndpoint(cfg.MetricsAddr)
}

// Enabled reports whether the module is active.
func Enabled() bool { return modEnabled.Load() }

func ObserveChunkEmitted() {
	if modEnabled.Load() {
		chunksEmittedTotal.Inc()
	}
}

func ObserveChunkAcknowledged() {
	if modEnabled.Load() {
		chunksAckedTotal.Inc()
	}
}

func ObserveChunkAbandoned() {
	if modEnabled.Load() {
		chunksAbandonedTotal.Inc()
	}
}

// ObserveItems counts n processed input items of phase.
func ObserveItems(phase string, n int) {
	if !modEnabled.Load() || n <= 0 {
		return
	}
	itemsTotal.WithLabelValues(phase).Add(float64(n))
}

// ObserveElement counts one element of kind written during phase.
func ObserveElement(phase, kind string) {
	if modEnabled.Load() {
		elementsTotal.WithLabelValues(phase, kind).Inc()
	}
}

// ObserveFailure counts one recoverable or fatal item failure.
func ObserveFailure(phase string) {
	if modEnabled.Load() {
		failuresTotal.WithLabelValues(phase).Inc()
	}
}

// ObserveIDsIssued adds the ids a driver issued during one phase.
func ObserveIDsIssued(n uint64) {
	if !modEnabled.Load() || n == 0 {
		return
	}
	idsIssuedTotal.Add(float64(n))
}

// ObservePhase records the wall time of a finished phase.
func ObservePhase(phase, state string, d time.Duration) {
	if modEnabled.Load() {
		phaseDuration.WithLabelValues(phase, state).Observe(d.Seconds())
	}
}

// StartMetricsEndpoint exposes /metrics on addr in a background goroutine.
// The caller owns the returned server and should Shutdown it.
func StartMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
	return server
}
