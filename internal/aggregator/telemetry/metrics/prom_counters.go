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

// Package metrics provides opt-in, low-overhead Prometheus telemetry for
// the aggregator. It is safe to call from hot paths: when disabled, all
// public functions are no-ops.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the behavior of the metrics module.
type Config struct {
	Enabled     bool
	MetricsAddr string // e.g. ":9090". Empty disables the standalone /metrics server.
}

var (
	modEnabled atomic.Bool

	heartbeatsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heartbeatagg_heartbeats_total",
		Help: "Total heartbeats accepted across all sources",
	})
	batchesFlushedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heartbeatagg_batches_flushed_total",
		Help: "Total TransState.ProcessBatch flushes",
	})
	rollupsAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heartbeatagg_rollups_applied_total",
		Help: "Total successful RollupTrans calls",
	})
	commitRowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heartbeatagg_commit_rows_total",
		Help: "Total snapshot rows written across all commit batches",
	})
	commitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "heartbeatagg_commit_errors_total",
		Help: "Total failed persistence commit batches",
	})
	rowsPerBatch = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "heartbeatagg_rows_per_commit_batch",
		Help:    "Distribution of snapshot rows per commit batch",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
	})
	intervalsPerAggregate = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "heartbeatagg_intervals_per_aggregate",
		Help:    "Distribution of the number of live intervals in a finalized Aggregate",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
	})
	sourcesTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "heartbeatagg_sources_tracked",
		Help: "Number of sources currently held in the store",
	})
)

func init() {
	prometheus.MustRegister(
		heartbeatsTotal, batchesFlushedTotal, rollupsAppliedTotal,
		commitRowsTotal, commitErrorsTotal, rowsPerBatch, intervalsPerAggregate, sourcesTracked,
	)
}

// Enable turns the module on (or off) and, if cfg.MetricsAddr is set,
// starts a dedicated /metrics HTTP server.
func Enable(cfg Config) {
	modEnabled.Store(cfg.Enabled)
	if cfg.Enabled && cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether telemetry is active.
func Enabled() bool { return modEnabled.Load() }

// ObserveHeartbeat records n accepted heartbeats.
func ObserveHeartbeat(n int64) {
	if !modEnabled.Load() || n <= 0 {
		return
	}
	heartbeatsTotal.Add(float64(n))
}

// ObserveBatchFlush records a single ProcessBatch flush.
func ObserveBatchFlush() {
	if !modEnabled.Load() {
		return
	}
	batchesFlushedTotal.Inc()
}

// ObserveRollup records a single successful RollupTrans call.
func ObserveRollup() {
	if !modEnabled.Load() {
		return
	}
	rollupsAppliedTotal.Inc()
}

// ObserveCommitBatch records a successful commit batch of the given size
// and the number of live intervals in each committed aggregate.
func ObserveCommitBatch(size int, intervalCounts []int) {
	if !modEnabled.Load() || size <= 0 {
		return
	}
	rowsPerBatch.Observe(float64(size))
	commitRowsTotal.Add(float64(size))
	for _, n := range intervalCounts {
		intervalsPerAggregate.Observe(float64(n))
	}
}

// ObserveCommitError records a failed commit batch.
func ObserveCommitError() {
	if !modEnabled.Load() {
		return
	}
	commitErrorsTotal.Inc()
}

// SetSourcesTracked updates the sources-tracked gauge.
func SetSourcesTracked(n int) {
	if !modEnabled.Load() {
		return
	}
	sourcesTracked.Set(float64(n))
}

func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
