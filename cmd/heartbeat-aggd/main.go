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

// Package main provides the entry point for the heartbeat aggregator
// daemon: it wires the in-memory Store, the background commit/eviction
// Worker, a pluggable Persister, optional Prometheus telemetry, and the
// HTTP API surface, then runs until an OS signal asks for a graceful
// shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heartbeatagg/internal/aggregator/api"
	"heartbeatagg/internal/aggregator/core"
	"heartbeatagg/internal/aggregator/persistence"
	"heartbeatagg/internal/aggregator/telemetry/metrics"
)

func main() {
	// --- What this is ---
	// heartbeat-aggd tracks liveness for many independent sources inside
	// a fixed time window. Each heartbeat is a cheap in-memory Insert;
	// a background worker periodically folds each source's pending
	// heartbeats into a finalized Aggregate (live/dead interval ranges)
	// and persists a snapshot, instead of writing to storage on every
	// heartbeat.
	//
	// Try it:
	//   curl -X POST "http://localhost:8080/heartbeat?source=svc-a&t=5&window_start=0&window_length=500&liveness_length=10"
	//   curl "http://localhost:8080/aggregate?source=svc-a"

	commitThreshold := flag.Int("commit_threshold", 50, "High watermark for background commits, in pending heartbeats per source")
	commitLowWatermark := flag.Int("commit_low_watermark", 0, "Low watermark (hysteresis). 0 disables.")
	commitInterval := flag.Duration("commit_interval", 100*time.Millisecond, "How often the background worker checks whether to persist")
	evictionAge := flag.Duration("eviction_age", time.Hour, "Evict sources that haven't been touched for this long")
	evictionInterval := flag.Duration("eviction_interval", 10*time.Minute, "How often to scan for idle sources to evict")
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address (e.g., :8080)")
	persistAdapter := flag.String("persist_adapter", "mock", "Persistence adapter: mock, redis, or kafka")
	redisAddr := flag.String("redis_addr", "", "Redis address for the redis adapter (empty uses a logging client)")
	kafkaTopic := flag.String("kafka_topic", "heartbeat-aggregates", "Kafka topic for the kafka adapter")
	metricsEnabled := flag.Bool("metrics", false, "Enable in-process Prometheus telemetry (opt-in)")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g., :9090)")
	flag.Parse()

	core.SetThresholdInt64("commit_threshold", int64(*commitThreshold))
	core.SetThresholdInt64("commit_low_watermark", int64(*commitLowWatermark))
	core.SetThresholdDuration("commit_interval", *commitInterval)
	core.SetThresholdDuration("eviction_age", *evictionAge)
	core.SetThresholdDuration("eviction_interval", *evictionInterval)
	core.SetThreshold("http_addr", *httpAddr)
	core.SetThreshold("persist_adapter", *persistAdapter)
	core.SetThresholdBool("metrics", *metricsEnabled)
	core.SetThreshold("metrics_addr", *metricsAddr)

	metrics.Enable(metrics.Config{Enabled: *metricsEnabled, MetricsAddr: *metricsAddr})

	persister, err := persistence.BuildPersister(*persistAdapter, persistence.DemoOptions{
		RedisAddr:  *redisAddr,
		KafkaTopic: *kafkaTopic,
	})
	if err != nil {
		log.Fatalf("could not build persistence adapter %q: %v", *persistAdapter, err)
	}

	store := core.NewStore()
	worker := core.NewWorker(
		store,
		persister,
		*commitThreshold,
		*commitLowWatermark,
		*commitInterval,
		*evictionAge,
		*evictionInterval,
	)
	worker.Start()

	apiServer := api.NewServer(store)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("heartbeat aggregator API server listening on %s\n", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v\n", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nshutting down...")

	worker.Stop()
	persister.PrintFinalMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	fmt.Println("server gracefully stopped.")
}
