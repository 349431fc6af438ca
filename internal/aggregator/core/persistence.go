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
	"sync"
	"time"

	"heartbeatagg/pkg/heartbeat"
)

// Snapshot is a single source's finalized Aggregate, tagged with the key
// it belongs to and a commit ID the persister uses as an idempotency
// key (see internal/aggregator/persistence for adapters that dedupe on
// this value).
type Snapshot struct {
	Key      string
	CommitID string
	Agg      *heartbeat.Aggregate
}

// Persister is the interface for any persistent storage of finalized
// Aggregate snapshots. Concrete adapters (Postgres, Kafka, Redis) live in
// internal/aggregator/persistence; this package only depends on the
// interface so Store/Worker stay backend-agnostic.
type Persister interface {
	CommitBatch(snapshots []Snapshot) error
	PrintFinalMetrics()
}

// NewMockPersister returns a Persister that prints each batch to stdout.
// Used by cmd/heartbeat-aggd when no real backend is configured.
func NewMockPersister() Persister {
	return &mockPersister{}
}

type mockPersister struct {
	mu           sync.Mutex
	totalRows    int64
	totalBatches int64
}

// CommitBatch simulates writing snapshots to a database.
func (p *mockPersister) CommitBatch(snapshots []Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	fmt.Printf("[%s] persisting batch of %d snapshots\n", time.Now().Format(time.RFC3339), len(snapshots))
	for _, snap := range snapshots {
		fmt.Printf("  - key=%-20s commit_id=%-12s n=%d live=%dms dead=%dms\n",
			snap.Key, snap.CommitID, snap.Agg.N(), snap.Agg.DurationLive(), snap.Agg.DurationDead())
	}

	p.mu.Lock()
	p.totalRows += int64(len(snapshots))
	p.totalBatches++
	p.mu.Unlock()
	return nil
}

// PrintFinalMetrics prints a one-time end-of-process summary.
func (p *mockPersister) PrintFinalMetrics() {
	p.mu.Lock()
	rows, batches := p.totalRows, p.totalBatches
	p.mu.Unlock()

	fmt.Println("--- final persistence metrics ---")
	fmt.Printf("snapshots committed: %d\n", rows)
	fmt.Printf("batches sent:        %d\n", batches)
}
