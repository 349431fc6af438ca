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
	"testing"
	"time"
)

type recordingPersister struct {
	batches [][]Snapshot
}

func (r *recordingPersister) CommitBatch(snapshots []Snapshot) error {
	cp := append([]Snapshot(nil), snapshots...)
	r.batches = append(r.batches, cp)
	return nil
}
func (r *recordingPersister) PrintFinalMetrics() {}

func TestWorkerRunCommitCycleRespectsHighWatermark(t *testing.T) {
	s := NewStore()
	ts, _ := s.GetOrCreate("quiet", 0, 1_000_000, 10)
	_ = ts.Insert(5)

	p := &recordingPersister{}
	w := NewWorker(s, p, 10, 0, time.Second, time.Hour, time.Minute)

	w.runCommitCycle(false)
	if len(p.batches) != 0 {
		t.Fatalf("expected no commit below the high watermark, got %d batches", len(p.batches))
	}
}

func TestWorkerRunCommitCycleFlushesAboveWatermark(t *testing.T) {
	s := NewStore()
	ts, _ := s.GetOrCreate("busy", 0, 1_000_000, 10)
	for i := int64(0); i < 5; i++ {
		_ = ts.Insert(i * 100)
	}

	p := &recordingPersister{}
	w := NewWorker(s, p, 3, 0, time.Second, time.Hour, time.Minute)

	w.runCommitCycle(false)
	if len(p.batches) != 1 {
		t.Fatalf("expected exactly one commit batch, got %d", len(p.batches))
	}
	if len(p.batches[0]) != 1 || p.batches[0][0].Key != "busy" {
		t.Fatalf("unexpected batch contents: %+v", p.batches[0])
	}
}

func TestWorkerFinalCommitFlushesEverything(t *testing.T) {
	s := NewStore()
	ts, _ := s.GetOrCreate("any", 0, 1_000_000, 10)
	_ = ts.Insert(1)

	p := &recordingPersister{}
	w := NewWorker(s, p, 1_000_000, 0, time.Second, time.Hour, time.Minute)

	w.runCommitCycle(true)
	if len(p.batches) != 1 {
		t.Fatalf("expected final flush to commit regardless of watermark, got %d batches", len(p.batches))
	}
}

func TestWorkerEvictionCycleRemovesStaleSources(t *testing.T) {
	s := NewStore()
	ts, _ := s.GetOrCreate("stale", 0, 1_000_000, 10)
	_ = ts.Insert(1)

	p := &recordingPersister{}
	w := NewWorker(s, p, 1_000_000, 0, time.Second, 0, time.Second)

	w.runEvictionCycle()
	if _, ok := s.Get("stale"); ok {
		t.Fatalf("expected stale source to be evicted")
	}
	if len(p.batches) != 1 {
		t.Fatalf("expected eviction to persist a final snapshot, got %d batches", len(p.batches))
	}
}
