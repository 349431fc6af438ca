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

package ingest

import (
	"testing"
	"time"
)

func TestAccumulatorIngestBelowThresholdDoesNotFlush(t *testing.T) {
	acc := NewAccumulator(4, 3, time.Second)
	if acc.Ingest("src", 10) {
		t.Fatalf("expected no flush signal before crossing threshold")
	}
	if acc.Ingest("src", 20) {
		t.Fatalf("expected no flush signal before crossing threshold")
	}
}

func TestAccumulatorIngestAtThresholdSignalsFlush(t *testing.T) {
	acc := NewAccumulator(4, 3, time.Second)
	acc.Ingest("src", 10)
	acc.Ingest("src", 20)
	if !acc.Ingest("src", 30) {
		t.Fatalf("expected flush signal at threshold")
	}
}

func TestAccumulatorFlushSourceDrainsOnlyThatSource(t *testing.T) {
	acc := NewAccumulator(4, 100, time.Second)
	acc.Ingest("a", 1)
	acc.Ingest("a", 2)
	acc.Ingest("b", 3)

	ptsA, ok := acc.FlushSource("a")
	if !ok || len(ptsA) != 2 {
		t.Fatalf("expected 2 points for a, got %v ok=%v", ptsA, ok)
	}
	if _, ok := acc.FlushSource("a"); ok {
		t.Fatalf("expected a to be empty after flush")
	}
	ptsB, ok := acc.FlushSource("b")
	if !ok || len(ptsB) != 1 {
		t.Fatalf("expected 1 point for b, got %v ok=%v", ptsB, ok)
	}
}

func TestAccumulatorFlushAllDrainsEverySource(t *testing.T) {
	acc := NewAccumulator(2, 100, time.Second)
	sources := []string{"s0", "s1", "s2", "s3", "s4"}
	for _, src := range sources {
		acc.Ingest(src, 1)
	}
	batches := acc.FlushAll()
	if len(batches) != len(sources) {
		t.Fatalf("expected %d batches, got %d", len(sources), len(batches))
	}
	if more := acc.FlushAll(); len(more) != 0 {
		t.Fatalf("expected no batches after FlushAll drained everything, got %d", len(more))
	}
}

func TestAccumulatorDefaultsGuardAgainstZeroValues(t *testing.T) {
	acc := NewAccumulator(0, 0, 0)
	if len(acc.shards) != 1 {
		t.Fatalf("expected shardCount to default to 1, got %d", len(acc.shards))
	}
}
