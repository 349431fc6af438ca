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

package integration

import (
	"runtime"
	"testing"
	"time"

	"heartbeatagg/internal/aggregator/core"
)

// TestSoakMemoryBounded drives a short soak of hot-source heartbeats and
// asserts heap usage stabilizes rather than growing without bound. This
// is a CI-friendly proxy for a longer soak: Finalize is non-destructive
// (pkg/heartbeat/transstate.go), so the liveness set grows by one
// interval per heartbeat here (heartbeats are 100 apart with L=10),
// which stays well inside the headroom below; a pending-heartbeat buffer
// that never got flushed would grow on top of that.
func TestSoakMemoryBounded(t *testing.T) {
	t.Setenv("GOMAXPROCS", "1")

	store := core.NewStore()
	pers := &countingPersister{}
	worker := core.NewWorker(store, pers, 256, 0, 10*time.Millisecond, 5*time.Minute, 30*time.Second)
	worker.Start()
	defer worker.Stop()

	hotSource := "soak-hot"
	stop := make(chan struct{})
	go func() {
		state, _ := store.GetOrCreate(hotSource, 0, 1<<62, 10)
		ticker := time.NewTicker(200 * time.Microsecond) // ~5k/s
		defer ticker.Stop()
		var t int64
		for {
			select {
			case <-ticker.C:
				t += 100
				_ = state.Insert(t)
			case <-stop:
				return
			}
		}
	}()

	samples := make([]uint64, 0, 8)
	duration := 4 * time.Second
	tick := 500 * time.Millisecond
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		samples = append(samples, ms.HeapAlloc)
		time.Sleep(tick)
	}
	close(stop)

	if len(samples) < 2 {
		t.Skip("insufficient samples; skipping assertion")
	}

	first := samples[0]
	last := samples[len(samples)-1]

	// Generous 2x + 8MB headroom to avoid false positives from GC timing.
	if last > first*2 && last-first > 8*1024*1024 {
		t.Fatalf("heap growth too high over soak: first=%d last=%d", first, last)
	}
}
