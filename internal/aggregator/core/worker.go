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
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Worker runs the background tasks for a Store: periodically flushing
// pending heartbeat buffers into durable Aggregate snapshots, and
// evicting sources that have gone quiet.
type Worker struct {
	store              *Store
	persister          Persister
	commitThreshold    int   // high watermark, in pending-buffer length
	lowCommitThreshold int   // low watermark; 0 disables hysteresis
	commitInterval     time.Duration
	evictionAge        time.Duration
	evictionInterval   time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32

	seq atomic.Int64 // monotonically increasing commit-id suffix
}

// NewWorker configures a Worker. commitThreshold/lowCommitThreshold are
// measured in the number of heartbeats pending in a source's buffer; a
// source becomes eligible to flush+persist once it reaches the high
// watermark, and must fall back below the low watermark before it is
// re-armed.
func NewWorker(store *Store, persister Persister, commitThreshold, lowCommitThreshold int, commitInterval, evictionAge, evictionInterval time.Duration) *Worker {
	return &Worker{
		store:              store,
		persister:          persister,
		commitThreshold:    commitThreshold,
		lowCommitThreshold: lowCommitThreshold,
		commitInterval:     commitInterval,
		evictionAge:        evictionAge,
		evictionInterval:   evictionInterval,
		stopChan:           make(chan struct{}),
	}
}

// Start launches the worker's background goroutines.
func (w *Worker) Start() {
	fmt.Println("starting aggregator worker...")
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.commitLoop()
	}()
	go func() {
		defer w.wg.Done()
		w.evictionLoop()
	}()
}

// Stop gracefully stops the worker, performing a final flush of every
// source before returning.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	fmt.Println("stopping aggregator worker...")
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) commitLoop() {
	ticker := time.NewTicker(w.commitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runCommitCycle(false)
		case <-w.stopChan:
			w.runCommitCycle(true)
			return
		}
	}
}

// runCommitCycle flushes and persists every source whose pending buffer
// has crossed the high watermark (or, when final is true, every source,
// including those whose live set is empty).
func (w *Worker) runCommitCycle(final bool) {
	var snapshots []Snapshot

	w.store.ForEach(func(key string, m *managedState) {
		pending := m.state.PendingLen()

		shouldFlush := final
		if !shouldFlush && pending >= w.commitThreshold {
			if w.lowCommitThreshold <= 0 || m.armed.Load() {
				shouldFlush = true
			}
		} else if !final && w.lowCommitThreshold > 0 && !m.armed.Load() && pending <= w.lowCommitThreshold {
			m.armed.Store(true)
		}

		if !shouldFlush {
			return
		}

		RecordBatchFlush(1)
		// Finalize takes a read-only snapshot; it does not clear the
		// state's own liveness set, so the source keeps accumulating
		// heartbeats for the rest of its window after this call.
		agg := m.state.Finalize()
		if agg.N() == 0 && !final {
			return
		}
		snapshots = append(snapshots, Snapshot{
			Key:      key,
			CommitID: key + "-" + strconv.FormatInt(w.seq.Add(1), 10),
			Agg:      agg,
		})
		m.armed.Store(false)
	})

	if len(snapshots) == 0 {
		return
	}
	if err := w.persister.CommitBatch(snapshots); err != nil {
		fmt.Printf("ERROR: failed to commit batch: %v\n", err)
	}
}

func (w *Worker) evictionLoop() {
	ticker := time.NewTicker(w.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runEvictionCycle()
		case <-w.stopChan:
			return
		}
	}
}

// runEvictionCycle evicts sources that have not been touched in
// evictionAge. A source's window bounds play no part: a source whose
// window has closed stays until it has been idle that long.
func (w *Worker) runEvictionCycle() {
	var keysToEvict []string
	now := time.Now()

	w.store.ForEach(func(key string, m *managedState) {
		last := atomic.LoadInt64(&m.lastAccessed)
		if now.Sub(time.Unix(0, last)) > w.evictionAge {
			keysToEvict = append(keysToEvict, key)
		}
	})

	if len(keysToEvict) == 0 {
		return
	}

	fmt.Printf("evicting %d stale sources...\n", len(keysToEvict))
	for _, key := range keysToEvict {
		state, ok := w.store.Get(key)
		if !ok {
			continue
		}
		agg := state.Finalize()
		if agg.N() > 0 {
			snap := Snapshot{Key: key, CommitID: key + "-final-" + strconv.FormatInt(w.seq.Add(1), 10), Agg: agg}
			if err := w.persister.CommitBatch([]Snapshot{snap}); err != nil {
				fmt.Printf("ERROR: failed final commit for %s: %v\n", key, err)
				continue
			}
		}
		w.store.Delete(key)
	}
}
