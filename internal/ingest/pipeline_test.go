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
	"sync"
	"testing"
	"time"

	"heartbeatagg/internal/aggregator/core"
	"heartbeatagg/pkg/heartbeat"
)

type sinkMock struct {
	mu   sync.Mutex
	seen []Batch
}

func (s *sinkMock) OnBatch(b Batch) {
	s.mu.Lock()
	s.seen = append(s.seen, b)
	s.mu.Unlock()
}

func (s *sinkMock) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func fixedWindow(start, end, l int64) WindowProvider {
	return func(string) (int64, int64, int64) { return start, end, l }
}

func TestPipelineHeartbeatFlushesToStore(t *testing.T) {
	store := core.NewStore()
	sink := &sinkMock{}
	p := NewPipeline(store, fixedWindow(0, 500, 10), sink, ServiceOptions{
		Shards: 1, CountThreshold: 1024, FlushInterval: time.Hour, Buffer: 16,
	})
	p.Start()
	defer p.Stop()

	if err := p.Heartbeat("src-a", 10); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	p.FlushHeartbeats()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if sink.count() > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if sink.count() == 0 {
		t.Fatalf("expected batch flushed to sink")
	}

	state, ok := store.Get("src-a")
	if !ok {
		t.Fatalf("expected source to be created in store")
	}
	agg := state.Finalize()
	if !agg.LiveAt(10) {
		t.Fatalf("expected t=10 to be live after flush")
	}
}

func TestPipelineHeartbeatTicksAutomatically(t *testing.T) {
	store := core.NewStore()
	p := NewPipeline(store, fixedWindow(0, 500, 10), nil, ServiceOptions{
		Shards: 1, CountThreshold: 1024, FlushInterval: 5 * time.Millisecond, Buffer: 16,
	})
	p.Start()
	defer p.Stop()

	_ = p.Heartbeat("src-b", 20)

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, ok := store.Get("src-b"); ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected periodic tick to flush the pending heartbeat")
}

func TestPipelineRollupAppliesAndReportsErrors(t *testing.T) {
	store := core.NewStore()
	p := NewPipeline(store, fixedWindow(0, 500, 10), nil, ServiceOptions{
		Shards: 1, CountThreshold: 1024, FlushInterval: time.Hour, Buffer: 16,
	})
	p.Start()
	defer p.Stop()

	incomingState, err := heartbeat.New(0, 500, 10)
	if err != nil {
		t.Fatalf("heartbeat.New: %v", err)
	}
	for _, tp := range []int64{10, 20, 30} {
		if err := incomingState.Insert(tp); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	incoming := incomingState.Finalize()

	if err := p.Rollup("src-c", incoming); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	state, ok := store.Get("src-c")
	if !ok {
		t.Fatalf("expected rollup to create the source")
	}
	if !state.Finalize().LiveAt(10) {
		t.Fatalf("expected t=10 to be live after rollup")
	}

	badState, _ := heartbeat.New(0, 500, 20)
	bad := badState.Finalize()
	if err := p.Rollup("src-c", bad); err == nil {
		t.Fatalf("expected mismatched-liveness rollup to report an error")
	}
}

func TestPipelineRollupsForDistinctSourcesDoNotBlockEachOther(t *testing.T) {
	store := core.NewStore()
	p := NewPipeline(store, fixedWindow(0, 500, 10), nil, ServiceOptions{
		Shards: 2, CountThreshold: 1024, FlushInterval: time.Hour, Buffer: 16,
	})
	p.Start()
	defer p.Stop()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i, src := range []string{"s0", "s1", "s2", "s3"} {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			st, _ := heartbeat.New(0, 500, 10)
			_ = st.Insert(int64(i * 10))
			errs[i] = p.Rollup(src, st.Finalize())
		}(i, src)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("rollup %d: %v", i, err)
		}
	}
	for _, src := range []string{"s0", "s1", "s2", "s3"} {
		if _, ok := store.Get(src); !ok {
			t.Fatalf("expected %s to be created", src)
		}
	}
}
