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
	"hash/fnv"
	"sync"
	"time"
)

// shard is a single-writer accumulator of pending heartbeat timestamps,
// bucketed by source. It flushes a source's buffer once its point count
// crosses countThreshold, bounding memory. The wall-clock timeCap for
// low-traffic sources is enforced by the owning Service's periodic tick,
// not by the shard or the Accumulator.
type shard struct {
	mu             sync.Mutex
	points         map[string][]int64
	countThreshold int
}

func newShard(countThreshold int) *shard {
	return &shard{points: make(map[string][]int64), countThreshold: countThreshold}
}

// ingest appends t to source's pending buffer and reports whether the
// buffer crossed countThreshold and should be flushed now.
func (s *shard) ingest(source string, t int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[source] = append(s.points[source], t)
	return len(s.points[source]) >= s.countThreshold
}

// flushSource drains and returns source's pending buffer, if any.
func (s *shard) flushSource(source string) ([]int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pts, ok := s.points[source]
	if !ok || len(pts) == 0 {
		return nil, false
	}
	delete(s.points, source)
	return pts, true
}

// flushAll drains every source's pending buffer.
func (s *shard) flushAll() []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.points) == 0 {
		return nil
	}
	out := make([]Batch, 0, len(s.points))
	for source, pts := range s.points {
		out = append(out, Batch{Source: source, Points: pts})
	}
	s.points = make(map[string][]int64)
	return out
}

// Accumulator shards pending heartbeats across N independent shards keyed
// by source, so concurrent ingestion from many sources does not contend
// on a single lock.
type Accumulator struct {
	shards  []*shard
	timeCap time.Duration
}

// NewAccumulator creates an Accumulator with shardCount independent
// shards. countThreshold triggers an eager per-source flush on ingest;
// timeCap bounds how long a quiet source's points can sit unflushed
// (enforced by the owning Service's periodic tick, not by this type).
func NewAccumulator(shardCount, countThreshold int, timeCap time.Duration) *Accumulator {
	if shardCount <= 0 {
		shardCount = 1
	}
	if countThreshold <= 0 {
		countThreshold = 64
	}
	a := &Accumulator{shards: make([]*shard, shardCount), timeCap: timeCap}
	for i := range a.shards {
		a.shards[i] = newShard(countThreshold)
	}
	return a
}

// TimeCap returns the configured time cap.
func (a *Accumulator) TimeCap() time.Duration { return a.timeCap }

func (a *Accumulator) shardFor(source string) *shard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return a.shards[h.Sum64()%uint64(len(a.shards))]
}

// Ingest records a heartbeat timestamp for source. It reports whether the
// source's buffer just crossed the count threshold, a hint that the
// caller may want to flush that source immediately rather than wait for
// the next tick.
func (a *Accumulator) Ingest(source string, t int64) bool {
	return a.shardFor(source).ingest(source, t)
}

// FlushSource drains the pending points for a single source.
func (a *Accumulator) FlushSource(source string) ([]int64, bool) {
	return a.shardFor(source).flushSource(source)
}

// FlushAll drains every shard and returns every pending batch.
func (a *Accumulator) FlushAll() []Batch {
	var out []Batch
	for _, sh := range a.shards {
		out = append(out, sh.flushAll()...)
	}
	return out
}
