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

package persistence

import (
	"context"

	"heartbeatagg/internal/aggregator/core"
)

// IdemShim adapts an IdempotentPersister to the core.Persister
// interface the Worker uses. It forwards each core.Snapshot's own
// CommitID (assigned once per commit attempt by the worker) rather than
// minting a fresh one per call, so a retried CommitBatch reuses the same
// idempotency key and the backend's dedup actually applies.
type IdemShim struct {
	impl IdempotentPersister
}

func NewIdemShim(impl IdempotentPersister) *IdemShim { return &IdemShim{impl: impl} }

// CommitBatch maps core.Snapshot -> SnapshotEntry and forwards to impl.
func (s *IdemShim) CommitBatch(snapshots []core.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	entries := make([]SnapshotEntry, len(snapshots))
	for i, snap := range snapshots {
		live := snap.Agg.LiveRanges()
		starts := make([]int64, len(live))
		ends := make([]int64, len(live))
		for j, r := range live {
			starts[j] = r.Start
			ends[j] = r.End
		}
		entries[i] = SnapshotEntry{
			Key:      snap.Key,
			CommitID: snap.CommitID,
			Start:    snap.Agg.Start(),
			End:      snap.Agg.End(),
			L:        snap.Agg.L(),
			S:        starts,
			E:        ends,
		}
	}
	return s.impl.CommitBatch(context.Background(), entries)
}

// PrintFinalMetrics is a no-op: the idempotent adapters don't keep a
// local running total the way the persister from core.NewMockPersister
// does.
func (s *IdemShim) PrintFinalMetrics() {}
