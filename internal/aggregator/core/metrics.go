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

// Package core also keeps a small set of process-level atomic counters
// and a registry of the configured thresholds. The Worker bumps the
// batch-flush counter; EventTotals and ThresholdSnapshot expose the
// values. The daemon prints neither at shutdown, and the Prometheus
// module in internal/aggregator/telemetry/metrics does not read them.
package core

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	heartbeatsReceived atomic.Int64
	batchesFlushed     atomic.Int64
	rollupsApplied     atomic.Int64
)

// RecordHeartbeat increments the count of heartbeats accepted via Insert.
func RecordHeartbeat(n int64) {
	if n > 0 {
		heartbeatsReceived.Add(n)
	}
}

// RecordBatchFlush increments the count of ProcessBatch flushes.
func RecordBatchFlush(n int64) {
	if n > 0 {
		batchesFlushed.Add(n)
	}
}

// RecordRollup increments the count of successful RollupTrans calls.
func RecordRollup(n int64) {
	if n > 0 {
		rollupsApplied.Add(n)
	}
}

// EventTotals returns a snapshot of the process-level counters.
func EventTotals() (heartbeats, batches, rollups int64) {
	return heartbeatsReceived.Load(), batchesFlushed.Load(), rollupsApplied.Load()
}

// resetEventTotals resets counters to zero. Intended for tests only.
func resetEventTotals() {
	heartbeatsReceived.Store(0)
	batchesFlushed.Store(0)
	rollupsApplied.Store(0)
}

var (
	thresholdsMu sync.RWMutex
	thresholds   = map[string]string{}
)

// SetThresholdInt64 records a configured int64 threshold.
func SetThresholdInt64(name string, v int64) {
	thresholdsMu.Lock()
	thresholds[name] = strconv.FormatInt(v, 10)
	thresholdsMu.Unlock()
}

// SetThresholdDuration records a configured duration threshold.
func SetThresholdDuration(name string, v time.Duration) {
	thresholdsMu.Lock()
	thresholds[name] = v.String()
	thresholdsMu.Unlock()
}

// SetThreshold records a configured string-valued threshold (e.g. a
// listen address or adapter selector).
func SetThreshold(name, v string) {
	thresholdsMu.Lock()
	thresholds[name] = v
	thresholdsMu.Unlock()
}

// SetThresholdBool records a configured boolean threshold.
func SetThresholdBool(name string, v bool) {
	thresholdsMu.Lock()
	thresholds[name] = strconv.FormatBool(v)
	thresholdsMu.Unlock()
}

// ThresholdSnapshot returns a copy of the currently recorded thresholds.
func ThresholdSnapshot() map[string]string {
	thresholdsMu.RLock()
	defer thresholdsMu.RUnlock()
	out := make(map[string]string, len(thresholds))
	for k, v := range thresholds {
		out[k] = v
	}
	return out
}
