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

// Package ingest is a sharded, time-capped pre-aggregation pipeline that
// sits in front of the aggregator's core Store. A database invoking an
// aggregate-transition function once per row gets batching for free from
// the executor; an HTTP-fronted service does not, so heartbeats are
// coalesced here into short-lived per-source batches before they reach
// heartbeat.TransState.Insert, and rollup-merge requests for a given
// source are serialized through an ordered actor so concurrent HTTP
// handlers can never reorder a source's RollupTrans calls.
package ingest

import "heartbeatagg/pkg/heartbeat"

// Lane identifies which half of the pipeline an Event belongs to.
type Lane int

const (
	// LaneHeartbeat carries raw heartbeat timestamps headed for
	// TransState.Insert, coalesced through the sharded Accumulator.
	LaneHeartbeat Lane = iota
	// LaneRollup carries RollupTrans merge requests, serialized per
	// source through the ordered Router.
	LaneRollup
)

// Event is the unit of work the pipeline accepts. Exactly one of the
// lane-specific fields is populated, matching Lane.
type Event struct {
	Lane   Lane
	Source string

	// LaneHeartbeat
	T int64

	// LaneRollup
	Incoming *heartbeat.Aggregate
	Result   chan error // non-nil: receives the RollupTrans outcome
}

// Batch is a flushed run of heartbeat timestamps for one source.
type Batch struct {
	Source string
	Points []int64
}
