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
	"errors"

	"heartbeatagg/pkg/heartbeat"
)

// ErrNoSource is returned when an Event is missing its source key.
var ErrNoSource = errors.New("ingest: event missing source")

// NewHeartbeatEvent builds a LaneHeartbeat Event for a single timestamp.
func NewHeartbeatEvent(source string, t int64) (Event, error) {
	if source == "" {
		return Event{}, ErrNoSource
	}
	return Event{Lane: LaneHeartbeat, Source: source, T: t}, nil
}

// NewRollupEvent builds a LaneRollup Event merging incoming into source's
// running state. result, if non-nil, receives the merge outcome once the
// source's actor has applied it.
func NewRollupEvent(source string, incoming *heartbeat.Aggregate, result chan error) (Event, error) {
	if source == "" {
		return Event{}, ErrNoSource
	}
	return Event{Lane: LaneRollup, Source: source, Incoming: incoming, Result: result}, nil
}
