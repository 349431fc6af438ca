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

// Package heartbeat computes liveness aggregates over a stream of
// timestamped heartbeat events.
//
// For a bounded observation window [Start, End) and a per-heartbeat
// liveness length L, a TransState absorbs heartbeats in batches and
// maintains the set of time intervals during which the source is
// considered alive. Finalizing a TransState produces an immutable
// Aggregate that answers live/dead range and duration queries.
//
// All timestamps are signed 64-bit millisecond values. Interval bounds
// are half-open: start inclusive, end exclusive.
package heartbeat
