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

package heartbeat

// TransStateFromAggregate deep-copies a finalized Aggregate into a fresh
// TransState with an empty buffer and liveness seeded from the
// aggregate's own live intervals. Used by RollupTrans to fold a
// precomputed sub-window aggregate into a running state.
func TransStateFromAggregate(a *Aggregate) *TransState {
	liveness := make([]Interval, a.N())
	for i := range a.s {
		liveness[i] = Interval{Start: a.s[i], End: a.e[i]}
	}
	return &TransState{
		start:     a.start,
		end:       a.end,
		l:         a.l,
		bufferCap: DefaultBufferCap,
		liveness:  liveness,
	}
}

// RollupTrans folds an optional incoming Aggregate into an optional
// running TransState, per the following table:
//
//	running | incoming | result
//	--------|----------|-------
//	any     | nil      | running unchanged
//	nil     | some     | new TransState built from incoming
//	some    | some     | running.Combine(TransStateFromAggregate(incoming))
//
// Only L must match between running and incoming; mismatched liveness
// lengths are rejected with ErrIncompatibleLiveness. Windows are NOT
// required to match: sub-window aggregates rolling up into a wider (or
// merely different) reporting window is the normal case, and the
// result inherits running's own window bounds unchanged.
func RollupTrans(running *TransState, incoming *Aggregate) (*TransState, error) {
	if incoming == nil {
		return running, nil
	}
	if running == nil {
		return TransStateFromAggregate(incoming), nil
	}
	if err := running.Combine(TransStateFromAggregate(incoming)); err != nil {
		return nil, err
	}
	return running, nil
}
