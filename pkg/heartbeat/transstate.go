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

// DefaultBufferCap is the soft cap on the number of raw heartbeats a
// TransState will hold before it forces a ProcessBatch. It is a
// performance knob, not a correctness one: the finalized Aggregate is
// identical for any positive cap (see the batching-transparency property
// in the state's tests).
const DefaultBufferCap = 1000

// TransState is the mutable transition state that absorbs heartbeats for
// one source within one observation window. It is not safe for
// concurrent use; callers that need to serialize access across
// goroutines should do so themselves (internal/ingest provides a
// per-source ordered actor for exactly this purpose).
type TransState struct {
	start, end int64
	l          int64
	bufferCap  int

	buffer   []int64
	liveness []Interval
}

// New returns an empty TransState for the window [start, end) with
// liveness length l. It requires start < end and l > 0.
func New(start, end, l int64) (*TransState, error) {
	if start >= end {
		return nil, preconditionf("heartbeat: new: start %d must be < end %d", start, end)
	}
	if l <= 0 {
		return nil, preconditionf("heartbeat: new: liveness length %d must be > 0", l)
	}
	return &TransState{start: start, end: end, l: l, bufferCap: DefaultBufferCap}, nil
}

// Start returns the state's window start.
func (s *TransState) Start() int64 { return s.start }

// End returns the state's window end.
func (s *TransState) End() int64 { return s.end }

// L returns the state's liveness length.
func (s *TransState) L() int64 { return s.l }

// PendingLen returns the number of heartbeats currently sitting in the
// unflushed buffer. It is a monitoring/scheduling hook, not part of the
// core algorithm: callers use it to decide when to call ProcessBatch
// proactively (e.g. on a commit-threshold watermark).
func (s *TransState) PendingLen() int { return len(s.buffer) }

// Insert records a single heartbeat at time t. It requires
// start <= t < end. If the pending buffer has reached its cap, Insert
// first flushes it via ProcessBatch.
func (s *TransState) Insert(t int64) error {
	if t < s.start || t >= s.end {
		return preconditionf("heartbeat: insert: t=%d outside window [%d, %d)", t, s.start, s.end)
	}
	if len(s.buffer) >= s.bufferCap {
		s.ProcessBatch()
	}
	s.buffer = append(s.buffer, t)
	return nil
}

// ProcessBatch flushes the pending buffer into the liveness set. It is a
// no-op when the buffer is empty. Batching amortises the per-heartbeat
// cost: sort the buffer once, sweep it into run-length intervals, then
// union that run-length sequence into the existing liveness in one pass
// rather than re-sorting the whole set on every insert.
func (s *TransState) ProcessBatch() {
	if len(s.buffer) == 0 {
		return
	}
	sortInt64s(s.buffer)
	runs := intervalsFromSortedPoints(s.buffer, s.l)
	if len(s.liveness) == 0 {
		s.liveness = runs
	} else {
		s.liveness = unionIntervals(s.liveness, runs)
	}
	s.buffer = s.buffer[:0]
}

// Combine merges other's liveness into s. It requires s.L() == other.L().
// Window bounds are NOT unified or compared here, and RollupTrans does
// not compare them either: s keeps its own window.
func (s *TransState) Combine(other *TransState) error {
	if s.l != other.l {
		return ErrIncompatibleLiveness
	}
	s.ProcessBatch()
	other.ProcessBatch()
	if len(other.liveness) == 0 {
		return nil
	}
	if len(s.liveness) == 0 {
		s.liveness = append([]Interval(nil), other.liveness...)
		return nil
	}
	s.liveness = unionIntervals(s.liveness, other.liveness)
	return nil
}

// Finalize flushes any pending heartbeats, clamps the last interval's
// end to the window end if it overruns, and returns an immutable
// Aggregate snapshot. Starts are never clamped: Insert's precondition
// already guarantees every start is >= s.start.
func (s *TransState) Finalize() *Aggregate {
	s.ProcessBatch()

	n := len(s.liveness)
	starts := make([]int64, n)
	ends := make([]int64, n)
	for i, iv := range s.liveness {
		starts[i] = iv.Start
		ends[i] = iv.End
	}
	if n > 0 && ends[n-1] > s.end {
		ends[n-1] = s.end
	}
	return &Aggregate{
		start: s.start,
		end:   s.end,
		l:     s.l,
		s:     starts,
		e:     ends,
	}
}
