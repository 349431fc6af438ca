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

// Package api implements the public-facing HTTP surface for the
// aggregator: the heartbeat-ingest, finalize, and rollup-merge entry
// points, plus the Aggregate query endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"heartbeatagg/internal/aggregator/core"
	"heartbeatagg/pkg/heartbeat"
)

// Server handles HTTP requests for the aggregator service.
type Server struct {
	store *core.Store
}

// NewServer creates a new API server backed by store.
func NewServer(store *core.Store) *Server {
	return &Server{store: store}
}

// RegisterRoutes wires the aggregator's HTTP routes onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/aggregate", s.handleAggregate)
	mux.HandleFunc("/rollup", s.handleRollup)
	mux.HandleFunc("/live_at", s.handleLiveAt)
	mux.HandleFunc("/live_ranges", s.handleLiveRanges)
	mux.HandleFunc("/dead_ranges", s.handleDeadRanges)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	fmt.Printf("aggregator API server listening on %s\n", addr)
	return httpServer.ListenAndServe()
}

// handleHeartbeat implements `trans`: lazily creates the source's
// TransState on first call, then inserts the given heartbeat.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	source := q.Get("source")
	if source == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}

	t, err := parseInt64(q, "t")
	if err != nil {
		http.Error(w, "t: "+err.Error(), http.StatusBadRequest)
		return
	}
	windowStart, err := parseInt64(q, "window_start")
	if err != nil {
		http.Error(w, "window_start: "+err.Error(), http.StatusBadRequest)
		return
	}
	windowLength, err := parseInt64(q, "window_length")
	if err != nil {
		http.Error(w, "window_length: "+err.Error(), http.StatusBadRequest)
		return
	}
	livenessLength, err := parseInt64(q, "liveness_length")
	if err != nil {
		http.Error(w, "liveness_length: "+err.Error(), http.StatusBadRequest)
		return
	}

	state, err := s.store.GetOrCreate(source, windowStart, windowStart+windowLength, livenessLength)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := state.Insert(t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAggregate implements `final`: returns the source's finalized
// Aggregate, or 404 if the source has never received a heartbeat.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}
	state, ok := s.store.Get(source)
	if !ok {
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	}
	writeJSON(w, aggregateJSON(state.Finalize()))
}

// rollupRequest is the body for POST /rollup: a window/liveness-length
// plus the raw heartbeat timestamps to fold in. The timestamps are
// re-derived into intervals via TransState.Insert/Finalize rather than
// trusting caller-supplied interval bounds verbatim.
type rollupRequest struct {
	Start int64   `json:"start"`
	End   int64   `json:"end"`
	L     int64   `json:"l"`
	S     []int64 `json:"s"`
}

// handleRollup implements `rollup_trans`.
func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}

	var req rollupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	incomingState, err := heartbeat.New(req.Start, req.End, req.L)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for i := range req.S {
		// Route the incoming points through Insert so the intervals are
		// re-derived rather than trusted verbatim from the wire.
		if err := incomingState.Insert(req.S[i]); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	incoming := incomingState.Finalize()

	running, _ := s.store.Get(source)
	merged, err := heartbeat.RollupTrans(running, incoming)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if running == nil {
		created, getErr := s.store.GetOrCreate(source, merged.Start(), merged.End(), merged.L())
		if getErr == nil {
			getErr = created.Combine(merged)
		}
		if getErr != nil {
			http.Error(w, getErr.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, aggregateJSON(merged.Finalize()))
}

func (s *Server) handleLiveAt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := q.Get("source")
	state, ok := s.lookupOr404(w, source)
	if !ok {
		return
	}
	t, err := parseInt64(q, "t")
	if err != nil {
		http.Error(w, "t: "+err.Error(), http.StatusBadRequest)
		return
	}
	agg := state.Finalize()
	writeJSON(w, map[string]bool{"live": agg.LiveAt(t)})
}

func (s *Server) handleLiveRanges(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookupOr404(w, r.URL.Query().Get("source"))
	if !ok {
		return
	}
	writeJSON(w, intervalsJSON(state.Finalize().LiveRanges()))
}

func (s *Server) handleDeadRanges(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookupOr404(w, r.URL.Query().Get("source"))
	if !ok {
		return
	}
	writeJSON(w, intervalsJSON(state.Finalize().DeadRanges()))
}

func (s *Server) lookupOr404(w http.ResponseWriter, source string) (*heartbeat.TransState, bool) {
	if source == "" {
		http.Error(w, "source is required", http.StatusBadRequest)
		return nil, false
	}
	state, ok := s.store.Get(source)
	if !ok {
		http.Error(w, "unknown source", http.StatusNotFound)
		return nil, false
	}
	return state, true
}

type aggregateResponse struct {
	Start        int64   `json:"start"`
	End          int64   `json:"end"`
	L            int64   `json:"l"`
	N            int     `json:"n"`
	S            []int64 `json:"s"`
	E            []int64 `json:"e"`
	DurationLive int64   `json:"duration_live"`
	DurationDead int64   `json:"duration_dead"`
}

func aggregateJSON(agg *heartbeat.Aggregate) aggregateResponse {
	live := agg.LiveRanges()
	starts := make([]int64, len(live))
	ends := make([]int64, len(live))
	for i, r := range live {
		starts[i] = r.Start
		ends[i] = r.End
	}
	return aggregateResponse{
		Start: agg.Start(), End: agg.End(), L: agg.L(), N: agg.N(),
		S: starts, E: ends,
		DurationLive: agg.DurationLive(), DurationDead: agg.DurationDead(),
	}
}

type intervalResponse struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func intervalsJSON(ivs []heartbeat.Interval) []intervalResponse {
	out := make([]intervalResponse, len(ivs))
	for i, iv := range ivs {
		out[i] = intervalResponse{Start: iv.Start, End: iv.End}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt64(q map[string][]string, name string) (int64, error) {
	vals, ok := q[name]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	return strconv.ParseInt(vals[0], 10, 64)
}
