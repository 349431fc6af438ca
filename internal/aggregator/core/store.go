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

// Package core provides the in-memory management of per-source
// TransStates, the background worker that flushes and evicts them, and
// a pluggable Persister for durable Aggregate snapshots.
package core

import (
	"sync"
	"sync/atomic"
	"time"

	"heartbeatagg/pkg/heartbeat"
)

// managedState wraps a TransState with the metadata the background
// worker needs to decide when to snapshot it and when to evict it.
//
// armed implements a high/low watermark hysteresis for commits: once a
// source's pending buffer crosses the high watermark it is eligible to
// be flushed and persisted; after a flush it must fall back below the
// low watermark before it is re-armed, which avoids persisting a
// near-threshold source on every tick.
type managedState struct {
	key          string
	state        *heartbeat.TransState
	lastAccessed int64 // UnixNano, accessed atomically
	armed        atomic.Bool
}

// Store manages a collection of TransState instances keyed by source ID.
// It is safe for concurrent use.
type Store struct {
	states sync.Map // string -> *managedState
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// GetOrCreate returns the TransState for key, creating it with the given
// window and liveness length on first access. Subsequent calls for the
// same key ignore start/end/l and return the existing state, matching
// the external `trans` entry point's lazy-init-on-first-call semantics.
func (s *Store) GetOrCreate(key string, start, end, l int64) (*heartbeat.TransState, error) {
	if actual, ok := s.states.Load(key); ok {
		m := actual.(*managedState)
		atomic.StoreInt64(&m.lastAccessed, time.Now().UnixNano())
		return m.state, nil
	}

	ts, err := heartbeat.New(start, end, l)
	if err != nil {
		return nil, err
	}
	m := &managedState{key: key, state: ts, lastAccessed: time.Now().UnixNano()}
	m.armed.Store(true)

	if actual, loaded := s.states.LoadOrStore(key, m); loaded {
		existing := actual.(*managedState)
		atomic.StoreInt64(&existing.lastAccessed, time.Now().UnixNano())
		return existing.state, nil
	}
	return m.state, nil
}

// Get returns the TransState for key without creating it.
func (s *Store) Get(key string) (*heartbeat.TransState, bool) {
	actual, ok := s.states.Load(key)
	if !ok {
		return nil, false
	}
	m := actual.(*managedState)
	atomic.StoreInt64(&m.lastAccessed, time.Now().UnixNano())
	return m.state, true
}

// ForEach iterates over every managed state in the store.
func (s *Store) ForEach(f func(key string, m *managedState)) {
	s.states.Range(func(k, v interface{}) bool {
		f(k.(string), v.(*managedState))
		return true
	})
}

// Delete removes key from the store.
func (s *Store) Delete(key string) {
	s.states.Delete(key)
}
