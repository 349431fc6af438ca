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
	"heartbeatagg/internal/aggregator/core"
	"heartbeatagg/pkg/heartbeat"
)

// Pipeline is a small façade wiring together the Accumulator-backed
// heartbeat lane and the Router-backed rollup lane behind a minimal API,
// so callers (the HTTP API layer or load-testing tools) don't need to
// know about Service's internals.
type Pipeline struct {
	svc *Service
}

// NewPipeline constructs and wires a Pipeline against store.
func NewPipeline(store *core.Store, windows WindowProvider, sink BatchSink, opts ServiceOptions) *Pipeline {
	return &Pipeline{svc: NewService(store, windows, sink, opts)}
}

// Start launches the background service.
func (p *Pipeline) Start() { p.svc.Start() }

// Stop stops the background service and waits for a final flush plus
// every in-flight rollup actor to drain.
func (p *Pipeline) Stop() { p.svc.Stop() }

// FlushHeartbeats requests an immediate best-effort flush of every
// pending heartbeat batch.
func (p *Pipeline) FlushHeartbeats() { p.svc.Flush() }

// Heartbeat enqueues a single heartbeat timestamp for source, falling
// back to a blocking Ingest if the ingress buffer is momentarily full.
func (p *Pipeline) Heartbeat(source string, t int64) error {
	ev, err := NewHeartbeatEvent(source, t)
	if err != nil {
		return err
	}
	if !p.svc.TryIngest(ev) {
		p.svc.Ingest(ev)
	}
	return nil
}

// Rollup enqueues a RollupTrans merge for source and blocks until the
// source's actor has applied it, returning the merge outcome.
func (p *Pipeline) Rollup(source string, incoming *heartbeat.Aggregate) error {
	result := make(chan error, 1)
	ev, err := NewRollupEvent(source, incoming, result)
	if err != nil {
		return err
	}
	p.svc.Ingest(ev)
	return <-result
}
