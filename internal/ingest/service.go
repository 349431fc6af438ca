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
	"sync"
	"time"

	"heartbeatagg/internal/aggregator/core"
	"heartbeatagg/pkg/heartbeat"
)

// WindowProvider resolves the window/liveness-length a source's
// TransState should be created with the first time the pipeline sees it.
// The aggregator's HTTP layer typically supplies this from request
// parameters; tools that only ever operate on pre-existing sources can
// return a zero-value that is never used.
type WindowProvider func(source string) (start, end, l int64)

// ServiceOptions configures the background pipeline service.
type ServiceOptions struct {
	// Buffer is the bounded capacity of the event ingress channel.
	Buffer int
	// FlushInterval is the periodic tick that flushes every shard of the
	// Accumulator regardless of per-source count thresholds, bounding
	// tail latency for low-traffic sources.
	FlushInterval time.Duration
	// Shards and CountThreshold configure the Accumulator.
	Shards         int
	CountThreshold int
}

// BatchSink, if set, observes every flushed Batch after it has been
// applied to the store, e.g. for an append-only audit log.
type BatchSink interface {
	OnBatch(Batch)
}

// Service is the background pipeline: it ingests Events, coalesces
// LaneHeartbeat timestamps through an Accumulator, serializes LaneRollup
// merges through a Router, and applies both against a core.Store.
type Service struct {
	store   *core.Store
	acc     *Accumulator
	router  *Router
	windows WindowProvider
	sink    BatchSink

	in            chan Event
	stopCh        chan struct{}
	doneCh        chan struct{}
	flushNowCh    chan struct{}
	opts          ServiceOptions
	once          sync.Once
}

// NewService wires a Service against store. windows supplies the
// window/liveness-length for a source's first-seen heartbeat; sink may
// be nil.
func NewService(store *core.Store, windows WindowProvider, sink BatchSink, opts ServiceOptions) *Service {
	if opts.Buffer <= 0 {
		opts.Buffer = 4096
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 10 * time.Millisecond
	}
	return &Service{
		store:      store,
		acc:        NewAccumulator(opts.Shards, opts.CountThreshold, opts.FlushInterval),
		router:     NewRouter(),
		windows:    windows,
		sink:       sink,
		in:         make(chan Event, opts.Buffer),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		flushNowCh: make(chan struct{}, 1),
		opts:       opts,
	}
}

// Start launches the background worker goroutine.
func (s *Service) Start() {
	s.once.Do(func() {
		go s.run()
	})
}

// Stop asks the worker to drain and flush, waits for the final flush,
// then waits for every in-flight rollup actor to finish applying its
// queue.
func (s *Service) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.router.Wait()
}

// Flush requests an immediate best-effort flush of every accumulator
// shard. Non-blocking: a pending request is coalesced with this one.
func (s *Service) Flush() {
	select {
	case s.flushNowCh <- struct{}{}:
	default:
	}
}

// Ingest enqueues ev, blocking if the ingress channel is full.
func (s *Service) Ingest(ev Event) {
	s.in <- ev
}

// TryIngest attempts to enqueue ev without blocking.
func (s *Service) TryIngest(ev Event) bool {
	select {
	case s.in <- ev:
		return true
	default:
		return false
	}
}

func (s *Service) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.in:
			s.dispatch(ev)
		case <-ticker.C:
			s.flushAll()
		case <-s.flushNowCh:
			s.flushAll()
		case <-s.stopCh:
			for {
				select {
				case ev := <-s.in:
					s.dispatch(ev)
				default:
					s.flushAll()
					return
				}
			}
		}
	}
}

func (s *Service) dispatch(ev Event) {
	switch ev.Lane {
	case LaneHeartbeat:
		if s.acc.Ingest(ev.Source, ev.T) {
			if pts, ok := s.acc.FlushSource(ev.Source); ok {
				s.applyBatch(Batch{Source: ev.Source, Points: pts})
			}
		}
	case LaneRollup:
		s.router.Route(ev, s.applyRollup)
	}
}

func (s *Service) flushAll() {
	for _, b := range s.acc.FlushAll() {
		s.applyBatch(b)
	}
}

func (s *Service) applyBatch(b Batch) {
	start, end, l := s.windows(b.Source)
	state, err := s.store.GetOrCreate(b.Source, start, end, l)
	if err != nil {
		return
	}
	for _, t := range b.Points {
		_ = state.Insert(t)
	}
	if s.sink != nil {
		s.sink.OnBatch(b)
	}
}

func (s *Service) applyRollup(ev Event) {
	running, _ := s.store.Get(ev.Source)
	merged, err := heartbeat.RollupTrans(running, ev.Incoming)
	if err == nil && running == nil && merged != nil {
		var created *heartbeat.TransState
		created, err = s.store.GetOrCreate(ev.Source, merged.Start(), merged.End(), merged.L())
		if err == nil {
			err = created.Combine(merged)
		}
	}
	if ev.Result != nil {
		ev.Result <- err
	}
}
