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
	"testing"
	"time"
)

func TestRouterAppliesEventsForOneSourceInOrder(t *testing.T) {
	r := NewRouter()
	var mu sync.Mutex
	var order []int

	for i := 0; i < 20; i++ {
		i := i
		r.Route(Event{Source: "src"}, func(Event) {
			time.Sleep(time.Microsecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	r.Wait()

	if len(order) != 20 {
		t.Fatalf("expected 20 applied events, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected in-order application, got %v at position %d (full: %v)", v, i, order)
		}
	}
}

func TestRouterDistinctSourcesRunConcurrently(t *testing.T) {
	r := NewRouter()
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	r.Route(Event{Source: "a"}, func(Event) {
		started <- struct{}{}
		<-release
	})
	r.Route(Event{Source: "b"}, func(Event) {
		started <- struct{}{}
		<-release
	})

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatalf("expected both sources' actors to start without waiting on each other")
		}
	}
	close(release)
	r.Wait()
}
