//go:build e2e

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

package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"

	"heartbeatagg/internal/aggregator/api"
	"heartbeatagg/internal/aggregator/core"
	"heartbeatagg/internal/aggregator/persistence"
)

// TestRedisIdempotentCommitE2E verifies the real Redis adapter path
// applies commits and that the stored snapshot reflects the heartbeats
// sent. Requires a Redis at 127.0.0.1:6379; skips otherwise.
func TestRedisIdempotentCommitE2E(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: redis not reachable on 127.0.0.1:6379: %v", err)
	}

	source := "e2e-redis-source"
	snapshotKey := persistence.RedisSnapshotKey(source)
	if err := rc.Del(context.Background(), snapshotKey).Err(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	store := core.NewStore()
	evaler := persistence.NewGoRedisEvaler("127.0.0.1:6379")
	redisPersister := persistence.NewRedisPersister(evaler, time.Hour)
	shim := persistence.NewIdemShim(redisPersister)
	worker := core.NewWorker(store, shim, 1, 0, 10*time.Millisecond, time.Hour, time.Hour)
	worker.Start()

	apiServer := api.NewServer(store)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 5; i++ {
		q := url.Values{
			"source":          {source},
			"t":               {strconv.FormatInt(int64(i)*100, 10)},
			"window_start":    {"0"},
			"window_length":   {"10000"},
			"liveness_length": {"10"},
		}
		resp, err := client.Post(server.URL+"/heartbeat?"+q.Encode(), "application/octet-stream", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
	}

	time.Sleep(300 * time.Millisecond)
	worker.Stop()

	payload, err := rc.Get(context.Background(), snapshotKey).Result()
	if err != nil {
		t.Fatalf("redis GET %s failed: %v", snapshotKey, err)
	}
	if payload == "" {
		t.Fatalf("expected a non-empty snapshot payload at %s", snapshotKey)
	}
}
