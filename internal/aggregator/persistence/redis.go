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

package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RedisEvaler abstracts the minimal surface needed from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9 (Cmdable.Eval)
// or any equivalent scripting interface.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisPersister applies snapshot commits idempotently using a Lua
// script:
//  1. SETNX commit:<key>:<commit_id> 1
//  2. If set -> SET snapshot:<key> <json payload>
//  3. EXPIRE the marker for leak protection
//
// If SETNX fails (already applied) the script is a no-op.
type RedisPersister struct {
	client    RedisEvaler
	markerTTL time.Duration
}

// NewRedisPersister returns a persister with the given client and
// marker TTL; markerTTL guards against unbounded marker growth.
func NewRedisPersister(client RedisEvaler, markerTTL time.Duration) *RedisPersister {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &RedisPersister{client: client, markerTTL: markerTTL}
}

// redisLuaScript performs the idempotent update. It returns 1 if
// applied, 0 if already applied.
const redisLuaScript = `
local snapshotKey = KEYS[1]
local markerKey = KEYS[2]
local payload = ARGV[1]
local ttlSeconds = tonumber(ARGV[2])
local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  redis.call('SET', snapshotKey, payload)
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  return 1
else
  return 0
end
`

// RedisSnapshotKey returns the key a source's latest snapshot JSON is
// stored under.
func RedisSnapshotKey(key string) string { return fmt.Sprintf("snapshot:%s", key) }

// RedisCommitMarkerKey returns the idempotency marker key for a commit.
func RedisCommitMarkerKey(key, commitID string) string {
	return fmt.Sprintf("commit:%s:%s", key, commitID)
}

// CommitBatch applies entries using one EVAL per entry.
func (r *RedisPersister) CommitBatch(ctx context.Context, entries []SnapshotEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.CommitID == "" {
			return errors.New("SnapshotEntry.CommitID must be set")
		}
		payload, err := json.Marshal(intervalsJSON{S: e.S, E: e.E})
		if err != nil {
			return fmt.Errorf("marshal snapshot(%s): %w", e.Key, err)
		}
		keys := []string{RedisSnapshotKey(e.Key), RedisCommitMarkerKey(e.Key, e.CommitID)}
		args := []interface{}{string(payload), int(r.markerTTL.Seconds())}
		if _, err := r.client.Eval(ctx, redisLuaScript, keys, args...); err != nil {
			return fmt.Errorf("redis eval key=%s commit=%s: %w", e.Key, e.CommitID, err)
		}
	}
	return nil
}
