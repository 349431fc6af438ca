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

// KafkaProducer is a minimal abstraction over a Kafka client.
// Implementations should enable an idempotent producer
// (enable.idempotence=true) and use CommitID as the message key so
// broker dedup and per-key ordering are preserved.
type KafkaProducer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// KafkaPersister publishes finalized Aggregate snapshots as Kafka
// messages for downstream replication. It does not apply state locally;
// consumers must track the last-applied CommitID per Key.
type KafkaPersister struct {
	producer       KafkaProducer
	topic          string
	defaultTimeout time.Duration
}

func NewKafkaPersister(p KafkaProducer, topic string) *KafkaPersister {
	return &KafkaPersister{producer: p, topic: topic, defaultTimeout: 10 * time.Second}
}

// SnapshotMessage is the serialized payload sent to Kafka. Message key:
// CommitID; payload: the full Aggregate tuple.
type SnapshotMessage struct {
	Key          string  `json:"key"`
	CommitID     string  `json:"commit_id"`
	FencingToken *int64  `json:"fencing_token,omitempty"`
	Start        int64   `json:"start"`
	End          int64   `json:"end"`
	L            int64   `json:"l"`
	S            []int64 `json:"s"`
	E            []int64 `json:"e"`
	TsUnixMs     int64   `json:"ts_unix_ms"`
}

func (k *KafkaPersister) CommitBatch(ctx context.Context, entries []SnapshotEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && k.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.defaultTimeout)
		defer cancel()
	}
	nowMs := time.Now().UnixMilli()
	for _, e := range entries {
		if e.CommitID == "" {
			return errors.New("SnapshotEntry.CommitID must be set")
		}
		msg := SnapshotMessage{
			Key: e.Key, CommitID: e.CommitID, FencingToken: e.FencingToken,
			Start: e.Start, End: e.End, L: e.L, S: e.S, E: e.E, TsUnixMs: nowMs,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal kafka message: %w", err)
		}
		headers := map[string]string{"content-type": "application/json"}
		if err := k.producer.Produce(ctx, k.topic, []byte(e.CommitID), b, headers); err != nil {
			return fmt.Errorf("kafka produce key=%s commit=%s: %w", e.Key, e.CommitID, err)
		}
	}
	return nil
}
