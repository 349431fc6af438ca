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
	"errors"
	"fmt"
	"time"

	"heartbeatagg/internal/aggregator/core"
)

// BuildPersister constructs a core.Persister based on a string
// selector. Supported adapters:
//   - "mock": in-process logger (default)
//   - "redis": idempotent Redis adapter; uses a logging client unless
//     opts.RedisAddr is set
//   - "kafka": idempotent Kafka adapter using a logging producer
//   - "postgres": not wired for the demo build (returns an error rather
//     than silently using a nil *sql.DB)
func BuildPersister(adapter string, opts DemoOptions) (core.Persister, error) {
	switch adapter {
	case "", "mock":
		return core.NewMockPersister(), nil
	case "redis":
		ttl := opts.RedisMarkerTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		var evaler RedisEvaler
		if opts.RedisAddr != "" {
			evaler = NewGoRedisEvaler(opts.RedisAddr)
		} else {
			evaler = LoggingRedisEvaler{}
		}
		return NewIdemShim(NewRedisPersister(evaler, ttl)), nil
	case "kafka":
		topic := opts.KafkaTopic
		if topic == "" {
			topic = "heartbeat-aggregates"
		}
		return NewIdemShim(NewKafkaPersister(LoggingKafkaProducer{}, topic)), nil
	case "postgres":
		return nil, errors.New("postgres adapter is not enabled in the demo build; wire a real *sql.DB and create the aggregates/applied_commits tables")
	default:
		return nil, fmt.Errorf("unknown persistence adapter: %s", adapter)
	}
}
