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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS aggregates (
//   key TEXT PRIMARY KEY,
//   window_start BIGINT NOT NULL,
//   window_end BIGINT NOT NULL,
//   liveness_len BIGINT NOT NULL,
//   intervals_json JSONB NOT NULL,
//   last_token BIGINT
// );
//
// CREATE TABLE IF NOT EXISTS applied_commits (
//   commit_id TEXT PRIMARY KEY,
//   key TEXT NOT NULL,
//   ts TIMESTAMPTZ NOT NULL DEFAULT now()
// );
// CREATE INDEX IF NOT EXISTS idx_applied_commits_key ON applied_commits(key);
//
// Idempotent transaction per commit entry (the update runs before the
// commit marker is recorded, so the NOT EXISTS guard only skips commits
// applied by an earlier transaction):
//   UPDATE aggregates
//     SET window_start=$3, window_end=$4, liveness_len=$5, intervals_json=$6
//     WHERE key=$2 AND NOT EXISTS (SELECT 1 FROM applied_commits WHERE commit_id=$1);
//   INSERT INTO applied_commits(commit_id, key) VALUES ($1,$2) ON CONFLICT DO NOTHING;

// PostgresPersister applies snapshot commits idempotently using the
// pattern above. It can optionally auto-create missing aggregate rows.
type PostgresPersister struct {
	db                *sql.DB
	createMissingKeys bool
	defaultTimeout    time.Duration
}

// NewPostgresPersister creates a persister against db.
func NewPostgresPersister(db *sql.DB, createMissingKeys bool) *PostgresPersister {
	return &PostgresPersister{db: db, createMissingKeys: createMissingKeys, defaultTimeout: 10 * time.Second}
}

type intervalsJSON struct {
	S []int64 `json:"s"`
	E []int64 `json:"e"`
}

// CommitBatch applies the provided entries within a single transaction.
func (p *PostgresPersister) CommitBatch(ctx context.Context, entries []SnapshotEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && p.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.defaultTimeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if p.createMissingKeys {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO aggregates(key, window_start, window_end, liveness_len, intervals_json)
				 VALUES ($1, 0, 0, 0, '{}') ON CONFLICT DO NOTHING`, e.Key); err != nil {
				return fmt.Errorf("insert aggregates(%s): %w", e.Key, err)
			}
		}
	}

	for _, e := range entries {
		if e.CommitID == "" {
			return errors.New("SnapshotEntry.CommitID must be set")
		}

		payload, err := json.Marshal(intervalsJSON{S: e.S, E: e.E})
		if err != nil {
			return fmt.Errorf("marshal intervals(%s): %w", e.Key, err)
		}

		if e.FencingToken != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE aggregates SET last_token = GREATEST(COALESCE(last_token, $3), $3)
				  WHERE key = $1 AND NOT EXISTS (SELECT 1 FROM applied_commits WHERE commit_id = $2)
				  AND (last_token IS NULL OR $3 >= last_token)`,
				e.Key, e.CommitID, *e.FencingToken); err != nil {
				return fmt.Errorf("update last_token(%s): %w", e.Key, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE aggregates
			   SET window_start = $3, window_end = $4, liveness_len = $5, intervals_json = $6
			 WHERE key = $2 AND NOT EXISTS (SELECT 1 FROM applied_commits WHERE commit_id = $1)`,
			e.CommitID, e.Key, e.Start, e.End, e.L, payload); err != nil {
			return fmt.Errorf("update aggregates(%s): %w", e.Key, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO applied_commits(commit_id, key) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			e.CommitID, e.Key); err != nil {
			return fmt.Errorf("insert applied_commits(%s): %w", e.CommitID, err)
		}
	}

	return tx.Commit()
}
