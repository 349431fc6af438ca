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

package core

import (
	"hash/fnv"
	"strconv"

	"github.com/dgryski/go-rendezvous"
)

// ShardRing assigns a source key to one of N shards using rendezvous
// (highest random weight) hashing. Unlike a modulus or consistent-hash
// ring, adding or removing a shard only reassigns the keys that mapped
// to the changed shard, which keeps most per-shard Stores and Workers
// untouched during a resize.
type ShardRing struct {
	rv *rendezvous.Rendezvous
}

// NewShardRing builds a ring with n shards named "0".."n-1".
func NewShardRing(n int) *ShardRing {
	nodes := make([]string, n)
	for i := range nodes {
		nodes[i] = strconv.Itoa(i)
	}
	return &ShardRing{rv: rendezvous.New(nodes, hashKey)}
}

// ShardFor returns the shard name a key is assigned to.
func (r *ShardRing) ShardFor(key string) string {
	return r.rv.Lookup(key)
}

// AddShard grows the ring by one shard.
func (r *ShardRing) AddShard(name string) {
	r.rv.Add(name)
}

// RemoveShard shrinks the ring, reassigning that shard's keys to the
// remaining shards.
func (r *ShardRing) RemoveShard(name string) {
	r.rv.Remove(name)
}

func hashKey(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
