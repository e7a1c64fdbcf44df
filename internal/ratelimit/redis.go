// Copyright (c) 2026 John Earle
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

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces counter keys in Redis.
const keyPrefix = "contact:ratelimit:"

// RedisStore counts in Redis with atomic INCR so concurrent requests for
// the same identity never under-count.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Incr increments the window counter. The first increment in a window
// attaches the TTL; Redis expiry then ends the window for every client
// racing on the same key.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := keyPrefix + key

	count, err := s.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit INCR: %w", err)
	}

	if count == 1 {
		if err := s.rdb.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("ratelimit PEXPIRE: %w", err)
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := s.rdb.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		// Counter lost its TTL (e.g. a crash between INCR and PEXPIRE).
		// Reattach it rather than let the key count forever.
		_ = s.rdb.PExpire(ctx, k, window).Err()
		ttl = window
	}
	return count, time.Now().Add(ttl), nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}
