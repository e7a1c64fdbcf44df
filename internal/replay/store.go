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

package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces token keys in Redis.
const keyPrefix = "contact:token:"

// RedisStore keeps tokens in Redis. GETDEL makes consumption atomic, so
// two concurrent submissions carrying the same token cannot both pass.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed token store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Put stores the token with its TTL.
func (s *RedisStore) Put(ctx context.Context, token, clientID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, keyPrefix+token, clientID, ttl).Err(); err != nil {
		return fmt.Errorf("token SET: %w", err)
	}
	return nil
}

// Consume removes and returns the binding for the token.
func (s *RedisStore) Consume(ctx context.Context, token string) (string, bool, error) {
	clientID, err := s.rdb.GetDel(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("token GETDEL: %w", err)
	}
	return clientID, true, nil
}

// MemoryStore is the in-process fallback when no Redis is configured.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

type memoryToken struct {
	clientID string
	expiry   time.Time
}

// NewMemoryStore creates an empty in-process token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]memoryToken),
		now:    time.Now,
	}
}

// Put stores the token with its TTL.
func (s *MemoryStore) Put(_ context.Context, token, clientID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{clientID: clientID, expiry: s.now().Add(ttl)}
	return nil
}

// Consume removes and returns the binding for the token.
func (s *MemoryStore) Consume(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return "", false, nil
	}
	delete(s.tokens, token)
	if s.now().After(t.expiry) {
		return "", false, nil
	}
	return t.clientID, true, nil
}

// Sweep deletes expired tokens.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, t := range s.tokens {
		if now.After(t.expiry) {
			delete(s.tokens, k)
			removed++
		}
	}
	return removed
}

// Run sweeps at the given interval until the context is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("replay token store swept", "removed", n)
			}
		}
	}
}
