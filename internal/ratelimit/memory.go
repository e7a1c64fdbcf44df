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
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback when no Redis is configured.
// A mutex guards the map so concurrent requests on the same identity
// increment atomically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Incr increments the window counter, restarting the window when it has
// gone stale.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &memoryEntry{count: 1, resetAt: now.Add(window)}
		s.entries[key] = e
		return 1, e.resetAt, nil
	}

	e.count++
	return e.count, e.resetAt, nil
}

// Sweep deletes entries whose window has passed. Sweeping is memory
// hygiene only; Incr restarts stale windows on its own.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, k)
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
				slog.Debug("rate limit store swept", "removed", n)
			}
		}
	}
}
