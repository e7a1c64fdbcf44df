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

// Package ratelimit applies fixed-window request counting per client
// identity. Counters live in Redis when configured, otherwise in an
// in-process map. The limiter fails open: if the counting backend is
// unreachable the request is allowed and the error surfaces so the
// caller can emit a diagnostic audit event.
package ratelimit

import (
	"context"
	"time"
)

// Result reports one limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store is the counter backend. Incr increments the counter for key,
// creating it with the window TTL on first use, and returns the new count
// and the moment the window resets.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter checks submission counts against a fixed window.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
}

// New creates a limiter allowing max requests per window per identity.
func New(store Store, max int, window time.Duration) *Limiter {
	return &Limiter{store: store, max: max, window: window}
}

// Check counts a request for the identity. On a backend error the request
// is allowed and the error is returned alongside the result.
func (l *Limiter) Check(ctx context.Context, identity string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, identity, l.window)
	if err != nil {
		// Availability of the form outranks strict enforcement when
		// the store is down.
		return Result{
			Allowed:   true,
			Limit:     l.max,
			Remaining: l.max - 1,
			ResetAt:   time.Now().Add(l.window),
		}, err
	}

	remaining := l.max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(l.max),
		Limit:     l.max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
