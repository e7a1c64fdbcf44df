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

// Package replay issues and consumes one-time submission tokens bound to
// a client identity. A token proves the submitter rendered the form;
// consuming it twice fails, which stops scripted replays of a captured
// request.
package replay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = time.Hour

// tokenBytes is the entropy of an issued token (hex doubles the length).
const tokenBytes = 32

// Store persists tokens until consumed or expired.
type Store interface {
	// Put stores a token bound to clientID for ttl.
	Put(ctx context.Context, token, clientID string, ttl time.Duration) error
	// Consume removes the token and returns the bound clientID.
	// ok is false when the token is unknown or already used.
	Consume(ctx context.Context, token string) (clientID string, ok bool, err error)
}

// Manager issues and validates one-time tokens.
type Manager struct {
	store Store
}

// NewManager creates a token manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Issue creates a token bound to the client identity.
func (m *Manager) Issue(ctx context.Context, clientID string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := m.store.Put(ctx, token, clientID, TokenTTL); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// Validate consumes the token and reports whether it was valid for this
// client. A consumed token never validates again.
func (m *Manager) Validate(ctx context.Context, token, clientID string) (bool, error) {
	if token == "" {
		return false, nil
	}
	bound, ok, err := m.store.Consume(ctx, token)
	if err != nil {
		return false, err
	}
	return ok && bound == clientID, nil
}
