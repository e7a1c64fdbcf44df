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

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hotelna/contactd/internal/models"
)

// Store appends audit events to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an audit store backed by the given Postgres pool.
// It ensures the audit_events table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	slog.Info("audit store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id         TEXT PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			category   TEXT NOT NULL,
			client_id  TEXT NOT NULL DEFAULT '',
			outcome    TEXT NOT NULL,
			detail     JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_events(ts);
		CREATE INDEX IF NOT EXISTS idx_audit_category ON audit_events(category);
	`)
	return err
}

// Insert appends one event. The table is append-only; nothing in the
// service updates or reads it back.
func (s *Store) Insert(ctx context.Context, ev models.AuditEvent) error {
	var detail []byte
	if len(ev.Detail) > 0 {
		var err error
		detail, err = json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, ts, category, client_id, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID, ev.Timestamp, string(ev.Category), ev.ClientID, ev.Outcome, detail)
	return err
}
