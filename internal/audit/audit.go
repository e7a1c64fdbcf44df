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

// Package audit records pipeline outcomes as structured events. Every
// event goes to the process log; when Postgres is configured events are
// also appended to the audit store. The service only ever writes here;
// operators consume the records externally.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hotelna/contactd/internal/models"
)

// Recorder writes audit events. A nil *Store keeps events log-only.
type Recorder struct {
	store *Store
}

// NewRecorder creates a recorder. store may be nil.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Record emits one audit event. Store failures are logged and swallowed:
// audit persistence must never fail a submission.
func (r *Recorder) Record(ctx context.Context, ev models.AuditEvent) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	attrs := []any{
		"audit_id", ev.ID,
		"category", string(ev.Category),
		"client", ev.ClientID,
		"outcome", ev.Outcome,
	}
	if len(ev.Detail) > 0 {
		attrs = append(attrs, "detail", ev.Detail)
	}

	switch ev.Category {
	case models.CategoryRateLimit, models.CategorySecurity, models.CategorySpam:
		slog.Warn("audit event", attrs...)
	case models.CategoryEmail:
		// Successful sends end in "_sent". A reputation block is an
		// abuse rejection like the spam category; the rest are
		// delivery failures.
		switch {
		case strings.HasSuffix(ev.Outcome, "_sent"):
			slog.Info("audit event", attrs...)
		case ev.Outcome == "reputation_blocked":
			slog.Warn("audit event", attrs...)
		default:
			slog.Error("audit event", attrs...)
		}
	default:
		slog.Info("audit event", attrs...)
	}

	if r.store != nil {
		if err := r.store.Insert(ctx, ev); err != nil {
			slog.Error("audit store insert failed",
				"audit_id", ev.ID,
				"error", err,
			)
		}
	}
}
