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

// Package models defines the data structures shared across the contact service.
package models

import (
	"strings"
	"time"
)

// Submission is the raw inbound contact-form payload. Every field is
// untrusted until it has passed schema validation and sanitization.
type Submission struct {
	Name     string `json:"name" validate:"required,min=2,max=100,personname"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Subject  string `json:"subject" validate:"required,min=5,max=200"`
	Message  string `json:"message" validate:"required,min=10,max=2000"`
	Honeypot string `json:"honeypot" validate:"max=0"`

	// Timestamp is the client-recorded form-render time in epoch
	// milliseconds. Zero means the client did not send one.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Token is an optional one-time anti-replay token issued by
	// GET /api/contact/token.
	Token string `json:"token,omitempty"`
}

// EmailReputation is the result of classifying a sender address.
type EmailReputation struct {
	IsValid      bool    `json:"is_valid"`
	IsDisposable bool    `json:"is_disposable"`
	IsFreeEmail  bool    `json:"is_free_email"`
	Confidence   float64 `json:"confidence"`
	Provider     string  `json:"provider,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// SpamAnalysis is the result of scoring submission content.
type SpamAnalysis struct {
	IsSpam     bool     `json:"is_spam"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
}

// AuditCategory classifies audit events for operator consumption.
type AuditCategory string

const (
	CategoryRateLimit      AuditCategory = "rate_limit"
	CategoryValidation     AuditCategory = "validation"
	CategorySecurity       AuditCategory = "security"
	CategorySpam           AuditCategory = "spam"
	CategoryEmail          AuditCategory = "email"
	CategoryFormSubmission AuditCategory = "form_submission"
)

// AuditEvent is an append-only record of a pipeline outcome. Events are
// written to the structured log and, when Postgres is configured, to the
// audit store. The service never reads them back.
type AuditEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Category  AuditCategory  `json:"category"`
	ClientID  string         `json:"client_id"`
	Outcome   string         `json:"outcome"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// MaskEmail partially hides an address for logging: "jane.doe@example.com"
// becomes "jan***@example.com". Addresses too short to mask are replaced
// entirely so no raw address ever reaches a log line.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 3 {
		return local[:1] + "***" + domain
	}
	return local[:3] + "***" + domain
}
