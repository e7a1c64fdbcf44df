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

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hotelna/contactd/internal/mailer"
	"github.com/hotelna/contactd/internal/models"
	"github.com/hotelna/contactd/internal/ratelimit"
	"github.com/hotelna/contactd/internal/replay"
	"github.com/hotelna/contactd/internal/reputation"
	"github.com/hotelna/contactd/internal/schema"
)

// captureRecorder collects audit events for assertions.
type captureRecorder struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (c *captureRecorder) Record(_ context.Context, ev models.AuditEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureRecorder) byCategory(cat models.AuditCategory) []models.AuditEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.AuditEvent
	for _, ev := range c.events {
		if ev.Category == cat {
			out = append(out, ev)
		}
	}
	return out
}

// fakeTransport records sends and fails selected recipients.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []mailer.Message
	verifyErr error
	failTo    map[string]error
}

func (f *fakeTransport) Verify(context.Context) error { return f.verifyErr }

func (f *fakeTransport) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTo[msg.To]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	pipeline *Pipeline
	tokens   *replay.Manager
	trans    *fakeTransport
	rec      *captureRecorder
}

func newHarness(t *testing.T, maxRequests int, requireToken bool) *harness {
	t.Helper()

	trans := &fakeTransport{}
	rec := &captureRecorder{}
	tokens := replay.NewManager(replay.NewMemoryStore())

	p := New(
		ratelimit.New(ratelimit.NewMemoryStore(), maxRequests, 15*time.Minute),
		schema.New(),
		reputation.NewClassifier(nil),
		mailer.New(trans, "noreply@hotelna.co.uk", "reception@hotelna.co.uk"),
		tokens,
		rec,
		requireToken,
	)
	return &harness{pipeline: p, tokens: tokens, trans: trans, rec: rec}
}

func payload(t *testing.T, mutate func(map[string]any)) []byte {
	t.Helper()
	m := map[string]any{
		"name":      "Jane Doe",
		"email":     "jane@example.com",
		"subject":   "Booking question",
		"message":   "I would like to ask about availability.",
		"honeypot":  "",
		"timestamp": time.Now().UnixMilli() - 5000,
	}
	if mutate != nil {
		mutate(m)
	}
	body, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func (h *harness) submit(body []byte) Outcome {
	return h.pipeline.Process(context.Background(), Request{
		Body:     body,
		ClientID: "client-a",
	})
}

// TestScenarioValidSubmission covers the full accept path: 200, both
// emails dispatched, per-email audit events, Completed state.
func TestScenarioValidSubmission(t *testing.T) {
	h := newHarness(t, 3, false)

	out := h.submit(payload(t, nil))
	if out.Status != http.StatusOK {
		t.Fatalf("status = %d (%s), want 200", out.Status, out.Error)
	}
	if out.Message != "Email sent successfully" {
		t.Errorf("message = %q", out.Message)
	}
	if out.State != StateCompleted {
		t.Errorf("state = %s, want %s", out.State, StateCompleted)
	}
	if n := h.trans.sentCount(); n != 2 {
		t.Errorf("sent %d emails, want 2", n)
	}

	emailEvents := h.rec.byCategory(models.CategoryEmail)
	if len(emailEvents) != 2 {
		t.Fatalf("email audit events = %d, want 2", len(emailEvents))
	}
	for _, ev := range emailEvents {
		if ev.Outcome != "notification_sent" && ev.Outcome != "acknowledgment_sent" {
			t.Errorf("unexpected email event outcome %q", ev.Outcome)
		}
		if email, _ := ev.Detail["email"].(string); email != "jan***@example.com" {
			t.Errorf("audit detail email = %q, want masked", email)
		}
	}
	if accepted := h.rec.byCategory(models.CategoryFormSubmission); len(accepted) != 1 || accepted[0].Outcome != "accepted" {
		t.Errorf("form_submission events = %+v, want one accepted", accepted)
	}
}

// TestScenarioHoneypot covers the bot path: generic 400, nothing sent,
// one security event.
func TestScenarioHoneypot(t *testing.T) {
	h := newHarness(t, 3, false)

	out := h.submit(payload(t, func(m map[string]any) { m["honeypot"] = "x" }))
	if out.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", out.Status)
	}
	if out.Error != genericInvalid {
		t.Errorf("error = %q, want the generic validation message", out.Error)
	}
	if n := h.trans.sentCount(); n != 0 {
		t.Errorf("sent %d emails, want 0", n)
	}

	sec := h.rec.byCategory(models.CategorySecurity)
	if len(sec) != 1 || sec[0].Outcome != "honeypot_triggered" {
		t.Errorf("security events = %+v, want one honeypot_triggered", sec)
	}
}

// TestScenarioRateLimit covers the window boundary: 3 accepted, 4th 429
// without touching later stages.
func TestScenarioRateLimit(t *testing.T) {
	h := newHarness(t, 3, false)

	for i := 1; i <= 3; i++ {
		out := h.submit(payload(t, nil))
		if out.Status != http.StatusOK {
			t.Fatalf("request %d: status = %d (%s), want 200", i, out.Status, out.Error)
		}
		if want := 3 - i; out.Rate.Remaining != want {
			t.Errorf("request %d: remaining = %d, want %d", i, out.Rate.Remaining, want)
		}
	}

	before := h.trans.sentCount()
	out := h.submit(payload(t, nil))
	if out.Status != http.StatusTooManyRequests {
		t.Fatalf("4th request: status = %d, want 429", out.Status)
	}
	if h.trans.sentCount() != before {
		t.Error("rate-limited request still dispatched email")
	}
	if rl := h.rec.byCategory(models.CategoryRateLimit); len(rl) != 1 || rl[0].Outcome != "denied" {
		t.Errorf("rate_limit events = %+v, want one denied", rl)
	}
}

// TestTimingGuard verifies the exact 3000ms boundary with a fixed clock.
func TestTimingGuard(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		age        time.Duration
		wantStatus int
	}{
		{"2999ms is too fast", 2999 * time.Millisecond, http.StatusBadRequest},
		{"3001ms proceeds", 3001 * time.Millisecond, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 3, false)
			h.pipeline.now = func() time.Time { return now }

			body := payload(t, func(m map[string]any) {
				m["timestamp"] = now.Add(-tt.age).UnixMilli()
			})
			out := h.submit(body)
			if out.Status != tt.wantStatus {
				t.Errorf("status = %d (%s), want %d", out.Status, out.Error, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusBadRequest && out.Error != tooFastMessage {
				t.Errorf("error = %q, want the too-fast message", out.Error)
			}
		})
	}
}

// TestTimestampOptional verifies submissions without a timestamp pass the
// timing guard.
func TestTimestampOptional(t *testing.T) {
	h := newHarness(t, 3, false)
	out := h.submit(payload(t, func(m map[string]any) { delete(m, "timestamp") }))
	if out.Status != http.StatusOK {
		t.Errorf("status = %d (%s), want 200", out.Status, out.Error)
	}
}

// TestRejectionPaths verifies each remaining rejection stage.
func TestRejectionPaths(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(map[string]any)
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed field",
			mutate:     func(m map[string]any) { m["name"] = "J" },
			wantStatus: http.StatusBadRequest,
			wantError:  "Name must be at least 2 characters",
		},
		{
			name:       "disposable email",
			mutate:     func(m map[string]any) { m["email"] = "x@mailinator.com" },
			wantStatus: http.StatusBadRequest,
			wantError:  "Please enter a valid email address.",
		},
		{
			name: "spam content",
			mutate: func(m map[string]any) {
				m["message"] = "You are a winner! Click here for free money today."
			},
			wantStatus: http.StatusBadRequest,
			wantError:  spamMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 3, false)
			out := h.submit(payload(t, tt.mutate))
			if out.Status != tt.wantStatus {
				t.Fatalf("status = %d (%s), want %d", out.Status, out.Error, tt.wantStatus)
			}
			if out.Error != tt.wantError {
				t.Errorf("error = %q, want %q", out.Error, tt.wantError)
			}
			if n := h.trans.sentCount(); n != 0 {
				t.Errorf("sent %d emails, want 0", n)
			}
		})
	}
}

// TestMalformedBody verifies unparseable payloads answer with the
// format message, not the field-validation one.
func TestMalformedBody(t *testing.T) {
	h := newHarness(t, 3, false)
	out := h.submit([]byte("not json"))
	if out.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", out.Status)
	}
	if out.Error != "Invalid request format" {
		t.Errorf("error = %q, want %q", out.Error, "Invalid request format")
	}
	if out.Error == genericInvalid {
		t.Error("malformed body must not share the field-validation message")
	}
}

// TestTransportUnavailable verifies a dead transport answers 503 with no
// send attempts.
func TestTransportUnavailable(t *testing.T) {
	h := newHarness(t, 3, false)
	h.trans.verifyErr = errors.New("connection refused")

	out := h.submit(payload(t, nil))
	if out.Status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", out.Status)
	}
	if out.Error != unavailableMessage {
		t.Errorf("error = %q", out.Error)
	}
	if n := h.trans.sentCount(); n != 0 {
		t.Errorf("sent %d emails after failed verify, want 0", n)
	}
}

// TestDispatchAtomicity verifies a partial send failure is reported as
// overall failure, never partial success.
func TestDispatchAtomicity(t *testing.T) {
	tests := []string{"jane@example.com", "reception@hotelna.co.uk"}

	for _, failTo := range tests {
		t.Run(fmt.Sprintf("fail %s", failTo), func(t *testing.T) {
			h := newHarness(t, 3, false)
			h.trans.failTo = map[string]error{failTo: errors.New("bounce")}

			out := h.submit(payload(t, nil))
			if out.Status != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", out.Status)
			}
			if out.Error != dispatchMessage {
				t.Errorf("error = %q", out.Error)
			}
			if out.State != StateRejected {
				t.Errorf("state = %s, want %s", out.State, StateRejected)
			}
		})
	}
}

// TestRequireToken verifies one-time token enforcement end to end.
func TestRequireToken(t *testing.T) {
	h := newHarness(t, 10, true)
	ctx := context.Background()

	// No token: rejected with the generic validation message.
	out := h.submit(payload(t, nil))
	if out.Status != http.StatusBadRequest || out.Error != genericInvalid {
		t.Fatalf("no token: status = %d error = %q", out.Status, out.Error)
	}

	// Valid token for the same identity: accepted.
	token, err := h.tokens.Issue(ctx, "client-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	out = h.pipeline.Process(ctx, Request{
		Body:        payload(t, nil),
		ClientID:    "client-a",
		HeaderToken: token,
	})
	if out.Status != http.StatusOK {
		t.Fatalf("with token: status = %d (%s), want 200", out.Status, out.Error)
	}

	// Replaying the consumed token: rejected.
	out = h.pipeline.Process(ctx, Request{
		Body:        payload(t, nil),
		ClientID:    "client-a",
		HeaderToken: token,
	})
	if out.Status != http.StatusBadRequest {
		t.Fatalf("replayed token: status = %d, want 400", out.Status)
	}

	// A token issued to another identity: rejected.
	other, _ := h.tokens.Issue(ctx, "client-b")
	out = h.pipeline.Process(ctx, Request{
		Body:        payload(t, nil),
		ClientID:    "client-a",
		HeaderToken: other,
	})
	if out.Status != http.StatusBadRequest {
		t.Fatalf("foreign token: status = %d, want 400", out.Status)
	}
}

// TestSanitizedFieldsReachMailer verifies injected markup never reaches
// the outbound emails.
func TestSanitizedFieldsReachMailer(t *testing.T) {
	h := newHarness(t, 3, false)

	out := h.submit(payload(t, func(m map[string]any) {
		m["subject"] = "Question <script>alert(1)</script> about rooms"
		m["message"] = "Hello <b>there</b>, I have javascript: concerns about booking."
	}))
	if out.Status != http.StatusOK {
		t.Fatalf("status = %d (%s), want 200", out.Status, out.Error)
	}

	h.trans.mu.Lock()
	defer h.trans.mu.Unlock()
	for _, msg := range h.trans.sent {
		text := strings.ToLower(msg.Text)
		for _, bad := range []string{"<script", "<b>", "javascript:"} {
			if strings.Contains(text, bad) {
				t.Errorf("outbound text to %s contains %q", msg.To, bad)
			}
		}
	}
}
