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

package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hotelna/contactd/internal/models"
)

// fakeTransport records sends and fails selected recipients.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []Message
	verifyErr error
	failTo    map[string]error
}

func (f *fakeTransport) Verify(context.Context) error { return f.verifyErr }

func (f *fakeTransport) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTo[msg.To]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testSubmission() *models.Submission {
	return &models.Submission{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Booking question",
		Message: "I would like to ask about availability.",
	}
}

// TestDispatch verifies both emails go out with the right envelopes.
func TestDispatch(t *testing.T) {
	ft := &fakeTransport{}
	m := New(ft, "noreply@hotelna.co.uk", "reception@hotelna.co.uk")

	res := m.Dispatch(context.Background(), testSubmission())
	if res.Failed() {
		t.Fatalf("dispatch failed: %v", res.Err())
	}
	if len(ft.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(ft.sent))
	}

	var notification, ack *Message
	for i := range ft.sent {
		switch ft.sent[i].To {
		case "reception@hotelna.co.uk":
			notification = &ft.sent[i]
		case "jane@example.com":
			ack = &ft.sent[i]
		}
	}
	if notification == nil {
		t.Fatal("operator notification not sent")
	}
	if ack == nil {
		t.Fatal("submitter acknowledgment not sent")
	}

	if !strings.Contains(notification.Subject, "Booking question") {
		t.Errorf("notification subject = %q, want inquiry subject included", notification.Subject)
	}
	for _, want := range []string{"Jane Doe", "jane@example.com", "I would like to ask about availability."} {
		if !strings.Contains(notification.HTML, want) {
			t.Errorf("notification HTML missing %q", want)
		}
		if !strings.Contains(notification.Text, want) {
			t.Errorf("notification text missing %q", want)
		}
	}

	if !strings.Contains(ack.HTML, "Jane Doe") {
		t.Error("acknowledgment HTML missing submitter name")
	}
	if !strings.Contains(ack.Subject, "received") {
		t.Errorf("acknowledgment subject = %q", ack.Subject)
	}
	if ack.From != "noreply@hotelna.co.uk" {
		t.Errorf("acknowledgment from = %q", ack.From)
	}
}

// TestDispatchPartialFailure verifies one failed leg fails the whole
// dispatch, in both directions.
func TestDispatchPartialFailure(t *testing.T) {
	tests := []struct {
		name   string
		failTo string
	}{
		{"acknowledgment fails", "jane@example.com"},
		{"notification fails", "reception@hotelna.co.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{failTo: map[string]error{tt.failTo: errors.New("bounce")}}
			m := New(ft, "noreply@hotelna.co.uk", "reception@hotelna.co.uk")

			res := m.Dispatch(context.Background(), testSubmission())
			if !res.Failed() {
				t.Fatal("partial failure reported as success")
			}
			if res.Err() == nil {
				t.Error("Err() = nil for failed dispatch")
			}
			// The other leg was still attempted.
			if len(ft.sent) != 1 {
				t.Errorf("sent %d messages, want 1", len(ft.sent))
			}
		})
	}
}

// TestDispatchBothFail verifies the combined error names both legs.
func TestDispatchBothFail(t *testing.T) {
	ft := &fakeTransport{failTo: map[string]error{
		"jane@example.com":        errors.New("ack down"),
		"reception@hotelna.co.uk": errors.New("notify down"),
	}}
	m := New(ft, "noreply@hotelna.co.uk", "reception@hotelna.co.uk")

	res := m.Dispatch(context.Background(), testSubmission())
	if !res.Failed() {
		t.Fatal("double failure reported as success")
	}
	msg := res.Err().Error()
	if !strings.Contains(msg, "notification") || !strings.Contains(msg, "acknowledgment") {
		t.Errorf("combined error %q does not name both legs", msg)
	}
}

// TestHTMLEscaping verifies template rendering escapes field content.
func TestHTMLEscaping(t *testing.T) {
	sub := testSubmission()
	sub.Name = `Jane "Quote" & Co`

	msg, err := buildNotification("noreply@hotelna.co.uk", "reception@hotelna.co.uk", sub)
	if err != nil {
		t.Fatalf("buildNotification: %v", err)
	}
	if strings.Contains(msg.HTML, `"Quote" &`) {
		t.Error("HTML body contains unescaped quotes and ampersand")
	}
	if !strings.Contains(msg.HTML, "&amp;") {
		t.Error("HTML body missing escaped ampersand")
	}
}

// TestVerifyPassthrough verifies transport verification errors surface.
func TestVerifyPassthrough(t *testing.T) {
	ft := &fakeTransport{verifyErr: errors.New("connection refused")}
	m := New(ft, "a@b.c", "d@e.f")
	if err := m.Verify(context.Background()); err == nil {
		t.Error("expected verify error to surface")
	}
}
