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

package reputation

import (
	"context"
	"testing"
)

// TestClassifyLocally verifies the offline heuristic.
func TestClassifyLocally(t *testing.T) {
	tests := []struct {
		name           string
		email          string
		wantValid      bool
		wantDisposable bool
		wantFree       bool
	}{
		{
			name:      "corporate address",
			email:     "jane@example.com",
			wantValid: true,
		},
		{
			name:      "free provider penalized but valid",
			email:     "jane@gmail.com",
			wantValid: true,
			wantFree:  true,
		},
		{
			name:           "disposable domain",
			email:          "x@mailinator.com",
			wantValid:      false,
			wantDisposable: true,
		},
		{
			name:      "invalid format",
			email:     "not-an-email",
			wantValid: false,
		},
		{
			name:      "double at",
			email:     "a@@b.com",
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyLocally(tt.email)
			if got.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (confidence %v)", got.IsValid, tt.wantValid, got.Confidence)
			}
			if got.IsDisposable != tt.wantDisposable {
				t.Errorf("IsDisposable = %v, want %v", got.IsDisposable, tt.wantDisposable)
			}
			if got.IsFreeEmail != tt.wantFree {
				t.Errorf("IsFreeEmail = %v, want %v", got.IsFreeEmail, tt.wantFree)
			}
		})
	}
}

// TestInvalidFormatConfidenceZero verifies a malformed address scores 0.
func TestInvalidFormatConfidenceZero(t *testing.T) {
	got := classifyLocally("not-an-email")
	if got.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", got.Confidence)
	}
	if got.IsValid {
		t.Error("malformed address classified valid")
	}
}

// TestDisposableAlwaysBlocked verifies every disposable domain blocks
// regardless of local format validity.
func TestDisposableAlwaysBlocked(t *testing.T) {
	for domain := range disposableDomains {
		r := classifyLocally("someone@" + domain)
		if !ShouldBlock(r) {
			t.Errorf("disposable domain %s not blocked (confidence %v)", domain, r.Confidence)
		}
	}
}

// TestShouldBlock verifies the blocking rule.
func TestShouldBlock(t *testing.T) {
	c := NewClassifier(nil)
	ctx := context.Background()

	tests := []struct {
		email     string
		wantBlock bool
	}{
		{"jane@example.com", false},
		{"jane@gmail.com", false},
		{"x@10minutemail.com", true},
		{"not-an-email", true},
		{"digits1234567@example.com", false}, // suspicious alone only drops to 0.5
		{"a@bc", true},                       // short dotless domain
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			r := c.Classify(ctx, tt.email)
			if got := ShouldBlock(r); got != tt.wantBlock {
				t.Errorf("ShouldBlock(%s) = %v, want %v (reputation %+v)", tt.email, got, tt.wantBlock, r)
			}
		})
	}
}

// TestGuidanceMessage verifies internals never leak into the guidance.
func TestGuidanceMessage(t *testing.T) {
	c := NewClassifier(nil)
	ctx := context.Background()

	disposable := c.Classify(ctx, "x@yopmail.com")
	if got := GuidanceMessage(disposable); got != "Please enter a valid email address." {
		// Disposable domains fail local validity first (confidence 0.2),
		// so the generic invalid message applies.
		t.Errorf("disposable guidance = %q", got)
	}

	invalid := c.Classify(ctx, "not-an-email")
	if got := GuidanceMessage(invalid); got != "Please enter a valid email address." {
		t.Errorf("invalid guidance = %q", got)
	}
}
