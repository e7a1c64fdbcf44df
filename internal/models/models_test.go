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

package models

import "testing"

// TestMaskEmail verifies addresses are masked before logging.
func TestMaskEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "jan***@example.com"},
		{"abcd@example.com", "abc***@example.com"},
		{"abc@example.com", "a***@example.com"},
		{"a@example.com", "a***@example.com"},
		{"not-an-email", "***"},
		{"@nolocal.com", "***"},
		{"", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := MaskEmail(tt.email); got != tt.want {
				t.Errorf("MaskEmail(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}
