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

package clientid

import (
	"net/http/httptest"
	"testing"
)

// TestClientIP verifies header priority and private-hop skipping.
func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for single public",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "x-forwarded-for skips private hops",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.5, 192.168.1.2, 203.0.113.7"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "x-forwarded-for all private falls back to first",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.5, 192.168.1.2"},
			remote:  "10.0.0.1:1234",
			want:    "10.0.0.5",
		},
		{
			name:    "cf-connecting-ip",
			headers: map[string]string{"CF-Connecting-IP": "198.51.100.3"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.3",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "198.51.100.4"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.4",
		},
		{
			name:    "forwarded header",
			headers: map[string]string{"Forwarded": `for="198.51.100.5";proto=https`},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.5",
		},
		{
			name:    "x-forwarded-for beats cf-connecting-ip",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7", "CF-Connecting-IP": "198.51.100.3"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:   "remote addr fallback",
			remote: "192.0.2.9:5678",
			want:   "192.0.2.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/contact", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestIdentityFor verifies the identity is stable and input-sensitive.
func TestIdentityFor(t *testing.T) {
	a := IdentityFor("203.0.113.7", "Mozilla/5.0")
	b := IdentityFor("203.0.113.7", "Mozilla/5.0")
	if a != b {
		t.Errorf("identity not stable: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("identity length = %d, want 16", len(a))
	}
	if IdentityFor("203.0.113.8", "Mozilla/5.0") == a {
		t.Error("different IPs produced the same identity")
	}
	if IdentityFor("203.0.113.7", "curl/8.0") == a {
		t.Error("different user agents produced the same identity")
	}
}
