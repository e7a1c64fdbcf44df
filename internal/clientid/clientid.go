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

// Package clientid derives the client identity used for rate limiting and
// anti-replay binding. The identity is a short hash of the client network
// address and user agent; it is never persisted beyond the limiting window.
package clientid

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"regexp"
	"strings"
)

var privateIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^127\.`),                       // 127.0.0.0/8
	regexp.MustCompile(`^10\.`),                        // 10.0.0.0/8
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[01])\.`), // 172.16.0.0/12
	regexp.MustCompile(`^192\.168\.`),                  // 192.168.0.0/16
	regexp.MustCompile(`^::1$`),                        // IPv6 localhost
	regexp.MustCompile(`^fc00:`),                       // IPv6 private
	regexp.MustCompile(`^fe80:`),                       // IPv6 link-local
}

var forwardedForPattern = regexp.MustCompile(`for=([^;,\s]+)`)

// isPrivate reports whether an address sits in a private or loopback range.
func isPrivate(ip string) bool {
	for _, p := range privateIPPatterns {
		if p.MatchString(ip) {
			return true
		}
	}
	return false
}

// ClientIP extracts the originating address from proxy headers, checked in
// priority order. X-Forwarded-For may carry a chain; the first public hop
// wins, falling back to the first entry when every hop is private.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		first := ""
		for i, p := range parts {
			ip := strings.TrimSpace(p)
			if i == 0 {
				first = ip
			}
			if ip != "" && !isPrivate(ip) {
				return ip
			}
		}
		if first != "" {
			return first
		}
	}

	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("Client-IP"); ip != "" {
		return ip
	}

	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		if m := forwardedForPattern.FindStringSubmatch(fwd); m != nil {
			return strings.Trim(m[1], `"`)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "127.0.0.1"
	}
	return host
}

// Identity returns the rate-limit / token-binding key for a request: the
// first 16 hex characters of sha256(ip + ":" + user agent).
func Identity(r *http.Request) string {
	return IdentityFor(ClientIP(r), r.Header.Get("User-Agent"))
}

// IdentityFor derives the identity for an explicit address and user agent.
func IdentityFor(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(sum[:])[:16]
}
