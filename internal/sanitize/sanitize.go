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

// Package sanitize neutralizes HTML, script and URI-scheme payloads in
// free-text fields before they are echoed into emails or logs.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptBlocks  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	htmlTags      = regexp.MustCompile(`<[^>]*>`)
	jsScheme      = regexp.MustCompile(`(?i)javascript:`)
	eventHandlers = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	dataURIs      = regexp.MustCompile(`(?i)data:[^;]*;base64,[a-zA-Z0-9+/=]*`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Clean strips injection payloads from a free-text field. The output
// contains no script blocks, no tags, no script-triggering URI schemes
// and no base64 data URIs, and Clean(Clean(s)) == Clean(s).
func Clean(input string) string {
	s := pass(input)
	// A single pass can re-form a payload from its own fragments
	// ("javajavascript:script:" loses the inner scheme and becomes
	// "javascript:"), so run to a fixed point. Each pass shortens the
	// string, which bounds the loop.
	for {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
}

// pass applies the ordered transformations once.
func pass(input string) string {
	s := strings.TrimSpace(input)
	s = scriptBlocks.ReplaceAllString(s, "")
	s = htmlTags.ReplaceAllString(s, "")
	s = jsScheme.ReplaceAllString(s, "")
	s = eventHandlers.ReplaceAllString(s, "")
	s = dataURIs.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
