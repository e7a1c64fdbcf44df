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

// Package spam scores submission content by combining independent
// heuristic signals: word repetition, capitalization ratio, URL density,
// known spam phrases and structured-PII patterns. Each signal adds a
// fixed penalty; the sum is clamped to [0,1] and compared to Threshold.
package spam

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hotelna/contactd/internal/models"
)

// Threshold is the score above which content is flagged as spam.
const Threshold = 0.5

const (
	repetitionPenalty = 0.3
	capsPenalty       = 0.2
	urlPenalty        = 0.4
	keywordPenalty    = 0.2
	piiPenalty        = 0.3
)

var spamKeywords = []string{
	"viagra", "cialis", "casino", "lottery", "winner", "congratulations",
	"click here", "buy now", "limited time", "act now", "urgent", "immediate",
	"free money", "guaranteed", "no risk", "call now",
}

var urlPattern = regexp.MustCompile(`(?i)https?://\S+`)

// piiPatterns flag content that repeats structured data a genuine inquiry
// rarely carries more than once.
var piiPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"credit card numbers", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{"dollar amounts", regexp.MustCompile(`\$\d+[^$]*\$`)},
	{"phone numbers", regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
}

// Analyze scores the given content. Callers pass the concatenation of the
// sanitized name, subject and message.
func Analyze(content string) models.SpamAnalysis {
	var reasons []string
	score := 0.0

	// Word repetition: any word longer than 3 chars repeated more than
	// 5 times (case-insensitive).
	counts := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(content)) {
		if len(w) > 3 {
			counts[w]++
		}
	}
	for _, n := range counts {
		if n > 5 {
			score += repetitionPenalty
			reasons = append(reasons, "Excessive word repetition")
			break
		}
	}

	// Capitalization ratio over the full text, counted per rune so
	// multibyte characters do not dilute the denominator.
	caps, runes := 0, 0
	for _, r := range content {
		runes++
		if r >= 'A' && r <= 'Z' {
			caps++
		}
	}
	if runes > 20 && float64(caps)/float64(runes) > 0.5 {
		score += capsPenalty
		reasons = append(reasons, "Excessive capitalization")
	}

	// URL density.
	if len(urlPattern.FindAllString(content, -1)) > 2 {
		score += urlPenalty
		reasons = append(reasons, "Multiple URLs detected")
	}

	// Spam phrases: flat penalty per distinct phrase present.
	lower := strings.ToLower(content)
	keywordHits := 0
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			keywordHits++
		}
	}
	if keywordHits > 0 {
		score += float64(keywordHits) * keywordPenalty
		reasons = append(reasons, fmt.Sprintf("Contains %d spam keyword(s)", keywordHits))
	}

	// Structured-PII patterns: penalize each pattern type matching more
	// than once.
	for _, p := range piiPatterns {
		if len(p.pattern.FindAllString(content, -1)) > 1 {
			score += piiPenalty
			reasons = append(reasons, fmt.Sprintf("Multiple %s detected", p.name))
		}
	}

	return models.SpamAnalysis{
		IsSpam:     score > Threshold,
		Confidence: min(score, 1),
		Reasons:    reasons,
	}
}
