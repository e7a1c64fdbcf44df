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

// Package reputation classifies sender addresses. A local heuristic always
// runs (format, disposable/free domain sets, suspicious patterns); when a
// verification service is configured its structured result is preferred,
// falling back to the local result on any failure.
package reputation

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hotelna/contactd/internal/metrics"
	"github.com/hotelna/contactd/internal/models"
)

// BlockThreshold is the confidence below which an address is rejected.
const BlockThreshold = 0.4

// localValidThreshold is the confidence below which the local heuristic
// alone marks an address invalid.
const localValidThreshold = 0.3

// disposableDomains are known short-lived mailbox providers.
var disposableDomains = map[string]bool{
	"10minutemail.com": true, "guerrillamail.com": true, "mailinator.com": true,
	"tempmail.org": true, "throwaway.email": true, "temp-mail.org": true,
	"yopmail.com": true, "maildrop.cc": true, "sharklasers.com": true,
	"grr.la": true, "guerrillamailblock.com": true, "pokemail.net": true,
	"spam4.me": true, "bccto.me": true, "mytrashmail.com": true,
	"emailtemporanea.net": true, "wegwerfmail.de": true, "trashmail.net": true,
	"trashemail.net": true, "tempmail.email": true, "getnada.com": true,
	"rhyta.com": true, "emailondeck.com": true, "fakemailgenerator.com": true,
}

// freeProviders are common free mail domains. Mildly penalized, never
// disqualifying on their own.
var freeProviders = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "aol.com": true, "icloud.com": true,
	"protonmail.com": true, "zoho.com": true, "mail.com": true,
	"yandex.com": true,
}

// emailPattern is permissive relative to RFC 5322 but practical.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+.*@`),               // plus addressing
	regexp.MustCompile(`\d{5,}`),              // long digit runs
	regexp.MustCompile(`[._-]{3,}`),           // repeated special characters
	regexp.MustCompile(`@.*\.(tk|ml|ga|cf)$`), // disposable-leaning TLDs
}

// Classifier combines the local heuristic with an optional remote verifier.
type Classifier struct {
	verifier *Verifier // nil when no API key is configured
}

// NewClassifier builds a classifier. verifier may be nil.
func NewClassifier(verifier *Verifier) *Classifier {
	return &Classifier{verifier: verifier}
}

// Classify runs the local heuristic and, when it passes and a verifier is
// configured, prefers the verifier's structured result.
func (c *Classifier) Classify(ctx context.Context, email string) models.EmailReputation {
	local := classifyLocally(email)
	if !local.IsValid {
		slog.Debug("email failed local validation",
			"email", models.MaskEmail(email),
			"reason", local.Reason,
		)
		return local
	}

	if c.verifier != nil {
		if remote, err := c.verifier.Verify(ctx, email); err == nil {
			metrics.Verifications.WithLabelValues("ok").Inc()
			slog.Debug("email verification service result",
				"email", models.MaskEmail(email),
				"is_valid", remote.IsValid,
				"confidence", remote.Confidence,
			)
			return remote
		} else {
			metrics.Verifications.WithLabelValues("error").Inc()
			slog.Warn("email verification service failed, using local result",
				"email", models.MaskEmail(email),
				"error", err,
			)
		}
	}

	return local
}

// ShouldBlock applies the blocking rule: invalid, disposable, or
// confidence below BlockThreshold.
func ShouldBlock(r models.EmailReputation) bool {
	return !r.IsValid || r.IsDisposable || r.Confidence < BlockThreshold
}

// GuidanceMessage maps a blocked reputation to a caller-facing message
// without exposing classifier internals.
func GuidanceMessage(r models.EmailReputation) string {
	switch {
	case !r.IsValid:
		return "Please enter a valid email address."
	case r.IsDisposable:
		return "Temporary or disposable email addresses are not allowed. Please use a permanent email address."
	case r.Confidence < BlockThreshold:
		return "This email address appears to be invalid or suspicious. Please double-check and try again."
	}
	return "Please enter a valid email address."
}

// classifyLocally runs the offline heuristic. Base confidence is 0.8 for a
// well-formed address; each signal applies its penalty and the result is
// clamped to [0,1].
func classifyLocally(email string) models.EmailReputation {
	if !emailPattern.MatchString(email) {
		return models.EmailReputation{Reason: "Invalid email format"}
	}

	at := strings.LastIndex(email, "@")
	domain := strings.ToLower(email[at+1:])
	if domain == "" {
		return models.EmailReputation{Reason: "No domain found"}
	}

	isDisposable := disposableDomains[domain]
	isFree := freeProviders[domain]

	suspicious := false
	for _, p := range suspiciousPatterns {
		if p.MatchString(email) {
			suspicious = true
			break
		}
	}

	confidence := 0.8
	if isDisposable {
		confidence -= 0.6
	}
	if suspicious {
		confidence -= 0.3
	}
	if isFree {
		confidence -= 0.1
	}
	if len(domain) < 4 {
		confidence -= 0.2
	}
	if !strings.Contains(domain, ".") {
		confidence -= 0.8
	}
	confidence = max(0, min(1, confidence))

	r := models.EmailReputation{
		IsValid:      confidence > localValidThreshold,
		IsDisposable: isDisposable,
		IsFreeEmail:  isFree,
		Confidence:   confidence,
	}
	if !r.IsValid {
		r.Reason = "Low confidence score"
	}
	return r
}
