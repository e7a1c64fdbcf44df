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

// Package metrics exposes Prometheus counters for the submission
// pipeline. Everything registers on the default registry; the server
// mounts promhttp on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Submissions counts submission attempts by terminal outcome
	// (accepted, rate_limited, validation_failed, bot_detected,
	// email_rejected, spam_rejected, dispatch_failed, unavailable).
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_submissions_total",
		Help: "Contact form submissions by terminal outcome.",
	}, []string{"outcome"})

	// Emails counts individual email sends by kind (notification,
	// acknowledgment) and status (sent, failed).
	Emails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_emails_total",
		Help: "Outbound contact emails by kind and status.",
	}, []string{"kind", "status"})

	// Verifications counts external email verification calls by result
	// (ok, error).
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_email_verifications_total",
		Help: "External email verification lookups by result.",
	}, []string{"result"})

	// ProcessingSeconds observes end-to-end submission handling time.
	ProcessingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "contact_processing_seconds",
		Help:    "End-to-end contact submission processing time.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
