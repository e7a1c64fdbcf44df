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

// Package pipeline runs a submission through its checks in fixed order:
// rate limit, schema, timing, sanitization, email reputation, content
// spam, then dual email dispatch. Any stage can short-circuit with a
// rejection; every terminal emits exactly one audit event.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hotelna/contactd/internal/mailer"
	"github.com/hotelna/contactd/internal/metrics"
	"github.com/hotelna/contactd/internal/models"
	"github.com/hotelna/contactd/internal/ratelimit"
	"github.com/hotelna/contactd/internal/replay"
	"github.com/hotelna/contactd/internal/reputation"
	"github.com/hotelna/contactd/internal/sanitize"
	"github.com/hotelna/contactd/internal/schema"
	"github.com/hotelna/contactd/internal/spam"
)

// minFillTime is the minimum believable interval between the client
// rendering the form and submitting it. Faster submissions are treated
// as automated.
const minFillTime = 3000 * time.Millisecond

// State names the checkpoint a submission last passed.
type State string

const (
	StateReceived        State = "received"
	StateRateChecked     State = "rate_checked"
	StateSchemaValidated State = "schema_validated"
	StateTimingChecked   State = "timing_checked"
	StateSanitized       State = "sanitized"
	StateEmailChecked    State = "email_checked"
	StateContentChecked  State = "content_checked"
	StateDispatched      State = "dispatched"
	StateCompleted       State = "completed"
	StateRejected        State = "rejected"
)

// Caller-facing messages. Bot-signal rejections (honeypot, token) reuse
// the generic validation wording so automation learns nothing from the
// response.
const (
	successMessage     = "Email sent successfully"
	rateLimitMessage   = "Too many requests. Please wait before submitting again."
	malformedMessage   = "Invalid request format"
	genericInvalid     = "Invalid form data. Please check your input and try again."
	tooFastMessage     = "Please take a moment to review your message before submitting."
	spamMessage        = "Your message appears to be spam. Please revise and try again."
	unavailableMessage = "Email service is temporarily unavailable. Please try again later."
	dispatchMessage    = "Failed to send your message. Please try again later."
)

// Request is one submission attempt as seen by the orchestrator.
type Request struct {
	Body     []byte
	ClientID string
	// HeaderToken is the X-Contact-Token value; it takes precedence over
	// the token field inside the payload.
	HeaderToken string
}

// Outcome is the terminal result of a pipeline run.
type Outcome struct {
	Status  int
	Message string // success body
	Error   string // error body
	State   State
	Rate    ratelimit.Result
}

// Recorder receives the audit event emitted at each terminal.
// *audit.Recorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, ev models.AuditEvent)
}

// Pipeline wires the stages together.
type Pipeline struct {
	limiter   *ratelimit.Limiter
	validator *schema.Validator
	emails    *reputation.Classifier
	mail      *mailer.Mailer
	tokens    *replay.Manager
	recorder  Recorder

	// requireToken gates submissions on a valid one-time token.
	requireToken bool

	now func() time.Time
}

// New assembles a pipeline. tokens may be nil only when requireToken is
// false.
func New(
	limiter *ratelimit.Limiter,
	validator *schema.Validator,
	emails *reputation.Classifier,
	mail *mailer.Mailer,
	tokens *replay.Manager,
	recorder Recorder,
	requireToken bool,
) *Pipeline {
	return &Pipeline{
		limiter:      limiter,
		validator:    validator,
		emails:       emails,
		mail:         mail,
		tokens:       tokens,
		recorder:     recorder,
		requireToken: requireToken,
		now:          time.Now,
	}
}

// Process runs one submission through every stage. It never panics
// outward and never leaks internals into the returned Outcome; detail
// goes to the audit trail only.
func (p *Pipeline) Process(ctx context.Context, req Request) Outcome {
	start := p.now()
	out := p.run(ctx, req)
	metrics.ProcessingSeconds.Observe(p.now().Sub(start).Seconds())
	return out
}

func (p *Pipeline) run(ctx context.Context, req Request) Outcome {
	// Received -> RateChecked
	rate, err := p.limiter.Check(ctx, req.ClientID)
	if err != nil {
		// Fail-open path: the request proceeds, operators get a trace.
		p.record(ctx, models.CategoryRateLimit, req.ClientID, "store_error", map[string]any{
			"error": err.Error(),
		})
	}
	if !rate.Allowed {
		p.record(ctx, models.CategoryRateLimit, req.ClientID, "denied", map[string]any{
			"limit":    rate.Limit,
			"reset_at": rate.ResetAt.UTC().Format(time.RFC3339),
		})
		metrics.Submissions.WithLabelValues("rate_limited").Inc()
		return Outcome{Status: http.StatusTooManyRequests, Error: rateLimitMessage, State: StateRejected, Rate: rate}
	}

	// RateChecked -> SchemaValidated
	sub, err := p.validator.Parse(req.Body)
	if err != nil {
		p.record(ctx, models.CategoryValidation, req.ClientID, "malformed", nil)
		metrics.Submissions.WithLabelValues("validation_failed").Inc()
		// A body that cannot be parsed at all is reported distinctly from
		// field-level validation failures.
		return Outcome{Status: http.StatusBadRequest, Error: malformedMessage, State: StateRejected, Rate: rate}
	}
	if ve := p.validator.Validate(sub); ve != nil {
		if ve.BotSignal {
			p.record(ctx, models.CategorySecurity, req.ClientID, "honeypot_triggered", nil)
			metrics.Submissions.WithLabelValues("bot_detected").Inc()
			// Same wording as any validation failure.
			return Outcome{Status: http.StatusBadRequest, Error: genericInvalid, State: StateRejected, Rate: rate}
		}
		p.record(ctx, models.CategoryValidation, req.ClientID, "rejected", map[string]any{
			"field": ve.Field,
		})
		metrics.Submissions.WithLabelValues("validation_failed").Inc()
		return Outcome{Status: http.StatusBadRequest, Error: ve.Message, State: StateRejected, Rate: rate}
	}

	// SchemaValidated -> TimingChecked
	if sub.Timestamp > 0 {
		elapsed := p.now().Sub(time.UnixMilli(sub.Timestamp))
		if elapsed < minFillTime {
			p.record(ctx, models.CategorySecurity, req.ClientID, "too_fast", map[string]any{
				"elapsed_ms": elapsed.Milliseconds(),
			})
			metrics.Submissions.WithLabelValues("bot_detected").Inc()
			return Outcome{Status: http.StatusBadRequest, Error: tooFastMessage, State: StateRejected, Rate: rate}
		}
	}

	// One-time token check, when enforced.
	if p.requireToken {
		token := req.HeaderToken
		if token == "" {
			token = sub.Token
		}
		ok, err := p.tokens.Validate(ctx, token, req.ClientID)
		if err != nil {
			p.record(ctx, models.CategorySecurity, req.ClientID, "token_store_error", map[string]any{
				"error": err.Error(),
			})
			metrics.Submissions.WithLabelValues("unavailable").Inc()
			return Outcome{Status: http.StatusServiceUnavailable, Error: unavailableMessage, State: StateRejected, Rate: rate}
		}
		if !ok {
			p.record(ctx, models.CategorySecurity, req.ClientID, "token_rejected", nil)
			metrics.Submissions.WithLabelValues("bot_detected").Inc()
			return Outcome{Status: http.StatusBadRequest, Error: genericInvalid, State: StateRejected, Rate: rate}
		}
	}

	// TimingChecked -> Sanitized
	sub.Name = sanitize.Clean(sub.Name)
	sub.Subject = sanitize.Clean(sub.Subject)
	sub.Message = sanitize.Clean(sub.Message)

	// Sanitized -> EmailChecked
	rep := p.emails.Classify(ctx, sub.Email)
	if reputation.ShouldBlock(rep) {
		p.record(ctx, models.CategoryEmail, req.ClientID, "reputation_blocked", map[string]any{
			"email":         models.MaskEmail(sub.Email),
			"is_disposable": rep.IsDisposable,
			"confidence":    rep.Confidence,
		})
		metrics.Submissions.WithLabelValues("email_rejected").Inc()
		return Outcome{Status: http.StatusBadRequest, Error: reputation.GuidanceMessage(rep), State: StateRejected, Rate: rate}
	}

	// EmailChecked -> ContentChecked
	analysis := spam.Analyze(sub.Name + " " + sub.Subject + " " + sub.Message)
	if analysis.IsSpam {
		p.record(ctx, models.CategorySpam, req.ClientID, "flagged", map[string]any{
			"email":      models.MaskEmail(sub.Email),
			"confidence": analysis.Confidence,
			"reasons":    analysis.Reasons,
		})
		metrics.Submissions.WithLabelValues("spam_rejected").Inc()
		return Outcome{Status: http.StatusBadRequest, Error: spamMessage, State: StateRejected, Rate: rate}
	}

	// ContentChecked -> Dispatched. The transport is verified before any
	// send so an unreachable mail service answers 503, not 500.
	if err := p.mail.Verify(ctx); err != nil {
		p.record(ctx, models.CategoryEmail, req.ClientID, "transport_unavailable", map[string]any{
			"error": err.Error(),
		})
		metrics.Submissions.WithLabelValues("unavailable").Inc()
		return Outcome{Status: http.StatusServiceUnavailable, Error: unavailableMessage, State: StateRejected, Rate: rate}
	}

	res := p.mail.Dispatch(ctx, sub)
	p.recordSend(ctx, req.ClientID, "notification", sub.Email, res.NotificationErr)
	p.recordSend(ctx, req.ClientID, "acknowledgment", sub.Email, res.AckErr)

	// Dispatched -> Completed only when both legs succeeded.
	if res.Failed() {
		p.record(ctx, models.CategoryEmail, req.ClientID, "dispatch_failed", map[string]any{
			"email": models.MaskEmail(sub.Email),
			"error": res.Err().Error(),
		})
		metrics.Submissions.WithLabelValues("dispatch_failed").Inc()
		return Outcome{Status: http.StatusInternalServerError, Error: dispatchMessage, State: StateRejected, Rate: rate}
	}

	p.record(ctx, models.CategoryFormSubmission, req.ClientID, "accepted", map[string]any{
		"email":   models.MaskEmail(sub.Email),
		"subject": sub.Subject,
	})
	metrics.Submissions.WithLabelValues("accepted").Inc()
	return Outcome{Status: http.StatusOK, Message: successMessage, State: StateCompleted, Rate: rate}
}

func (p *Pipeline) recordSend(ctx context.Context, clientID, kind, email string, sendErr error) {
	if sendErr != nil {
		metrics.Emails.WithLabelValues(kind, "failed").Inc()
		p.record(ctx, models.CategoryEmail, clientID, fmt.Sprintf("%s_failed", kind), map[string]any{
			"email": models.MaskEmail(email),
			"error": sendErr.Error(),
		})
		return
	}
	metrics.Emails.WithLabelValues(kind, "sent").Inc()
	p.record(ctx, models.CategoryEmail, clientID, fmt.Sprintf("%s_sent", kind), map[string]any{
		"email": models.MaskEmail(email),
	})
}

func (p *Pipeline) record(ctx context.Context, category models.AuditCategory, clientID, outcome string, detail map[string]any) {
	p.recorder.Record(ctx, models.AuditEvent{
		Category: category,
		ClientID: clientID,
		Outcome:  outcome,
		Detail:   detail,
	})
}
