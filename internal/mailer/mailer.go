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

// Package mailer composes and dispatches the two submission emails: the
// operator notification and the submitter acknowledgment. Both are sent
// concurrently and both must succeed for a submission to complete.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hotelna/contactd/internal/config"
	"github.com/hotelna/contactd/internal/models"
)

// Message is one outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers messages. The SMTP implementation opens a fresh
// connection per call so concurrent sends never share session state.
type Transport interface {
	// Verify checks connectivity and authentication without sending.
	Verify(ctx context.Context) error
	// Send delivers one message.
	Send(ctx context.Context, msg Message) error
}

// SMTPTransport delivers mail over SMTP with mandatory TLS 1.2+.
type SMTPTransport struct {
	cfg config.SMTPConfig
}

// NewSMTPTransport creates a transport from the mail settings.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.cfg.User),
		mail.WithPassword(t.cfg.Pass),
		mail.WithTLSConfig(&tls.Config{
			ServerName: t.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}),
		mail.WithTimeout(15 * time.Second),
	}
	if t.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	c, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}

// Verify dials and closes a connection, proving the transport reachable
// and the credentials accepted.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	c, err := t.client()
	if err != nil {
		return err
	}
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return nil
}

// Send delivers one message over a dedicated connection.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	c, err := t.client()
	if err != nil {
		return err
	}

	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// DispatchResult reports each leg of a dual dispatch.
type DispatchResult struct {
	NotificationErr error
	AckErr          error
}

// Failed reports whether any leg failed. Partial success counts as
// failure: the caller must never report success unless both emails went
// out.
func (r DispatchResult) Failed() bool {
	return r.NotificationErr != nil || r.AckErr != nil
}

// Err collapses the result into a single error for logging.
func (r DispatchResult) Err() error {
	switch {
	case r.NotificationErr != nil && r.AckErr != nil:
		return fmt.Errorf("notification: %v; acknowledgment: %v", r.NotificationErr, r.AckErr)
	case r.NotificationErr != nil:
		return fmt.Errorf("notification: %w", r.NotificationErr)
	case r.AckErr != nil:
		return fmt.Errorf("acknowledgment: %w", r.AckErr)
	}
	return nil
}

// Mailer builds and dispatches the submission emails.
type Mailer struct {
	transport   Transport
	from        string
	notifyEmail string
}

// New creates a mailer sending from `from` and notifying notifyEmail.
func New(transport Transport, from, notifyEmail string) *Mailer {
	return &Mailer{
		transport:   transport,
		from:        from,
		notifyEmail: notifyEmail,
	}
}

// Verify checks the transport without sending.
func (m *Mailer) Verify(ctx context.Context) error {
	return m.transport.Verify(ctx)
}

// Dispatch sends the operator notification and the submitter
// acknowledgment concurrently. Both legs are always attempted; the
// result reports each independently. Fields of sub must already be
// sanitized.
func (m *Mailer) Dispatch(ctx context.Context, sub *models.Submission) DispatchResult {
	notification, err := buildNotification(m.from, m.notifyEmail, sub)
	if err != nil {
		return DispatchResult{NotificationErr: err, AckErr: fmt.Errorf("not attempted: %w", err)}
	}
	ack, err := buildAcknowledgment(m.from, sub)
	if err != nil {
		return DispatchResult{NotificationErr: fmt.Errorf("not attempted: %w", err), AckErr: err}
	}

	var res DispatchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.NotificationErr = m.transport.Send(ctx, notification)
	}()
	go func() {
		defer wg.Done()
		res.AckErr = m.transport.Send(ctx, ack)
	}()
	wg.Wait()

	if res.Failed() {
		slog.Error("email dispatch failed",
			"to", models.MaskEmail(sub.Email),
			"error", res.Err(),
		)
	}
	return res
}
