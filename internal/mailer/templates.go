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

package mailer

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/hotelna/contactd/internal/models"
)

// templateData feeds both email bodies. Fields arrive sanitized; the
// templates still HTML-escape them.
type templateData struct {
	Name        string
	Email       string
	Subject     string
	Message     string
	SubmittedAt string
}

var notificationHTML = template.Must(template.New("notification").Parse(`
<div style="font-family: 'Dubai', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9;">
  <div style="background-color: #ffffff; padding: 30px; border-radius: 10px;">
    <div style="text-align: center; border-bottom: 3px solid #d5b15f; padding-bottom: 20px; margin-bottom: 20px;">
      <h1 style="color: #d5b15f; margin: 0; font-size: 28px;">New Client Inquiry</h1>
      <p style="color: #666; margin: 10px 0 0 0;">Hotelna Hospitality Consultancy</p>
    </div>
    <div style="margin-bottom: 20px;">
      <h3 style="color: #d5b15f; margin-bottom: 5px;">Contact Details:</h3>
      <p style="margin: 5px 0; color: #666;"><strong>Name:</strong> {{.Name}}</p>
      <p style="margin: 5px 0; color: #666;"><strong>Email:</strong> {{.Email}}</p>
      <p style="margin: 5px 0; color: #666;"><strong>Subject:</strong> {{.Subject}}</p>
    </div>
    <div style="margin-bottom: 20px;">
      <h3 style="color: #d5b15f; margin-bottom: 10px;">Message:</h3>
      <div style="background-color: #f8f8f8; padding: 15px; border-radius: 5px; border-left: 4px solid #d5b15f;">
        <p style="color: #333; line-height: 1.6; margin: 0;">{{.Message}}</p>
      </div>
    </div>
    <div style="border-top: 1px solid #eee; padding-top: 20px;">
      <p style="color: #999; font-size: 12px; margin: 0;">This email was sent from the Hotelna contact form at {{.SubmittedAt}}</p>
    </div>
  </div>
</div>
`))

var acknowledgmentHTML = template.Must(template.New("acknowledgment").Parse(`
<div style="font-family: 'Dubai', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9;">
  <div style="background-color: #ffffff; padding: 30px; border-radius: 10px;">
    <div style="text-align: center; border-bottom: 3px solid #d5b15f; padding-bottom: 20px; margin-bottom: 20px;">
      <h1 style="color: #d5b15f; margin: 0; font-size: 28px;">Thank You for Your Inquiry!</h1>
      <p style="color: #666; margin: 10px 0 0 0;">Hotelna Hospitality Consultancy</p>
    </div>
    <div style="margin-bottom: 25px;">
      <p style="color: #333; line-height: 1.6;">Dear {{.Name}},</p>
      <p style="color: #333; line-height: 1.6;">Thank you for your interest in Hotelna Hospitality Consultancy! We've successfully received your inquiry and will review it shortly. You can expect a response within 24-48 hours during business days.</p>
    </div>
    <div style="background-color: #f8f8f8; padding: 20px; border-radius: 5px; border-left: 4px solid #d5b15f; margin-bottom: 25px;">
      <h3 style="color: #d5b15f; margin-top: 0; margin-bottom: 10px;">Your Message Summary:</h3>
      <p style="margin: 5px 0; color: #666;"><strong>Subject:</strong> {{.Subject}}</p>
      <div style="background-color: #ffffff; padding: 15px; border-radius: 5px; border: 1px solid #e0e0e0; margin-top: 10px;">
        <p style="color: #333; line-height: 1.6; margin: 0;">{{.Message}}</p>
      </div>
      <p style="margin: 15px 0 5px 0; color: #666;"><strong>Submitted:</strong> {{.SubmittedAt}}</p>
    </div>
    <div style="border-top: 1px solid #eee; padding-top: 20px; text-align: center;">
      <p style="color: #333; line-height: 1.6; margin-bottom: 10px;">Best regards,<br><strong style="color: #d5b15f;">Hotelna Hospitality Consultancy</strong></p>
      <p style="color: #999; font-size: 12px; margin: 0;">This is an automated response. Please do not reply to this email.</p>
    </div>
  </div>
</div>
`))

const notificationText = `New Contact Form Submission

Name: %s
Email: %s
Subject: %s

Message:
%s

Sent at: %s
`

const acknowledgmentText = `Hi %s,

Thank you for reaching out to us! We've successfully received your message and will review it shortly.

We typically respond to inquiries within 24-48 hours during business days.

Your Message Summary:
Subject: %s

Your Message:
%s

Submitted: %s

Best regards,
Hotelna Hospitality Consultancy

This is an automated response. Please do not reply to this email.
`

func dataFor(sub *models.Submission) templateData {
	return templateData{
		Name:        sub.Name,
		Email:       sub.Email,
		Subject:     sub.Subject,
		Message:     sub.Message,
		SubmittedAt: time.Now().Format("2 Jan 2006 15:04 MST"),
	}
}

func buildNotification(from, to string, sub *models.Submission) (Message, error) {
	d := dataFor(sub)

	var html strings.Builder
	if err := notificationHTML.Execute(&html, d); err != nil {
		return Message{}, fmt.Errorf("render notification: %w", err)
	}

	return Message{
		From:    from,
		To:      to,
		Subject: "New Hotelna Inquiry: " + d.Subject,
		HTML:    html.String(),
		Text:    fmt.Sprintf(notificationText, d.Name, d.Email, d.Subject, d.Message, d.SubmittedAt),
	}, nil
}

func buildAcknowledgment(from string, sub *models.Submission) (Message, error) {
	d := dataFor(sub)

	var html strings.Builder
	if err := acknowledgmentHTML.Execute(&html, d); err != nil {
		return Message{}, fmt.Errorf("render acknowledgment: %w", err)
	}

	return Message{
		From:    from,
		To:      sub.Email,
		Subject: "Thank you for contacting Hotelna - Your inquiry has been received",
		HTML:    html.String(),
		Text:    fmt.Sprintf(acknowledgmentText, d.Name, d.Subject, d.Message, d.SubmittedAt),
	}, nil
}
