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

// Package schema parses and constrains the raw submission payload. Field
// rules live as struct tags on models.Submission; this package supplies
// the custom name rule and maps failures to caller-facing messages.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/hotelna/contactd/internal/models"
)

// ErrMalformed means the payload was not parseable as the expected
// structure at all. Callers answer with a generic format error before any
// field-level rule runs.
var ErrMalformed = errors.New("invalid request format")

// namePattern allows letters, spaces, hyphens, apostrophes and periods.
var namePattern = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)

// ValidationError reports the first failed field rule. BotSignal marks
// failures (the honeypot) that must never be revealed to the caller;
// handlers answer those with the same generic message as any other
// validation failure.
type ValidationError struct {
	Field     string
	Message   string
	BotSignal bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator validates submission payloads.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the personname rule registered.
func New() *Validator {
	v := validator.New()
	// Registration only fails for a nil function or empty tag.
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Parse decodes the raw body. Wrong types or non-JSON input return
// ErrMalformed.
func (s *Validator) Parse(body []byte) (*models.Submission, error) {
	var sub models.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, ErrMalformed
	}
	return &sub, nil
}

// Validate applies the field rules and returns the first failure, or nil
// when the submission is well-formed.
func (s *Validator) Validate(sub *models.Submission) *ValidationError {
	err := s.v.Struct(sub)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "payload", Message: "Invalid form data"}
	}

	fe := fieldErrs[0]
	ve := &ValidationError{Field: fe.Field(), Message: messageFor(fe)}
	if fe.Field() == "Honeypot" {
		ve.BotSignal = true
	}
	return ve
}

// messageFor maps a failed rule to the message the form shows inline.
func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		switch fe.Tag() {
		case "max":
			return "Name must not exceed 100 characters"
		case "personname":
			return "Name contains invalid characters"
		default:
			return "Name must be at least 2 characters"
		}
	case "Email":
		if fe.Tag() == "max" {
			return "Email address is too long"
		}
		return "Please enter a valid email address"
	case "Subject":
		if fe.Tag() == "max" {
			return "Subject must not exceed 200 characters"
		}
		return "Subject must be at least 5 characters"
	case "Message":
		if fe.Tag() == "max" {
			return "Message must not exceed 2000 characters"
		}
		return "Message must be at least 10 characters"
	case "Honeypot":
		return "Honeypot field must be empty"
	}
	return "Invalid form data"
}
