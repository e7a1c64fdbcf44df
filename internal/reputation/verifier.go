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

package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hotelna/contactd/internal/models"
)

// verifyTimeout bounds the remote call so the pipeline never blocks on a
// slow verification provider; on timeout the caller falls back to the
// local heuristic.
const verifyTimeout = 5 * time.Second

// Verifier calls an external email verification service keyed by an API
// credential. The wire shape follows the Abstract API email validation
// endpoint.
type Verifier struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewVerifier creates a verification client. httpClient may be nil, in
// which case a client bounded by verifyTimeout is used.
func NewVerifier(httpClient *http.Client, baseURL, apiKey string) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: verifyTimeout}
	}
	return &Verifier{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// verifyResponse mirrors the provider's JSON.
type verifyResponse struct {
	Deliverability    string `json:"deliverability"`
	IsDisposableEmail struct {
		Value bool `json:"value"`
	} `json:"is_disposable_email"`
	IsFreeEmail struct {
		Value bool `json:"value"`
	} `json:"is_free_email"`
	QualityScore qualityScore `json:"quality_score"`
	Autocorrect  string       `json:"autocorrect"`
}

// qualityScore tolerates the provider sending the score as either a JSON
// number or a quoted string.
type qualityScore float64

func (q *qualityScore) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*q = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse quality_score: %w", err)
	}
	*q = qualityScore(f)
	return nil
}

// Verify asks the service about an address. Any transport or decode error
// is returned so the caller can fall back to the local heuristic.
func (v *Verifier) Verify(ctx context.Context, email string) (models.EmailReputation, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s?api_key=%s&email=%s",
		v.baseURL, url.QueryEscape(v.apiKey), url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.EmailReputation{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return models.EmailReputation{}, fmt.Errorf("verify email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.EmailReputation{}, fmt.Errorf("verification service returned HTTP %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return models.EmailReputation{}, fmt.Errorf("decode verification response: %w", err)
	}

	confidence := float64(vr.QualityScore)
	if confidence == 0 {
		confidence = 0.5
	}

	return models.EmailReputation{
		IsValid:      vr.Deliverability == "DELIVERABLE",
		IsDisposable: vr.IsDisposableEmail.Value,
		IsFreeEmail:  vr.IsFreeEmail.Value,
		Confidence:   confidence,
		Provider:     vr.Autocorrect,
		Reason:       vr.Deliverability,
	}, nil
}
