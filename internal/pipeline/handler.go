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

package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/hotelna/contactd/internal/clientid"
	"github.com/hotelna/contactd/internal/metrics"
	"github.com/hotelna/contactd/internal/ratelimit"
	"github.com/hotelna/contactd/internal/replay"
)

// maxBodyBytes bounds the request body well above the largest valid
// payload (2000-char message plus headroom for escaping).
const maxBodyBytes = 64 << 10

// HealthCheck is a named connectivity probe for /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler serves the contact API over the pipeline.
type Handler struct {
	pipeline *Pipeline
	tokens   *replay.Manager
	origins  []string
	checks   []HealthCheck
}

// NewHandler creates the HTTP surface. tokens may be nil; the token
// endpoint then answers 404.
func NewHandler(p *Pipeline, tokens *replay.Manager, allowedOrigins []string, checks ...HealthCheck) *Handler {
	return &Handler{pipeline: p, tokens: tokens, origins: allowedOrigins, checks: checks}
}

// Router builds the chi router with CORS, security headers and the
// contact routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(securityHeaders)

	if len(h.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Contact-Token"},
			MaxAge:         300,
		}))
	}

	r.Post("/api/contact", h.handleSubmit)
	r.Get("/api/contact/token", h.handleToken)
	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": malformedMessage})
		return
	}

	out := h.pipeline.Process(r.Context(), Request{
		Body:        body,
		ClientID:    clientid.Identity(r),
		HeaderToken: r.Header.Get("X-Contact-Token"),
	})

	setRateHeaders(w, out.Rate)
	if out.Status == http.StatusTooManyRequests {
		retry := max(int(time.Until(out.Rate.ResetAt).Seconds()), 1)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}

	if out.Error != "" {
		writeJSON(w, out.Status, map[string]string{"error": out.Error})
		return
	}
	writeJSON(w, out.Status, map[string]string{"message": out.Message})
}

// handleToken issues a one-time submission token bound to the caller's
// identity. The form fetches one on render and echoes it back on submit.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		http.NotFound(w, r)
		return
	}

	token, err := h.tokens.Issue(r.Context(), clientid.Identity(r))
	if err != nil {
		slog.Error("token issue failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": unavailableMessage})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(replay.TokenTTL.Seconds()),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.checks {
		if err := c.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", "component", c.Name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":    "unhealthy",
				"component": c.Name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func setRateHeaders(w http.ResponseWriter, res ratelimit.Result) {
	if res.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("write response failed", "error", err)
	}
}
