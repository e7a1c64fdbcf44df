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

// Hotelna contact service
//
// Entry point for the contact submission service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to Redis (rate-limit counters, one-time tokens) when configured
//  3. Connects to PostgreSQL (audit store) when configured
//  4. Verifies the SMTP transport before serving
//  5. Serves the contact API with graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hotelna/contactd/internal/audit"
	"github.com/hotelna/contactd/internal/config"
	"github.com/hotelna/contactd/internal/mailer"
	"github.com/hotelna/contactd/internal/pipeline"
	"github.com/hotelna/contactd/internal/ratelimit"
	"github.com/hotelna/contactd/internal/replay"
	"github.com/hotelna/contactd/internal/reputation"
	"github.com/hotelna/contactd/internal/schema"
)

// sweepInterval is how often the in-process stores drop expired entries.
const sweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting contact service",
		"port", cfg.Port,
		"rate_limit", cfg.MaxRequests,
		"rate_window", cfg.RateWindow,
		"require_token", cfg.RequireToken,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Rate-limit counters and token store ---
	var (
		counters   ratelimit.Store
		tokenStore replay.Store
		checks     []pipeline.HealthCheck
	)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)

		counterStore := ratelimit.NewRedisStore(rdb)
		if err := counterStore.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to Redis")

		counters = counterStore
		tokenStore = replay.NewRedisStore(rdb)
		checks = append(checks, pipeline.HealthCheck{Name: "redis", Ping: counterStore.Ping})
	} else {
		slog.Info("no redis configured, using in-process stores")

		memCounters := ratelimit.NewMemoryStore()
		go memCounters.Run(ctx, sweepInterval)
		counters = memCounters

		memTokens := replay.NewMemoryStore()
		go memTokens.Run(ctx, sweepInterval)
		tokenStore = memTokens
	}

	// --- Audit store (optional Postgres) ---
	var auditStore *audit.Store
	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to PostgreSQL")

		auditStore, err = audit.NewStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise audit store", "error", err)
			os.Exit(1)
		}
		checks = append(checks, pipeline.HealthCheck{Name: "postgres", Ping: pgPool.Ping})
	} else {
		slog.Info("no database configured, audit events are log-only")
	}
	recorder := audit.NewRecorder(auditStore)

	// --- Mail transport ---
	transport := mailer.NewSMTPTransport(cfg.SMTP)
	mail := mailer.New(transport, cfg.SMTP.From, cfg.NotifyEmail)

	verifyCtx, verifyCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := mail.Verify(verifyCtx); err != nil {
		verifyCancel()
		slog.Error("SMTP transport verification failed", "error", err)
		os.Exit(1)
	}
	verifyCancel()
	slog.Info("SMTP transport verified", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)

	// --- Email reputation ---
	var verifier *reputation.Verifier
	if cfg.VerificationAPIKey != "" {
		verifier = reputation.NewVerifier(nil, cfg.VerificationBaseURL, cfg.VerificationAPIKey)
		slog.Info("email verification service enabled")
	}
	classifier := reputation.NewClassifier(verifier)

	// --- Pipeline and HTTP surface ---
	tokens := replay.NewManager(tokenStore)
	p := pipeline.New(
		ratelimit.New(counters, cfg.MaxRequests, cfg.RateWindow),
		schema.New(),
		classifier,
		mail,
		tokens,
		recorder,
		cfg.RequireToken,
	)
	handler := pipeline.NewHandler(p, tokens, cfg.AllowedOrigins, checks...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("contact service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("contact service stopped")
}
