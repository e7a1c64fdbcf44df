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

// mailcheck is a one-shot connectivity probe for the contact service's
// collaborators. It loads the same configuration as the server, dials
// the SMTP transport and pings Redis and Postgres when configured, then
// exits non-zero on the first failure. Run it from a deploy pipeline to
// catch credential or network problems before the service starts.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hotelna/contactd/internal/config"
	"github.com/hotelna/contactd/internal/mailer"
	"github.com/hotelna/contactd/internal/ratelimit"
)

func main() {
	timeout := flag.Duration("timeout", 15*time.Second, "per-check timeout")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	transport := mailer.NewSMTPTransport(cfg.SMTP)
	if err := transport.Verify(ctx); err != nil {
		slog.Error("SMTP check failed", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port, "error", err)
		os.Exit(1)
	}
	slog.Info("SMTP check passed", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		store := ratelimit.NewRedisStore(redis.NewClient(opt))
		if err := store.Ping(ctx); err != nil {
			slog.Error("Redis check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Redis check passed")
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			slog.Error("Postgres check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Postgres check passed")
	}

	slog.Info("all checks passed")
}
