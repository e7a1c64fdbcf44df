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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SMTPConfig holds the outbound mail transport settings. All fields except
// Secure are required; the process refuses to start without them.
type SMTPConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secure bool   `yaml:"secure"` // implicit TLS instead of STARTTLS
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
	From   string `yaml:"from"`
}

// Config holds all configuration for the contact service.
type Config struct {
	SMTP SMTPConfig

	// NotifyEmail receives the operator notification for each submission.
	NotifyEmail string

	// Email verification service (optional). Empty APIKey disables the
	// remote path and the local heuristic runs alone.
	VerificationAPIKey  string
	VerificationBaseURL string

	// Redis backs the rate-limit counters and anti-replay tokens.
	// Empty means in-process stores.
	RedisURL string

	// DatabaseURL enables the Postgres audit store. Empty means audit
	// events go to the structured log only.
	DatabaseURL string

	// AllowedOrigins is the CORS allow-list for the form's origin(s).
	AllowedOrigins []string

	// RequireToken enforces one-time anti-replay tokens on submissions.
	RequireToken bool

	// Rate limiting for the contact endpoint.
	MaxRequests int
	RateWindow  time.Duration

	// Server
	Port     int
	LogLevel slog.Level
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	SMTP    SMTPConfig `yaml:"smtp"`
	Contact struct {
		NotifyEmail string `yaml:"notify_email"`
	} `yaml:"contact"`
	Verification struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"verification"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Security struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
		RequireToken   bool     `yaml:"require_token"`
	} `yaml:"security"`
	Limits struct {
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"limits"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

const defaultVerificationBaseURL = "https://emailvalidation.abstractapi.com/v1/"

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings. It fails when required mail
// settings are missing so a misconfigured process never serves the endpoint.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		SMTP:                raw.SMTP,
		NotifyEmail:         firstNonEmpty(raw.Contact.NotifyEmail, os.Getenv("CONTACT_EMAIL")),
		VerificationAPIKey:  firstNonEmpty(raw.Verification.APIKey, os.Getenv("EMAIL_VALIDATION_API_KEY")),
		VerificationBaseURL: firstNonEmpty(raw.Verification.BaseURL, defaultVerificationBaseURL),
		RedisURL:            firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		DatabaseURL:         firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		AllowedOrigins:      raw.Security.AllowedOrigins,
		RequireToken:        raw.Security.RequireToken,
		MaxRequests:         raw.Limits.MaxRequests,
		Port:                raw.Server.Port,
		LogLevel:            parseLogLevel(envOrDefault("LOG_LEVEL", "info")),
	}

	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = envOrDefaultInt("SMTP_PORT", 587)
	}
	if cfg.SMTP.User == "" {
		cfg.SMTP.User = os.Getenv("SMTP_USER")
	}
	if cfg.SMTP.Pass == "" {
		cfg.SMTP.Pass = os.Getenv("SMTP_PASS")
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = os.Getenv("SMTP_FROM_EMAIL")
	}

	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 3
	}
	cfg.RateWindow = 15 * time.Minute
	if raw.Limits.Window != "" {
		d, err := time.ParseDuration(raw.Limits.Window)
		if err != nil {
			return nil, fmt.Errorf("parse limits.window %q: %w", raw.Limits.Window, err)
		}
		cfg.RateWindow = d
	}

	if cfg.Port == 0 {
		cfg.Port = envOrDefaultInt("PORT", 8080)
	}
	if len(cfg.AllowedOrigins) == 0 {
		if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
			for _, o := range strings.Split(v, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
				}
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the settings without which the service cannot operate.
func (c *Config) validate() error {
	var missing []string
	if c.SMTP.Host == "" {
		missing = append(missing, "smtp.host")
	}
	if c.SMTP.User == "" {
		missing = append(missing, "smtp.user")
	}
	if c.SMTP.Pass == "" {
		missing = append(missing, "smtp.pass")
	}
	if c.SMTP.From == "" {
		missing = append(missing, "smtp.from")
	}
	if c.NotifyEmail == "" {
		missing = append(missing, "contact.notify_email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
