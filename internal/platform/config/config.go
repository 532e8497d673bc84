// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Mail) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Plumeria API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// TokenSecret signs every confirmation, reset, and access token issued
	// by the process. It must be stable for the process lifetime or all
	// outstanding tokens become invalid.
	TokenSecret string `env:"TOKEN_SECRET,required"`

	// AdminEmail is the bootstrap administrator address. An account that
	// registers with this exact email (after normalization) is assigned the
	// Administrator role instead of the catalog default.
	AdminEmail string `env:"ADMIN_EMAIL"`

	// Token lifetimes for the account lifecycle flows.
	ConfirmTokenTTL time.Duration `env:"CONFIRM_TOKEN_TTL" envDefault:"1h"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL"   envDefault:"1h"`

	// Outbound email (SMTP)
	MailServer        string `env:"MAIL_SERVER"         envDefault:"smtp.gmail.com"`
	MailPort          int    `env:"MAIL_PORT"           envDefault:"587"`
	MailUsername      string `env:"MAIL_USERNAME"`
	MailPassword      string `env:"MAIL_PASSWORD"`
	MailSender        string `env:"MAIL_SENDER"`
	MailSubjectPrefix string `env:"MAIL_SUBJECT_PREFIX" envDefault:"[Plumeria]"`
	MailSuppress      bool   `env:"MAIL_SUPPRESS"       envDefault:"false"`

	// FeedPerPage is the default number of posts per feed page.
	FeedPerPage int `env:"FEED_PER_PAGE" envDefault:"7"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
