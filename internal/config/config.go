// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package config provides layered configuration for Monarchmetrics.
//
// Precedence: environment variables > optional YAML config file > defaults.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Monarch MonarchConfig `koanf:"monarch"`
	Update  UpdateConfig  `koanf:"update"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// MonarchConfig holds upstream Monarch Money API settings.
type MonarchConfig struct {
	// BaseURL is the Monarch API endpoint.
	BaseURL string `koanf:"base_url"`

	// SessionFile enables session persistence/restore when set.
	// Absent means the process always re-authenticates.
	SessionFile string `koanf:"session_file"`

	// CredsFile points at a JSON file with "email" and "password" fields.
	// Enables non-interactive login.
	CredsFile string `koanf:"creds_file"`

	// Interactive enables the operator-driven terminal login fallback.
	Interactive bool `koanf:"interactive"`

	// InteractiveTimeout bounds how long the interactive prompt may block
	// startup before it is abandoned.
	InteractiveTimeout time.Duration `koanf:"interactive_timeout"`
}

// UpdateConfig holds update loop scheduling settings.
type UpdateConfig struct {
	// IntervalMinutes is the wall-clock gap between scheduled cycles.
	IntervalMinutes int `koanf:"interval_minutes"`

	// Timeout bounds a single update cycle so a stalled upstream call
	// cannot wedge the scheduler indefinitely.
	Timeout time.Duration `koanf:"timeout"`
}

// Interval returns the scheduling interval. It is carried internally in
// seconds, configured in whole minutes.
func (u UpdateConfig) Interval() time.Duration {
	return time.Duration(u.IntervalMinutes*60) * time.Second
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Monarch.BaseURL == "" {
		return fmt.Errorf("monarch.base_url must not be empty")
	}
	u, err := url.Parse(c.Monarch.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("monarch.base_url %q is not a valid URL", c.Monarch.BaseURL)
	}
	if c.Update.IntervalMinutes <= 0 {
		return fmt.Errorf("update.interval_minutes must be positive, got %d", c.Update.IntervalMinutes)
	}
	if c.Update.Timeout <= 0 {
		return fmt.Errorf("update.timeout must be positive, got %s", c.Update.Timeout)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Monarch.Interactive && c.Monarch.InteractiveTimeout <= 0 {
		return fmt.Errorf("monarch.interactive_timeout must be positive when interactive login is enabled")
	}
	return nil
}
