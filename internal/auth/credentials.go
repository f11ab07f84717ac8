// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ErrNoCredentials is returned when no credentials file is configured or the
// configured file does not exist.
var ErrNoCredentials = errors.New("auth: no stored credentials")

// Credentials are the stored Monarch login credentials.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoadCredentials reads a JSON credentials file. An empty path or a missing
// file maps to ErrNoCredentials so callers can fall through to the next
// login strategy.
func LoadCredentials(path string) (*Credentials, error) {
	if path == "" {
		return nil, ErrNoCredentials
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}
	if creds.Email == "" || creds.Password == "" {
		return nil, fmt.Errorf("credentials file %s is missing email or password", path)
	}
	return &creds, nil
}
