// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package session persists the Monarch session token across restarts so the
// exporter can come back up without re-authenticating (and without burning a
// fresh MFA challenge).
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSession is returned by Load when no session has been persisted yet.
var ErrNoSession = errors.New("session: no persisted session")

// FileStore persists the session token as a single file. The token is a
// credential, so the file is written 0600 and parent directories 0700.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted token. Returns ErrNoSession when the file does
// not exist; an empty or whitespace-only file is treated the same way.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to read session file %s: %w", s.path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Save writes the token, creating parent directories as needed. The write
// goes through a temp file and rename so a crash never leaves a truncated
// session behind.
func (s *FileStore) Save(token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Missing files are not an error, so
// Clear is safe to call after a failed restore.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file %s: %w", s.path, err)
	}
	return nil
}
