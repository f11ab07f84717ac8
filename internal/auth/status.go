// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package auth owns the Monarch authentication lifecycle: restoring a
// persisted session, logging in with stored credentials, completing MFA
// challenges, and falling back to an interactive prompt when configured.
package auth

import (
	"sync"

	"github.com/finbeat/monarchmetrics/internal/metrics"
)

// Status is the shared view of the authentication state. It is the single
// source of truth the HTTP surface and the update loop read; the gauge
// metrics mirror it on every transition.
type Status struct {
	mu         sync.RWMutex
	loggedIn   bool
	mfaPending bool
}

// NewStatus returns a Status in the logged-out state with the gauges zeroed.
func NewStatus() *Status {
	s := &Status{}
	metrics.SetLoggedIn(false)
	metrics.SetMFAPending(false)
	return s
}

// SetLoggedIn records a login transition. Logging in clears any pending MFA
// challenge.
func (s *Status) SetLoggedIn(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = v
	if v {
		s.mfaPending = false
	}
	metrics.SetLoggedIn(s.loggedIn)
	metrics.SetMFAPending(s.mfaPending)
}

// SetMFAPending records whether login is blocked on a second factor.
func (s *Status) SetMFAPending(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mfaPending = v
	metrics.SetMFAPending(s.mfaPending)
}

// LoggedIn reports whether a session is authenticated.
func (s *Status) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// MFAPending reports whether login is blocked on a second factor.
func (s *Status) MFAPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mfaPending
}
