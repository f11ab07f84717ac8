// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/finbeat/monarchmetrics/internal/config"
	"github.com/finbeat/monarchmetrics/internal/logging"
	"github.com/finbeat/monarchmetrics/internal/monarch"
	"github.com/finbeat/monarchmetrics/internal/session"
)

// ErrMFAPending is returned by Authenticate when login is blocked waiting
// for a second factor token. The process stays up in this state: the token
// arrives out of band through the HTTP surface (CompleteMFA).
var ErrMFAPending = errors.New("auth: waiting for multi-factor token")

// Authenticator drives the login chain: restore a persisted session, then
// log in with stored credentials, then (when enabled) prompt interactively.
// Every successful login persists the fresh session token.
type Authenticator struct {
	api    monarch.API
	store  *session.FileStore
	status *Status
	cfg    *config.MonarchConfig

	// creds are cached after the first successful load so a later MFA
	// completion does not depend on the file still being present.
	creds *Credentials

	// prompt is swapped out in tests; defaults to the terminal prompt.
	prompt promptFunc
}

// New creates an Authenticator.
func New(api monarch.API, store *session.FileStore, status *Status, cfg *config.MonarchConfig) *Authenticator {
	return &Authenticator{
		api:    api,
		store:  store,
		status: status,
		cfg:    cfg,
		prompt: terminalPrompt,
	}
}

// Authenticate runs the login chain until a session is authenticated.
// Returns nil on success, ErrMFAPending when blocked on a second factor,
// and a terminal error when every strategy is exhausted.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	if a.tryRestore(ctx) {
		return nil
	}

	err := a.loginWithCredentials(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMFAPending) {
		return err
	}
	if !errors.Is(err, ErrNoCredentials) {
		logging.Warn().Err(err).Msg("Credential login failed")
	}

	if a.cfg.Interactive {
		return a.loginInteractively(ctx)
	}

	return fmt.Errorf("authentication exhausted: no valid session, credential login unavailable (%w), interactive login disabled", err)
}

// tryRestore loads a persisted session token and verifies it with a cheap
// authenticated probe. Stale sessions are cleared so the next strategy
// starts clean.
func (a *Authenticator) tryRestore(ctx context.Context) bool {
	token, err := a.store.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			logging.Warn().Err(err).Msg("Failed to load persisted session")
		}
		return false
	}

	a.api.SetToken(token)
	if _, err := a.api.GetTransactions(ctx, 1); err != nil {
		logging.Info().Err(err).Msg("Persisted session is stale, discarding")
		a.api.SetToken("")
		if cerr := a.store.Clear(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to clear stale session file")
		}
		return false
	}

	logging.Info().Str("session_file", a.store.Path()).Msg("Restored persisted session")
	a.status.SetLoggedIn(true)
	return true
}

// loginWithCredentials loads the credentials file and performs a password
// login. An upstream MFA challenge transitions to the pending state instead
// of failing.
func (a *Authenticator) loginWithCredentials(ctx context.Context) error {
	creds, err := LoadCredentials(a.cfg.CredsFile)
	if err != nil {
		return err
	}
	a.creds = creds

	logging.Info().Str("email", creds.Email).Msg("Logging in with stored credentials")
	if err := a.api.Login(ctx, creds.Email, creds.Password); err != nil {
		if errors.Is(err, monarch.ErrMFARequired) {
			logging.Info().Msg("Login requires a second factor, waiting for token")
			a.status.SetMFAPending(true)
			return ErrMFAPending
		}
		return fmt.Errorf("credential login failed: %w", err)
	}

	return a.confirmLogin(ctx)
}

// loginInteractively prompts for credentials on the terminal, with a second
// prompt for the MFA code when the upstream demands one.
func (a *Authenticator) loginInteractively(ctx context.Context) error {
	promptCtx, cancel := context.WithTimeout(ctx, a.cfg.InteractiveTimeout)
	defer cancel()

	creds, err := a.prompt(promptCtx, "Monarch email: ", "Monarch password: ")
	if err != nil {
		return fmt.Errorf("interactive login aborted: %w", err)
	}
	a.creds = creds

	err = a.api.Login(ctx, creds.Email, creds.Password)
	if errors.Is(err, monarch.ErrMFARequired) {
		a.status.SetMFAPending(true)
		code, perr := promptLine(promptCtx, "MFA token: ")
		if perr != nil {
			return fmt.Errorf("interactive login aborted waiting for MFA token: %w", perr)
		}
		return a.CompleteMFA(ctx, code)
	}
	if err != nil {
		return fmt.Errorf("interactive login failed: %w", err)
	}

	return a.confirmLogin(ctx)
}

// CompleteMFA finishes a pending second-factor challenge with the token
// supplied out of band. Requires the credentials from the original login
// attempt.
func (a *Authenticator) CompleteMFA(ctx context.Context, code string) error {
	creds := a.creds
	if creds == nil {
		var err error
		creds, err = LoadCredentials(a.cfg.CredsFile)
		if err != nil {
			return fmt.Errorf("cannot complete MFA without credentials: %w", err)
		}
		a.creds = creds
	}

	if err := a.api.MultiFactorAuthenticate(ctx, creds.Email, creds.Password, code); err != nil {
		return fmt.Errorf("MFA completion failed: %w", err)
	}

	return a.confirmLogin(ctx)
}

// confirmLogin verifies a freshly issued token with the same cheap probe
// the restore path uses, then flips the shared state and persists the
// session. A failed probe discards the token and leaves the state as it
// was: a token the upstream will not honor is not a login.
// Persistence failures are logged, not fatal: the session still works for
// this process lifetime.
func (a *Authenticator) confirmLogin(ctx context.Context) error {
	if _, err := a.api.GetTransactions(ctx, 1); err != nil {
		a.api.SetToken("")
		return fmt.Errorf("post-login probe failed: %w", err)
	}

	a.status.SetLoggedIn(true)
	if err := a.store.Save(a.api.Token()); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist session token")
		return nil
	}
	logging.Info().Str("session_file", a.store.Path()).Msg("Session token persisted")
	return nil
}
