// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/finbeat/monarchmetrics/internal/config"
	"github.com/finbeat/monarchmetrics/internal/monarch"
	"github.com/finbeat/monarchmetrics/internal/session"
)

// fakeAPI implements monarch.API with scriptable behavior. The probe only
// succeeds for tokens listed in goodTokens, so stale persisted sessions and
// tokens the upstream will not honor both fail it.
type fakeAPI struct {
	token      string
	goodTokens map[string]bool

	loginErr   error
	mfaErr     error
	loginCalls int
	probeCalls int
	mfaCode    string
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) error {
	f.loginCalls++
	if f.loginErr != nil {
		return f.loginErr
	}
	f.token = "fresh-token"
	return nil
}

func (f *fakeAPI) MultiFactorAuthenticate(ctx context.Context, email, password, code string) error {
	f.mfaCode = code
	if f.mfaErr != nil {
		return f.mfaErr
	}
	f.token = "mfa-token"
	return nil
}

func (f *fakeAPI) GetAccounts(ctx context.Context) (*monarch.AccountsResponse, error) {
	return &monarch.AccountsResponse{}, nil
}

func (f *fakeAPI) GetTransactions(ctx context.Context, limit int) (*monarch.TransactionsResponse, error) {
	f.probeCalls++
	if !f.goodTokens[f.token] {
		return nil, errors.New("401 unauthorized")
	}
	return &monarch.TransactionsResponse{}, nil
}

func (f *fakeAPI) GetTransactionsSummary(ctx context.Context) (*monarch.TransactionsSummaryResponse, error) {
	return &monarch.TransactionsSummaryResponse{}, nil
}

func (f *fakeAPI) GetCashFlow(ctx context.Context) (*monarch.CashFlowResponse, error) {
	return &monarch.CashFlowResponse{}, nil
}

func (f *fakeAPI) Token() string         { return f.token }
func (f *fakeAPI) SetToken(token string) { f.token = token }

func writeCredsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"email": "user@example.com", "password": "hunter2"}`), 0600); err != nil {
		t.Fatalf("failed to write creds file: %v", err)
	}
	return path
}

func newTestAuthenticator(t *testing.T, api monarch.API, cfg *config.MonarchConfig) (*Authenticator, *session.FileStore, *Status) {
	t.Helper()
	store := session.NewFileStore(filepath.Join(t.TempDir(), "session"))
	status := NewStatus()
	return New(api, store, status, cfg), store, status
}

func TestAuthenticateRestoresValidSession(t *testing.T) {
	api := &fakeAPI{goodTokens: map[string]bool{"persisted-token": true}}
	a, store, status := newTestAuthenticator(t, api, &config.MonarchConfig{})
	if err := store.Save("persisted-token"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if !status.LoggedIn() {
		t.Error("status must be logged in after restore")
	}
	if api.token != "persisted-token" {
		t.Errorf("token = %q, want persisted-token", api.token)
	}
	if api.loginCalls != 0 {
		t.Error("restore must not attempt a password login")
	}
}

func TestAuthenticateClearsStaleSession(t *testing.T) {
	api := &fakeAPI{goodTokens: map[string]bool{"fresh-token": true}}
	a, store, status := newTestAuthenticator(t, api, &config.MonarchConfig{
		CredsFile: writeCredsFile(t),
	})
	if err := store.Save("stale-token"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if !status.LoggedIn() {
		t.Error("status must be logged in after falling through to credentials")
	}
	if api.loginCalls != 1 {
		t.Errorf("login calls = %d, want 1", api.loginCalls)
	}

	// The fresh session replaced the stale one on disk.
	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after login failed: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("persisted token = %q, want fresh-token", token)
	}
}

func TestAuthenticateCredentialLogin(t *testing.T) {
	api := &fakeAPI{goodTokens: map[string]bool{"fresh-token": true}}
	a, store, status := newTestAuthenticator(t, api, &config.MonarchConfig{
		CredsFile: writeCredsFile(t),
	})

	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if !status.LoggedIn() {
		t.Error("status must be logged in")
	}
	if api.probeCalls == 0 {
		t.Error("credential login must verify the issued token with a probe")
	}
	if token, _ := store.Load(); token != "fresh-token" {
		t.Errorf("persisted token = %q", token)
	}
}

func TestAuthenticateLoginWithFailingProbe(t *testing.T) {
	// Login issues a token the upstream then refuses to honor.
	api := &fakeAPI{}
	a, store, status := newTestAuthenticator(t, api, &config.MonarchConfig{
		CredsFile: writeCredsFile(t),
	})

	err := a.Authenticate(context.Background())
	if err == nil {
		t.Fatal("Authenticate() must fail when the post-login probe fails")
	}
	if status.LoggedIn() {
		t.Error("a token that fails the probe must not count as a login")
	}
	if api.token != "" {
		t.Errorf("unverified token must be discarded, got %q", api.token)
	}
	if _, serr := store.Load(); !errors.Is(serr, session.ErrNoSession) {
		t.Error("unverified token must not be persisted")
	}
}

func TestAuthenticateMFAPendingThenComplete(t *testing.T) {
	api := &fakeAPI{loginErr: monarch.ErrMFARequired, goodTokens: map[string]bool{"mfa-token": true}}
	a, store, status := newTestAuthenticator(t, api, &config.MonarchConfig{
		CredsFile: writeCredsFile(t),
	})

	err := a.Authenticate(context.Background())
	if !errors.Is(err, ErrMFAPending) {
		t.Fatalf("Authenticate() error = %v, want ErrMFAPending", err)
	}
	if status.LoggedIn() {
		t.Error("must not be logged in while blocked on MFA")
	}
	if !status.MFAPending() {
		t.Error("MFA pending flag must be set")
	}

	if err := a.CompleteMFA(context.Background(), "654321"); err != nil {
		t.Fatalf("CompleteMFA() failed: %v", err)
	}
	if api.mfaCode != "654321" {
		t.Errorf("MFA code passed upstream = %q", api.mfaCode)
	}
	if !status.LoggedIn() {
		t.Error("status must be logged in after MFA completion")
	}
	if status.MFAPending() {
		t.Error("MFA pending flag must clear on login")
	}
	if token, _ := store.Load(); token != "mfa-token" {
		t.Errorf("persisted token = %q, want mfa-token", token)
	}
}

func TestAuthenticateExhaustedWithoutInteractive(t *testing.T) {
	api := &fakeAPI{}
	a, _, status := newTestAuthenticator(t, api, &config.MonarchConfig{})

	err := a.Authenticate(context.Background())
	if err == nil {
		t.Fatal("Authenticate() must fail when every strategy is exhausted")
	}
	if errors.Is(err, ErrMFAPending) {
		t.Error("exhaustion must not masquerade as an MFA wait")
	}
	if status.LoggedIn() {
		t.Error("status must stay logged out")
	}
}

func TestAuthenticateInteractiveFallback(t *testing.T) {
	api := &fakeAPI{goodTokens: map[string]bool{"fresh-token": true}}
	a, _, status := newTestAuthenticator(t, api, &config.MonarchConfig{
		Interactive:        true,
		InteractiveTimeout: time.Minute,
	})
	a.prompt = func(ctx context.Context, emailPrompt, passwordPrompt string) (*Credentials, error) {
		return &Credentials{Email: "typed@example.com", Password: "typed-pass"}, nil
	}

	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if !status.LoggedIn() {
		t.Error("status must be logged in after interactive login")
	}
	if api.loginCalls != 1 {
		t.Errorf("login calls = %d, want 1", api.loginCalls)
	}
}

func TestCompleteMFAWithoutCredentials(t *testing.T) {
	api := &fakeAPI{}
	a, _, _ := newTestAuthenticator(t, api, &config.MonarchConfig{})

	if err := a.CompleteMFA(context.Background(), "123456"); err == nil {
		t.Fatal("CompleteMFA() must fail when no credentials were ever loaded")
	}
}

func TestLoadCredentials(t *testing.T) {
	if _, err := LoadCredentials(""); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("empty path error = %v, want ErrNoCredentials", err)
	}
	if _, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("missing file error = %v, want ErrNoCredentials", err)
	}

	bad := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(bad, []byte(`{"email": "x@y.z"}`), 0600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := LoadCredentials(bad); err == nil {
		t.Error("credentials without a password must be rejected")
	}

	good := writeCredsFile(t)
	creds, err := LoadCredentials(good)
	if err != nil {
		t.Fatalf("LoadCredentials() failed: %v", err)
	}
	if creds.Email != "user@example.com" || creds.Password != "hunter2" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}
