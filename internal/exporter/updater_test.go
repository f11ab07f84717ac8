// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package exporter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/finbeat/monarchmetrics/internal/auth"
	"github.com/finbeat/monarchmetrics/internal/metrics"
	"github.com/finbeat/monarchmetrics/internal/monarch"
)

// fakeAPI is a scriptable monarch.API for cycle tests.
type fakeAPI struct {
	accountsErr  error
	txSummaryErr error
	cashflowErr  error

	accountsCalls  int
	txSummaryCalls int
	cashflowCalls  int
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) error { return nil }
func (f *fakeAPI) MultiFactorAuthenticate(ctx context.Context, email, password, code string) error {
	return nil
}

func (f *fakeAPI) GetAccounts(ctx context.Context) (*monarch.AccountsResponse, error) {
	f.accountsCalls++
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return &monarch.AccountsResponse{Accounts: []monarch.Account{sampleAccount()}}, nil
}

func (f *fakeAPI) GetTransactions(ctx context.Context, limit int) (*monarch.TransactionsResponse, error) {
	return &monarch.TransactionsResponse{}, nil
}

func (f *fakeAPI) GetTransactionsSummary(ctx context.Context) (*monarch.TransactionsSummaryResponse, error) {
	f.txSummaryCalls++
	if f.txSummaryErr != nil {
		return nil, f.txSummaryErr
	}
	return &monarch.TransactionsSummaryResponse{}, nil
}

func (f *fakeAPI) GetCashFlow(ctx context.Context) (*monarch.CashFlowResponse, error) {
	f.cashflowCalls++
	if f.cashflowErr != nil {
		return nil, f.cashflowErr
	}
	return &monarch.CashFlowResponse{}, nil
}

func (f *fakeAPI) Token() string   { return "tok" }
func (f *fakeAPI) SetToken(string) {}

func loggedInStatus() *auth.Status {
	s := auth.NewStatus()
	s.SetLoggedIn(true)
	return s
}

func TestRunRequiresAuthentication(t *testing.T) {
	u := NewUpdater(&fakeAPI{}, auth.NewStatus(), time.Minute)
	if err := u.Run(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Run() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestRunFullCycle(t *testing.T) {
	api := &fakeAPI{}
	u := NewUpdater(api, loggedInStatus(), time.Minute)

	loopsBefore := testutil.ToFloat64(metrics.UpdateLoopsTotal)
	if err := u.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if api.accountsCalls != 1 || api.txSummaryCalls != 1 || api.cashflowCalls != 1 {
		t.Errorf("stage calls = %d/%d/%d, want 1/1/1", api.accountsCalls, api.txSummaryCalls, api.cashflowCalls)
	}
	if got := testutil.ToFloat64(metrics.UpdateLoopsTotal); got != loopsBefore+1 {
		t.Errorf("loop counter = %v, want %v", got, loopsBefore+1)
	}
	if got := testutil.ToFloat64(metrics.LastUpdateLoopAt); got == 0 {
		t.Error("last update timestamp must be set after a successful cycle")
	}
}

func TestRunAbortsOnAccountsFailure(t *testing.T) {
	api := &fakeAPI{accountsErr: errors.New("upstream down")}
	u := NewUpdater(api, loggedInStatus(), time.Minute)

	errsBefore := testutil.ToFloat64(metrics.UpdateLoopErrors.WithLabelValues("accounts"))
	loopsBefore := testutil.ToFloat64(metrics.UpdateLoopsTotal)

	if err := u.Run(context.Background()); err == nil {
		t.Fatal("Run() must fail when the accounts stage fails")
	}

	if api.txSummaryCalls != 0 || api.cashflowCalls != 0 {
		t.Error("later stages must not run after an aborted stage")
	}
	if got := testutil.ToFloat64(metrics.UpdateLoopErrors.WithLabelValues("accounts")); got != errsBefore+1 {
		t.Errorf("error counter = %v, want %v", got, errsBefore+1)
	}
	if got := testutil.ToFloat64(metrics.UpdateLoopsTotal); got != loopsBefore {
		t.Error("aborted cycle must not count as a completed loop")
	}
}

func TestRunAbortsOnCashFlowFailure(t *testing.T) {
	api := &fakeAPI{cashflowErr: errors.New("upstream down")}
	u := NewUpdater(api, loggedInStatus(), time.Minute)

	errsBefore := testutil.ToFloat64(metrics.UpdateLoopErrors.WithLabelValues("cashflow"))

	if err := u.Run(context.Background()); err == nil {
		t.Fatal("Run() must fail when the cash flow stage fails")
	}
	if got := testutil.ToFloat64(metrics.UpdateLoopErrors.WithLabelValues("cashflow")); got != errsBefore+1 {
		t.Errorf("error counter = %v, want %v", got, errsBefore+1)
	}
}
