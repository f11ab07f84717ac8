// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finbeat/monarchmetrics/internal/auth"
	"github.com/finbeat/monarchmetrics/internal/logging"
	"github.com/finbeat/monarchmetrics/internal/metrics"
	"github.com/finbeat/monarchmetrics/internal/monarch"
)

// ErrNotAuthenticated is returned by Run when no session is authenticated.
var ErrNotAuthenticated = errors.New("exporter: not authenticated")

// Updater executes one full update cycle: accounts, then the transactions
// summary, then cash flow. A failed stage aborts the cycle; stages already
// projected keep their fresh values, later stages keep their previous ones.
type Updater struct {
	api     monarch.API
	status  *auth.Status
	timeout time.Duration
}

// NewUpdater creates an Updater. timeout bounds one whole cycle.
func NewUpdater(api monarch.API, status *auth.Status, timeout time.Duration) *Updater {
	return &Updater{api: api, status: status, timeout: timeout}
}

// Run executes one update cycle. Only a fully successful cycle moves the
// last-update timestamp.
func (u *Updater) Run(ctx context.Context) error {
	if !u.status.LoggedIn() {
		return ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	started := time.Now()

	accounts, err := u.api.GetAccounts(ctx)
	if err != nil {
		metrics.RecordUpdateLoopError("accounts")
		return fmt.Errorf("accounts stage failed: %w", err)
	}
	ProjectAccounts(accounts)

	txSummary, err := u.api.GetTransactionsSummary(ctx)
	if err != nil {
		metrics.RecordUpdateLoopError("transactions_summary")
		return fmt.Errorf("transactions summary stage failed: %w", err)
	}
	ProjectTransactionsSummary(txSummary)

	cashflow, err := u.api.GetCashFlow(ctx)
	if err != nil {
		metrics.RecordUpdateLoopError("cashflow")
		return fmt.Errorf("cash flow stage failed: %w", err)
	}
	ProjectCashFlow(cashflow)

	metrics.RecordUpdateLoopSuccess(time.Now())
	logging.Info().Int("accounts", len(accounts.Accounts)).Dur("elapsed", time.Since(started)).Msg("Update cycle completed")
	return nil
}
