// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package exporter turns Monarch API responses into Prometheus gauge writes.
//
// The projection is stateless: each update cycle resets the labeled families
// and rewrites them from the latest upstream snapshot, so series for deleted
// accounts or categories disappear instead of going stale.
package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finbeat/monarchmetrics/internal/logging"
	"github.com/finbeat/monarchmetrics/internal/metrics"
	"github.com/finbeat/monarchmetrics/internal/monarch"
)

// timestampLayouts are tried in order when parsing upstream timestamps.
// Monarch mixes RFC3339 (account updatedAt) with bare dates (transaction
// first/last).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// parseEpochSeconds converts an upstream timestamp string to fractional
// epoch seconds. Bare dates resolve to midnight UTC.
func parseEpochSeconds(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return metrics.EpochSeconds(t), true
		}
	}
	return 0, false
}

// ProjectAccounts rewrites every per-account gauge family from an accounts
// snapshot. Hidden accounts are excluded; accounts with absent balances keep
// their other gauges but never get a fabricated zero balance.
func ProjectAccounts(resp *monarch.AccountsResponse) {
	metrics.AccountCurrentBalance.Reset()
	metrics.AccountDisplayBalance.Reset()
	metrics.AccountUpdatedAt.Reset()
	metrics.AccountManual.Reset()
	metrics.AccountIncludeInNetWorth.Reset()
	metrics.AccountTransactionsCount.Reset()
	metrics.AccountHoldingsCount.Reset()

	visible := 0
	for i := range resp.Accounts {
		acct := &resp.Accounts[i]
		if acct.IsHidden {
			continue
		}
		visible++
		projectAccount(acct)
	}

	logging.Debug().Int("total", len(resp.Accounts)).Int("visible", visible).Msg("Projected account gauges")
}

func projectAccount(acct *monarch.Account) {
	labels := prometheus.Labels{
		"account_id":       acct.ID,
		"account_name":     acct.DisplayName,
		"account_type":     acct.TypeDisplay(),
		"account_subtype":  acct.SubtypeDisplay(),
		"data_provider":    acct.DataProvider,
		"institution_name": acct.InstitutionName(),
	}

	if acct.CurrentBalance != nil {
		metrics.AccountCurrentBalance.With(labels).Set(acct.CurrentBalance.InexactFloat64())
	} else {
		logging.Warn().Str("account_id", acct.ID).Str("account_name", acct.DisplayName).Msg("Account has no current balance, skipping gauge")
	}
	if acct.DisplayBalance != nil {
		metrics.AccountDisplayBalance.With(labels).Set(acct.DisplayBalance.InexactFloat64())
	} else {
		logging.Warn().Str("account_id", acct.ID).Str("account_name", acct.DisplayName).Msg("Account has no display balance, skipping gauge")
	}

	if ts, ok := parseEpochSeconds(acct.UpdatedAt); ok {
		metrics.AccountUpdatedAt.With(labels).Set(ts)
	} else if acct.UpdatedAt != "" {
		logging.Warn().Str("account_id", acct.ID).Str("updated_at", acct.UpdatedAt).Msg("Unparseable account timestamp")
	}

	metrics.AccountManual.With(labels).Set(boolToFloat(acct.IsManual))
	metrics.AccountIncludeInNetWorth.With(labels).Set(boolToFloat(acct.IncludeInNetWorth))
	metrics.AccountTransactionsCount.With(labels).Set(float64(acct.TransactionsCount))
	metrics.AccountHoldingsCount.With(labels).Set(float64(acct.HoldingsCount))
}

// ProjectTransactionsSummary writes the scalar transaction aggregates. An
// empty aggregates list leaves the gauges untouched.
func ProjectTransactionsSummary(resp *monarch.TransactionsSummaryResponse) {
	summary := resp.Summary()
	if summary == nil {
		logging.Warn().Msg("Transactions summary response was empty")
		return
	}

	metrics.TransactionsSumIncome.Set(summary.SumIncome.InexactFloat64())
	metrics.TransactionsSumExpense.Set(summary.SumExpense.InexactFloat64())

	if ts, ok := parseEpochSeconds(summary.First); ok {
		metrics.TransactionsFirstAt.Set(ts)
	}
	if ts, ok := parseEpochSeconds(summary.Last); ok {
		metrics.TransactionsLastAt.Set(ts)
	}
}

// ProjectCashFlow writes the cash flow scalars and rewrites the per-category
// breakdown.
func ProjectCashFlow(resp *monarch.CashFlowResponse) {
	if summary := resp.ScalarSummary(); summary != nil {
		metrics.CashFlowSumIncome.Set(summary.SumIncome.InexactFloat64())
		metrics.CashFlowSumExpense.Set(summary.SumExpense.InexactFloat64())
		metrics.CashFlowSavings.Set(summary.Savings.InexactFloat64())
		metrics.CashFlowSavingsRate.Set(summary.SavingsRate)
	} else {
		logging.Warn().Msg("Cash flow summary response was empty")
	}

	metrics.CashFlowCategorySum.Reset()
	for i := range resp.ByCategory {
		entry := &resp.ByCategory[i]
		// Absent nesting defaults both labels to "", it never drops the entry.
		metrics.CashFlowCategorySum.WithLabelValues(entry.CategoryName(), entry.GroupType()).Set(entry.Sum().InexactFloat64())
	}
}

func boolToFloat(v bool) float64 {
	if v {
		return 1.0
	}
	return 0.0
}
