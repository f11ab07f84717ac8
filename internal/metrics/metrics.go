// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package metrics defines every Prometheus metric family the exporter writes.
//
// Family names and label keys are an external contract: dashboards key on
// them, so they must not change. The account gauges are keyed by the six
// account labels; the cash-flow category gauge by {category, group_type}.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AccountLabels is the label tuple identifying one account series.
var AccountLabels = []string{
	"account_id",
	"account_name",
	"account_type",
	"account_subtype",
	"data_provider",
	"institution_name",
}

var (
	// Auth state
	LoggedIn = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_logged_in",
			Help: "1 if a Monarch session is authenticated",
		},
	)

	MFAPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_mfa_pending",
			Help: "1 if login is blocked waiting for a second factor token",
		},
	)

	// Update loop
	LastUpdateLoopAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_last_update_loop_at",
			Help: "Unix timestamp of the last completed update loop",
		},
	)

	UpdateLoopsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monarch_update_loops_total",
			Help: "Total number of successfully completed update loops",
		},
	)

	UpdateLoopErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monarch_update_loop_errors_total",
			Help: "Total number of aborted update loops",
		},
		[]string{"stage"}, // "accounts", "transactions_summary", "cashflow"
	)

	// Per-account gauges
	AccountCurrentBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_account_current_balance",
			Help: "Account current balance",
		},
		AccountLabels,
	)

	AccountDisplayBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_account_display_balance",
			Help: "Account display balance (credits are negative)",
		},
		AccountLabels,
	)

	AccountUpdatedAt = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_account_updated_at",
			Help: "Account last updated timestamp",
		},
		AccountLabels,
	)

	AccountManual = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_account_manual",
			Help: "1 if account is manual",
		},
		AccountLabels,
	)

	AccountIncludeInNetWorth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_account_include_in_net_worth",
			Help: "1 if account should be included in net worth",
		},
		AccountLabels,
	)

	AccountTransactionsCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_account_transactions_count",
			Help: "Count of transactions for account",
		},
		AccountLabels,
	)

	AccountHoldingsCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_account_holdings_count",
			Help: "Count of holdings for account",
		},
		AccountLabels,
	)

	// Cash-flow summary scalars
	CashFlowSumIncome = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_cashflow_sum_income",
			Help: "Cash flow summary: total income",
		},
	)

	CashFlowSumExpense = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_cashflow_sum_expense",
			Help: "Cash flow summary: total expense",
		},
	)

	CashFlowSavings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_cashflow_savings",
			Help: "Cash flow summary: savings",
		},
	)

	CashFlowSavingsRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_cashflow_savings_rate",
			Help: "Cash flow summary: savings rate",
		},
	)

	// Transactions summary
	TransactionsSumIncome = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_transactions_sum_income",
			Help: "Transactions summary: income sum",
		},
	)

	TransactionsSumExpense = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_transactions_sum_expense",
			Help: "Transactions summary: expense sum",
		},
	)

	TransactionsFirstAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_transactions_first_at",
			Help: "Timestamp of the first known transaction",
		},
	)

	TransactionsLastAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monarch_transactions_last_at",
			Help: "Timestamp of the last known transaction",
		},
	)

	// Per-category cash flow
	CashFlowCategorySum = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_cashflow_category_sum",
			Help: "Cash flow sum by category",
		},
		[]string{"category", "group_type"},
	)

	// Upstream circuit breaker
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monarch_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	BreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monarch_breaker_requests_total",
			Help: "Total requests through the upstream circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)
)

// SetLoggedIn records the login flag as 0/1.
func SetLoggedIn(v bool) {
	LoggedIn.Set(boolToFloat(v))
}

// SetMFAPending records the MFA-pending flag as 0/1.
func SetMFAPending(v bool) {
	MFAPending.Set(boolToFloat(v))
}

// RecordUpdateLoopSuccess marks one completed cycle: bumps the loop counter
// and moves the last-run timestamp to now (fractional seconds).
func RecordUpdateLoopSuccess(now time.Time) {
	LastUpdateLoopAt.Set(EpochSeconds(now))
	UpdateLoopsTotal.Inc()
}

// RecordUpdateLoopError counts an aborted cycle by failing stage.
func RecordUpdateLoopError(stage string) {
	UpdateLoopErrors.WithLabelValues(stage).Inc()
}

// EpochSeconds converts a time to fractional seconds since the epoch, the
// representation every timestamp gauge uses.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func boolToFloat(v bool) float64 {
	if v {
		return 1.0
	}
	return 0.0
}
