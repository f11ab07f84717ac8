// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package monarch

import (
	"github.com/shopspring/decimal"
)

// Upstream response shapes, typed at the decode boundary.
//
// Nested objects Monarch may omit are pointers; accessor methods apply the
// documented defaults (empty string) so callers never traverse nil chains.
// Money fields are decimals and only become float64 at the gauge boundary.
// Balances are nil-able on purpose: an absent balance is a data-quality
// signal to log, not a zero.

// AccountsResponse is the payload of the GetAccounts query.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// Account is one aggregated financial account.
type Account struct {
	ID                string           `json:"id"`
	DisplayName       string           `json:"displayName"`
	CurrentBalance    *decimal.Decimal `json:"currentBalance"`
	DisplayBalance    *decimal.Decimal `json:"displayBalance"`
	UpdatedAt         string           `json:"updatedAt"`
	DataProvider      string           `json:"dataProvider"`
	IsHidden          bool             `json:"isHidden"`
	IsManual          bool             `json:"isManual"`
	IncludeInNetWorth bool             `json:"includeInNetWorth"`
	TransactionsCount int              `json:"transactionsCount"`
	HoldingsCount     int              `json:"holdingsCount"`
	Type              *AccountTypeInfo `json:"type"`
	Subtype           *AccountTypeInfo `json:"subtype"`
	Institution       *Institution     `json:"institution"`
}

// AccountTypeInfo carries the display name of an account type or subtype.
type AccountTypeInfo struct {
	Display string `json:"display"`
}

// Institution is the financial institution backing an account.
type Institution struct {
	Name string `json:"name"`
}

// TypeDisplay returns the account type display name, or "" if absent.
func (a *Account) TypeDisplay() string {
	if a.Type == nil {
		return ""
	}
	return a.Type.Display
}

// SubtypeDisplay returns the account subtype display name, or "" if absent.
func (a *Account) SubtypeDisplay() string {
	if a.Subtype == nil {
		return ""
	}
	return a.Subtype.Display
}

// InstitutionName returns the institution name, or "" if absent.
func (a *Account) InstitutionName() string {
	if a.Institution == nil {
		return ""
	}
	return a.Institution.Name
}

// TransactionsResponse is the payload of the one-record probe query.
type TransactionsResponse struct {
	AllTransactions TransactionsPage `json:"allTransactions"`
}

// TransactionsPage is a page of the transactions list.
type TransactionsPage struct {
	TotalCount int           `json:"totalCount"`
	Results    []Transaction `json:"results"`
}

// Transaction is a single transaction record. Only the fields the probe
// requests are modeled.
type Transaction struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

// TransactionsSummaryResponse is the payload of the transactions summary
// query. Monarch wraps the singular summary in a one-element aggregates list.
type TransactionsSummaryResponse struct {
	Aggregates []TransactionsAggregate `json:"aggregates"`
}

// TransactionsAggregate wraps one summary record.
type TransactionsAggregate struct {
	Summary TransactionsSummary `json:"summary"`
}

// TransactionsSummary holds the scalar transaction aggregates.
type TransactionsSummary struct {
	SumIncome  decimal.Decimal `json:"sumIncome"`
	SumExpense decimal.Decimal `json:"sumExpense"`
	First      string          `json:"first"`
	Last       string          `json:"last"`
	Count      int             `json:"count"`
}

// Summary returns the singular nested summary record, or nil when upstream
// sent an empty aggregates list.
func (r *TransactionsSummaryResponse) Summary() *TransactionsSummary {
	if len(r.Aggregates) == 0 {
		return nil
	}
	return &r.Aggregates[0].Summary
}

// CashFlowResponse is the payload of the cash flow query: the scalar summary
// and the per-category breakdown come from the same fetch.
type CashFlowResponse struct {
	Summary    []CashFlowAggregate `json:"summary"`
	ByCategory []CategoryCashFlow  `json:"byCategory"`
}

// CashFlowAggregate wraps one cash flow summary record.
type CashFlowAggregate struct {
	Summary CashFlowSummary `json:"summary"`
}

// CashFlowSummary holds the scalar cash flow aggregates.
type CashFlowSummary struct {
	SumIncome   decimal.Decimal `json:"sumIncome"`
	SumExpense  decimal.Decimal `json:"sumExpense"`
	Savings     decimal.Decimal `json:"savings"`
	SavingsRate float64         `json:"savingsRate"`
}

// ScalarSummary returns the singular nested summary record, or nil when
// upstream sent an empty summary list.
func (r *CashFlowResponse) ScalarSummary() *CashFlowSummary {
	if len(r.Summary) == 0 {
		return nil
	}
	return &r.Summary[0].Summary
}

// CategoryCashFlow is one entry of the by-category breakdown.
type CategoryCashFlow struct {
	GroupBy *CategoryGroupBy `json:"groupBy"`
	Summary *CategorySummary `json:"summary"`
}

// CategoryGroupBy carries the category an entry was grouped on.
type CategoryGroupBy struct {
	Category *Category `json:"category"`
}

// Category is a transaction category.
type Category struct {
	Name  string         `json:"name"`
	Group *CategoryGroup `json:"group"`
}

// CategoryGroup is a category's group (income/expense/transfer).
type CategoryGroup struct {
	Type string `json:"type"`
}

// CategoryName returns the category name, defaulting to "" through any
// absent nesting level.
func (c *CategoryCashFlow) CategoryName() string {
	if c.GroupBy == nil || c.GroupBy.Category == nil {
		return ""
	}
	return c.GroupBy.Category.Name
}

// GroupType returns the category group type, defaulting to "" through any
// absent nesting level.
func (c *CategoryCashFlow) GroupType() string {
	if c.GroupBy == nil || c.GroupBy.Category == nil || c.GroupBy.Category.Group == nil {
		return ""
	}
	return c.GroupBy.Category.Group.Type
}

// Sum returns the entry's summed amount, defaulting to zero when the nested
// summary object is absent.
func (c *CategoryCashFlow) Sum() decimal.Decimal {
	if c.Summary == nil {
		return decimal.Zero
	}
	return c.Summary.Sum
}

// CategorySummary holds the summed amount for one category entry.
type CategorySummary struct {
	Sum decimal.Decimal `json:"sum"`
}
