// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package monarch

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

func TestAccountAccessorsDefaultEmpty(t *testing.T) {
	acct := Account{ID: "a1"}
	if acct.TypeDisplay() != "" || acct.SubtypeDisplay() != "" || acct.InstitutionName() != "" {
		t.Error("accessors must default to empty string when nesting is absent")
	}
}

func TestAccountDecodesNullBalance(t *testing.T) {
	payload := []byte(`{"id": "a1", "displayName": "Old 401k", "currentBalance": null, "displayBalance": 12.5}`)

	var acct Account
	if err := json.Unmarshal(payload, &acct); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if acct.CurrentBalance != nil {
		t.Error("null currentBalance must decode to nil, not zero")
	}
	if acct.DisplayBalance == nil || !acct.DisplayBalance.Equal(decimal.NewFromFloat(12.5)) {
		t.Errorf("displayBalance = %v", acct.DisplayBalance)
	}
}

func TestTransactionsSummaryResponseEmpty(t *testing.T) {
	var resp TransactionsSummaryResponse
	if resp.Summary() != nil {
		t.Error("Summary() must be nil for an empty aggregates list")
	}

	resp.Aggregates = []TransactionsAggregate{{Summary: TransactionsSummary{Count: 7}}}
	if s := resp.Summary(); s == nil || s.Count != 7 {
		t.Errorf("Summary() = %+v", resp.Summary())
	}
}

func TestCashFlowScalarSummaryEmpty(t *testing.T) {
	var resp CashFlowResponse
	if resp.ScalarSummary() != nil {
		t.Error("ScalarSummary() must be nil for an empty summary list")
	}
}

func TestCategoryCashFlowAccessors(t *testing.T) {
	entry := CategoryCashFlow{}
	if entry.CategoryName() != "" || entry.GroupType() != "" {
		t.Error("category accessors must default to empty string")
	}
	if !entry.Sum().Equal(decimal.Zero) {
		t.Errorf("Sum() = %v, want zero", entry.Sum())
	}

	payload := []byte(`{
		"groupBy": {"category": {"name": "Groceries", "group": {"type": "expense"}}},
		"summary": {"sum": -200}
	}`)
	if err := json.Unmarshal(payload, &entry); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if entry.CategoryName() != "Groceries" {
		t.Errorf("CategoryName() = %q", entry.CategoryName())
	}
	if entry.GroupType() != "expense" {
		t.Errorf("GroupType() = %q", entry.GroupType())
	}
	if !entry.Sum().Equal(decimal.NewFromInt(-200)) {
		t.Errorf("Sum() = %v", entry.Sum())
	}
}
