// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package monarch

import (
	"context"
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
)

type stubAPI struct {
	API
	accountsErr error
	accounts    *AccountsResponse
}

func (s *stubAPI) GetAccounts(ctx context.Context) (*AccountsResponse, error) {
	return s.accounts, s.accountsErr
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	stub := &stubAPI{accounts: &AccountsResponse{Accounts: []Account{{ID: "a1"}}}}
	b := NewBreaker(stub)

	resp, err := b.GetAccounts(context.Background())
	if err != nil {
		t.Fatalf("GetAccounts() failed: %v", err)
	}
	if len(resp.Accounts) != 1 || resp.Accounts[0].ID != "a1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := NewBreaker(&stubAPI{})

	if b.cb.State() != gobreaker.StateClosed {
		t.Fatalf("initial state = %v, want Closed", b.cb.State())
	}

	// 60% failure rate over a minimum of 10 requests trips the breaker.
	// ReadyToTrip runs before each request, so one extra failure is needed
	// after the tenth request for the trip check to see 10+ requests.
	for i := 0; i < 11; i++ {
		_, _ = b.execute(func() (interface{}, error) {
			return nil, errors.New("simulated upstream failure")
		})
	}

	if b.cb.State() != gobreaker.StateOpen {
		t.Fatalf("state after failures = %v, want Open", b.cb.State())
	}

	_, err := b.execute(func() (interface{}, error) { return "unreachable", nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
}

func TestCastResultTypeMismatch(t *testing.T) {
	if _, err := castResult[AccountsResponse]("not a response", nil); err == nil {
		t.Error("castResult must fail on a type mismatch")
	}
	want := &AccountsResponse{}
	got, err := castResult[AccountsResponse](want, nil)
	if err != nil || got != want {
		t.Errorf("castResult = %v, %v", got, err)
	}
}
