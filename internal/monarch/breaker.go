// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package monarch

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/finbeat/monarchmetrics/internal/logging"
	"github.com/finbeat/monarchmetrics/internal/metrics"
)

// Breaker wraps an API with circuit breaker protection so a misbehaving
// upstream cannot pile up in-flight requests across update cycles.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations; the timing governs recovery from failures, not data
// integrity. Tests should mock the wrapped API, not the breaker.
type Breaker struct {
	api  API
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewBreaker wraps api with a circuit breaker.
// Configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreaker(api API) *Breaker {
	cbName := "monarch-api"

	metrics.BreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] State transition")
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Breaker{
		api:  api,
		cb:   cb,
		name: cbName,
	}
}

// execute wraps one upstream call with circuit breaker protection.
func (b *Breaker) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.BreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.BreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.BreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Login authenticates with circuit breaker protection. ErrMFARequired counts
// as a failure for the breaker but still surfaces unchanged so the auth state
// machine can react to it.
func (b *Breaker) Login(ctx context.Context, email, password string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.api.Login(ctx, email, password)
	})
	return err
}

// MultiFactorAuthenticate completes an MFA challenge with circuit breaker
// protection.
func (b *Breaker) MultiFactorAuthenticate(ctx context.Context, email, password, code string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.api.MultiFactorAuthenticate(ctx, email, password, code)
	})
	return err
}

// GetAccounts retrieves accounts with circuit breaker protection.
func (b *Breaker) GetAccounts(ctx context.Context) (*AccountsResponse, error) {
	return castResult[AccountsResponse](b.execute(func() (interface{}, error) {
		return b.api.GetAccounts(ctx)
	}))
}

// GetTransactions retrieves transactions with circuit breaker protection.
func (b *Breaker) GetTransactions(ctx context.Context, limit int) (*TransactionsResponse, error) {
	return castResult[TransactionsResponse](b.execute(func() (interface{}, error) {
		return b.api.GetTransactions(ctx, limit)
	}))
}

// GetTransactionsSummary retrieves the transactions summary with circuit
// breaker protection.
func (b *Breaker) GetTransactionsSummary(ctx context.Context) (*TransactionsSummaryResponse, error) {
	return castResult[TransactionsSummaryResponse](b.execute(func() (interface{}, error) {
		return b.api.GetTransactionsSummary(ctx)
	}))
}

// GetCashFlow retrieves cash flow aggregates with circuit breaker protection.
func (b *Breaker) GetCashFlow(ctx context.Context) (*CashFlowResponse, error) {
	return castResult[CashFlowResponse](b.execute(func() (interface{}, error) {
		return b.api.GetCashFlow(ctx)
	}))
}

// Token passes through to the wrapped API.
func (b *Breaker) Token() string { return b.api.Token() }

// SetToken passes through to the wrapped API.
func (b *Breaker) SetToken(token string) { b.api.SetToken(token) }
