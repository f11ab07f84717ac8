// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package monarch is the client for the Monarch Money aggregation API.
//
// Authentication is a REST endpoint (/auth/login/) that either issues an
// opaque session token or signals that a second factor is required; data
// queries go through the GraphQL endpoint with the token attached. The token
// is the only piece of client state and is replaced wholesale on re-login.
package monarch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/finbeat/monarchmetrics/internal/config"
)

// ErrMFARequired is returned by Login when the upstream reports that a
// second-factor challenge must be completed before a session is issued.
var ErrMFARequired = errors.New("monarch: multi-factor authentication required")

// maxErrorBodySize limits how much of a response body is read for error
// reporting, preventing unbounded allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// API is the set of Monarch operations the rest of the exporter depends on.
// Implemented by Client for production and by mocks in tests; Breaker wraps
// any API with circuit breaker protection.
//
// All methods accept a context for cancellation and are safe for concurrent
// use.
type API interface {
	// Login authenticates with email and password, storing the issued
	// session token on success. Returns ErrMFARequired when upstream
	// demands a second factor.
	Login(ctx context.Context, email, password string) error

	// MultiFactorAuthenticate completes a pending second-factor challenge,
	// storing the issued session token on success.
	MultiFactorAuthenticate(ctx context.Context, email, password, code string) error

	GetAccounts(ctx context.Context) (*AccountsResponse, error)
	GetTransactions(ctx context.Context, limit int) (*TransactionsResponse, error)
	GetTransactionsSummary(ctx context.Context) (*TransactionsSummaryResponse, error)
	GetCashFlow(ctx context.Context) (*CashFlowResponse, error)

	// Token returns the current session token ("" when unauthenticated).
	Token() string

	// SetToken installs a previously persisted session token.
	SetToken(token string)
}

// Client talks to the Monarch Money HTTP API.
//
// Features:
//   - 30-second request timeout
//   - automatic retry on HTTP 429 with exponential backoff (1s, 2s, 4s, 8s, 16s)
//   - Retry-After header honored when present
//   - typed response decoding via goccy/go-json
type Client struct {
	baseURL        string
	client         *http.Client
	maxRetries     int
	retryBaseDelay time.Duration

	mu    sync.RWMutex
	token string
}

// NewClient creates a Monarch API client from configuration.
func NewClient(cfg *config.MonarchConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,
	}
}

// Token returns the current session token, or "" when unauthenticated.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs a session token, replacing any previous one.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// loginRequest is the body of the /auth/login/ endpoint.
type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	TrustedDevice bool   `json:"trusted_device"`
	SupportsMFA   bool   `json:"supports_mfa"`
	TOTP          string `json:"totp,omitempty"`
}

// loginResponse is the success body of the /auth/login/ endpoint.
type loginResponse struct {
	Token string `json:"token"`
}

// loginError is the failure body of the /auth/login/ endpoint.
type loginError struct {
	ErrorCode string `json:"error_code"`
	Detail    string `json:"detail"`
}

// Login authenticates with email and password. A second-factor challenge is
// reported as ErrMFARequired; any other non-2xx response is an error.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, loginRequest{
		Username:      email,
		Password:      password,
		TrustedDevice: true,
		SupportsMFA:   true,
	})
}

// MultiFactorAuthenticate completes a pending second-factor challenge with
// the one-time code supplied out of band.
func (c *Client) MultiFactorAuthenticate(ctx context.Context, email, password, code string) error {
	return c.authenticate(ctx, loginRequest{
		Username:      email,
		Password:      password,
		TrustedDevice: true,
		SupportsMFA:   true,
		TOTP:          code,
	})
}

// authenticate posts to /auth/login/ and stores the issued token.
func (c *Client) authenticate(ctx context.Context, body loginRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Platform", "web")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		var lerr loginError
		if derr := json.NewDecoder(resp.Body).Decode(&lerr); derr == nil && lerr.ErrorCode == "MFA_REQUIRED" {
			return ErrMFARequired
		}
		return fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		errBody := readBodyForError(resp.Body)
		return fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(errBody))
	}

	var lresp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lresp); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if lresp.Token == "" {
		return fmt.Errorf("login response contained no session token")
	}

	c.SetToken(lresp.Token)
	return nil
}

// GetAccounts fetches all aggregated accounts.
func (c *Client) GetAccounts(ctx context.Context) (*AccountsResponse, error) {
	result := &AccountsResponse{}
	if err := c.query(ctx, "GetAccounts", queryGetAccounts, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransactions fetches up to limit transactions. The auth state machine
// uses this with limit=1 as its cheap authenticated probe.
func (c *Client) GetTransactions(ctx context.Context, limit int) (*TransactionsResponse, error) {
	result := &TransactionsResponse{}
	vars := map[string]interface{}{"limit": limit}
	if err := c.query(ctx, "GetTransactionsList", queryGetTransactions, vars, result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransactionsSummary fetches the scalar transaction aggregates.
func (c *Client) GetTransactionsSummary(ctx context.Context) (*TransactionsSummaryResponse, error) {
	result := &TransactionsSummaryResponse{}
	if err := c.query(ctx, "GetTransactionsSummary", queryGetTransactionsSummary, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetCashFlow fetches the cash flow summary and the by-category breakdown.
func (c *Client) GetCashFlow(ctx context.Context) (*CashFlowResponse, error) {
	result := &CashFlowResponse{}
	if err := c.query(ctx, "GetCashFlow", queryGetCashFlow, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// gqlRequest is the GraphQL request envelope.
type gqlRequest struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// gqlResponse is the GraphQL response envelope.
type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

// query posts one GraphQL operation and decodes response.data into result.
func (c *Client) query(ctx context.Context, op, query string, vars map[string]interface{}, result interface{}) error {
	payload, err := json.Marshal(gqlRequest{OperationName: op, Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	resp, err := c.doRequestWithRateLimit(ctx, op, payload)
	if err != nil {
		return fmt.Errorf("failed to make %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", op, resp.StatusCode, string(errBody))
	}

	var envelope gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("%s request failed: %s", op, envelope.Errors[0].Message)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("%s response contained no data", op)
	}
	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", op, err)
	}
	return nil
}

// doRequestWithRateLimit performs a GraphQL POST with automatic rate limit
// handling: exponential backoff on HTTP 429 (1s, 2s, 4s, 8s, 16s), honoring
// Retry-After when present. The context cancels backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, op string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Client-Platform", "web")
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close() // Explicitly ignore error - will retry anyway

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// readBodyForError reads up to 64KB of a response body for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// GraphQL operations. Field sets are the subset the projection consumes.
const (
	queryGetAccounts = `query GetAccounts {
  accounts {
    id
    displayName
    currentBalance
    displayBalance
    isHidden
    isManual
    includeInNetWorth
    dataProvider
    updatedAt
    transactionsCount
    holdingsCount
    type { display }
    subtype { display }
    institution { name }
  }
}`

	queryGetTransactions = `query GetTransactionsList($limit: Int) {
  allTransactions(limit: $limit) {
    totalCount
    results {
      id
      amount
      date
    }
  }
}`

	queryGetTransactionsSummary = `query GetTransactionsSummary {
  aggregates(fillEmptyValues: true) {
    summary {
      sumIncome
      sumExpense
      first
      last
      count
    }
  }
}`

	queryGetCashFlow = `query GetCashFlow {
  summary: aggregates(fillEmptyValues: true) {
    summary {
      sumIncome
      sumExpense
      savings
      savingsRate
    }
  }
  byCategory: aggregates(groupBy: ["category"]) {
    groupBy {
      category {
        name
        group { type }
      }
    }
    summary { sum }
  }
}`
)
