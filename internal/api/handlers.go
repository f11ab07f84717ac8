// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/finbeat/monarchmetrics/internal/auth"
	"github.com/finbeat/monarchmetrics/internal/logging"
	"github.com/finbeat/monarchmetrics/internal/monarch"
)

// Triggerer runs one on-demand update cycle. Implemented by
// scheduler.Scheduler.
type Triggerer interface {
	Trigger(ctx context.Context) error
}

// Handler carries the operational endpoints' dependencies.
type Handler struct {
	api       monarch.API
	status    *auth.Status
	auth      *auth.Authenticator
	triggerer Triggerer
}

// NewHandler creates a Handler.
func NewHandler(api monarch.API, status *auth.Status, authenticator *auth.Authenticator, triggerer Triggerer) *Handler {
	return &Handler{
		api:       api,
		status:    status,
		auth:      authenticator,
		triggerer: triggerer,
	}
}

// statusResponse is the body of GET /. The shape is an external contract;
// the MFA-pending flag is visible on the metrics endpoint instead.
type statusResponse struct {
	LoggedIn bool `json:"logged_in"`
}

// Status reports the authentication state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		LoggedIn: h.status.LoggedIn(),
	})
}

// Healthz is the liveness probe. It reports process health only; auth state
// is visible on / and in the metrics, and a pod restart would not fix a
// logged-out session anyway.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeOK(w)
}

// MFAToken completes a pending second-factor challenge with the token from
// the URL path.
func (h *Handler) MFAToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing MFA token")
		return
	}
	if !h.status.MFAPending() {
		writeError(w, http.StatusConflict, "no MFA challenge pending")
		return
	}

	if err := h.auth.CompleteMFA(r.Context(), token); err != nil {
		logging.Warn().Err(err).Msg("MFA completion via HTTP failed")
		writeError(w, http.StatusBadGateway, "MFA completion failed")
		return
	}

	writeOK(w)
}

// UpdateLoop triggers one update cycle and waits for it.
func (h *Handler) UpdateLoop(w http.ResponseWriter, r *http.Request) {
	if err := h.triggerer.Trigger(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("On-demand update cycle failed")
		writeError(w, http.StatusBadGateway, "update cycle failed")
		return
	}
	writeOK(w)
}

// Accounts returns the latest accounts snapshot straight from upstream,
// for debugging label values against the raw data.
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	if !h.status.LoggedIn() {
		writeError(w, http.StatusServiceUnavailable, "not authenticated")
		return
	}

	accounts, err := h.api.GetAccounts(r.Context())
	if err != nil {
		logging.Warn().Err(err).Msg("Accounts fetch via HTTP failed")
		writeError(w, http.StatusBadGateway, "accounts fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// writeOK is the bare success body shared by the action endpoints and
// /healthz.
func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
