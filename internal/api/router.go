// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package api is the exporter's HTTP surface: the Prometheus scrape endpoint
// plus a small operational API for auth status, MFA token delivery, and
// on-demand update triggers.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finbeat/monarchmetrics/internal/logging"
)

// NewRouter builds the full route tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging)
	r.Use(chimiddleware.Recoverer)

	// The scrape endpoint stays unthrottled: Prometheus controls its own
	// cadence and a rate limit here would only produce scrape gaps.
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", h.Healthz)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))

		r.Get("/", h.Status)
		r.Get("/accounts", h.Accounts)
		r.Post("/update_loop", h.UpdateLoop)
		r.Get("/update_loop", h.UpdateLoop)
		r.Post("/mfa_token/{token}", h.MFAToken)
		r.Get("/mfa_token/{token}", h.MFAToken)
	})

	return r
}

// requestLogging logs one line per request at debug level. The scrape
// endpoint fires every few seconds, so anything louder drowns the log.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
