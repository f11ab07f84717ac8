// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/finbeat/monarchmetrics/internal/config"
	"github.com/finbeat/monarchmetrics/internal/logging"
)

// Server runs the HTTP surface as a supervised service.
//
// Implements suture.Service.
type Server struct {
	srv *http.Server
}

// NewServer creates a Server bound to the configured address.
func NewServer(cfg *config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			IdleTimeout:  2 * cfg.Timeout,
		},
	}
}

// Serve listens until the context is canceled, then shuts down gracefully
// with a 10 second drain window.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("HTTP server shutdown was not clean")
		}
		return ctx.Err()
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string {
	return "http-server"
}
