// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Command server runs the Monarch Money Prometheus exporter.
//
// Startup order: configuration, logging, upstream client, authentication,
// then the supervised services (update scheduler and HTTP server). The
// process exits non-zero when authentication is exhausted; it stays up in
// the MFA-pending state so the token can arrive over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/finbeat/monarchmetrics/internal/api"
	"github.com/finbeat/monarchmetrics/internal/auth"
	"github.com/finbeat/monarchmetrics/internal/config"
	"github.com/finbeat/monarchmetrics/internal/exporter"
	"github.com/finbeat/monarchmetrics/internal/logging"
	"github.com/finbeat/monarchmetrics/internal/monarch"
	"github.com/finbeat/monarchmetrics/internal/scheduler"
	"github.com/finbeat/monarchmetrics/internal/session"
	"github.com/finbeat/monarchmetrics/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "monarchmetrics: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("base_url", cfg.Monarch.BaseURL).Dur("interval", cfg.Update.Interval()).Msg("Starting monarchmetrics")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	upstream := monarch.NewBreaker(monarch.NewClient(&cfg.Monarch))
	store := session.NewFileStore(cfg.Monarch.SessionFile)
	status := auth.NewStatus()
	authenticator := auth.New(upstream, store, status, &cfg.Monarch)

	if err := authenticator.Authenticate(ctx); err != nil {
		if !errors.Is(err, auth.ErrMFAPending) {
			return fmt.Errorf("authentication failed: %w", err)
		}
		logging.Warn().Msg("Waiting for MFA token via /mfa_token/{token}")
	}

	updater := exporter.NewUpdater(upstream, status, cfg.Update.Timeout)
	sched := scheduler.New(updater, cfg.Update.Interval())

	handler := api.NewHandler(upstream, status, authenticator, sched)
	server := api.NewServer(&cfg.Server, api.NewRouter(handler))

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPollerService(sched)
	tree.AddAPIService(server)

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor terminated: %w", err)
	}

	if unstopped, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services missed the shutdown timeout")
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
