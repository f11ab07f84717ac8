// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

// Package scheduler runs the periodic update loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/finbeat/monarchmetrics/internal/logging"
)

// Runner is one update cycle. Implemented by exporter.Updater.
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler runs cycles on a fixed interval and on demand via Trigger. One
// mutex serializes every cycle regardless of origin, so a slow upstream can
// never cause overlapping cycles: a tick that fires while a cycle is running
// waits its turn instead of stacking a second fetch on top.
//
// Implements suture.Service.
type Scheduler struct {
	runner   Runner
	interval time.Duration

	mu sync.Mutex
}

// New creates a Scheduler.
func New(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: runner, interval: interval}
}

// Serve runs one immediate cycle, then ticks forever until the context is
// canceled. Cycle failures are logged and counted but never terminate the
// loop; the next tick retries.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("Update scheduler started")

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			logging.Info().Msg("Update scheduler stopping")
			return ctx.Err()
		}
	}
}

// Trigger runs one cycle on demand, waiting for any in-flight cycle first.
// Used by the HTTP surface.
func (s *Scheduler) Trigger(ctx context.Context) error {
	return s.run(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.run(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Update cycle failed")
	}
}

func (s *Scheduler) run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Run(ctx)
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "update-scheduler"
}
