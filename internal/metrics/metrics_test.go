// Monarchmetrics - Monarch Money Prometheus Exporter
// Copyright 2026 S. Veldman (finbeat)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/finbeat/monarchmetrics

package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetLoggedIn(t *testing.T) {
	SetLoggedIn(true)
	if got := testutil.ToFloat64(LoggedIn); got != 1.0 {
		t.Errorf("monarch_logged_in = %v, want 1", got)
	}

	SetLoggedIn(false)
	if got := testutil.ToFloat64(LoggedIn); got != 0.0 {
		t.Errorf("monarch_logged_in = %v, want 0", got)
	}
}

func TestSetMFAPending(t *testing.T) {
	SetMFAPending(true)
	if got := testutil.ToFloat64(MFAPending); got != 1.0 {
		t.Errorf("monarch_mfa_pending = %v, want 1", got)
	}
	SetMFAPending(false)
	if got := testutil.ToFloat64(MFAPending); got != 0.0 {
		t.Errorf("monarch_mfa_pending = %v, want 0", got)
	}
}

func TestRecordUpdateLoopSuccess(t *testing.T) {
	before := testutil.ToFloat64(UpdateLoopsTotal)

	now := time.Date(2024, 6, 1, 12, 0, 0, 500_000_000, time.UTC)
	RecordUpdateLoopSuccess(now)

	if got := testutil.ToFloat64(UpdateLoopsTotal); got != before+1 {
		t.Errorf("loop counter = %v, want %v", got, before+1)
	}
	want := 1717243200.5
	if got := testutil.ToFloat64(LastUpdateLoopAt); math.Abs(got-want) > 1e-6 {
		t.Errorf("last update loop at = %v, want %v", got, want)
	}
}

func TestRecordUpdateLoopError(t *testing.T) {
	before := testutil.ToFloat64(UpdateLoopErrors.WithLabelValues("accounts"))
	RecordUpdateLoopError("accounts")
	after := testutil.ToFloat64(UpdateLoopErrors.WithLabelValues("accounts"))
	if after != before+1 {
		t.Errorf("error counter = %v, want %v", after, before+1)
	}
}

func TestEpochSeconds(t *testing.T) {
	tests := []struct {
		t    time.Time
		want float64
	}{
		{time.Unix(0, 0), 0},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1704067200},
		{time.Unix(10, 250_000_000), 10.25},
	}
	for _, tt := range tests {
		if got := EpochSeconds(tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EpochSeconds(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}
