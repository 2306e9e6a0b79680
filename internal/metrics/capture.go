// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts capture sessions by kind.
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_sessions_started_total",
		Help: "Capture sessions started",
	}, []string{"kind"})

	// SessionsFinalized counts finalized sessions by kind and outcome
	// (success, partial, permission_denied, cancelled, failed, descriptor_failed, busy).
	SessionsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_sessions_finalized_total",
		Help: "Capture sessions finalized",
	}, []string{"kind", "outcome"})

	// SessionsActive tracks sessions that have not been finalized yet.
	SessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mediacapture_sessions_active",
		Help: "Capture sessions currently in flight",
	}, []string{"kind"})

	// RoundsTotal counts capture rounds by kind and completion outcome.
	RoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_rounds_total",
		Help: "Capture rounds by completion outcome",
	}, []string{"kind", "outcome"})

	// RoundDuration observes launch-to-completion latency of a round.
	RoundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediacapture_round_duration_seconds",
		Help:    "Time from capture launch to completion event",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 14), // 50ms to ~7min
	}, []string{"kind"})

	// PermissionPrompts counts permission prompts by result.
	PermissionPrompts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_permission_prompts_total",
		Help: "Permission prompts by result",
	}, []string{"result"})

	// ProbeFailures counts swallowed format-probe failures.
	ProbeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediacapture_probe_failures_total",
		Help: "Format probe failures that were absorbed into default values",
	}, []string{"probe"})

	// CopyFailures counts swallowed audio content copy failures.
	CopyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediacapture_copy_failures_total",
		Help: "Audio content copy failures that were logged and ignored",
	})
)
