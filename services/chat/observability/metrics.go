// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the chat
// service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the chat
// pipeline. Metrics include:
//   - Request counters (by endpoint, status)
//   - Pipeline stage latency histograms
//   - Classifier verdict counters
//   - Web search outcome counters
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for chat pipeline metrics
const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for chat pipeline operations.
//
// Initialize once at startup via InitMetrics(). All operations are
// thread-safe. Helper methods tolerate a nil receiver so components can run
// without metrics in tests.
type ChatMetrics struct {
	// RequestsTotal counts chat requests by endpoint and status.
	// Labels: endpoint (chat, upload, conversations), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// StageDurationSeconds measures per-stage pipeline latency.
	// Labels: stage (classify, search, complete, persist)
	StageDurationSeconds *prometheus.HistogramVec

	// ClassifierVerdictsTotal counts classifier outcomes.
	// Labels: classifier (relevance, search), verdict (yes, no)
	ClassifierVerdictsTotal *prometheus.CounterVec

	// SearchesTotal counts web search outcomes.
	// Labels: outcome (answered, no_answer, skipped, error)
	SearchesTotal *prometheus.CounterVec

	// ErrorsTotal counts pipeline errors by stage.
	// Labels: stage, error_code (classifier_error, llm_error, store_error, ...)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of ChatMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ChatMetrics

// InitMetrics initializes the default metrics instance.
//
// Creates and registers all Prometheus metrics. Call once at application
// startup; a second call panics on duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total number of chat requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage"},
		),

		ClassifierVerdictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "classifier_verdicts_total",
				Help:      "Classifier verdicts by classifier and outcome",
			},
			[]string{"classifier", "verdict"},
		),

		SearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "searches_total",
				Help:      "Web search outcomes",
			},
			[]string{"outcome"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Pipeline errors by stage and error code",
			},
			[]string{"stage", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Label Values
// =============================================================================

// SearchOutcome labels a web search result for metrics.
type SearchOutcome string

const (
	SearchOutcomeAnswered SearchOutcome = "answered"
	SearchOutcomeNoAnswer SearchOutcome = "no_answer"
	SearchOutcomeSkipped  SearchOutcome = "skipped"
	SearchOutcomeError    SearchOutcome = "error"
)

// ErrorCode categorizes a pipeline error for metrics.
type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation"
	ErrorCodeClassifier ErrorCode = "classifier_error"
	ErrorCodeLLMError   ErrorCode = "llm_error"
	ErrorCodeStoreError ErrorCode = "store_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *ChatMetrics) RecordRequest(endpoint string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordStage records one pipeline stage's duration.
func (m *ChatMetrics) RecordStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordVerdict records a classifier verdict.
func (m *ChatMetrics) RecordVerdict(classifier string, yes bool) {
	if m == nil {
		return
	}
	verdict := "no"
	if yes {
		verdict = "yes"
	}
	m.ClassifierVerdictsTotal.WithLabelValues(classifier, verdict).Inc()
}

// RecordSearch records a web search outcome.
func (m *ChatMetrics) RecordSearch(outcome SearchOutcome) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordError records a pipeline error.
func (m *ChatMetrics) RecordError(stage string, code ErrorCode) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage, string(code)).Inc()
}
