// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by HTTP and capture spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPRouteKey      = "http.route"
	HTTPStatusCodeKey = "http.status_code"

	CaptureSessionKey   = "capture.session_id"
	CaptureKindKey      = "capture.kind"
	CaptureLimitKey     = "capture.limit"
	CaptureRoundKey     = "capture.round"
	CaptureCompletedKey = "capture.completed"
	CaptureOutcomeKey   = "capture.outcome"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
	ErrorCodeKey = "error.code"
)

// HTTPAttributes describes a served request.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes describes a capture session at start.
func SessionAttributes(sessionID, kind string, limit int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CaptureSessionKey, sessionID),
		attribute.String(CaptureKindKey, kind),
		attribute.Int(CaptureLimitKey, limit),
	}
}

// OutcomeAttributes describes how a session or round ended.
func OutcomeAttributes(outcome string, completed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CaptureOutcomeKey, outcome),
		attribute.Int(CaptureCompletedKey, completed),
	}
}

// ErrorAttributes flags a span as failed with a client-visible error code.
func ErrorAttributes(errorType string, code int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
		attribute.Int(ErrorCodeKey, code),
	}
}
