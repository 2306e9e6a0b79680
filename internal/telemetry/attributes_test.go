// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestHTTPAttributes(t *testing.T) {
	attrs := attrMap(HTTPAttributes("POST", "/api/v1/capture/{kind}", 202))
	assert.Equal(t, "POST", attrs[HTTPMethodKey].AsString())
	assert.Equal(t, "/api/v1/capture/{kind}", attrs[HTTPRouteKey].AsString())
	assert.Equal(t, int64(202), attrs[HTTPStatusCodeKey].AsInt64())
}

func TestCaptureAttributes(t *testing.T) {
	s := attrMap(SessionAttributes("abc", "video", 3))
	assert.Equal(t, "abc", s[CaptureSessionKey].AsString())
	assert.Equal(t, "video", s[CaptureKindKey].AsString())
	assert.Equal(t, int64(3), s[CaptureLimitKey].AsInt64())

	o := attrMap(OutcomeAttributes("partial", 2))
	assert.Equal(t, "partial", o[CaptureOutcomeKey].AsString())
	assert.Equal(t, int64(2), o[CaptureCompletedKey].AsInt64())

	e := attrMap(ErrorAttributes("permission_denied", 21))
	assert.True(t, e[ErrorKey].AsBool())
	assert.Equal(t, "permission_denied", e[ErrorTypeKey].AsString())
	assert.Equal(t, int64(21), e[ErrorCodeKey].AsInt64())
}
