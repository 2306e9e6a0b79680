// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/capture/image", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 3, WindowSize: time.Minute})(okHandler)

	for i := range 3 {
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1").Code, "request %d", i+1)
	}

	w := hit(h, "192.168.1.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 1, body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 2, WindowSize: time.Minute})(okHandler)

	for range 2 {
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1").Code)
	}
	assert.Equal(t, http.StatusOK, hit(h, "192.168.1.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "192.168.1.1").Code)
}

func TestRateLimit_ZeroDisables(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(okHandler)
	for range 50 {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	}
}

func TestRateLimit_CustomKey(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		RequestLimit: 1,
		WindowSize:   time.Minute,
		KeyFunc:      func(*http.Request) (string, error) { return "everyone", nil },
	})(okHandler)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.2").Code)
}
