// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/mediacapture/internal/capture"
	xglog "github.com/ManuGH/mediacapture/internal/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Cause   string `json:"cause,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, code capture.Code) {
	writeJSON(w, status, ErrorBody{Message: message, Code: int(code)})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message, capture.CodeInvalidArgument)
}

// captureErrorBody maps a session failure to its HTTP status and body.
func captureErrorBody(err error) (int, ErrorBody) {
	var ce *capture.Error
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError, ErrorBody{Message: "Internal error", Code: int(capture.CodeInternal), Cause: err.Error()}
	}
	body := ErrorBody{Message: ce.Message, Code: int(ce.Code)}
	if ce.Cause != nil {
		body.Cause = ce.Cause.Error()
	}
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return http.StatusForbidden, body
	case errors.Is(err, capture.ErrUserCancelled), errors.Is(err, capture.ErrServiceBusy):
		return http.StatusConflict, body
	case errors.Is(err, capture.ErrInvalidArgument):
		return http.StatusBadRequest, body
	case errors.Is(err, capture.ErrCaptureFailed):
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeCaptureError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := captureErrorBody(err)
	if status >= http.StatusInternalServerError {
		logger := xglog.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "api.capture_error").
			Int("status", status).
			Msg("capture request failed")
	}
	writeJSON(w, status, body)
}
