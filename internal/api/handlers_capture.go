// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/mediacapture/internal/capture"
	xglog "github.com/ManuGH/mediacapture/internal/log"
)

type captureRequest struct {
	Limit    *int `json:"limit"`
	Duration *int `json:"duration"`
	Quality  *int `json:"quality"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	kind, err := capture.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeBadRequest(w, "Unsupported capture kind")
		return
	}
	var body captureRequest
	if err := decodeBody(r, &body, true); err != nil {
		writeBadRequest(w, "Invalid capture options: "+err.Error())
		return
	}
	if body.Quality != nil && *body.Quality != 0 && *body.Quality != 1 {
		writeBadRequest(w, "Quality must be 0 or 1")
		return
	}

	req := capture.Request{ID: uuid.NewString(), Kind: kind}
	if body.Limit != nil {
		req.Limit = *body.Limit
	}
	if body.Duration != nil {
		req.Duration = *body.Duration
	}
	req.Quality = body.Quality

	if r.URL.Query().Get("wait") == "false" {
		s.startDetached(r, req)
		w.Header().Set("Location", "/api/v1/sessions/"+req.ID)
		writeJSON(w, http.StatusAccepted, map[string]string{"sessionId": req.ID})
		return
	}

	res, err := s.deps.Capturer.Capture(r.Context(), req)
	if err != nil {
		writeCaptureError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// startDetached runs the session on the server context so it outlives the
// request, keeping the request ID and trace parent.
func (s *Server) startDetached(r *http.Request, req capture.Request) {
	ctx := xglog.ContextWithRequestID(s.ctx, xglog.RequestIDFromContext(r.Context()))
	ctx = trace.ContextWithSpanContext(ctx, trace.SpanContextFromContext(r.Context()))

	s.deps.Sessions.track(req)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.deps.Capturer.Capture(ctx, req); err != nil {
			s.logger.Debug().Err(err).
				Str(xglog.FieldSessionID, req.ID).
				Str(xglog.FieldEvent, "api.detached_session_failed").
				Msg("detached capture session failed")
		}
	}()
}
