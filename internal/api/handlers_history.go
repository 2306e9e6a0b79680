// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/mediacapture/internal/capture"
	"github.com/ManuGH/mediacapture/internal/history"
)

const maxHistoryLimit = 500

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeBadRequest(w, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}
	records, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error reading session history", capture.CodeInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.History.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found", capture.CodeInvalidArgument)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Error reading session history", capture.CodeInternal)
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}
