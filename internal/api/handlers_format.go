// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/mediacapture/internal/capture"
	"github.com/ManuGH/mediacapture/internal/media"
)

type formatRequest struct {
	FullPath string `json:"fullPath"`
	Type     string `json:"type"`
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var body formatRequest
	if err := decodeBody(r, &body, true); err != nil {
		writeBadRequest(w, "Invalid format request: "+err.Error())
		return
	}
	fd, err := s.deps.Formats.FormatData(r.Context(), body.FullPath, body.Type)
	switch {
	case errors.Is(err, media.ErrPathRequired):
		writeBadRequest(w, "File path is required")
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, ErrorBody{
			Message: "Error getting format data",
			Code:    int(capture.CodeInternal),
			Cause:   err.Error(),
		})
	default:
		writeJSON(w, http.StatusOK, fd)
	}
}
