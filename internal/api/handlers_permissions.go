// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/mediacapture/internal/capture"
	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/permission"
)

type permissionsResponse struct {
	Grants  map[capture.Permission]permission.Grant `json:"grants"`
	Pending []permission.Prompt                     `json:"pending"`
}

func (s *Server) handlePermissions(w http.ResponseWriter, _ *http.Request) {
	pending := s.deps.Permissions.Pending()
	if pending == nil {
		pending = []permission.Prompt{}
	}
	writeJSON(w, http.StatusOK, permissionsResponse{
		Grants:  s.deps.Permissions.Grants(),
		Pending: pending,
	})
}

type resolveRequest struct {
	Grant *bool `json:"grant"`
}

func (s *Server) handleResolvePrompt(w http.ResponseWriter, r *http.Request) {
	var body resolveRequest
	if err := decodeBody(r, &body, false); err != nil || body.Grant == nil {
		writeBadRequest(w, "Body must be {\"grant\": true|false}")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Permissions.Resolve(id, *body.Grant); err != nil {
		if errors.Is(err, permission.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "Permission prompt not found", capture.CodeInvalidArgument)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), capture.CodeInternal)
		return
	}
	logger := xglog.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(xglog.FieldEvent, "permission.prompt_resolved").
		Str(xglog.FieldPromptID, id).
		Bool("granted", *body.Grant).
		Msg("permission prompt resolved")
	w.WriteHeader(http.StatusNoContent)
}

type grantRequest struct {
	Grant string `json:"grant"`
}

func (s *Server) handleSetGrant(w http.ResponseWriter, r *http.Request) {
	p, err := permission.ParsePermission(chi.URLParam(r, "permission"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown permission", capture.CodeInvalidArgument)
		return
	}
	var body grantRequest
	if err := decodeBody(r, &body, false); err != nil {
		writeBadRequest(w, "Body must be {\"grant\": \"granted|denied|undetermined\"}")
		return
	}
	g, err := permission.ParseGrant(body.Grant)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.deps.Permissions.SetGrant(p, g); err != nil {
		writeError(w, http.StatusInternalServerError, "Error saving permission", capture.CodeInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"permission": string(p), "grant": string(g)})
}
