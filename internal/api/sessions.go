// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"cmp"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/mediacapture/internal/capture"
	"github.com/ManuGH/mediacapture/internal/infra/ffmpeg"
	"github.com/ManuGH/mediacapture/internal/media"
)

const defaultRetention = 15 * time.Minute

// SessionView is the client-visible state of a session.
type SessionView struct {
	SessionID string                  `json:"sessionId"`
	Kind      string                  `json:"kind"`
	State     string                  `json:"state"`
	Limit     int                     `json:"limit"`
	Completed int                     `json:"completed"`
	Files     []media.MediaDescriptor `json:"files"`
	Error     *ErrorBody              `json:"error,omitempty"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func viewOf(s capture.Session, at time.Time) SessionView {
	v := SessionView{
		SessionID: s.ID,
		Kind:      s.Kind.String(),
		State:     s.State.String(),
		Limit:     s.Limit,
		Completed: s.Completed,
		Files:     s.Results,
		UpdatedAt: at,
	}
	if v.Files == nil {
		v.Files = []media.MediaDescriptor{}
	}
	if s.Err != nil {
		_, body := captureErrorBody(s.Err)
		v.Error = &body
	}
	return v
}

// Registry keeps the latest snapshot of every live session and of recently
// finalized ones. It implements capture.Observer.
type Registry struct {
	retention time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]SessionView
}

// NewRegistry creates a registry that forgets finalized sessions after
// retention (default 15 minutes).
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Registry{retention: retention, now: time.Now, sessions: map[string]SessionView{}}
}

// SessionUpdated implements capture.Observer.
func (r *Registry) SessionUpdated(s capture.Session) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = viewOf(s, now)
	r.pruneLocked(now)
}

// track registers a session before its first update arrives.
func (r *Registry) track(req capture.Request) {
	s := capture.Session{ID: req.ID, Kind: req.Kind, Limit: max(req.Limit, 1), State: capture.StateIdle}
	r.SessionUpdated(s)
}

func (r *Registry) pruneLocked(now time.Time) {
	finalized := capture.StateFinalized.String()
	for id, v := range r.sessions {
		if v.State == finalized && now.Sub(v.UpdatedAt) > r.retention {
			delete(r.sessions, id)
		}
	}
}

// Get returns the latest view of a session.
func (r *Registry) Get(id string) (SessionView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.sessions[id]
	return v, ok
}

// List returns every known session, most recently updated first.
func (r *Registry) List() []SessionView {
	r.mu.RLock()
	out := make([]SessionView, 0, len(r.sessions))
	for _, v := range r.sessions {
		out = append(out, v)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b SessionView) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.SessionID, b.SessionID))
	})
	return out
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.deps.Sessions.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	v, ok := s.deps.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", capture.CodeInvalidArgument)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleStopRound(w http.ResponseWriter, r *http.Request) {
	s.signalRound(w, r, "stop", s.deps.Rounds.Stop)
}

func (s *Server) handleCancelRound(w http.ResponseWriter, r *http.Request) {
	s.signalRound(w, r, "cancel", s.deps.Rounds.Cancel)
}

func (s *Server) signalRound(w http.ResponseWriter, r *http.Request, action string, signal func(string) error) {
	id := chi.URLParam(r, "id")
	if _, ok := s.deps.Sessions.Get(id); !ok {
		writeError(w, http.StatusNotFound, "Session not found", capture.CodeInvalidArgument)
		return
	}
	if err := signal(id); err != nil {
		if errors.Is(err, ffmpeg.ErrNoActiveCapture) {
			writeError(w, http.StatusConflict, "No capture in progress for session", capture.CodeApplicationBusy)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), capture.CodeInternal)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"sessionId": id, "action": action})
}
