// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"slices"

	"github.com/ManuGH/mediacapture/internal/media"
)

// State is the lifecycle position of a session.
type State int

const (
	StateIdle State = iota
	StatePermissionPending
	StateLaunching
	StateAwaitingCompletion
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePermissionPending:
		return "permission_pending"
	case StateLaunching:
		return "launching"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// Options are the client-supplied capture parameters.
type Options struct {
	// Limit is the number of captures requested; values < 1 mean 1.
	Limit int
	// Duration caps a recording in seconds; only applied when > 0.
	Duration int
	// Quality selects video quality: 0 low, 1 high. Nil means 1.
	Quality *int
}

// Request starts one capture session.
type Request struct {
	ID   string
	Kind Kind
	Options
}

// Session is the continuation state of one request. Each orchestration
// step takes a Session value and returns the updated value.
type Session struct {
	ID          string
	Kind        Kind
	Limit       int
	Duration    int
	Quality     int
	Completed   int
	Results     []media.MediaDescriptor
	PendingPath string
	State       State
	Err         error
}

func newSession(req Request) Session {
	limit := req.Limit
	if limit < 1 {
		limit = 1
	}
	quality := 1
	if req.Quality != nil {
		quality = *req.Quality
	}
	duration := req.Duration
	if duration < 0 {
		duration = 0
	}
	return Session{
		ID:       req.ID,
		Kind:     req.Kind,
		Limit:    limit,
		Duration: duration,
		Quality:  quality,
		Results:  []media.MediaDescriptor{},
		State:    StateIdle,
	}
}

// Snapshot returns a copy that shares no mutable memory with s.
func (s Session) Snapshot() Session {
	s.Results = slices.Clone(s.Results)
	return s
}

// Result is the successful outcome of a session.
type Result struct {
	SessionID string                  `json:"sessionId"`
	Files     []media.MediaDescriptor `json:"files"`
	// Partial is set when the client cancelled after at least one round.
	Partial bool `json:"partial,omitempty"`
}

// OutcomeStatus tags a capture service completion event.
type OutcomeStatus int

const (
	OutcomeCompleted OutcomeStatus = iota + 1
	OutcomeCancelled
	OutcomeFailed
)

func (o OutcomeStatus) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the completion event of one capture round.
type Outcome struct {
	Status OutcomeStatus
	// URI is the content location reported by the service (audio only).
	URI string
	// Err describes a failed round.
	Err error
}
