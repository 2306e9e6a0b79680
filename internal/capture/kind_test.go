// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediacapture/internal/media"
)

func TestKindProperties(t *testing.T) {
	tests := []struct {
		kind   Kind
		prefix string
		ext    string
		perms  []Permission
		direct bool
	}{
		{KindAudio, "cdv_media_capture_audio", "m4a", []Permission{PermissionMicrophone}, false},
		{KindImage, "cdv_media_capture_image", "jpg", []Permission{PermissionCamera}, true},
		{KindVideo, "cdv_media_capture_video", "mp4", []Permission{PermissionCamera, PermissionMicrophone}, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.prefix, tt.kind.FilePrefix())
			assert.Equal(t, tt.ext, tt.kind.Extension())
			assert.Equal(t, tt.perms, tt.kind.Permissions())
			assert.Equal(t, tt.direct, tt.kind.WritesDirectly())

			parsed, err := ParseKind(tt.kind.String())
			require.NoError(t, err)
			assert.Equal(t, tt.kind, parsed)
		})
	}

	_, err := ParseKind("hologram")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewSession_Defaults(t *testing.T) {
	s := newSession(Request{ID: "x", Kind: KindVideo})
	assert.Equal(t, 1, s.Limit)
	assert.Equal(t, 1, s.Quality)
	assert.Equal(t, 0, s.Completed)
	assert.NotNil(t, s.Results)
	assert.Empty(t, s.Results)
	assert.Equal(t, StateIdle, s.State)

	q := 0
	s = newSession(Request{Kind: KindVideo, Options: Options{Limit: 4, Duration: -2, Quality: &q}})
	assert.Equal(t, 4, s.Limit)
	assert.Equal(t, 0, s.Quality)
	assert.Equal(t, 0, s.Duration)
}

func TestSessionSnapshot_DoesNotAlias(t *testing.T) {
	s := newSession(Request{Kind: KindImage})
	s.Results = append(s.Results, media.MediaDescriptor{Name: "a.jpg"})

	snap := s.Snapshot()
	snap.Results[0].Name = "changed.jpg"
	assert.Equal(t, "a.jpg", s.Results[0].Name)
}

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		s    Session
		want string
	}{
		{Session{Limit: 2, Completed: 2}, "success"},
		{Session{Limit: 3, Completed: 1}, "partial"},
		{Session{Err: newError(ErrPermissionDenied, CodePermissionDenied, msgCameraDenied, nil)}, "permission_denied"},
		{Session{Err: newError(ErrUserCancelled, CodeNoMediaFiles, msgUserCancelled, nil)}, "cancelled"},
		{Session{Err: newError(ErrDescriptorBuild, CodeInternal, msgDescriptorFailed, nil)}, "descriptor_failed"},
		{Session{Err: newError(ErrServiceBusy, CodeApplicationBusy, msgServiceBusy, nil)}, "busy"},
		{Session{Err: newError(ErrCaptureFailed, CodeInternal, msgCaptureFailed, nil)}, "failed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutcomeLabel(tt.s))
	}
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := Observers(a, nil, b)
	obs.SessionUpdated(Session{State: StateLaunching})
	assert.Equal(t, []State{StateLaunching}, a.states)
	assert.Equal(t, []State{StateLaunching}, b.states)
}
