// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"context"

	"github.com/ManuGH/mediacapture/internal/media"
)

// PermissionGate is the permission subsystem.
type PermissionGate interface {
	// Check reports whether p is currently granted.
	Check(ctx context.Context, p Permission) bool
	// Request asks for all of perms in one prompt. The channel delivers
	// exactly one response and may be resolved on any goroutine.
	// Permissions missing from the response are re-checked with Check.
	Request(ctx context.Context, perms []Permission) <-chan map[Permission]bool
}

// LaunchRequest describes one capture round.
type LaunchRequest struct {
	SessionID string
	Kind      Kind
	Round     int
	// Output is where the service must write the file. Empty for audio,
	// where the service reports its own content URI.
	Output   string
	Duration int
	Quality  int
}

// CaptureService is the external capture application. Launch returns a
// channel that delivers exactly one Outcome.
type CaptureService interface {
	Launch(ctx context.Context, req LaunchRequest) (<-chan Outcome, error)
}

// ContentCopier copies a service-owned content URI to a local path.
type ContentCopier interface {
	Copy(ctx context.Context, sourceURI, destPath string) error
}

// DescriptorBuilder turns a captured file into a MediaDescriptor.
type DescriptorBuilder interface {
	BuildMediaDescriptor(path string) (media.MediaDescriptor, error)
}

// Observer receives a snapshot after each session state change.
type Observer interface {
	SessionUpdated(s Session)
}

// Observers fans session updates out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) SessionUpdated(s Session) {
	for _, o := range m {
		o.SessionUpdated(s.Snapshot())
	}
}
