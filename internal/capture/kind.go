// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"fmt"
	"strings"
)

// Kind selects the capture type of a session.
type Kind int

const (
	KindAudio Kind = iota + 1
	KindImage
	KindVideo
)

// Permission names a hardware permission a kind may require.
type Permission string

const (
	PermissionCamera     Permission = "camera"
	PermissionMicrophone Permission = "microphone"
)

// Namespace scopes the capture directory under the cache root.
const Namespace = "io.mediacapture"

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts "audio", "image" or "video" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audio":
		return KindAudio, nil
	case "image":
		return KindImage, nil
	case "video":
		return KindVideo, nil
	}
	return 0, fmt.Errorf("%w: unknown capture kind %q", ErrInvalidArgument, s)
}

// Permissions returns the full permission set the kind requires.
// Video asks for both in one compound prompt.
func (k Kind) Permissions() []Permission {
	switch k {
	case KindAudio:
		return []Permission{PermissionMicrophone}
	case KindImage:
		return []Permission{PermissionCamera}
	case KindVideo:
		return []Permission{PermissionCamera, PermissionMicrophone}
	}
	return nil
}

// FilePrefix is the name prefix of files produced by the kind.
func (k Kind) FilePrefix() string {
	return "cdv_media_capture_" + k.String()
}

// Extension is the file extension (without dot) of files produced by the kind.
func (k Kind) Extension() string {
	switch k {
	case KindAudio:
		return "m4a"
	case KindImage:
		return "jpg"
	case KindVideo:
		return "mp4"
	}
	return "bin"
}

// WritesDirectly reports whether the capture service writes straight into
// the destination. Audio is delivered as a content URI and copied instead.
func (k Kind) WritesDirectly() bool {
	return k == KindImage || k == KindVideo
}

func (k Kind) valid() bool {
	return k >= KindAudio && k <= KindVideo
}
