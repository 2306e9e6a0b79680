// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldPromptID  = "prompt_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Capture fields
	FieldKind       = "kind"
	FieldRound      = "round"
	FieldLimit      = "limit"
	FieldOutcome    = "outcome"
	FieldPermission = "permission"
	FieldDevice     = "device"

	// Media fields
	FieldMimeType = "mime_type"
	FieldSize     = "size_bytes"
	FieldDuration = "duration_s"
	FieldWidth    = "width"
	FieldHeight   = "height"

	// Path / URL fields
	FieldPath       = "path"
	FieldSourceURI  = "source_uri"
	FieldTargetPath = "target_path"
)
