// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"errors"
	"fmt"
)

// Error classes. Use errors.Is against these to classify a failed session.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUserCancelled    = errors.New("user cancelled")
	ErrCaptureFailed    = errors.New("capture failed")
	ErrDescriptorBuild  = errors.New("descriptor build failed")
	ErrServiceBusy      = errors.New("capture service busy")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Code mirrors the capture error codes exposed to clients.
type Code int

const (
	CodeInternal         Code = 0
	CodeApplicationBusy  Code = 1
	CodeInvalidArgument  Code = 2
	CodeNoMediaFiles     Code = 3
	CodeNotSupported     Code = 20
	CodePermissionDenied Code = 21
)

// User-visible messages.
const (
	msgAudioDenied      = "Audio recording permission denied. Please enable microphone access in your device settings."
	msgCameraDenied     = "Camera permission denied. Please enable camera access in your device settings."
	msgVideoMicDenied   = "Microphone permission denied. Video will be recorded without audio. Please enable microphone access for video with sound."
	msgUserCancelled    = "User cancelled"
	msgCaptureFailed    = "Capture failed"
	msgDescriptorFailed = "Error creating media file"
	msgServiceBusy      = "Capture application is busy serving another request"
	msgLaunchFailed     = "No capture application available to handle the request"
)

// Error is a terminal session failure.
type Error struct {
	Code    Code
	Message string
	class   error
	Cause   error
}

func newError(class error, code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, class: class, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the class sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.class}
	}
	return []error{e.class, e.Cause}
}

// OutcomeLabel names how a finalized session ended: success, partial,
// permission_denied, cancelled, descriptor_failed, busy or failed.
func OutcomeLabel(s Session) string {
	err := s.Err
	switch {
	case err == nil && s.Completed < s.Limit:
		return "partial"
	case err == nil:
		return "success"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrUserCancelled):
		return "cancelled"
	case errors.Is(err, ErrDescriptorBuild):
		return "descriptor_failed"
	case errors.Is(err, ErrServiceBusy):
		return "busy"
	default:
		return "failed"
	}
}
