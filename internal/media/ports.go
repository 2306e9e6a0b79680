// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"context"
	"time"
)

// FileStat is the subset of file metadata the builder needs.
type FileStat struct {
	Size    int64
	ModTime time.Time
}

// FileSystem is the filesystem/content-resolution layer.
type FileSystem interface {
	// Stat returns size and modification time of a local path.
	Stat(path string) (FileStat, error)
	// MimeType resolves the mime type of a file or content URI.
	// An empty string means the type could not be resolved.
	MimeType(uri string) string
}

// ImageProber decodes only the bounds of an image file.
type ImageProber interface {
	Bounds(path string) (width, height int, err error)
}

// MediaProber opens a media file for duration/geometry inspection.
type MediaProber interface {
	Open(ctx context.Context, path string) (MediaHandle, error)
}

// MediaHandle is an opened probe resource. Close must be called on every
// exit path once Open has returned a handle.
type MediaHandle interface {
	DurationMillis() int64
	VideoSize() (width, height int)
	Close() error
}
