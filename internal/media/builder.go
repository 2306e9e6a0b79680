// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrPathRequired is returned by FormatData when no path was supplied.
	ErrPathRequired = errors.New("file path is required")
	// ErrFormatData wraps an unexpected probe failure surfaced by FormatData.
	ErrFormatData = errors.New("error getting format data")
)

// Builder produces media and format descriptors. It holds no per-call state.
type Builder struct {
	fs     FileSystem
	images ImageProber
	media  MediaProber
	logger zerolog.Logger
}

// NewBuilder wires a Builder to its collaborators.
func NewBuilder(fs FileSystem, images ImageProber, media MediaProber) *Builder {
	return &Builder{
		fs:     fs,
		images: images,
		media:  media,
		logger: xglog.WithComponent("media"),
	}
}

// BuildMediaDescriptor stats the file at path and resolves its mime type.
// Only a stat failure is an error; an unresolved mime type leaves Type empty.
func (b *Builder) BuildMediaDescriptor(path string) (MediaDescriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return MediaDescriptor{}, fmt.Errorf("resolve path %s: %w", path, err)
	}
	st, err := b.fs.Stat(abs)
	if err != nil {
		return MediaDescriptor{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	uri := "file://" + abs
	return MediaDescriptor{
		Name:             filepath.Base(abs),
		FullPath:         uri,
		Type:             b.fs.MimeType(uri),
		LastModifiedDate: st.ModTime.UnixMilli(),
		Size:             st.Size,
	}, nil
}

// BuildFormatDescriptor never fails: probe errors are logged and the
// affected fields keep their zero defaults.
func (b *Builder) BuildFormatDescriptor(ctx context.Context, fullPath, mimeHint string) FormatDescriptor {
	var fd FormatDescriptor

	uri, local := normalizePath(fullPath)
	mimeType := mimeHint
	if mimeType == "" || mimeType == "null" {
		mimeType = b.fs.MimeType(uri)
	}

	logger := xglog.WithContext(ctx, b.logger)
	class := Classify(mimeType, fullPath)
	logger.Debug().
		Str(xglog.FieldEvent, "media.classified").
		Str(xglog.FieldPath, local).
		Str(xglog.FieldMimeType, mimeType).
		Str("class", class.String()).
		Msg("classified media file")

	switch class {
	case ClassImage:
		w, h, err := b.images.Bounds(local)
		if err != nil {
			metrics.ProbeFailures.WithLabelValues("image").Inc()
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "media.probe_failed").
				Str(xglog.FieldPath, local).
				Msg("image bounds probe failed")
			return fd
		}
		fd.Width, fd.Height = w, h
	case ClassAudio:
		b.probeGeometry(ctx, logger, local, false, &fd)
	case ClassVideo:
		b.probeGeometry(ctx, logger, local, true, &fd)
	}
	return fd
}

func (b *Builder) probeGeometry(ctx context.Context, logger zerolog.Logger, path string, video bool, fd *FormatDescriptor) {
	h, err := b.media.Open(ctx, path)
	if err != nil {
		metrics.ProbeFailures.WithLabelValues("media").Inc()
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "media.probe_failed").
			Str(xglog.FieldPath, path).
			Msg("error loading media file")
		return
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			logger.Debug().Err(cerr).Str(xglog.FieldPath, path).Msg("release probe handle")
		}
	}()

	fd.Duration = int(h.DurationMillis() / 1000)
	if video {
		fd.Width, fd.Height = h.VideoSize()
	}
}

// FormatData is the client-facing entry point: it rejects a missing path
// and converts a panicking probe into ErrFormatData.
func (b *Builder) FormatData(ctx context.Context, fullPath, mimeHint string) (fd FormatDescriptor, err error) {
	if strings.TrimSpace(fullPath) == "" {
		return FormatDescriptor{}, ErrPathRequired
	}
	defer func() {
		if r := recover(); r != nil {
			fd = FormatDescriptor{}
			err = fmt.Errorf("%w: %v", ErrFormatData, r)
		}
	}()
	return b.BuildFormatDescriptor(ctx, fullPath, mimeHint), nil
}

// normalizePath returns the URI used for mime resolution and the local
// path handed to probes. Bare paths and file: URIs are both accepted.
func normalizePath(fullPath string) (uri, local string) {
	if strings.HasPrefix(fullPath, "file:") {
		if u, err := url.Parse(fullPath); err == nil && u.Path != "" {
			return fullPath, u.Path
		}
		return fullPath, strings.TrimPrefix(strings.TrimPrefix(fullPath, "file:"), "//")
	}
	abs := fullPath
	if a, err := filepath.Abs(fullPath); err == nil {
		abs = a
	}
	return "file://" + abs, abs
}
