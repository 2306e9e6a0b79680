// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fsresolver is the filesystem and content layer behind media
// descriptors: it stats files, resolves mime types for file and content
// URIs, and copies service-owned content into the capture directory.
package fsresolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/media"
)

// ErrUnknownContent is returned for content URIs whose authority is not
// registered or whose path escapes its root.
var ErrUnknownContent = errors.New("unknown content uri")

const sniffLen = 512

// Resolver implements media.FileSystem and capture.ContentCopier.
type Resolver struct {
	roots  map[string]string
	logger zerolog.Logger
}

var _ media.FileSystem = (*Resolver)(nil)

// New creates a Resolver. contentRoots maps a content:// authority to the
// directory it serves.
func New(contentRoots map[string]string) *Resolver {
	roots := make(map[string]string, len(contentRoots))
	for k, v := range contentRoots {
		roots[k] = filepath.Clean(v)
	}
	return &Resolver{roots: roots, logger: xglog.WithComponent("fsresolver")}
}

// Stat returns size and modification time of a local path.
func (r *Resolver) Stat(path string) (media.FileStat, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return media.FileStat{}, err
	}
	if fi.IsDir() {
		return media.FileStat{}, fmt.Errorf("%s is a directory", path)
	}
	return media.FileStat{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// MimeType resolves content: URIs through the content layer and
// everything else through the extension table. Empty means unknown.
func (r *Resolver) MimeType(uri string) string {
	if !strings.HasPrefix(uri, "content:") {
		return media.MimeTypeForExtension(uri)
	}
	local, err := r.Local(uri)
	if err != nil {
		r.logger.Debug().Err(err).Str(xglog.FieldSourceURI, uri).Msg("content mime lookup")
		return ""
	}
	if t := media.MimeTypeForExtension(local); t != "" {
		return t
	}
	return sniff(local)
}

// Local maps a bare path, file: URI or registered content: URI to a
// local filesystem path.
func (r *Resolver) Local(uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "file:"):
		u, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", uri, err)
		}
		if u.Path == "" {
			return "", fmt.Errorf("file uri %s has no path", uri)
		}
		return u.Path, nil
	case strings.HasPrefix(uri, "content:"):
		u, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", uri, err)
		}
		root, ok := r.roots[u.Host]
		if !ok {
			return "", fmt.Errorf("%w: authority %q", ErrUnknownContent, u.Host)
		}
		p := filepath.Join(root, filepath.FromSlash(u.Path))
		if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s escapes %s", ErrUnknownContent, uri, root)
		}
		return p, nil
	}
	return uri, nil
}

// Copy writes the content behind sourceURI to destPath. The destination
// appears atomically or not at all.
func (r *Resolver) Copy(ctx context.Context, sourceURI, destPath string) (err error) {
	logger := xglog.WithContext(ctx, r.logger)
	src, err := r.Local(sourceURI)
	if err != nil {
		return err
	}
	in, err := os.Open(src) // #nosec G304 -- resolved from a service-reported uri
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	pending, err := renameio.NewPendingFile(destPath, renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil {
			logger.Debug().Err(cerr).Str(xglog.FieldTargetPath, destPath).Msg("cleanup pending copy")
		}
	}()

	n, err := io.Copy(pending, &ctxReader{ctx: ctx, r: in})
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", destPath, err)
	}

	logger.Debug().
		Str(xglog.FieldEvent, "media.copied").
		Str(xglog.FieldSourceURI, sourceURI).
		Str(xglog.FieldTargetPath, destPath).
		Int64(xglog.FieldSize, n).
		Msg("content copied")
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func sniff(path string) string {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, buf)
	if n == 0 {
		return ""
	}
	t, _, err := mime.ParseMediaType(http.DetectContentType(buf[:n]))
	if err != nil || t == "application/octet-stream" {
		return ""
	}
	return t
}
