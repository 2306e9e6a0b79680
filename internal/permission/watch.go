// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package permission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	xglog "github.com/ManuGH/mediacapture/internal/log"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the store whenever the grant file changes on disk and
// blocks until ctx is done. The parent directory is watched because
// atomic replacement swaps the file's inode.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		s.logger.Info().Str(xglog.FieldEvent, "permission.watcher_disabled").Msg("grant store is in-memory; not watching")
		<-ctx.Done()
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create grant directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.logger.Info().
		Str(xglog.FieldEvent, "permission.watcher_started").
		Str(xglog.FieldPath, s.path).
		Msg("watching grant file for changes")

	target := filepath.Base(s.path)
	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				debounce.Reset(reloadDebounce)
			}
		case <-debounce.C:
			if err := s.Reload(); err != nil {
				s.logger.Error().Err(err).
					Str(xglog.FieldEvent, "permission.reload_failed").
					Msg("grant file reload failed; keeping previous grants")
				continue
			}
			s.logger.Info().
				Str(xglog.FieldEvent, "permission.reloaded").
				Msg("grant file reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Str(xglog.FieldEvent, "permission.watcher_error").Msg("fsnotify watcher error")
		}
	}
}
