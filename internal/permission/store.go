// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package permission persists hardware permission grants and resolves
// permission prompts on behalf of capture sessions.
package permission

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/mediacapture/internal/capture"
	xglog "github.com/ManuGH/mediacapture/internal/log"
)

// Grant is the persisted state of one permission.
type Grant string

const (
	GrantUndetermined Grant = "undetermined"
	GrantGranted      Grant = "granted"
	GrantDenied       Grant = "denied"
)

// ErrUnknownPermission is returned for permissions the store does not track.
var ErrUnknownPermission = errors.New("unknown permission")

// ParseGrant validates a grant value.
func ParseGrant(s string) (Grant, error) {
	switch g := Grant(s); g {
	case GrantUndetermined, GrantGranted, GrantDenied:
		return g, nil
	}
	return "", fmt.Errorf("invalid grant %q (want granted, denied or undetermined)", s)
}

// ParsePermission validates a permission name.
func ParsePermission(s string) (capture.Permission, error) {
	switch p := capture.Permission(s); p {
	case capture.PermissionCamera, capture.PermissionMicrophone:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
}

type grantFile struct {
	Grants map[capture.Permission]Grant `yaml:"grants"`
}

// Store holds grants in memory and mirrors them to a YAML file. An empty
// path keeps grants in memory only.
type Store struct {
	path     string
	defaults map[capture.Permission]Grant
	logger   zerolog.Logger

	mu     sync.RWMutex
	grants map[capture.Permission]Grant
}

// OpenStore loads the grant file at path, falling back to defaults for
// permissions the file does not mention. A missing file is not an error.
func OpenStore(path string, defaults map[capture.Permission]Grant) (*Store, error) {
	s := &Store{
		path:     path,
		defaults: map[capture.Permission]Grant{},
		logger:   xglog.WithComponent("permission"),
	}
	for _, p := range []capture.Permission{capture.PermissionCamera, capture.PermissionMicrophone} {
		g := defaults[p]
		if g == "" {
			g = GrantUndetermined
		}
		s.defaults[p] = g
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current grant of p.
func (s *Store) Get(p capture.Permission) Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.grants[p]; ok {
		return g
	}
	return GrantUndetermined
}

// Snapshot returns a copy of all grants.
func (s *Store) Snapshot() map[capture.Permission]Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.grants)
}

// Set updates p and persists the full grant set.
func (s *Store) Set(p capture.Permission, g Grant) error {
	if _, ok := s.defaults[p]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPermission, p)
	}
	if _, err := ParseGrant(string(g)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.grants[p]
	s.grants[p] = g
	if err := s.persistLocked(); err != nil {
		s.grants[p] = prev
		return err
	}
	s.logger.Info().
		Str(xglog.FieldEvent, "permission.grant_changed").
		Str(xglog.FieldPermission, string(p)).
		Str("from", string(prev)).
		Str("to", string(g)).
		Msg("permission grant updated")
	return nil
}

// Reload re-reads the grant file. Unknown keys or values are rejected
// and the previous grants are kept.
func (s *Store) Reload() error {
	grants := maps.Clone(s.defaults)
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read grant file: %w", err)
		default:
			parsed, err := decodeGrants(data)
			if err != nil {
				return fmt.Errorf("parse grant file %s: %w", s.path, err)
			}
			for p, g := range parsed {
				grants[p] = g
			}
		}
	}

	s.mu.Lock()
	s.grants = grants
	s.mu.Unlock()
	return nil
}

func decodeGrants(data []byte) (map[capture.Permission]Grant, error) {
	var f grantFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for p, g := range f.Grants {
		if _, err := ParsePermission(string(p)); err != nil {
			return nil, err
		}
		if _, err := ParseGrant(string(g)); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return f.Grants, nil
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(grantFile{Grants: s.grants})
	if err != nil {
		return fmt.Errorf("marshal grants: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create grant directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write grant file: %w", err)
	}
	return nil
}
