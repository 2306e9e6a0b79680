// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/mediacapture/internal/capture"
	"github.com/ManuGH/mediacapture/internal/history"
	"github.com/ManuGH/mediacapture/internal/media"
	"github.com/ManuGH/mediacapture/internal/permission"
)

type fakeCapturer struct {
	mu       sync.Mutex
	requests []capture.Request
	observer capture.Observer
	run      func(ctx context.Context, req capture.Request) (capture.Result, error)
}

func (f *fakeCapturer) Capture(ctx context.Context, req capture.Request) (capture.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	res, err := f.run(ctx, req)
	if f.observer != nil {
		s := capture.Session{ID: req.ID, Kind: req.Kind, Limit: max(req.Limit, 1), State: capture.StateFinalized, Err: err}
		s.Results = res.Files
		s.Completed = len(res.Files)
		f.observer.SessionUpdated(s)
	}
	return res, err
}

func (f *fakeCapturer) last() capture.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeRounds struct {
	stopped, cancelled []string
	err                error
}

func (f *fakeRounds) Stop(id string) error {
	f.stopped = append(f.stopped, id)
	return f.err
}

func (f *fakeRounds) Cancel(id string) error {
	f.cancelled = append(f.cancelled, id)
	return f.err
}

type fakeHistory struct {
	records   []history.Record
	lastLimit int
	err       error
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Record, error) {
	f.lastLimit = limit
	return f.records, f.err
}

func (f *fakeHistory) Get(_ context.Context, id string) (history.Record, error) {
	for _, r := range f.records {
		if r.SessionID == id {
			return r, nil
		}
	}
	return history.Record{}, history.ErrNotFound
}

type fakeFormats struct {
	fd  media.FormatDescriptor
	err error
}

func (f *fakeFormats) FormatData(_ context.Context, fullPath, _ string) (media.FormatDescriptor, error) {
	if fullPath == "" {
		return media.FormatDescriptor{}, media.ErrPathRequired
	}
	return f.fd, f.err
}

type fakePermissions struct {
	grants   map[capture.Permission]permission.Grant
	pending  []permission.Prompt
	resolved map[string]bool
}

func newFakePermissions() *fakePermissions {
	return &fakePermissions{
		grants:   map[capture.Permission]permission.Grant{capture.PermissionCamera: permission.GrantUndetermined},
		resolved: map[string]bool{},
		pending: []permission.Prompt{{
			ID:          "p1",
			Permissions: []capture.Permission{capture.PermissionCamera},
			CreatedAt:   time.Unix(0, 0).UTC(),
			ExpiresAt:   time.Unix(120, 0).UTC(),
		}},
	}
}

func (f *fakePermissions) Pending() []permission.Prompt { return f.pending }

func (f *fakePermissions) Grants() map[capture.Permission]permission.Grant { return f.grants }

func (f *fakePermissions) Resolve(id string, grant bool) error {
	for _, p := range f.pending {
		if p.ID == id {
			f.resolved[id] = grant
			return nil
		}
	}
	return permission.ErrPromptNotFound
}

func (f *fakePermissions) SetGrant(p capture.Permission, g permission.Grant) error {
	f.grants[p] = g
	return nil
}
