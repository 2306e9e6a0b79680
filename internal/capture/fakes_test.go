// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package capture

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/ManuGH/mediacapture/internal/media"
)

type fakeGate struct {
	mu       sync.Mutex
	granted  map[Permission]bool
	response map[Permission]bool
	requests [][]Permission
	// hold, when set, blocks Request responses until closed.
	hold chan struct{}
}

func (g *fakeGate) Check(_ context.Context, p Permission) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted[p]
}

func (g *fakeGate) Request(_ context.Context, perms []Permission) <-chan map[Permission]bool {
	g.mu.Lock()
	g.requests = append(g.requests, append([]Permission(nil), perms...))
	resp := g.response
	hold := g.hold
	g.mu.Unlock()

	ch := make(chan map[Permission]bool, 1)
	go func() {
		if hold != nil {
			<-hold
		}
		ch <- resp
	}()
	return ch
}

type fakeService struct {
	mu       sync.Mutex
	outcomes []Outcome
	launches []LaunchRequest
	err      error
}

func (s *fakeService) Launch(_ context.Context, req LaunchRequest) (<-chan Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launches = append(s.launches, req)
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan Outcome, 1)
	if len(s.outcomes) == 0 {
		ch <- Outcome{Status: OutcomeCancelled}
	} else {
		out := s.outcomes[0]
		s.outcomes = s.outcomes[1:]
		// resolve on a different goroutine than the caller
		go func() { ch <- out }()
	}
	return ch, nil
}

func (s *fakeService) launched() []LaunchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LaunchRequest(nil), s.launches...)
}

type fakeCopier struct {
	mu     sync.Mutex
	copies [][2]string
	err    error
}

func (c *fakeCopier) Copy(_ context.Context, src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copies = append(c.copies, [2]string{src, dst})
	return c.err
}

type fakeBuilder struct {
	mu    sync.Mutex
	built []string
	// failOn makes the n-th build (1-based) fail.
	failOn int
}

func (b *fakeBuilder) BuildMediaDescriptor(path string) (media.MediaDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built = append(b.built, path)
	if b.failOn == len(b.built) {
		return media.MediaDescriptor{}, errors.New("stat: no such file or directory")
	}
	return media.MediaDescriptor{
		Name:     filepath.Base(path),
		FullPath: "file://" + path,
		Type:     media.MimeTypeForExtension(path),
		Size:     int64(len(b.built)),
	}, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	states []State
}

func (r *recordingObserver) SessionUpdated(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State)
}

func completed(n int) []Outcome {
	out := make([]Outcome, n)
	for i := range out {
		out[i] = Outcome{Status: OutcomeCompleted}
	}
	return out
}

func allGranted() *fakeGate {
	return &fakeGate{granted: map[Permission]bool{PermissionCamera: true, PermissionMicrophone: true}}
}
