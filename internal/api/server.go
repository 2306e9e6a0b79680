// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api serves the capture daemon's HTTP surface.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/mediacapture/internal/api/middleware"
	"github.com/ManuGH/mediacapture/internal/capture"
	"github.com/ManuGH/mediacapture/internal/health"
	"github.com/ManuGH/mediacapture/internal/history"
	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/media"
	"github.com/ManuGH/mediacapture/internal/permission"
)

// Capturer runs capture sessions to completion.
type Capturer interface {
	Capture(ctx context.Context, req capture.Request) (capture.Result, error)
}

// RoundController signals the in-flight round of a session.
type RoundController interface {
	Stop(sessionID string) error
	Cancel(sessionID string) error
}

// HistoryReader reads the finalized-session ledger.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
	Get(ctx context.Context, sessionID string) (history.Record, error)
}

// FormatProvider computes format metadata for a media file.
type FormatProvider interface {
	FormatData(ctx context.Context, fullPath, mimeHint string) (media.FormatDescriptor, error)
}

// PermissionAdmin is the operator side of the permission gate.
type PermissionAdmin interface {
	Pending() []permission.Prompt
	Grants() map[capture.Permission]permission.Grant
	Resolve(id string, grant bool) error
	SetGrant(p capture.Permission, g permission.Grant) error
}

// Config configures the HTTP surface.
type Config struct {
	// RateLimit applies to capture requests only.
	RateLimit middleware.RateLimitConfig
	// ServiceName enables otelhttp tracing when set.
	ServiceName string
}

// Deps are the collaborators the handlers call. Sessions is required; the
// orchestrator must report to the same registry.
type Deps struct {
	Capturer    Capturer
	Rounds      RoundController
	History     HistoryReader
	Formats     FormatProvider
	Permissions PermissionAdmin
	Health      *health.Manager
	Sessions    *Registry
}

// Server owns the router and the background sessions started with
// wait=false.
type Server struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	if deps.Sessions == nil {
		deps.Sessions = NewRegistry(0)
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: xglog.WithComponent("api"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.ServiceName,
		EnableLogging:         true,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(s.cfg.RateLimit)).Post("/capture/{kind}", s.handleCapture)

		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/stop", s.handleStopRound)
		r.Post("/sessions/{id}/cancel", s.handleCancelRound)

		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryRecord)

		r.Post("/format", s.handleFormat)

		r.Get("/permissions", s.handlePermissions)
		r.Post("/permissions/prompts/{id}", s.handleResolvePrompt)
		r.Put("/permissions/{permission}", s.handleSetGrant)
	})
	return r
}

// Close cancels sessions started without waiting and blocks until they
// are finalized or ctx expires.
func (s *Server) Close(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewHTTPServer wraps h with the daemon's timeouts. WriteTimeout stays
// unset because synchronous capture requests block for the whole session.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
