// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/mediacapture/internal/api"
	"github.com/ManuGH/mediacapture/internal/api/middleware"
	"github.com/ManuGH/mediacapture/internal/capture"
	"github.com/ManuGH/mediacapture/internal/config"
	"github.com/ManuGH/mediacapture/internal/health"
	"github.com/ManuGH/mediacapture/internal/history"
	"github.com/ManuGH/mediacapture/internal/infra/ffmpeg"
	"github.com/ManuGH/mediacapture/internal/infra/fsresolver"
	"github.com/ManuGH/mediacapture/internal/infra/imageprobe"
	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/media"
	"github.com/ManuGH/mediacapture/internal/permission"
	"github.com/ManuGH/mediacapture/internal/persistence/sqlite"
	"github.com/ManuGH/mediacapture/internal/telemetry"
)

// app owns every long-lived component of the daemon.
type app struct {
	cfg    config.AppConfig
	logger zerolog.Logger

	telemetry *telemetry.Provider
	grants    *permission.Store
	gate      *permission.Gate
	history   *history.Store
	service   *ffmpeg.CaptureService
	api       *api.Server
	http      *http.Server
}

func newApp(ctx context.Context, cfg config.AppConfig) (_ *app, err error) {
	a := &app{cfg: cfg, logger: xglog.WithComponent("daemon")}
	defer func() {
		if err != nil {
			a.closeStores()
		}
	}()

	if err := health.PerformStartupChecks(cfg); err != nil {
		return nil, err
	}

	a.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	defaults, err := grantDefaults(cfg.Permissions.Defaults)
	if err != nil {
		return nil, err
	}
	a.grants, err = permission.OpenStore(cfg.Permissions.File, defaults)
	if err != nil {
		return nil, fmt.Errorf("open grant store: %w", err)
	}
	a.gate = permission.NewGate(a.grants, cfg.Permissions.PromptTimeout)

	a.history, err = history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	resolver := fsresolver.New(cfg.ContentRoots)
	builder := media.NewBuilder(resolver, imageprobe.Prober{}, ffmpeg.NewProber(cfg.FFmpeg.FFprobeBin, cfg.FFmpeg.ProbeTimeout))
	a.service = ffmpeg.NewCaptureService(ffmpeg.ServiceConfig{
		Bin: cfg.FFmpeg.Bin,
		Devices: ffmpeg.Devices{
			Camera:           cfg.Devices.Camera,
			Microphone:       cfg.Devices.Microphone,
			VideoInputFormat: cfg.Devices.VideoInputFormat,
			AudioInputFormat: cfg.Devices.AudioInputFormat,
		},
		SpoolDir:  cfg.FFmpeg.SpoolDir,
		StopGrace: cfg.FFmpeg.StopGrace,
	})

	sessions := api.NewRegistry(0)
	orch := capture.New(capture.Config{
		CacheRoot: cfg.CacheDir,
		Observer:  capture.Observers(sessions, a.history),
	}, a.gate, a.service, resolver, builder)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin))
	hm.RegisterChecker(health.NewBinaryChecker("ffprobe", cfg.FFmpeg.FFprobeBin))
	hm.RegisterChecker(health.NewDirectoryChecker("capture_dir", cfg.CacheDir))
	hm.RegisterChecker(health.NewDirectoryChecker("spool_dir", cfg.FFmpeg.SpoolDir))
	hm.RegisterChecker(health.NewDatabaseChecker("history", a.history.Path(), sqlite.VerifyIntegrity))

	serviceName := ""
	if cfg.Telemetry.Enabled {
		serviceName = cfg.LogService
	}
	a.api = api.New(api.Config{
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit.Requests,
			WindowSize:   cfg.RateLimit.Window,
		},
		ServiceName: serviceName,
	}, api.Deps{
		Capturer:    orch,
		Rounds:      a.service,
		History:     a.history,
		Formats:     builder,
		Permissions: a.gate,
		Health:      hm,
		Sessions:    sessions,
	})
	a.http = api.NewHTTPServer(cfg.ListenAddr, a.api.Handler())

	a.logger.Info().
		Str("capture_dir", orch.CaptureDir()).
		Str("spool_dir", a.service.SpoolDir()).
		Str("grants", a.grants.Path()).
		Str("history", a.history.Path()).
		Msg("components initialised")
	return a, nil
}

// Run serves until ctx is cancelled, then shuts down in dependency order.
func (a *app) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		a.closeStores()
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
	}
	a.logger.Info().Str("event", "http.listening").Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.grants.Watch(gctx)
	})
	g.Go(func() error {
		a.janitor(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	a.logger.Info().Str("event", "shutdown.start").Msg("shutting down")

	// Pending prompts are denied first so gated sessions finalize promptly.
	a.gate.Close()
	errs := []error{
		a.http.Shutdown(ctx),
		a.api.Close(ctx),
		a.service.Shutdown(ctx),
		a.telemetry.Shutdown(ctx),
	}
	a.closeStores()
	return errors.Join(errs...)
}

func (a *app) closeStores() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("closing history store")
		}
	}
}

// janitor removes stale spool files left by rounds that never reported.
func (a *app) janitor(ctx context.Context) {
	interval := min(a.cfg.FFmpeg.SpoolRetention, 10*time.Minute)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := a.service.PruneSpool(now, a.cfg.FFmpeg.SpoolRetention)
			if err != nil {
				a.logger.Warn().Err(err).Str("event", "spool.prune_failed").Msg("pruning spool directory")
				continue
			}
			if n > 0 {
				a.logger.Info().Str("event", "spool.pruned").Int("files", n).Msg("removed stale spool files")
			}
		}
	}
}

func grantDefaults(raw map[string]string) (map[capture.Permission]permission.Grant, error) {
	out := make(map[capture.Permission]permission.Grant, len(raw))
	for k, v := range raw {
		p, err := permission.ParsePermission(k)
		if err != nil {
			return nil, err
		}
		g, err := permission.ParseGrant(v)
		if err != nil {
			return nil, err
		}
		out[p] = g
	}
	return out, nil
}
